// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// chunkedReader returns one preset chunk per Read, then err
type chunkedReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func collect(t *testing.T, chunks <-chan Chunk, errc <-chan error) ([]Chunk, error) {
	t.Helper()
	var got []Chunk
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				return got, <-errc
			}
			got = append(got, c)
		case <-timeout:
			t.Fatal("timed out waiting for reader")
		}
	}
}

func TestReadChunks_EOF(t *testing.T) {
	src := &chunkedReader{chunks: [][]byte{{0x01, 0x02}, {}, {0x03}}, err: io.EOF}
	chunks, errc := ReadChunks(context.Background(), src, 0)

	got, err := collect(t, chunks, errc)
	if err != nil {
		t.Fatalf("error = %v, want nil on EOF", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2 (empty reads skipped)", len(got))
	}
	if !bytes.Equal(got[0].Data, []byte{0x01, 0x02}) || !bytes.Equal(got[1].Data, []byte{0x03}) {
		t.Errorf("chunks = %X %X", got[0].Data, got[1].Data)
	}
	if got[0].Received.IsZero() {
		t.Error("Received not set")
	}
}

func TestReadChunks_Error(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &chunkedReader{chunks: [][]byte{{0xAA}}, err: boom}
	chunks, errc := ReadChunks(context.Background(), src, 16)

	got, err := collect(t, chunks, errc)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
	if len(got) != 1 {
		t.Errorf("got %d chunks, want 1", len(got))
	}
}

func TestReadChunks_SmallBuffer(t *testing.T) {
	src := bytes.NewReader([]byte("abcdef"))
	chunks, errc := ReadChunks(context.Background(), src, 4)

	got, err := collect(t, chunks, errc)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	var all []byte
	for _, c := range got {
		if len(c.Data) > 4 {
			t.Errorf("chunk of %d bytes exceeds buffer", len(c.Data))
		}
		all = append(all, c.Data...)
	}
	if string(all) != "abcdef" {
		t.Errorf("data = %q, want abcdef", all)
	}
}

func TestReadChunks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := io.Pipe()
	defer pw.Close()

	chunks, errc := ReadChunks(ctx, pr, 0)
	got, err := collect(t, chunks, errc)
	if err != nil {
		t.Errorf("error = %v, want nil on cancel", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d chunks after cancel, want 0", len(got))
	}
}
