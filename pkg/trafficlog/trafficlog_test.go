// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package trafficlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/kocinski15/son1config/pkg/config"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestLogger_Lines(t *testing.T) {
	buf := &bufferCloser{}
	l := New(buf)

	l.Frame(busproto.Frame{FireID: "f1", Seq: 2, Command: "Read Status", Target: "0xB", Bytes: []byte{0x8B}})
	l.Chunk(busproto.Chunk{Data: []byte{0x01, 0xFF}}, busproto.ResponseRecord{FireID: "f1", Seq: 2, Command: "Read Status", Target: "0xB"})
	l.Chunk(busproto.Chunk{Data: []byte{0x02}}, busproto.ResponseRecord{})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	wants := []string{
		`TX f1 seq=2 cmd="Read Status" target=0xB bytes=8B`,
		`RX f1 seq=2 cmd="Read Status" target=0xB bytes=01FF`,
		`RX bytes=02`,
	}
	for i, want := range wants {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], want)
		}
	}

	if err := l.Close(); err != nil || !buf.closed {
		t.Errorf("Close() = %v, closed = %v", err, buf.closed)
	}
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	l.Frame(busproto.Frame{})
	l.Chunk(busproto.Chunk{}, busproto.ResponseRecord{})
	l.Printf("ignored %d", 1)
	if err := l.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}

func TestOpen(t *testing.T) {
	if l := Open(config.LogConfig{}); l != nil {
		t.Error("Open() without a file returned a logger")
	}

	path := filepath.Join(t.TempDir(), "traffic.log")
	l := Open(config.LogConfig{File: path, MaxSizeMB: 1})
	if l == nil {
		t.Fatal("Open() returned nil")
	}
	l.Printf("reconnected to %s", "COM3")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "reconnected to COM3") {
		t.Errorf("log = %q", data)
	}
}
