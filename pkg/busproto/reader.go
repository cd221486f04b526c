// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultReadBufferSize is the read size used when ReadChunks gets bufSize <= 0
const DefaultReadBufferSize = 256

// Chunk is one read from the bus as it arrived
type Chunk struct {
	Data     []byte
	Received time.Time
}

// ReadChunks starts a goroutine that owns src and forwards every non-empty
// read as a Chunk. The chunk channel is closed when reading stops; the error
// channel then yields the cause, nil for io.EOF or a cancelled ctx.
//
// A Read blocked in src does not observe ctx. Close the underlying
// connection to unblock it.
func ReadChunks(ctx context.Context, src io.Reader, bufSize int) (<-chan Chunk, <-chan error) {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	chunks := make(chan Chunk, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(chunks)
		buf := make([]byte, bufSize)
		for {
			if ctx.Err() != nil {
				errc <- nil
				return
			}

			n, err := src.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case chunks <- Chunk{Data: data, Received: time.Now()}:
				case <-ctx.Done():
					errc <- nil
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					errc <- nil
				} else {
					errc <- err
				}
				return
			}
		}
	}()

	return chunks, errc
}
