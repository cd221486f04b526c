// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trafficlog records bus traffic to a size-rotated file.
package trafficlog

import (
	"io"
	"log"
	"sync"

	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/kocinski15/son1config/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes one line per transmitted frame and received chunk.
// A nil *Logger discards everything.
type Logger struct {
	mu  sync.Mutex
	out io.WriteCloser
	log *log.Logger
}

// Open returns a Logger rotating cfg.File, or nil when cfg.File is empty
func Open(cfg config.LogConfig) *Logger {
	if cfg.File == "" {
		return nil
	}
	return New(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

// New returns a Logger writing to out
func New(out io.WriteCloser) *Logger {
	return &Logger{
		out: out,
		log: log.New(out, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// Frame logs a transmitted frame
func (l *Logger) Frame(f busproto.Frame) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Printf("TX %s seq=%d cmd=%q target=%s bytes=%s", f.FireID, f.Seq, f.Command, f.Target, f.Hex())
}

// Chunk logs a received chunk. rec carries its attribution when the chunk was
// rendered; pass a zero record otherwise.
func (l *Logger) Chunk(c busproto.Chunk, rec busproto.ResponseRecord) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.FireID == "" {
		l.log.Printf("RX bytes=%s", busproto.FormatFrame(c.Data))
		return
	}
	l.log.Printf("RX %s seq=%d cmd=%q target=%s bytes=%s", rec.FireID, rec.Seq, rec.Command, rec.Target, busproto.FormatFrame(c.Data))
}

// Printf logs a free-form event such as a reconnect
func (l *Logger) Printf(format string, v ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Printf(format, v...)
}

// Close closes the underlying file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}
