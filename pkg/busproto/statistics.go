// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Statistics is a snapshot of bus traffic counters and rates
type Statistics struct {
	StartTime time.Time

	// Outbound
	Fires      uint64
	FramesSent uint64
	BytesSent  uint64
	SendErrors uint64

	// Inbound
	ChunksReceived uint64
	BytesReceived  uint64
	Rendered       uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ChunkRate float64 // chunks/sec
}

// CalculateRates derives the per-second rates from the counters
func (s *Statistics) CalculateRates(now time.Time) {
	elapsed := now.Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.FramesSent) / elapsed
		s.ChunkRate = float64(s.ChunksReceived) / elapsed
	}
}

// String returns a formatted statistics summary
func (s Statistics) String() string {
	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", time.Since(s.StartTime).Seconds())
	result += fmt.Sprintf("Fires:           %8d\n", s.Fires)
	result += fmt.Sprintf("Frames Sent:     %8d (%d bytes)\n", s.FramesSent, s.BytesSent)
	if s.SendErrors > 0 {
		result += fmt.Sprintf("Send Errors:     %8d\n", s.SendErrors)
	}
	result += fmt.Sprintf("Chunks Received: %8d (%d bytes)\n", s.ChunksReceived, s.BytesReceived)
	result += fmt.Sprintf("Rendered:        %8d\n", s.Rendered)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Chunk Rate:      %8.1f chunks/sec\n", s.ChunkRate)
	result += "================================\n"
	return result
}

// TrafficStats accumulates Statistics. Safe for concurrent use.
type TrafficStats struct {
	mu    sync.Mutex
	stats Statistics
}

// NewTrafficStats creates a tracker starting now
func NewTrafficStats() *TrafficStats {
	return &TrafficStats{stats: Statistics{StartTime: time.Now()}}
}

// RecordFire counts one Fire call and its outcome
func (t *TrafficStats) RecordFire(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Fires++
	if errors.Is(err, ErrTransportFailure) {
		t.stats.SendErrors++
	}
}

// RecordFrame counts a written frame
func (t *TrafficStats) RecordFrame(f Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.FramesSent++
	t.stats.BytesSent += uint64(len(f.Bytes))
}

// RecordChunk counts an inbound chunk and whether it was rendered
func (t *TrafficStats) RecordChunk(c Chunk, rendered bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.ChunksReceived++
	t.stats.BytesReceived += uint64(len(c.Data))
	if rendered {
		t.stats.Rendered++
	}
}

// Snapshot returns the current counters with rates calculated
func (t *TrafficStats) Snapshot() Statistics {
	t.mu.Lock()
	s := t.stats
	t.mu.Unlock()
	s.CalculateRates(time.Now())
	return s
}

// Reset zeroes every counter and restarts the clock
func (t *TrafficStats) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = Statistics{StartTime: time.Now()}
}
