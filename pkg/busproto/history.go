// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"sync"
	"time"
)

// ResponseRecord is a rendered inbound chunk kept for display
type ResponseRecord struct {
	Received time.Time
	Command  string // command the chunk is attributed to, empty if none
	Target   string
	FireID   string
	Seq      int
	Rendered Rendered
}

// History keeps the most recent response records, evicting the oldest first
type History struct {
	mu       sync.RWMutex
	records  []ResponseRecord
	capacity int
}

// NewHistory creates a history holding at most capacity records.
// A non-positive capacity uses DefaultHistorySize.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		records:  make([]ResponseRecord, 0, capacity),
		capacity: capacity,
	}
}

// Add appends a record, dropping the oldest ones beyond capacity
func (h *History) Add(r ResponseRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if len(h.records) > h.capacity {
		h.records = append(h.records[:0], h.records[len(h.records)-h.capacity:]...)
	}
}

// Records returns the records from oldest to newest
func (h *History) Records() []ResponseRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ResponseRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Newest returns the records from newest to oldest
func (h *History) Newest() []ResponseRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ResponseRecord, len(h.records))
	for i, r := range h.records {
		out[len(h.records)-1-i] = r
	}
	return out
}

// Len returns the number of records held
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Capacity returns the maximum number of records held
func (h *History) Capacity() int {
	return h.capacity
}

// Clear drops every record
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = h.records[:0]
}
