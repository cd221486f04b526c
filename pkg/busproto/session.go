// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Session is the state one bus connection works with: the catalog, the
// address selection, the scheduler, the response history and the last frame
// sent.
//
// The bus gives no link between a reply and the frame that caused it. A
// session attributes each inbound chunk to the most recently written frame and
// records that frame's fire ID and sequence number, so the attribution is
// explicit even when it is a guess.
type Session struct {
	catalog   *Catalog
	selection *AddressSet
	scheduler *Scheduler
	history   *History
	stats     *TrafficStats

	mu       sync.Mutex
	lastDef  *CommandDef
	last     Frame
	hasLast  bool
	fallback ResponseType
}

// NewSession wires the explicit state of one connection.
// A nil history gets a DefaultHistorySize one.
func NewSession(catalog *Catalog, scheduler *Scheduler, history *History) *Session {
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	return &Session{
		catalog:   catalog,
		selection: NewAddressSet(),
		scheduler: scheduler,
		history:   history,
		stats:     NewTrafficStats(),
		fallback:  ResponseNone,
	}
}

// Catalog returns the command catalog
func (s *Session) Catalog() *Catalog {
	return s.catalog
}

// Selection returns the address selection used by addressable commands
func (s *Session) Selection() *AddressSet {
	return s.selection
}

// History returns the response history
func (s *Session) History() *History {
	return s.history
}

// Stats returns the traffic counters
func (s *Session) Stats() *TrafficStats {
	return s.stats
}

// SetFallbackResponseType sets how chunks are rendered before anything was sent
func (s *Session) SetFallbackResponseType(rt ResponseType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = rt
}

// FireIndex sends the command at catalog position i to the current selection
func (s *Session) FireIndex(ctx context.Context, i int, extraValue *int, sink io.Writer) ([]Frame, error) {
	def, err := s.catalog.ByIndex(i)
	if err != nil {
		return nil, err
	}
	return s.Fire(ctx, def, extraValue, sink)
}

// FireName sends the first command called name to the current selection
func (s *Session) FireName(ctx context.Context, name string, extraValue *int, sink io.Writer) ([]Frame, error) {
	def, err := s.catalog.ByName(name)
	if err != nil {
		return nil, err
	}
	return s.Fire(ctx, def, extraValue, sink)
}

// Fire sends def to a snapshot of the current selection. Each written frame
// becomes the attribution target for inbound chunks as soon as it is sent.
func (s *Session) Fire(ctx context.Context, def *CommandDef, extraValue *int, sink io.Writer) ([]Frame, error) {
	var addresses []int
	if def.IsAddressable() {
		addresses = s.selection.SnapshotSorted()
	}

	frames, err := s.scheduler.fire(ctx, def, addresses, extraValue, sink, func(f Frame) {
		s.stats.RecordFrame(f)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastDef = def
		s.last = f
		s.hasLast = true
	})
	// Fires rejected before the first write are not bus traffic
	if len(frames) > 0 || errors.Is(err, ErrTransportFailure) {
		s.stats.RecordFire(err)
	}
	return frames, err
}

// LastFrame returns the most recently written frame
func (s *Session) LastFrame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// HandleChunk classifies an inbound chunk against the last fired command and
// records it. It returns ok=false when the response type is none.
func (s *Session) HandleChunk(chunk Chunk) (ResponseRecord, bool) {
	s.mu.Lock()
	rt := s.fallback
	rec := ResponseRecord{Received: chunk.Received}
	if s.hasLast {
		rt = s.lastDef.responseType
		rec.Command = s.last.Command
		rec.Target = s.last.Target
		rec.FireID = s.last.FireID
		rec.Seq = s.last.Seq
	}
	s.mu.Unlock()

	rendered, ok := Classify(chunk.Data, rt)
	s.stats.RecordChunk(chunk, ok)
	if !ok {
		return ResponseRecord{}, false
	}
	rec.Rendered = rendered
	s.history.Add(rec)
	return rec, true
}

// Reset clears the selection and the last frame, as after a reconnect.
// The catalog and history are kept.
func (s *Session) Reset() {
	s.selection.DeselectAll()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDef = nil
	s.last = Frame{}
	s.hasLast = false
}
