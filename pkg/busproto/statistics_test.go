// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStatistics_NewTrafficStats(t *testing.T) {
	s := NewTrafficStats().Snapshot()
	if s.StartTime.IsZero() {
		t.Error("StartTime not set")
	}
	if s.FramesSent != 0 || s.ChunksReceived != 0 || s.Fires != 0 {
		t.Errorf("new stats not zero: %+v", s)
	}
}

func TestStatistics_Record(t *testing.T) {
	ts := NewTrafficStats()
	ts.RecordFrame(Frame{Bytes: []byte{0x81}})
	ts.RecordFrame(Frame{Bytes: []byte{0x20, 0x07}})
	ts.RecordFire(nil)
	ts.RecordFire(&TransportError{Err: errors.New("gone")})
	ts.RecordChunk(Chunk{Data: []byte{1, 2, 3}}, true)
	ts.RecordChunk(Chunk{Data: []byte{4}}, false)

	s := ts.Snapshot()
	if s.FramesSent != 2 || s.BytesSent != 3 {
		t.Errorf("sent = %d frames / %d bytes, want 2/3", s.FramesSent, s.BytesSent)
	}
	if s.Fires != 2 || s.SendErrors != 1 {
		t.Errorf("fires = %d, errors = %d, want 2/1", s.Fires, s.SendErrors)
	}
	if s.ChunksReceived != 2 || s.BytesReceived != 4 || s.Rendered != 1 {
		t.Errorf("received = %+v", s)
	}
}

func TestStatistics_CalculateRates(t *testing.T) {
	start := time.Now()
	s := Statistics{StartTime: start, FramesSent: 20, ChunksReceived: 10}
	s.CalculateRates(start.Add(2 * time.Second))
	if s.FrameRate != 10 || s.ChunkRate != 5 {
		t.Errorf("rates = %.1f/%.1f, want 10/5", s.FrameRate, s.ChunkRate)
	}

	zero := Statistics{StartTime: start}
	zero.CalculateRates(start)
	if zero.FrameRate != 0 {
		t.Errorf("FrameRate = %.1f with no elapsed time", zero.FrameRate)
	}
}

func TestStatistics_Reset(t *testing.T) {
	ts := NewTrafficStats()
	ts.RecordFrame(Frame{Bytes: []byte{1}})
	ts.Reset()
	if s := ts.Snapshot(); s.FramesSent != 0 {
		t.Errorf("FramesSent = %d after Reset", s.FramesSent)
	}
}

func TestStatistics_String(t *testing.T) {
	s := Statistics{StartTime: time.Now(), FramesSent: 3, SendErrors: 1}
	out := s.String()
	for _, want := range []string{"Frames Sent:", "Send Errors:", "Chunk Rate:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(Statistics{StartTime: time.Now()}.String(), "Send Errors") {
		t.Error("String() shows send errors when there are none")
	}
}

func TestSession_Statistics(t *testing.T) {
	s, sink := newTestSession(t)

	// rejected before sending
	_, _ = s.FireIndex(context.Background(), 1, nil, sink)

	s.Selection().Select(0x1)
	s.Selection().Select(0x2)
	if _, err := s.FireIndex(context.Background(), 1, nil, sink); err != nil {
		t.Fatalf("FireIndex failed: %v", err)
	}
	s.HandleChunk(Chunk{Data: []byte{0xAA, 0xBB}})

	st := s.Stats().Snapshot()
	if st.Fires != 1 || st.FramesSent != 2 {
		t.Errorf("fires/frames = %d/%d, want 1/2", st.Fires, st.FramesSent)
	}
	if st.ChunksReceived != 1 || st.Rendered != 1 || st.BytesReceived != 2 {
		t.Errorf("inbound = %+v", st)
	}
}
