// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Frame is one encoded command as handed to the sink
type Frame struct {
	FireID  string // shared by every frame of one Fire call
	Seq     int    // 1-based position within the fire
	Command string
	Address int // NoAddress for plain commands
	Target  string
	Bytes   []byte
	SentAt  time.Time
}

// Hex returns the frame bytes as contiguous uppercase hex
func (f Frame) Hex() string {
	return FormatFrame(f.Bytes)
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// FrameCallback observes each frame right after it was written.
// It runs with the bus held and should return quickly.
type FrameCallback func(Frame)

type schedulerConfig struct {
	pacing  time.Duration
	sleep   Sleeper
	onFrame FrameCallback
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*schedulerConfig)

// WithPacing sets the delay between two addressed frames of one fire.
// Zero or negative disables pacing.
func WithPacing(d time.Duration) SchedulerOption {
	return func(c *schedulerConfig) {
		c.pacing = d
	}
}

// WithSleeper replaces the pacing wait. Tests use it to record delays.
func WithSleeper(sleep Sleeper) SchedulerOption {
	return func(c *schedulerConfig) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithFrameCallback registers an observer for written frames
func WithFrameCallback(cb FrameCallback) SchedulerOption {
	return func(c *schedulerConfig) {
		c.onFrame = cb
	}
}

// Scheduler sends the frames of a command to the bus, one fire at a time.
//
// The bus is half duplex and shared, so concurrent Fire calls are serialized
// and the frames of one fire never interleave with another's.
type Scheduler struct {
	mu     sync.Mutex
	config schedulerConfig
}

// NewScheduler creates a scheduler with DefaultPacing
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	cfg := schedulerConfig{
		pacing: DefaultPacing,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler{config: cfg}
}

// Pacing returns the configured inter-frame delay
func (s *Scheduler) Pacing() time.Duration {
	return s.config.pacing
}

// Fire encodes def for every target and writes the frames to sink.
//
// Plain commands are written once and addresses are ignored. Addressable
// commands are written once per address in ascending order, with the pacing
// delay between consecutive writes; an empty address list returns
// ErrNoAddressSelected. All frames are encoded before the first write, so an
// invalid address or extra value sends nothing.
//
// A failed or short write, or ctx ending, stops the fire and returns a
// *TransportError. The frames already written are returned alongside it.
func (s *Scheduler) Fire(ctx context.Context, def *CommandDef, addresses []int, extraValue *int, sink io.Writer) ([]Frame, error) {
	return s.fire(ctx, def, addresses, extraValue, sink, nil)
}

// fire is Fire with an extra per-call observer run after the configured callback
func (s *Scheduler) fire(ctx context.Context, def *CommandDef, addresses []int, extraValue *int, sink io.Writer, observe FrameCallback) ([]Frame, error) {
	pending, err := planFrames(def, addresses, extraValue)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sent := make([]Frame, 0, len(pending))
	for i, frame := range pending {
		if i > 0 && s.config.pacing > 0 {
			if err := s.config.sleep(ctx, s.config.pacing); err != nil {
				return sent, &TransportError{Target: frame.Target, Seq: frame.Seq, Err: err}
			}
		}
		if err := ctx.Err(); err != nil {
			return sent, &TransportError{Target: frame.Target, Seq: frame.Seq, Err: err}
		}

		n, err := sink.Write(frame.Bytes)
		if err == nil && n < len(frame.Bytes) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return sent, &TransportError{Target: frame.Target, Seq: frame.Seq, Err: err}
		}

		frame.SentAt = time.Now()
		sent = append(sent, frame)
		if s.config.onFrame != nil {
			s.config.onFrame(frame)
		}
		if observe != nil {
			observe(frame)
		}
	}
	return sent, nil
}

// planFrames encodes every frame of a fire without touching the bus
func planFrames(def *CommandDef, addresses []int, extraValue *int) ([]Frame, error) {
	fireID := uuid.NewString()

	if def.kind != KindAddressable {
		frame, err := Encode(def, nil, extraValue)
		if err != nil {
			return nil, err
		}
		return []Frame{{
			FireID:  fireID,
			Seq:     1,
			Command: def.name,
			Address: NoAddress,
			Target:  NoTargetLabel,
			Bytes:   frame,
		}}, nil
	}

	targets := sortedUnique(addresses)
	if len(targets) == 0 {
		return nil, ErrNoAddressSelected
	}

	frames := make([]Frame, 0, len(targets))
	for i, addr := range targets {
		addr := addr
		frame, err := Encode(def, &addr, extraValue)
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{
			FireID:  fireID,
			Seq:     i + 1,
			Command: def.name,
			Address: addr,
			Target:  FormatAddress(addr),
			Bytes:   frame,
		})
	}
	return frames, nil
}

func sortedUnique(addresses []int) []int {
	out := make([]int, len(addresses))
	copy(out, addresses)
	sort.Ints(out)
	n := 0
	for i, addr := range out {
		if i > 0 && addr == out[n-1] {
			continue
		}
		out[n] = addr
		n++
	}
	return out[:n]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
