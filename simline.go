// Copyright 2026 The OpenHearth Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package opentherm

import "github.com/openhearth/go-opentherm/internal/syncutil"

// Transition is one recorded or injected line level change with its virtual
// timestamp in microseconds.
type Transition struct {
	At    uint64
	Level Level
}

// SimLine is a Line backed by a virtual microsecond clock, for testing.
// Wait advances the clock instead of sleeping, output transitions are
// recorded with timestamps, and input edges are injected with Transition or
// replayed from a whole frame with PlayFrame.
type SimLine struct {
	edge   func()
	tx     []Transition
	mu     syncutil.Mutex
	now    uint64
	input  Level
	output Level
	closed bool
}

// NewSimLine creates a simulated line with both sides idle and the clock at
// zero.
func NewSimLine() *SimLine {
	return &SimLine{input: Idle, output: Idle}
}

// Read implements Line.
func (s *SimLine) Read() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Write implements Line. Level changes are recorded with the current virtual
// timestamp; redundant writes are not.
func (s *SimLine) Write(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level == s.output {
		return
	}
	s.output = level
	s.tx = append(s.tx, Transition{At: s.now, Level: level})
}

// OnEdge implements Line.
func (s *SimLine) OnEdge(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrLineClosed
	}
	s.edge = fn
	return nil
}

// Now implements Line.
func (s *SimLine) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Wait implements Line by advancing the virtual clock.
func (s *SimLine) Wait(micros uint64) {
	s.Advance(micros)
}

// Close implements Line.
func (s *SimLine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.edge = nil
	return nil
}

// Advance moves the virtual clock forward without touching the line.
func (s *SimLine) Advance(micros uint64) {
	s.mu.Lock()
	s.now += micros
	s.mu.Unlock()
}

// Transition advances the clock by afterMicros, drives the input to level
// and delivers an edge. The callback runs with the simulator lock released,
// mirroring real edge delivery. The edge fires even if the level did not
// change, so tests can inject degenerate edge patterns.
func (s *SimLine) Transition(level Level, afterMicros uint64) {
	s.mu.Lock()
	s.now += afterMicros
	s.input = level
	fn := s.edge
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// PlayFrame replays the bi-phase edge sequence of a whole frame on the
// input: start bit, 32 data bits most significant first, stop bit, at the
// nominal 500 µs half-bit timing. Edges are delivered only where the wire
// would actually transition. The clock ends half a bit past the stop bit's
// final transition.
func (s *SimLine) PlayFrame(frame Frame) {
	var pending uint64
	emit := func(bit bool) {
		first, second := Active, Idle
		if !bit {
			first, second = Idle, Active
		}
		for _, half := range []Level{first, second} {
			if half != s.Read() {
				s.Transition(half, pending)
				pending = 0
			}
			pending += halfBitPeriod
		}
	}

	emit(true)
	for i := frameBits - 1; i >= 0; i-- {
		emit(frame&(1<<uint(i)) != 0)
	}
	emit(true)
	s.Advance(pending)
}

// OutputTransitions returns a copy of the recorded output level changes.
func (s *SimLine) OutputTransitions() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transition, len(s.tx))
	copy(out, s.tx)
	return out
}

// ResetOutput clears the recorded output transitions.
func (s *SimLine) ResetOutput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tx = s.tx[:0]
}
