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

// Level is the logical state of the OpenTherm line. The protocol signals by
// polarity inversion, so Active/Idle are logical levels; how they map to
// electrical levels is the line implementation's concern.
type Level bool

const (
	// Idle is the logical rest state of the line.
	Idle Level = false
	// Active is the logical asserted state of the line.
	Active Level = true
)

// String returns "Active" or "Idle".
func (l Level) String() string {
	if l == Active {
		return "Active"
	}
	return "Idle"
}

// Line is the physical line and clock collaborator the protocol engine runs
// on. Implementations exist for memory-mapped GPIO (the gpio subpackage) and
// for tests (SimLine).
//
// The engine assumes the clock never wraps within a single exchange and that
// edge delivery latency is negligible against the 500 µs half-bit period.
// Edges must be delivered one at a time, in arrival order; the registered
// callback must have returned before the next edge is delivered.
type Line interface {
	// Read returns the current logical level of the input line.
	Read() Level

	// Write drives the output line to the given logical level.
	Write(level Level)

	// OnEdge registers fn to be invoked on every transition of the input
	// line. A nil fn deregisters the current callback. The callback runs in
	// the line's edge delivery context, not the caller's.
	OnEdge(fn func()) error

	// Now returns a monotonic timestamp in microseconds.
	Now() uint64

	// Wait busy-waits for the given number of microseconds. It must hold
	// sub-millisecond accuracy; half-bit timing depends on it.
	Wait(micros uint64)

	// Close releases the line's resources. Edge delivery stops.
	Close() error
}
