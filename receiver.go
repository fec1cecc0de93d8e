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

// handleEdge is the receive decoder, invoked by the line once per input
// transition. It reconstructs bits from inter-transition intervals: the
// decoder records a timestamp at each accepted transition and only acts on
// edges more than sampleThreshold after the last one, which selects the
// mid-bit transitions of the bi-phase encoding and skips bit-boundary
// edges.
//
// It runs in the line's edge delivery context, must return promptly, never
// blocks and never fires the completion handler. Edges arriving while the
// session is not in a receiving-capable state are ignored.
func (e *Engine) handleEdge() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateAwaitingStart:
		now := e.line.Now()
		if e.line.Read() == Active {
			e.state = stateStartReceived
		} else {
			e.state = stateFrameInvalid
		}
		e.lastTransition = now

	case stateStartReceived:
		// The start bit's mid-bit transition: half a period after the
		// rising edge, line back at idle. Anything else is a framing error.
		now := e.line.Now()
		if now-e.lastTransition < sampleThreshold && e.line.Read() == Idle {
			e.state = stateReceiving
			e.bitCount = 0
		} else {
			e.state = stateFrameInvalid
		}
		e.lastTransition = now

	case stateReceiving:
		now := e.line.Now()
		if now-e.lastTransition <= sampleThreshold {
			return // bit-boundary edge, not a sampling point
		}
		if e.bitCount < frameBits {
			// The wire inverts the logical value: after a mid-bit
			// transition the line sits at the complement of the bit.
			e.response <<= 1
			if e.line.Read() == Idle {
				e.response |= 1
			}
			e.bitCount++
			e.lastTransition = now
			return
		}
		// Stop bit. Its mid-bit transition returns the line to idle;
		// strict mode rejects anything else.
		if e.strictStop && e.line.Read() != Idle {
			e.state = stateFrameInvalid
		} else {
			e.state = stateFrameReady
		}
		e.lastTransition = now

	default:
		// Idle, mid-transmit or already terminal: stray edge, ignore.
	}
}
