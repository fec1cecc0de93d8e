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

// writeBit drives one bi-phase bit onto the line: a logical 1 is Active for
// the first half period then Idle, a logical 0 the inverse. Timing comes
// from the line's busy-wait, so the call occupies the caller for exactly one
// bit period.
func (e *Engine) writeBit(bit bool) {
	first, second := Active, Idle
	if !bit {
		first, second = Idle, Active
	}
	e.line.Write(first)
	e.line.Wait(halfBitPeriod)
	e.line.Write(second)
	e.line.Wait(halfBitPeriod)
}

// transmit drives a full frame onto the line: start bit, 32 data bits most
// significant first, stop bit. Start and stop are fixed at logical 1. The
// line is left idle afterwards. Blocking by construction: 34 bit periods,
// about 34 ms.
func (e *Engine) transmit(frame Frame) {
	e.writeBit(true)
	for i := frameBits - 1; i >= 0; i-- {
		e.writeBit(frame&(1<<uint(i)) != 0)
	}
	e.writeBit(true)
	e.line.Write(Idle)
}
