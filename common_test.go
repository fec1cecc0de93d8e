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

import (
	"testing"

	"github.com/openhearth/go-opentherm/internal/syncutil"
	"github.com/stretchr/testify/require"
)

// buildResponse packs a slave-originated frame the way a boiler would,
// including the parity bit. BuildRequest only originates the two master
// request types, so tests assemble acknowledgments by hand.
func buildResponse(msgType MsgType, id DataID, data uint16) Frame {
	frame := Frame(data) | Frame(msgType)<<28 | Frame(id)<<16
	if Parity(frame) {
		frame |= 1 << 31
	}
	return frame
}

// completionRecorder captures completion notifications for assertions.
type completionRecorder struct {
	mu       syncutil.Mutex
	frames   []Frame
	outcomes []Outcome
}

func (r *completionRecorder) handler() CompletionHandler {
	return func(response Frame, outcome Outcome) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.frames = append(r.frames, response)
		r.outcomes = append(r.outcomes, outcome)
	}
}

func (r *completionRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

func (r *completionRecorder) last() (Frame, Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return 0, OutcomeNone
	}
	return r.frames[len(r.frames)-1], r.outcomes[len(r.outcomes)-1]
}

// newTestEngine returns a started engine on a fresh simulated line, with a
// completion recorder attached.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *SimLine, *completionRecorder) {
	t.Helper()
	sim := NewSimLine()
	recorder := &completionRecorder{}
	opts = append([]Option{WithCompletionHandler(recorder.handler())}, opts...)
	engine, err := New(sim, opts...)
	require.NoError(t, err)
	require.NoError(t, engine.Start())
	return engine, sim, recorder
}
