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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartHoldsLineIdle(t *testing.T) {
	t.Parallel()
	sim := NewSimLine()
	engine, err := New(sim)
	require.NoError(t, err)

	before := sim.Now()
	require.NoError(t, engine.Start())

	// The slave gets a full second of idle line before the first request.
	assert.GreaterOrEqual(t, sim.Now()-before, uint64(settleHold))
	assert.Empty(t, sim.OutputTransitions())
}

func TestTimeoutReportedExactlyOnce(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)

	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))

	// Under the deadline nothing happens.
	sim.Advance(responseTimeout - 1000)
	engine.Tick()
	assert.Zero(t, recorder.count())

	// Past it, exactly one TIMEOUT notification and straight back to READY.
	sim.Advance(2000)
	engine.Tick()
	require.Equal(t, 1, recorder.count())
	frame, outcome := recorder.last()
	assert.Equal(t, OutcomeTimeout, outcome)
	assert.Zero(t, frame)

	engine.Tick()
	engine.Tick()
	assert.Equal(t, 1, recorder.count())

	// No quiet period after a timeout; the next send is accepted at once.
	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
}

func TestSendRejectedWhileBusy(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)

	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
	sim.ResetOutput()

	err := engine.Send(BuildStatusRequest(true, false, false, false, false))
	require.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, sim.OutputTransitions(), "rejected send must not touch the line")
	assert.Zero(t, recorder.count(), "rejected send must not fire a notification")

	// The in-flight exchange is unaffected and still completes.
	response := buildResponse(MsgReadACK, IDTboiler, 0x1E00)
	sim.PlayFrame(response)
	engine.Tick()
	require.Equal(t, 1, recorder.count())
	frame, outcome := recorder.last()
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, response, frame)
}

func TestQuietPeriodEnforcedAfterExchange(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)

	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
	sim.PlayFrame(buildResponse(MsgReadACK, IDTboiler, 0x1E00))
	engine.Tick()
	require.Equal(t, 1, recorder.count())

	// Inside the quiet period the engine refuses new requests.
	err := engine.Send(BuildGetBoilerTemperatureRequest())
	require.ErrorIs(t, err, ErrNotReady)

	sim.Advance(quietPeriod / 2)
	engine.Tick()
	require.ErrorIs(t, engine.Send(BuildGetBoilerTemperatureRequest()), ErrNotReady)

	// Once it expires a new exchange is accepted.
	sim.Advance(quietPeriod)
	engine.Tick()
	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
}

func TestQuietPeriodAfterInvalidFrame(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)

	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
	sim.Transition(Idle, 1000) // malformed start
	engine.Tick()
	require.Equal(t, 1, recorder.count())
	_, outcome := recorder.last()
	assert.Equal(t, OutcomeInvalid, outcome)

	require.ErrorIs(t, engine.Send(BuildGetBoilerTemperatureRequest()), ErrNotReady)
	sim.Advance(quietPeriod + 1)
	engine.Tick()
	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
}

func TestNewExchangeIndependentOfPrevious(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)

	// First exchange succeeds with a real response.
	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
	sim.PlayFrame(buildResponse(MsgReadACK, IDTboiler, 0x2A80))
	engine.Tick()
	sim.Advance(quietPeriod + 1)
	engine.Tick()

	// Second exchange times out: the stale response and outcome must have
	// been cleared when the new send armed.
	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
	sim.Advance(responseTimeout + 1)
	engine.Tick()

	require.Equal(t, 2, recorder.count())
	frame, outcome := recorder.last()
	assert.Equal(t, OutcomeTimeout, outcome)
	assert.Zero(t, frame, "previous response must not leak into a new exchange")
}

func TestSendAndWaitRoundTrip(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)
	response := buildResponse(MsgReadACK, IDTboiler, 0x2A80)

	go respondAfterTransmit(sim, response)
	frame, outcome, err := engine.SendAndWait(context.Background(), BuildGetBoilerTemperatureRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, response, frame)
	assert.InDelta(t, 42.5, frame.Float(), 1.0/256)
	assert.Equal(t, 1, recorder.count())

	// Back at READY: the next exchange starts immediately.
	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
}

func TestSendAndWaitRejectedWhileBusy(t *testing.T) {
	t.Parallel()
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))

	frame, outcome, err := engine.SendAndWait(context.Background(), BuildGetBoilerTemperatureRequest())
	require.ErrorIs(t, err, ErrNotReady)
	assert.Zero(t, frame)
	assert.Equal(t, OutcomeNone, outcome)
}

func TestSendAndWaitContextCancellation(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := engine.SendAndWait(ctx, BuildGetBoilerTemperatureRequest())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The exchange itself is not cancelled; it still runs to timeout.
	sim.Advance(responseTimeout + 1)
	engine.Tick()
	require.Equal(t, 1, recorder.count())
	_, outcome := recorder.last()
	assert.Equal(t, OutcomeTimeout, outcome)
}

func TestStopDisablesEdgeDelivery(t *testing.T) {
	t.Parallel()
	engine, sim, recorder := newTestEngine(t)

	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
	require.NoError(t, engine.Stop())

	// With the handler deregistered, response edges go nowhere.
	sim.PlayFrame(buildResponse(MsgReadACK, IDTboiler, 0x2A80))
	engine.Tick()
	assert.Zero(t, recorder.count())

	require.ErrorIs(t, engine.Send(BuildGetBoilerTemperatureRequest()), ErrNotStarted)

	// Start brings the engine back up for a fresh exchange.
	require.NoError(t, engine.Start())
	require.NoError(t, engine.Send(BuildGetBoilerTemperatureRequest()))
}

func TestMultipleEnginesAreIndependent(t *testing.T) {
	t.Parallel()
	engineA, simA, recorderA := newTestEngine(t)
	engineB, simB, recorderB := newTestEngine(t)

	require.NoError(t, engineA.Send(BuildGetBoilerTemperatureRequest()))
	require.NoError(t, engineB.Send(BuildStatusRequest(true, false, false, false, false)))

	simA.PlayFrame(buildResponse(MsgReadACK, IDTboiler, 0x2A80))
	engineA.Tick()
	require.Equal(t, 1, recorderA.count())
	assert.Zero(t, recorderB.count())

	simB.Advance(responseTimeout + 1)
	engineB.Tick()
	require.Equal(t, 1, recorderB.count())
	_, outcomeB := recorderB.last()
	assert.Equal(t, OutcomeTimeout, outcomeB)
}

func TestOutcomeStrings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "NONE", OutcomeNone.String())
	assert.Equal(t, "SUCCESS", OutcomeSuccess.String())
	assert.Equal(t, "INVALID", OutcomeInvalid.String())
	assert.Equal(t, "TIMEOUT", OutcomeTimeout.String())
	assert.Equal(t, "UNKNOWN", Outcome(42).String())
}

func TestOutcomeErr(t *testing.T) {
	t.Parallel()
	require.NoError(t, OutcomeSuccess.Err())
	require.ErrorIs(t, OutcomeTimeout.Err(), ErrTimeout)
	require.ErrorIs(t, OutcomeInvalid.Err(), ErrInvalidFrame)
	require.ErrorIs(t, OutcomeNone.Err(), ErrInvalidFrame)
}
