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

// Package opentherm implements the master side of the OpenTherm
// point-to-point protocol: bi-phase bit transport over a polarity-inverted
// two-wire line, 32-bit request/response frames, and the session state
// machine that sequences an exchange from transmit through timeout, invalid
// or acknowledged completion.
package opentherm

import (
	"context"
	"time"

	"github.com/openhearth/go-opentherm/internal/syncutil"
)

// Physical protocol tolerances, in microseconds. These encode the OpenTherm
// wire timing and must not be tuned.
const (
	// halfBitPeriod is half of the 1 ms bi-phase bit period.
	halfBitPeriod = 500
	// sampleThreshold separates mid-bit transitions from bit-boundary
	// transitions: three quarters of the bit period, past the mid-bit edge
	// but before the next bit can transition.
	sampleThreshold = 750
	// responseTimeout bounds how long an exchange may go without line
	// activity once the request is out; each recorded transition resets it.
	responseTimeout = 800_000
	// quietPeriod is the mandatory idle interval after every exchange,
	// giving the slave recovery time before the next request.
	quietPeriod = 100_000
	// settleHold is the idle hold at startup before the first exchange.
	settleHold = 1_000_000
)

// frameBits is the number of data bits in a frame, excluding start and stop.
const frameBits = 32

// tickInterval is how often SendAndWait re-evaluates the session. It bounds
// how promptly timeouts and quiet-period expiry are observed, not protocol
// correctness.
const tickInterval = time.Millisecond

// Outcome is the terminal result of a single exchange.
type Outcome int

const (
	// OutcomeNone means no exchange has completed yet.
	OutcomeNone Outcome = iota
	// OutcomeSuccess means a well-formed acknowledgment was received.
	OutcomeSuccess
	// OutcomeInvalid means the response was malformed: bad framing, bad
	// parity, or a non-acknowledgment message type.
	OutcomeInvalid
	// OutcomeTimeout means no terminal state was reached within the
	// exchange deadline.
	OutcomeTimeout
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "NONE"
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeInvalid:
		return "INVALID"
	case OutcomeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Err maps a non-success outcome to its sentinel error, nil for SUCCESS.
func (o Outcome) Err() error {
	switch o {
	case OutcomeSuccess:
		return nil
	case OutcomeTimeout:
		return ErrTimeout
	default:
		return ErrInvalidFrame
	}
}

// sessionState is the engine's finite state machine. One exchange is in
// flight at a time; the receive decoder advances the receiving states from
// the edge context, Tick advances the rest from the polling context.
type sessionState int

const (
	stateUninitialized sessionState = iota
	stateReady
	stateSending
	stateAwaitingStart
	stateStartReceived
	stateReceiving
	stateFrameReady
	stateFrameInvalid
	stateQuietPeriod
)

// CompletionHandler is invoked with the last response frame and the outcome,
// exactly once per exchange, always from Tick's calling context.
type CompletionHandler func(response Frame, outcome Outcome)

// Engine drives a single OpenTherm line as the protocol master. Create one
// per line with New; multiple engines on multiple lines are independent.
//
// Two execution contexts touch an Engine: the line's edge delivery context
// (via the registered edge callback) and the caller's polling context (Send,
// SendAndWait, Tick). The session state is shared between them and is only
// touched under the engine mutex, held for a few instructions at a time and
// never across transmission or the completion handler.
type Engine struct {
	line       Line
	onComplete CompletionHandler
	strictStop bool

	mu             syncutil.Mutex
	state          sessionState
	response       Frame
	outcome        Outcome
	lastTransition uint64
	bitCount       int
}

// Option configures an Engine.
type Option func(*Engine) error

// WithCompletionHandler sets the handler invoked once per exchange with the
// response frame and outcome.
func WithCompletionHandler(handler CompletionHandler) Option {
	return func(e *Engine) error {
		e.onComplete = handler
		return nil
	}
}

// WithStrictStopBit makes the decoder verify that the line has returned to
// the expected level when the stop bit transition arrives, reporting INVALID
// on a mismatch. Off by default: the reference behavior accepts any
// qualifying transition after the 32nd data bit as the stop bit.
func WithStrictStopBit() Option {
	return func(e *Engine) error {
		e.strictStop = true
		return nil
	}
}

// New creates an engine for the given line. The engine does not own the
// line's resources; close the line separately after Stop.
func New(line Line, opts ...Option) (*Engine, error) {
	engine := &Engine{
		line:  line,
		state: stateUninitialized,
	}
	for _, opt := range opts {
		if err := opt(engine); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// Start prepares the line and arms edge delivery. The line is held idle for
// one second before first use so the slave can wake and settle, then the
// engine becomes READY.
func (e *Engine) Start() error {
	e.line.Write(Idle)
	e.line.Wait(settleHold)
	if err := e.line.OnEdge(e.handleEdge); err != nil {
		return err
	}
	e.mu.Lock()
	e.state = stateReady
	e.mu.Unlock()
	return nil
}

// Stop deregisters the edge handler and returns the engine to the
// uninitialized state. An in-flight exchange is abandoned without a
// completion notification.
func (e *Engine) Stop() error {
	if err := e.line.OnEdge(nil); err != nil {
		return err
	}
	e.mu.Lock()
	e.state = stateUninitialized
	e.mu.Unlock()
	return nil
}

// Send transmits a request and arms the receiver, without waiting for the
// response. It fails with ErrNotReady (or ErrNotStarted) when an exchange is
// already in flight, leaving that exchange untouched. On success the call
// has blocked for the full 34-bit transmission (~34 ms) and the caller must
// drive Tick until the exchange completes.
func (e *Engine) Send(request Frame) error {
	e.mu.Lock()
	if e.state != stateReady {
		st := e.state
		e.mu.Unlock()
		if st == stateUninitialized {
			return ErrNotStarted
		}
		return ErrNotReady
	}
	e.state = stateSending
	e.response = 0
	e.outcome = OutcomeNone
	e.mu.Unlock()

	Debugf("request: %08X", uint32(request))
	e.transmit(request)

	e.mu.Lock()
	e.state = stateAwaitingStart
	e.lastTransition = e.line.Now()
	e.mu.Unlock()
	return nil
}

// SendAndWait transmits a request and blocks until the exchange completes
// and the quiet period expires, driving Tick internally. It returns the
// response frame (zero if none was received) and the exchange outcome.
//
// Cancelling the context returns early but does not cancel the exchange:
// the protocol has no mid-exchange abort. The session runs on and the
// completion handler fires on whichever Tick observes the terminal state,
// so after a cancelled wait the caller must keep driving Tick before the
// engine can accept a new request.
func (e *Engine) SendAndWait(ctx context.Context, request Frame) (Frame, Outcome, error) {
	if err := e.Send(request); err != nil {
		return 0, OutcomeNone, err
	}
	for {
		e.Tick()

		e.mu.Lock()
		st := e.state
		response := e.response
		outcome := e.outcome
		e.mu.Unlock()

		if st == stateReady {
			return response, outcome, nil
		}

		select {
		case <-ctx.Done():
			return 0, OutcomeNone, ctx.Err()
		case <-time.After(tickInterval):
		}
	}
}

// Tick evaluates elapsed time against the session state and is the single
// place the timeout and quiet-period policy is enforced and the completion
// handler fires. Call it at any rate; correctness does not depend on the
// frequency beyond how promptly deadlines are observed.
func (e *Engine) Tick() {
	e.mu.Lock()
	st := e.state
	ts := e.lastTransition
	e.mu.Unlock()

	if st == stateReady || st == stateUninitialized {
		return
	}

	now := e.line.Now()
	switch {
	case st == stateQuietPeriod:
		if now-ts > quietPeriod {
			e.mu.Lock()
			e.state = stateReady
			e.mu.Unlock()
		}
	case now-ts > responseTimeout:
		// Exchange deadline, measured from the last recorded line
		// transition. Checked before the terminal states so a response
		// that straggles in past the deadline still reports TIMEOUT.
		e.complete(OutcomeTimeout, stateReady)
	case st == stateFrameInvalid:
		e.complete(OutcomeInvalid, stateQuietPeriod)
	case st == stateFrameReady:
		e.mu.Lock()
		response := e.response
		e.mu.Unlock()
		outcome := OutcomeInvalid
		if IsValidResponse(response) {
			outcome = OutcomeSuccess
		}
		e.complete(outcome, stateQuietPeriod)
	}
}

// complete records the outcome, moves to the next state and fires the
// completion handler outside the critical section. The quiet period is
// measured from the last recorded line transition, not from completion.
func (e *Engine) complete(outcome Outcome, next sessionState) {
	e.mu.Lock()
	e.outcome = outcome
	response := e.response
	e.state = next
	e.mu.Unlock()

	Debugf("exchange complete: %s response=%08X", outcome, uint32(response))
	if e.onComplete != nil {
		e.onComplete(response, outcome)
	}
}
