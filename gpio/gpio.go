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

// Package gpio provides an opentherm.Line backed by a pair of GPIO pins via
// periph.io. The input pin watches the receive side of the OpenTherm
// interface circuit; the output pin drives the transmit side through an
// inverting driver stage, so the logical Active level is electrical low.
package gpio

import (
	"errors"
	"fmt"
	"time"

	opentherm "github.com/openhearth/go-opentherm"
	"github.com/openhearth/go-opentherm/internal/syncutil"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePollTimeout bounds each WaitForEdge call so the watcher goroutine can
// observe deregistration.
const edgePollTimeout = 100 * time.Millisecond

// coarseWaitFloor is the busy-wait remainder below which the wait spins
// instead of sleeping. The scheduler cannot be trusted with less than a
// couple of milliseconds.
const coarseWaitFloor = 2000

var errPinNotFound = errors.New("no such pin")

// Line implements opentherm.Line on two GPIO pins.
//
// The clock is time.Since over a fixed epoch, which Go guarantees to be
// monotonic. Wait sleeps coarsely and spins the sub-millisecond tail; on a
// loaded non-realtime kernel the half-bit jitter this leaves is within the
// 750 µs sampling tolerance of the protocol.
type Line struct {
	in      gpio.PinIn
	out     gpio.PinOut
	done    chan struct{}
	epoch   time.Time
	inName  string
	outName string
	mu      syncutil.Mutex
	cb      func()
	closed  bool
}

// New opens and configures the pins by their periph names (e.g. "GPIO4").
// The input is pulled up with both-edge detection; the output is driven to
// the idle level immediately.
func New(inName, outName string) (*Line, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	inPin := gpioreg.ByName(inName)
	if inPin == nil {
		return nil, opentherm.NewLineError("open", inName, errPinNotFound)
	}
	outPin := gpioreg.ByName(outName)
	if outPin == nil {
		return nil, opentherm.NewLineError("open", outName, errPinNotFound)
	}

	if err := inPin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, opentherm.NewLineError("configure", inName, err)
	}
	// Electrical high is logical idle through the inverting driver.
	if err := outPin.Out(gpio.High); err != nil {
		return nil, opentherm.NewLineError("configure", outName, err)
	}

	return &Line{
		in:      inPin,
		out:     outPin,
		inName:  inName,
		outName: outName,
		epoch:   time.Now(),
	}, nil
}

// Read implements opentherm.Line. The receive side is non-inverting:
// electrical high is the logical active state.
func (l *Line) Read() opentherm.Level {
	return opentherm.Level(l.in.Read() == gpio.High)
}

// Write implements opentherm.Line. The transmit driver inverts: logical
// Active pulls the pin low.
func (l *Line) Write(level opentherm.Level) {
	electrical := gpio.High
	if level == opentherm.Active {
		electrical = gpio.Low
	}
	_ = l.out.Out(electrical)
}

// OnEdge implements opentherm.Line. Registering starts a watcher goroutine
// that delivers input transitions to fn one at a time, in arrival order.
// A nil fn stops the watcher.
func (l *Line) OnEdge(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return opentherm.ErrLineClosed
	}

	l.cb = fn
	if fn == nil {
		l.stopWatcherLocked()
		return nil
	}
	if l.done == nil {
		l.done = make(chan struct{})
		go l.watch(l.done)
	}
	return nil
}

// stopWatcherLocked signals the watcher goroutine to exit. Callers hold l.mu.
func (l *Line) stopWatcherLocked() {
	if l.done != nil {
		close(l.done)
		l.done = nil
	}
}

// watch delivers edges until done is closed. WaitForEdge is bounded so the
// goroutine re-checks done even on a quiet line.
func (l *Line) watch(done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		if !l.in.WaitForEdge(edgePollTimeout) {
			continue
		}
		l.mu.Lock()
		fn := l.cb
		l.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}

// Now implements opentherm.Line.
func (l *Line) Now() uint64 {
	return uint64(time.Since(l.epoch) / time.Microsecond)
}

// Wait implements opentherm.Line. Long waits sleep in millisecond steps;
// the final stretch busy-spins for half-bit accuracy.
func (l *Line) Wait(micros uint64) {
	deadline := l.Now() + micros
	for {
		now := l.Now()
		if now >= deadline {
			return
		}
		if deadline-now > coarseWaitFloor {
			time.Sleep(time.Millisecond)
		}
	}
}

// Close implements opentherm.Line. The output is parked at idle and edge
// delivery stops.
func (l *Line) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.cb = nil
	l.stopWatcherLocked()
	l.mu.Unlock()

	l.Write(opentherm.Idle)
	if err := l.in.Halt(); err != nil {
		return opentherm.NewLineError("close", l.inName, err)
	}
	if err := l.out.Halt(); err != nil {
		return opentherm.NewLineError("close", l.outName, err)
	}
	return nil
}
