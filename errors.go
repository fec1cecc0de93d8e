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
	"errors"
	"fmt"
)

// Protocol anomalies inside an exchange surface as Outcome values, not
// errors. Errors are reserved for rejected sends, lifecycle misuse and line
// collaborator failures.
var (
	// Engine lifecycle and arming errors
	ErrNotStarted = errors.New("engine not started")
	ErrNotReady   = errors.New("exchange already in progress")

	// Exchange outcomes lifted to errors by the convenience operations
	ErrTimeout      = errors.New("response timeout")
	ErrInvalidFrame = errors.New("invalid response frame")

	// Line errors
	ErrLineClosed = errors.New("line is closed")
)

// LineError wraps line-level failures with the operation and pin involved.
type LineError struct {
	Err error  // Underlying error
	Op  string // Operation that failed
	Pin string // Pin or line identifier
}

func (e *LineError) Error() string {
	if e.Pin != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Pin, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// NewLineError creates a line error with consistent formatting.
func NewLineError(op, pin string, err error) *LineError {
	return &LineError{Op: op, Pin: pin, Err: err}
}
