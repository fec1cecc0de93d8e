//go:build !deadlock

// Package syncutil provides the mutex types guarding the protocol session
// state, with optional deadlock detection. By default standard sync mutexes
// are used with zero overhead. Build with -tags=deadlock to enable detection
// via github.com/sasha-s/go-deadlock; the session mutex is shared between
// the edge delivery goroutine and the polling context, which is exactly the
// kind of crossing deadlock detection pays for.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.Mutex to expose its interface
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.RWMutex to expose its interface
type RWMutex struct {
	sync.RWMutex
}
