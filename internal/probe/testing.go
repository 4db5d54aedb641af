// Package probe - test helpers
//
// This file exports internal state construction for use in tests.
// These functions should not be used in production code.
package probe

import "time"

// NewHandleForTesting returns a Handle that is not backed by a real
// process, plus a resolve function. The handle polls as still-running until
// resolve is called with the final result (or a wait error). resolve must
// be called at most once.
//
// WARNING: This function is intended for testing only.
// Do not use in production code.
func NewHandleForTesting(started time.Time) (*Handle, func(*Result, error)) {
	h := &Handle{
		pid:     -1,
		started: started,
		done:    make(chan struct{}),
	}
	resolve := func(res *Result, err error) {
		h.result = res
		h.waitErr = err
		close(h.done)
	}
	return h, resolve
}
