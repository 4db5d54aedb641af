// Package metrics - test helpers
//
// This file exports internal constructors for use in tests.
// These functions should not be used in production code.
package metrics

// NewPusherForTesting exposes newPusher so tests can pin the instance label
// instead of depending on the host's name.
//
// WARNING: This function is intended for testing only.
// Do not use in production code.
func NewPusherForTesting(gateway, instance string) *Pusher {
	return newPusher(gateway, instance)
}
