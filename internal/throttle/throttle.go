// Package throttle bounds concurrent in-flight detection requests.
package throttle

import "sync/atomic"

// Gate admits at most one outstanding detection round trip. Frames arriving
// while the gate is held are dropped, never queued: the camera produces
// frames faster than the network round trip, and only the freshest frame has
// user-visible value.
type Gate struct {
	inFlight atomic.Bool
}

// TryAcquire claims the in-flight slot. It returns false when a round trip
// is already outstanding, in which case the caller must drop its frame.
func (g *Gate) TryAcquire() bool {
	return g.inFlight.CompareAndSwap(false, true)
}

// Release frees the in-flight slot. Safe to call when the slot is already
// free, so failure paths can release unconditionally.
func (g *Gate) Release() {
	g.inFlight.Store(false)
}

// InFlight reports whether a round trip is currently outstanding.
func (g *Gate) InFlight() bool {
	return g.inFlight.Load()
}
