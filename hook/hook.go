// Package hook collapses the host editor's lifecycle notifications into a
// single finalize call.
package hook

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Trigger is a host-side event that ends an editing session.
type Trigger int

const (
	// None means no trigger fired yet.
	None Trigger = iota
	// Saved fires when the user finished writing the artifact.
	Saved
	// ViewClosed fires when the view showing the artifact was closed.
	ViewClosed
	// Discarded fires when the artifact content was thrown away.
	Discarded
)

// All lists every trigger a session subscribes to.
var All = []Trigger{Saved, ViewClosed, Discarded}

func (t Trigger) String() string {
	switch t {
	case None:
		return "none"
	case Saved:
		return "saved"
	case ViewClosed:
		return "view-closed"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// FanIn invokes its function exactly once, for whichever trigger fires first.
type FanIn struct {
	fn   func(Trigger)
	done chan struct{}

	mu      sync.Mutex
	started bool
	fired   Trigger
	count   int
}

// NewFanIn returns a FanIn calling fn on the first Fire.
func NewFanIn(fn func(Trigger)) *FanIn {
	return &FanIn{
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Fire reports whether t was the first trigger. Later calls return false
// right away, including calls made from inside the finalize function. Use
// Done to wait for the first one to return.
func (f *FanIn) Fire(t Trigger) bool {
	f.mu.Lock()
	f.count++
	if f.started {
		f.mu.Unlock()
		log.Debug().Stringer("trigger", t).Msg("hook already fired")
		return false
	}
	f.started = true
	f.fired = t
	f.mu.Unlock()

	defer close(f.done)
	f.fn(t)
	return true
}

// Adapter returns a callback that fires t, for registration with a host.
func (f *FanIn) Adapter(t Trigger) func() {
	return func() { f.Fire(t) }
}

// Fired returns the winning trigger, or None.
func (f *FanIn) Fired() Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fired
}

// Count returns how many times Fire was called.
func (f *FanIn) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Done is closed once the finalize function returned.
func (f *FanIn) Done() <-chan struct{} {
	return f.done
}
