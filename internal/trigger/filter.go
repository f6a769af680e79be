// Package trigger implements the debouncer state machine and the
// threshold-evaluating generators that drive it.
package trigger

import (
	"sync"
	"time"
)

// State is one of the four debouncer states.
type State int

const (
	Idle State = iota
	Arming
	Active
	Releasing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Arming:
		return "arming"
	case Active:
		return "active"
	case Releasing:
		return "releasing"
	default:
		return "unknown"
	}
}

// oneShot is the minimal cancellable one-shot timer Filter depends on. The
// real implementation wraps time.AfterFunc; tests substitute a fake so the
// state machine can be driven deterministically without sleeping.
type oneShot interface {
	stop() bool
	active() bool
}

type realTimer struct{ t *time.Timer }

func (r *realTimer) stop() bool   { return r.t.Stop() }
func (r *realTimer) active() bool { return r.t != nil }

type clock interface {
	after(d time.Duration, f func()) oneShot
}

type realClock struct{}

func (realClock) after(d time.Duration, f func()) oneShot {
	return &realTimer{t: time.AfterFunc(d, f)}
}

// Filter is the on-delay/off-delay/max-hold hysteresis state machine
// described for trigger generators: it turns raw threshold-crossing edges
// into debounced OnSignal/OffSignal emissions.
type Filter struct {
	OnDelay  float64 // seconds
	OffDelay float64 // seconds
	MaxHold  float64 // seconds
	Mute     bool

	state State

	onDelayTimer  oneShot
	offDelayTimer oneShot
	maxHoldTimer  oneShot

	clk clock

	// locker is held around every timer callback so a delayed emission
	// (onOnDelayEnd/onOffDelayEnd/onMaxHoldEnd, which time.AfterFunc runs
	// on its own goroutine) serializes with TriggerOn/TriggerOff calls
	// made from the scheduler tick instead of racing them, preserving
	// spec.md §5's single-threaded ordering guarantee. Unset by default;
	// the owning Core attaches its tick mutex via SetLocker.
	locker sync.Locker

	OnSignal  func()
	OffSignal func()
}

// NewFilter returns a Filter in the Idle state with all delays at zero.
func NewFilter() *Filter {
	return &Filter{clk: realClock{}}
}

// SetLocker attaches the mutex the scheduler already holds while driving
// Check/TriggerOn/TriggerOff, so timer callbacks firing on their own
// goroutine acquire the same lock before touching filter state.
func (f *Filter) SetLocker(l sync.Locker) {
	f.locker = l
}

// TriggerOn processes a rising edge.
func (f *Filter) TriggerOn() {
	if f.offDelayTimer != nil && f.offDelayTimer.active() {
		f.offDelayTimer.stop()
	}

	switch f.state {
	case Idle:
		f.state = Arming
		f.onDelayTimer = f.schedule(f.OnDelay, f.onOnDelayEnd)
	case Arming:
		// ignore rising while arming: previous on-delay timer still running
	case Releasing:
		f.state = Active
		// offDelayTimer already cancelled above
	case Active:
		// already active, nothing to do
	}
}

// TriggerOff processes a falling edge.
func (f *Filter) TriggerOff() {
	if f.onDelayTimer != nil && f.onDelayTimer.active() {
		f.onDelayTimer.stop()
	}

	switch f.state {
	case Arming:
		f.state = Idle
	case Active:
		f.state = Releasing
		f.offDelayTimer = f.schedule(f.OffDelay, f.onOffDelayEnd)
	case Releasing:
		// ignore falling while releasing
	case Idle:
		// no-op
	}
}

func (f *Filter) onOnDelayEnd() {
	f.state = Active
	f.emitOn()
	if f.MaxHold > 0 {
		f.maxHoldTimer = f.schedule(f.MaxHold, f.onMaxHoldEnd)
	}
}

func (f *Filter) onMaxHoldEnd() {
	f.state = Idle
	f.emitOff()
	if f.offDelayTimer != nil {
		f.offDelayTimer.stop()
	}
}

func (f *Filter) onOffDelayEnd() {
	f.state = Idle
	f.emitOff()
	if f.maxHoldTimer != nil {
		f.maxHoldTimer.stop()
	}
}

func (f *Filter) emitOn() {
	if !f.Mute && f.OnSignal != nil {
		f.OnSignal()
	}
}

func (f *Filter) emitOff() {
	if !f.Mute && f.OffSignal != nil {
		f.OffSignal()
	}
}

func (f *Filter) schedule(delaySec float64, cb func()) oneShot {
	d := time.Duration(delaySec * float64(time.Second))
	return f.clk.after(d, f.withLock(cb))
}

// withLock wraps cb so it runs under f.locker, if one is attached.
func (f *Filter) withLock(cb func()) func() {
	locker := f.locker
	if locker == nil {
		return cb
	}
	return func() {
		locker.Lock()
		defer locker.Unlock()
		cb()
	}
}

// State returns the current debouncer state.
func (f *Filter) State() State { return f.state }

// Reset forces the filter back to Idle, cancelling any running timers
// without emitting OffSignal.
func (f *Filter) Reset() {
	if f.onDelayTimer != nil {
		f.onDelayTimer.stop()
	}
	if f.offDelayTimer != nil {
		f.offDelayTimer.stop()
	}
	if f.maxHoldTimer != nil {
		f.maxHoldTimer.stop()
	}
	f.state = Idle
}
