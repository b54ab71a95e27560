package disposable

import (
	"runtime"

	"github.com/valyala/fastrand"
)

// Yield hooks run between CAS attempts to give the opposite side a
// scheduling opportunity. Any zero-argument function works; these cover the
// common policies.

// Gosched yields the rest of the time slice to the scheduler. Default hook.
func Gosched() {
	runtime.Gosched()
}

// NoYield does nothing between attempts.
func NoYield() {}

// Backoff returns a hook that yields a random number of times, up to max,
// per invocation. The jitter keeps the producer and consumer from retrying
// the state word in lockstep under sustained contention.
func Backoff(max uint32) func() {
	if max == 0 {
		return Gosched
	}
	return func() {
		for n := fastrand.Uint32n(max + 1); n > 0; n-- {
			runtime.Gosched()
		}
	}
}
