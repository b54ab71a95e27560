// Package disposable implements a single-slot exchange between exactly one
// producer goroutine and exactly one consumer goroutine. Each published value
// may be read at most once; a newer write silently replaces an unread value
// (the latest write always wins, nothing is queued). All operations are
// non-blocking: they resolve within a bounded number of CAS attempts and
// report failure instead of waiting.
package disposable

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Slot state. Exactly one of these values is held in the state word at any
// moment; they are the reachable combinations of the empty/read-busy/
// write-busy flags.
const (
	stateEmpty     uint32 = iota // no valid value stored (initial state)
	stateFull                    // a published value awaits its single read
	stateReadBusy                // the consumer holds the payload
	stateWriteBusy               // the producer is copying a new payload in
)

const defaultRetries = 2

// Slot is a single-value disposable exchange.
// One goroutine may write (TryPut) and one other goroutine may read
// (TryReadInto, Lock, TryLock); this contract is assumed, not checked.
type Slot[T any] struct {
	// Padding to avoid false sharing between the state word and the payload.
	_     cpu.CacheLinePad
	state atomic.Uint32
	_     cpu.CacheLinePad
	val   T
	_     cpu.CacheLinePad

	retries uint32 // extra CAS attempts per operation (0 = single attempt)
	yield   func() // runs between CAS attempts, never after the last one

	putAttempts     atomic.Uint64
	putFailed       atomic.Uint64
	overwrites      atomic.Uint64
	readAttempts    atomic.Uint64
	readFailedEmpty atomic.Uint64
	readFailedBusy  atomic.Uint64
}

// SlotStats is a snapshot of a slot's contention counters.
type SlotStats struct {
	PutAttempts uint64 // TryPut calls
	PutFailed   uint64 // TryPut calls that lost to the reader
	Overwrites  uint64 // successful puts that discarded an unread value

	ReadAttempts    uint64 // read acquisitions attempted (copy-out or lock)
	ReadFailedEmpty uint64 // read acquisitions that found no value
	ReadFailedBusy  uint64 // read acquisitions that lost to the writer
}

// New creates a slot with the default retry policy: two CAS retries per
// operation with a cooperative Gosched between attempts.
func New[T any]() *Slot[T] {
	return NewWithPolicy[T](defaultRetries, Gosched)
}

// NewWithPolicy creates a slot with an explicit retry policy. An operation
// makes at most retries+1 CAS attempts; yield runs between attempts and may
// be nil for none. retries = 0 with a nil yield gives a bare single-attempt
// slot.
//
// The slot must outlive both the producer and the consumer; construct it in
// whatever wires the two loops up and pass it to both.
func NewWithPolicy[T any](retries uint32, yield func()) *Slot[T] {
	if yield == nil {
		yield = NoYield
	}
	return &Slot[T]{
		retries: retries,
		yield:   yield,
	}
}

// TryPut publishes v, replacing any unread value.
// Returns false if the consumer held the slot for the whole retry budget.
// Must be called from a single producer goroutine.
func (s *Slot[T]) TryPut(v T) bool {
	s.putAttempts.Add(1)

	if !s.tryBlockForWrite() {
		s.putFailed.Add(1)
		return false
	}

	s.val = v
	s.unblockAfterWrite()

	return true
}

// TryReadInto consumes the stored value into *dst, emptying the slot.
// Returns false, leaving *dst untouched, if the slot is empty or the producer
// held it for the whole retry budget.
// Must be called from a single consumer goroutine.
func (s *Slot[T]) TryReadInto(dst *T) bool {
	if !s.tryBlockForRead() {
		return false
	}

	*dst = s.val
	s.unblockAfterRead()

	return true
}

// Stats retrieves the current statistics of the slot.
func (s *Slot[T]) Stats() SlotStats {
	return SlotStats{
		PutAttempts:     s.putAttempts.Load(),
		PutFailed:       s.putFailed.Load(),
		Overwrites:      s.overwrites.Load(),
		ReadAttempts:    s.readAttempts.Load(),
		ReadFailedEmpty: s.readFailedEmpty.Load(),
		ReadFailedBusy:  s.readFailedBusy.Load(),
	}
}

// tryBlockForRead claims the payload for reading. Succeeds only from Full:
// an empty slot or an in-flight write fails the attempt and burns a retry.
func (s *Slot[T]) tryBlockForRead() bool {
	s.readAttempts.Add(1)

	for attempt := uint32(0); ; attempt++ {
		if s.state.CompareAndSwap(stateFull, stateReadBusy) {
			return true
		}

		if attempt == s.retries {
			if s.state.Load() == stateEmpty {
				s.readFailedEmpty.Add(1)
			} else {
				s.readFailedBusy.Add(1)
			}
			return false
		}

		s.yield()
	}
}

// unblockAfterRead releases the read claim and empties the slot.
// Call only after a successful tryBlockForRead.
func (s *Slot[T]) unblockAfterRead() {
	if !s.state.CompareAndSwap(stateReadBusy, stateEmpty) {
		// The state changed under a held read claim: a second reader or
		// writer broke the one-producer/one-consumer contract. Continuing
		// would hand out torn payloads.
		panic("disposable: read claim lost (single-consumer contract violated)")
	}
}

// tryBlockForWrite claims the payload for writing. Succeeds from Empty and
// from Full (overwriting the unread value); only a reader mid-claim blocks
// it.
func (s *Slot[T]) tryBlockForWrite() bool {
	for attempt := uint32(0); ; attempt++ {
		cur := s.state.Load()
		if cur != stateReadBusy && s.state.CompareAndSwap(cur, stateWriteBusy) {
			if cur == stateFull {
				// Discarding an unread value is the intended behavior,
				// not a failure; it is only counted.
				s.overwrites.Add(1)
			}
			return true
		}

		if attempt == s.retries {
			return false
		}

		s.yield()
	}
}

// unblockAfterWrite publishes the value written under the claim and marks
// the slot full. Call only after a successful tryBlockForWrite.
func (s *Slot[T]) unblockAfterWrite() {
	if !s.state.CompareAndSwap(stateWriteBusy, stateFull) {
		panic("disposable: write claim lost (single-producer contract violated)")
	}
}
