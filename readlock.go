package disposable

// noCopy trips `go vet -copylocks` when a ReadLock is copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// ReadLock grants the consumer a direct read-only view into the slot payload
// for the duration of a critical section. It refers to the slot, it does not
// own it. Use it like a unique lock: acquire with TryLock, release with
// Unlock, and defer Unlock for scope-end release. The view must not be used
// after Unlock: the producer may overwrite the payload the instant the slot
// is released.
type ReadLock[T any] struct {
	noCopy noCopy

	host *Slot[T]
	ptr  *T // view into the host payload; nil while unlocked
}

// Lock returns an unlocked ReadLock bound to the slot.
func (s *Slot[T]) Lock() *ReadLock[T] {
	return &ReadLock[T]{host: s}
}

// TryLock returns a ReadLock bound to the slot after one immediate
// acquisition attempt; check Locked for the outcome.
func (s *Slot[T]) TryLock() *ReadLock[T] {
	l := s.Lock()
	l.TryLock()
	return l
}

// TryLock attempts to enter the read critical section on the bound slot,
// subject to the slot's retry policy. No-op when already locked.
// A failed attempt leaves the lock unlocked; retry or abandon.
func (l *ReadLock[T]) TryLock() bool {
	if l.ptr == nil && l.host.tryBlockForRead() {
		l.ptr = &l.host.val
	}
	return l.ptr != nil
}

// Unlock empties the slot, releases it to the producer and drops the view.
// No-op when not locked.
func (l *ReadLock[T]) Unlock() {
	if l.ptr != nil {
		l.host.unblockAfterRead()
		l.ptr = nil
	}
}

// Locked reports whether the critical section is currently held.
func (l *ReadLock[T]) Locked() bool {
	return l.ptr != nil
}

// View returns the read-only view of the payload, valid until Unlock.
// The second result is false when the lock is not held.
func (l *ReadLock[T]) View() (*T, bool) {
	return l.ptr, l.ptr != nil
}
