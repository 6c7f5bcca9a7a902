package kernel

import "lull/list"

// Counting semaphore and the lock built from it.  These are the two
// shapes the core consumes: the semaphore for the idle-thread startup
// handshake, the lock for id allocation.  Waiters park on an intrusive
// list and wake in FIFO order.

// Semaphore is a counting semaphore.  Init before use.
type Semaphore struct {
	k       *Kernel
	value   int
	waiters list.List[Thread]
}

// Init sets the semaphore's initial value.
func (s *Semaphore) Init(k *Kernel, value int) {
	kassert(value >= 0, "negative semaphore value %d", value)
	s.k = k
	s.value = value
	s.waiters.Init()
}

// Down waits until the value is positive and decrements it.  May
// block, so it cannot be called in interrupt context.
func (s *Semaphore) Down() {
	k := s.k
	kassert(!k.InContext(), "semaphore Down in interrupt context")

	old := k.Disable()
	for s.value == 0 {
		k.enqueue(&s.waiters, queueWaiters, k.Current())
		k.Block()
	}
	s.value--
	k.SetLevel(old)
}

// Up increments the value and wakes the longest-waiting thread, if
// any.  Safe from interrupt context; it never blocks.
func (s *Semaphore) Up() {
	k := s.k
	old := k.Disable()
	if !s.waiters.Empty() {
		k.Unblock(k.dequeue(&s.waiters, queueWaiters))
	}
	s.value++
	k.SetLevel(old)
}

// TryDown decrements without waiting; reports whether it did.
func (s *Semaphore) TryDown() bool {
	k := s.k
	old := k.Disable()
	ok := s.value > 0
	if ok {
		s.value--
	}
	k.SetLevel(old)
	return ok
}

// Lock is a mutual-exclusion lock: a binary semaphore plus a holder,
// so misuse (releasing someone else's lock, re-acquiring one's own) is
// caught instead of deadlocking quietly.  Not recursive.
type Lock struct {
	holder *Thread
	sema   Semaphore
}

// Init prepares an open lock.
func (l *Lock) Init(k *Kernel) {
	l.holder = nil
	l.sema.Init(k, 1)
}

// Acquire takes the lock, waiting as needed.
func (l *Lock) Acquire() {
	k := l.sema.k
	kassert(!k.InContext(), "lock Acquire in interrupt context")
	kassert(!l.HeldByCurrent(), "recursive Acquire of lock by %q", k.Current().name)
	l.sema.Down()
	l.holder = k.Current()
}

// Release opens the lock, which the caller must hold.
func (l *Lock) Release() {
	kassert(l.HeldByCurrent(), "Release of a lock the caller does not hold")
	l.holder = nil
	l.sema.Up()
}

// HeldByCurrent reports whether the running thread holds l.
func (l *Lock) HeldByCurrent() bool {
	return l.holder == l.sema.k.Current()
}
