package kernel

import (
	"lull/list"
	"lull/trace"
)

// enqueue appends t to q under its tag.  A control block has one link
// field shared by every queue, so being on any queue already is a
// contract violation, not a silent relink.
func (k *Kernel) enqueue(q *list.List[Thread], tag queueTag, t *Thread) {
	kassert(t.queue == queueNone,
		"thread %q is already on queue %d (enqueue to %d)", t.name, t.queue, tag)
	t.queue = tag
	q.PushBack(&t.elem)
}

// dequeue pops the front of q and clears its tag.
func (k *Kernel) dequeue(q *list.List[Thread], tag queueTag) *Thread {
	t := q.PopFront().Value()
	kassert(t.queue == tag, "thread %q was on queue %d, expected %d", t.name, t.queue, tag)
	t.queue = queueNone
	return t
}

// nextThreadToRun picks the next thread: front of the ready queue, or
// the idle thread when nothing is ready.
func (k *Kernel) nextThreadToRun() *Thread {
	if k.ready.Empty() {
		return k.idleThread
	}
	return k.dequeue(&k.ready, queueReady)
}

// doSchedule reclaims pages on the destruction queue, moves the running
// thread to status, and schedules.  Reclamation happens here, at the
// start of the next scheduling decision, because a dying thread's page
// is still the stack in use while its final switch completes.
func (k *Kernel) doSchedule(status Status) {
	kassert(k.level == IntrOff, "doSchedule with interrupts on")
	kassert(k.Current().status == Running, "doSchedule from a non-running thread")
	for !k.destruction.Empty() {
		victim := k.dequeue(&k.destruction, queueDestruction)
		victim.magic = 0
		k.pages.Free(victim)
	}
	k.Current().status = status
	k.schedule()
}

// schedule switches to the next thread.  The outgoing thread must
// already have left the Running state.
func (k *Kernel) schedule() {
	curr := k.current
	next := k.nextThreadToRun()

	kassert(k.level == IntrOff, "schedule with interrupts on")
	kassert(curr.status != Running, "schedule from a running thread")
	kassert(isThread(next), "scheduler picked a corrupt control block")

	next.status = Running
	k.current = next

	// A fresh quantum for the incoming thread.
	k.sliceTicks = 0

	if k.hooks != nil {
		k.hooks.Activate(next)
	}

	if curr != next {
		// A dying thread's page cannot be freed while its final
		// switch still runs on it; park the block on the
		// destruction queue for the next scheduling decision.
		if curr != nil && curr.status == Dying && curr != k.initial {
			k.enqueue(&k.destruction, queueDestruction, curr)
		}
		k.switchContext(curr, next)
	}
}

// Boot turns the calling goroutine into the initial kernel thread.
// Interrupts are still off; call Start to begin preemptive scheduling.
// Until Boot returns it is not safe to call Current.
func (k *Kernel) Boot() {
	kassert(k.level == IntrOff, "Boot with interrupts on")
	kassert(k.current == nil, "Boot called twice")

	initial := k.pages.Alloc()
	kassert(initial != nil, "no page for the initial thread")
	k.initThread(initial, "main", PriDefault)
	initial.status = Running
	k.initial = initial
	k.current = initial
	k.tidLock.Init(k)
	initial.tid = k.allocateTID()
}

// Start creates the idle thread and enables preemptive scheduling.  It
// returns once the idle thread has announced itself.
func (k *Kernel) Start() {
	var idleStarted Semaphore
	idleStarted.Init(k, 0)
	k.Create("idle", PriMin, k.idleLoop, &idleStarted)

	k.Enable()

	// Wait for the idle thread to run once and record itself.
	idleStarted.Down()
}

// idleLoop is the idle thread's body.  It runs whenever the ready
// queue is empty: it blocks itself, and when the scheduler picks it
// again it re-enables interrupts and halts in one atomic step, so no
// tick can slip between the enable and the halt.
func (k *Kernel) idleLoop(arg any) {
	started := arg.(*Semaphore)
	k.idleThread = k.Current()
	started.Up()

	for {
		// Let someone else run.
		k.Disable()
		k.Block()

		// The scheduler picked us again: wait for the next
		// interrupt.  The enable and the halt are one step; an
		// assertion raised while we were masked is still held
		// by the pending channel, so it cannot be lost.
		k.enableAndHalt()
	}
}

// enableAndHalt is the sti;hlt pair of the simulation.
func (k *Kernel) enableAndHalt() {
	kassert(!k.InContext(), "halt in interrupt context")
	k.level = IntrOn
	<-k.pending
	k.Poll()
}

// Shutdown reports final statistics.  The kernel itself has no
// teardown: its lifetime is the process's.
func (k *Kernel) Shutdown() {
	trace.Infof("kernel shutting down after %d ticks", k.Ticks())
	k.PrintStats()
}
