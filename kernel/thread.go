package kernel

import (
	"lull/list"
	"lull/trace"
)

// Status is a thread's life-cycle state.
type Status int

const (
	// Running: on the core.  Exactly one thread at a time.
	Running Status = iota
	// Ready: runnable, on the ready queue.
	Ready
	// Blocked: waiting for an Unblock someone else has arranged.
	Blocked
	// Dying: exited, awaiting page reclamation.
	Dying
)

func (s Status) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Ready:
		return "READY"
	case Blocked:
		return "BLOCKED"
	case Dying:
		return "DYING"
	}
	return "invalid"
}

// Thread priorities.  The priority is stored and settable but the base
// round-robin queue does not reorder by it.
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63
)

// TIDError is returned by Create when no page is available.
const TIDError = -1

// threadMagic is the stack canary at the far end of the thread page.
// A corrupted canary means the kernel stack overran the control block.
const threadMagic = 0xcd6abf4b

// queueTag names the queue a control block is linked into, if any.
// The TCB has a single reusable link field; the tag makes the "member
// of at most one queue" invariant checkable instead of implicit.
type queueTag int

const (
	queueNone queueTag = iota
	queueReady
	queueDestruction
	queueWaiters
)

// Thread is a thread control block.  Each one occupies a page from the
// kernel page pool that doubles as the thread's kernel stack, which is
// why the canary sits in it.
type Thread struct {
	tid      int
	name     string
	status   Status
	priority int

	// mlfqs fields: stored but, like the mode itself, not yet
	// driving scheduling decisions.
	nice      int
	recentCPU int

	user any // opaque address-space tag; non-nil marks a user thread

	ctx   execContext
	queue queueTag
	elem  list.Elem[Thread]
	magic uint32
}

// TID returns the thread's unique id.
func (t *Thread) TID() int { return t.tid }

// Name returns the thread's diagnostic name.
func (t *Thread) Name() string { return t.name }

// Priority returns the thread's stored priority.
func (t *Thread) Priority() int { return t.priority }

// Status returns the thread's state.
func (t *Thread) Status() Status { return t.status }

// SetUser tags the thread with an opaque address space.  Threads with a
// tag are charged user ticks and see the process hooks.
func (t *Thread) SetUser(space any) { t.user = space }

// isThread reports whether t looks like a live control block.  A failed
// check usually means a stack overflow chewed through the canary.
func isThread(t *Thread) bool {
	return t != nil && t.magic == threadMagic
}

// initThread fills in a freshly allocated (zeroed) control block.  The
// thread starts Blocked; it reaches the ready queue through Unblock.
func (k *Kernel) initThread(t *Thread, name string, priority int) {
	kassert(t != nil, "nil thread page (initThread)")
	kassert(priority >= PriMin && priority <= PriMax,
		"priority %d out of range for thread %q", priority, name)
	kassert(name != "", "thread needs a name")
	t.name = name
	t.status = Blocked
	t.priority = priority
	t.elem = list.ElemOf(t)
	t.ctx.init()
	t.magic = threadMagic
}

// Create makes a new kernel thread named name that runs fn(arg) at the
// given priority and puts it on the ready queue; the caller is not
// preempted.  Returns the new thread's id, or TIDError if no page is
// free.  The new thread may be scheduled any time after Create returns,
// so synchronize if fn touches the caller's state.
func (k *Kernel) Create(name string, priority int, fn func(arg any), arg any) int {
	kassert(fn != nil, "nil thread function (Create)")

	t := k.pages.Alloc()
	if t == nil {
		return TIDError
	}
	k.initThread(t, name, priority)
	t.tid = k.allocateTID()

	// First dispatch enters the trampoline: the scheduler always
	// runs with interrupts off, so turn them back on, run the
	// thread's function, and exit when it returns.
	go func() {
		t.ctx.suspend()
		k.Enable()
		fn(arg)
		k.Exit()
	}()

	k.Unblock(t)
	return t.tid
}

// allocateTID hands out the next unique id.  This is under its own
// lock, not interrupt masking, because creation may be called from
// contexts where masking is undesirable.
func (k *Kernel) allocateTID() int {
	k.tidLock.Acquire()
	tid := k.nextTID
	k.nextTID++
	k.tidLock.Release()
	return tid
}

// Current returns the running thread.  If the canary check fails here
// the thread's stack has overflowed into its control block.
func (k *Kernel) Current() *Thread {
	t := k.current
	kassert(isThread(t), "current thread has a corrupt control block")
	kassert(t.status == Running, "current thread is %v, not RUNNING", t.status)
	return t
}

// TID returns the running thread's id.
func (k *Kernel) TID() int {
	return k.Current().tid
}

// Block transitions the running thread to Blocked and schedules.  The
// caller must have interrupts off and must already have arranged how
// the thread will be unblocked, e.g. by putting a record on someone
// else's queue.  Prefer the synchronization primitives to raw Block.
func (k *Kernel) Block() {
	kassert(!k.InContext(), "Block in interrupt context")
	kassert(k.level == IntrOff, "Block with interrupts on")
	k.Current().status = Blocked
	k.schedule()
}

// Unblock moves a Blocked thread to the back of the ready queue.
// Unblocking a thread in any other state is fatal.  The caller is
// never preempted, which matters when it holds state it still has to
// make consistent.
func (k *Kernel) Unblock(t *Thread) {
	kassert(isThread(t), "Unblock of a non-thread")
	old := k.Disable()
	kassert(t.status == Blocked, "Unblock of thread %q in state %v", t.name, t.status)
	k.enqueue(&k.ready, queueReady, t)
	t.status = Ready
	k.SetLevel(old)
}

// Yield gives up the core.  The thread goes to the back of the ready
// queue and may be picked again immediately if nothing else is ready.
func (k *Kernel) Yield() {
	kassert(!k.InContext(), "Yield in interrupt context")
	curr := k.Current()
	old := k.Disable()
	if curr != k.idleThread {
		k.enqueue(&k.ready, queueReady, curr)
	}
	k.doSchedule(Ready)
	k.SetLevel(old)
}

// Exit terminates the running thread.  It never returns; the thread's
// page is reclaimed at the start of a later scheduling decision, since
// it is still the stack in use during the final switch.
func (k *Kernel) Exit() {
	kassert(!k.InContext(), "Exit in interrupt context")
	if k.hooks != nil {
		k.hooks.Exit(k.Current())
	}
	k.Disable()
	k.doSchedule(Dying)
	trace.Fatalf("schedule returned to a dying thread")
}

// SetPriority sets the running thread's priority.  The base scheduler
// stores it but does not reorder the ready queue by it.
func (k *Kernel) SetPriority(priority int) {
	kassert(priority >= PriMin && priority <= PriMax, "priority %d out of range", priority)
	k.Current().priority = priority
}

// GetPriority returns the running thread's priority.
func (k *Kernel) GetPriority() int {
	return k.Current().priority
}

// SetNice, GetNice, GetLoadAvg and GetRecentCPU belong to the mlfqs
// scheduler.  The mode is recognized at boot but the decay math is not
// implemented; these are the documented stub behaviors.

// SetNice records the running thread's niceness.
func (k *Kernel) SetNice(nice int) {
	k.Current().nice = nice
}

// GetNice returns the running thread's niceness.
func (k *Kernel) GetNice() int {
	return k.Current().nice
}

// GetLoadAvg returns 100 times the system load average.
func (k *Kernel) GetLoadAvg() int {
	return 0
}

// GetRecentCPU returns 100 times the running thread's recent CPU use.
func (k *Kernel) GetRecentCPU() int {
	return 0
}

// threadTick runs on every timer tick, in external interrupt context.
// It attributes the tick and raises a deferred yield at the end of the
// quantum; the yield itself happens on interrupt return, never here.
func (k *Kernel) threadTick() {
	t := k.Current()
	switch {
	case t == k.idleThread:
		k.idleTicks++
	case t.user != nil:
		k.userTicks++
	default:
		k.kernelTicks++
	}

	k.sliceTicks++
	if k.sliceTicks >= k.cfg.TimeSlice {
		k.YieldOnReturn()
	}
}
