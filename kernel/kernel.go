// Package kernel is the scheduling and interrupt core of a simulated
// single-core teaching kernel: thread lifecycle and context handoff, a
// round-robin ready queue, a 256-vector interrupt dispatch path in
// front of a dual 8259 controller model, and a tick-driven sleep/wake
// facility.  Kernel threads are goroutines, but only one of them ever
// runs: the rest sit suspended in the context-switch primitive, exactly
// one thread is RUNNING at any instant, and all queue state is guarded
// by the simulated interrupt mask rather than locks.
//
// Hardware takes interrupts between instructions; the simulation takes
// them at poll points (interrupt enable, the idle halt, busy waits).
// Device goroutines assert controller lines asynchronously and the
// running thread services them when its interrupts are on.
package kernel

import (
	"lull/list"
	"lull/mm"
	"lull/trace"
)

// ProcessHooks are the opaque user-process hooks consumed by the core:
// Activate is invoked on every context switch with the incoming thread,
// Exit before a thread dies.  A kernel built without user-mode support
// leaves them nil.
type ProcessHooks interface {
	Activate(t *Thread)
	Exit(t *Thread)
}

// Kernel is the whole of the kernel's mutable state, constructed once
// at boot and never torn down.
type Kernel struct {
	cfg Config

	// Interrupt subsystem.
	gates         [vectorCount]gate
	handlers      [vectorCount]Handler
	names         [vectorCount]string
	level         IntrLevel
	inExternal    bool
	yieldOnReturn bool
	pic           dualPIC
	pending       chan struct{}

	// Thread subsystem.
	pages       *mm.Pool[Thread]
	ready       list.List[Thread]
	destruction list.List[Thread]
	current     *Thread
	initial     *Thread
	idleThread  *Thread
	tidLock     Lock
	nextTID     int
	sliceTicks  int // ticks since the last switch
	idleTicks   int64
	kernelTicks int64
	userTicks   int64
	hooks       ProcessHooks

	// Timer subsystem.
	ticks        int64
	loopsPerTick int64
	pitDivisor   uint16
	sleepers     list.List[sleepRecord]
	retired      list.List[sleepRecord]
	records      *mm.Pool[sleepRecord]
}

// New builds a kernel from cfg.  The caller still has to Boot it on the
// goroutine that is to become the initial thread, and then Start it.
func New(cfg Config) *Kernel {
	if err := cfg.Validate(); err != nil {
		trace.Fatalf("bad kernel configuration: %v", err)
	}
	if mask, ok := trace.ParseLevel(cfg.LogLevel); ok {
		trace.SetLevel(mask)
	} else {
		trace.Fatalf("bad log level %q", cfg.LogLevel)
	}

	k := &Kernel{
		cfg:     cfg,
		level:   IntrOff,
		pending: make(chan struct{}, 1),
		pages:   mm.NewPool[Thread]("thread pages", uint32(cfg.PageFrames)),
		records: mm.NewPool[sleepRecord]("sleep records", uint32(cfg.SleepRecords)),
		nextTID: 1,
	}
	k.ready.Init()
	k.destruction.Init()
	k.sleepers.Init()
	k.retired.Init()
	k.intrInit()
	k.timerInit()
	if cfg.MLFQS {
		trace.Warnf("mlfqs scheduling requested but not implemented; using round robin")
	}
	return k
}

// SetProcessHooks installs the user-process collaborator.  Must be
// called before Start.
func (k *Kernel) SetProcessHooks(h ProcessHooks) {
	k.hooks = h
}

// Config returns the boot configuration.
func (k *Kernel) Config() Config {
	return k.cfg
}

// PrintStats reports the tick totals and the timer tick count.
func (k *Kernel) PrintStats() {
	trace.Statsf("thread", "%d idle ticks, %d kernel ticks, %d user ticks",
		k.idleTicks, k.kernelTicks, k.userTicks)
	k.TimerStats()
	k.reapRetired()
}

// kassert is the kernel's contract check: a violated invariant cannot
// be recovered from, so the only outcome is a halt with diagnostics.
func kassert(cond bool, format string, params ...interface{}) {
	if !cond {
		trace.Fatalf(format, params...)
	}
}
