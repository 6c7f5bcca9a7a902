package kernel

import "runtime"

// execContext is the saved execution state of a thread.  On real
// hardware this is a register file and a stack pointer; here the state
// lives in a parked goroutine and the whole context switch reduces to
// one primitive: suspend the current execution state, resume a
// different saved one.  The scheduler above this file is platform
// independent.
type execContext struct {
	// gate admits the thread onto the simulated core.  Capacity one
	// so a resume posted before the owner parks is not lost.
	gate chan struct{}
}

func (c *execContext) init() {
	c.gate = make(chan struct{}, 1)
}

// resume marks a saved context runnable.  The owning goroutine returns
// from suspend (or enters its trampoline, on first dispatch).
func (c *execContext) resume() {
	c.gate <- struct{}{}
}

// suspend parks the calling goroutine until some other thread resumes
// this context.
func (c *execContext) suspend() {
	<-c.gate
}

// switchContext transfers the core from prev to next.  If prev is
// dying its goroutine ends here: its page is already on the destruction
// queue and must stay untouched until the next scheduling decision, so
// the dying side does nothing after waving the successor through.
func (k *Kernel) switchContext(prev, next *Thread) {
	next.ctx.resume()
	if prev.status == Dying {
		runtime.Goexit()
	}
	prev.ctx.suspend()
}
