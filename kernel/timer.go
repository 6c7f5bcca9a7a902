package kernel

import (
	"lull/list"
	"lull/trace"
)

// Tick source and the sleep/wake queue.  The tick counter moves only
// inside the timer interrupt handler; everything ordered against it
// (the sleep queue, the quantum) is manipulated under the interrupt
// mask.

// pitInputHz is the 8254's input clock.
const pitInputHz = 1193180

// IRQTimer is the interval timer's hardware line.
const IRQTimer = 0

// sleepRecord pairs a blocked thread with its wake tick and the
// priority it held when it went to sleep.  Records are owned by the
// timer: created in Sleep, moved to the retired list by the tick
// handler (no freeing in interrupt context), returned to the pool
// only once control is back outside.
type sleepRecord struct {
	thread   *Thread
	wake     int64
	priority int
	elem     list.Elem[sleepRecord]
}

// wakeLess orders the sleep queue: ascending wake tick, and among
// records due the same tick, higher priority first so their wakes land
// on the ready queue in priority order.
func wakeLess(a, b *sleepRecord) bool {
	if a.wake != b.wake {
		return a.wake < b.wake
	}
	return a.priority > b.priority
}

// timerInit programs the interval timer to cfg.TimerHz and claims the
// timer vector.
func (k *Kernel) timerInit() {
	k.pitDivisor = uint16((pitInputHz + k.cfg.TimerHz/2) / k.cfg.TimerHz)
	k.RegisterIRQ(IRQTimer, k.timerInterrupt, "8254 Timer")
	trace.Debugf("8254 programmed: divisor %d for %d Hz", k.pitDivisor, k.cfg.TimerHz)
}

// timerInterrupt runs once per tick in external interrupt context:
// count the tick, account it, and wake every sleeper that is due.  The
// queue is sorted by wake tick, so the drain stops at the first record
// still in the future.
func (k *Kernel) timerInterrupt(f *Frame) {
	k.ticks++
	k.threadTick()

	for !k.sleepers.Empty() {
		r := k.sleepers.Front().Value()
		if r.wake > k.ticks {
			break
		}
		k.sleepers.PopFront()
		// Reclamation cannot happen here; park the record for
		// the next drain outside interrupt context.
		k.retired.PushBack(&r.elem)
		k.Unblock(r.thread)
	}
}

// Ticks returns the number of ticks since boot.
func (k *Kernel) Ticks() int64 {
	old := k.Disable()
	t := k.ticks
	k.SetLevel(old)
	return t
}

// Elapsed returns the ticks elapsed since then, which should be a
// value once returned by Ticks.
func (k *Kernel) Elapsed(then int64) int64 {
	return k.Ticks() - then
}

// Sleep blocks the running thread for about n ticks.  n <= 0 returns
// immediately.  The enqueue and the block are one interrupt-disabled
// critical section, so the tick handler can never see a record whose
// thread has not finished blocking.
func (k *Kernel) Sleep(n int64) {
	start := k.Ticks()

	kassert(k.level == IntrOn, "Sleep with interrupts off")
	if n <= 0 {
		return
	}

	k.reapRetired()

	k.Disable()
	r := k.records.Alloc()
	kassert(r != nil, "out of sleep records")
	r.thread = k.Current()
	r.wake = start + n
	r.priority = r.thread.priority
	r.elem = list.ElemOf(r)
	k.sleepers.InsertOrdered(&r.elem, wakeLess)
	k.Block()
	k.Enable()
}

// reapRetired returns retired sleep records to their pool.  Called
// opportunistically from places known to be outside interrupt context.
func (k *Kernel) reapRetired() {
	kassert(!k.InContext(), "record reclamation in interrupt context")
	old := k.Disable()
	for !k.retired.Empty() {
		k.records.Free(k.retired.PopFront().Value())
	}
	k.SetLevel(old)
}

// MSleep blocks for about ms milliseconds.
func (k *Kernel) MSleep(ms int64) {
	k.realTimeSleep(ms, 1000)
}

// USleep blocks for about us microseconds.
func (k *Kernel) USleep(us int64) {
	k.realTimeSleep(us, 1000*1000)
}

// NSleep blocks for about ns nanoseconds.
func (k *Kernel) NSleep(ns int64) {
	k.realTimeSleep(ns, 1000*1000*1000)
}

// realTimeSleep waits for about num/denom seconds: whole ticks through
// Sleep, sub-tick delays through the calibrated busy wait.
func (k *Kernel) realTimeSleep(num int64, denom int32) {
	ticks := num * k.cfg.TimerHz / int64(denom)

	kassert(k.level == IntrOn, "timed sleep with interrupts off")
	if ticks > 0 {
		k.Sleep(ticks)
		return
	}
	// Scale down to avoid overflow in the loop-count product.
	kassert(denom%1000 == 0, "sub-second denominator %d not a multiple of 1000", denom)
	k.busyWait(k.loopsPerTick * num / 1000 * k.cfg.TimerHz / int64(denom/1000))
}

// Calibrate measures loopsPerTick for sub-tick delays: double a trial
// loop count until it spans more than one tick, then refine the next
// eight bits by trial.  Needs interrupts on (ticks must be arriving)
// and a reasonably steady instruction rate.
func (k *Kernel) Calibrate() {
	kassert(k.level == IntrOn, "Calibrate with interrupts off")
	trace.Infof("calibrating timer...")

	// Largest power of two that still fits in one tick.
	k.loopsPerTick = 1 << 10
	for !k.tooManyLoops(k.loopsPerTick << 1) {
		k.loopsPerTick <<= 1
		kassert(k.loopsPerTick != 0, "calibration overflow")
	}

	// Refine the next eight bits.
	highBit := k.loopsPerTick
	for testBit := highBit >> 1; testBit != highBit>>10; testBit >>= 1 {
		if !k.tooManyLoops(k.loopsPerTick | testBit) {
			k.loopsPerTick |= testBit
		}
	}

	trace.Infof("%d loops/s", k.loopsPerTick*k.cfg.TimerHz)
}

// tooManyLoops reports whether loops iterations run past a tick
// boundary.
func (k *Kernel) tooManyLoops(loops int64) bool {
	// Wait for a tick boundary so the trial starts fresh.
	start := k.ticks
	for k.ticks == start {
		k.Poll()
	}

	start = k.ticks
	k.busyWait(loops)

	return start != k.ticks
}

// busyWait spins for the given loop count.  The poll stands in for the
// between-instructions interrupt window of real hardware, and keeps
// the loop from being optimized into nothing.
func (k *Kernel) busyWait(loops int64) {
	for ; loops > 0; loops-- {
		k.Poll()
	}
}

// TimerStats reports the tick count.
func (k *Kernel) TimerStats() {
	trace.Statsf("timer", "%d ticks", k.Ticks())
}
