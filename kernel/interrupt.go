package kernel

import "lull/trace"

const vectorCount = 256

// IntrLevel is the state of the simulated interrupt-enable flag.
type IntrLevel int

const (
	// IntrOff means external interrupts are not taken.
	IntrOff IntrLevel = iota
	// IntrOn means external interrupts are taken at poll points.
	IntrOn
)

// GateKind distinguishes the two descriptor kinds: entering an
// interrupt gate atomically disables further delivery, entering a trap
// gate leaves the delivery state unchanged.
type GateKind int

const (
	InterruptGate GateKind = iota
	TrapGate
)

// Handler is a registered interrupt handler.  External handlers run
// with interrupts disabled, are never nested, and must not block or
// allocate in ways that re-enter scheduling.
type Handler func(f *Frame)

// gate is one entry of the 256-entry descriptor table.
type gate struct {
	kind    GateKind
	dpl     int
	present bool
}

// intrInit builds the descriptor table and programs the controllers.
func (k *Kernel) intrInit() {
	k.pic.init()

	for i := range k.names {
		k.names[i] = "unknown"
		k.gates[i] = gate{kind: InterruptGate, dpl: 0}
	}

	k.names[0] = "#DE Divide Error"
	k.names[1] = "#DB Debug Exception"
	k.names[2] = "NMI Interrupt"
	k.names[3] = "#BP Breakpoint Exception"
	k.names[4] = "#OF Overflow Exception"
	k.names[5] = "#BR BOUND Range Exceeded Exception"
	k.names[6] = "#UD Invalid Opcode Exception"
	k.names[7] = "#NM Device Not Available Exception"
	k.names[8] = "#DF Double Fault Exception"
	k.names[9] = "Coprocessor Segment Overrun"
	k.names[10] = "#TS Invalid TSS Exception"
	k.names[11] = "#NP Segment Not Present"
	k.names[12] = "#SS Stack Fault Exception"
	k.names[13] = "#GP General Protection Exception"
	k.names[14] = "#PF Page-Fault Exception"
	k.names[16] = "#MF x87 FPU Floating-Point Error"
	k.names[17] = "#AC Alignment Check Exception"
	k.names[18] = "#MC Machine-Check Exception"
	k.names[19] = "#XF SIMD Floating-Point Exception"
}

// Level returns the current interrupt state.
func (k *Kernel) Level() IntrLevel {
	return k.level
}

// Disable turns interrupt delivery off and returns the previous state.
func (k *Kernel) Disable() IntrLevel {
	old := k.level
	k.level = IntrOff
	return old
}

// Enable turns interrupt delivery on, services anything the controller
// has pending, and returns the previous state.  Enabling from inside an
// external handler is a contract violation.
func (k *Kernel) Enable() IntrLevel {
	kassert(!k.InContext(), "interrupts enabled inside an external interrupt handler")
	old := k.level
	k.level = IntrOn
	k.Poll()
	return old
}

// SetLevel restores a state saved from Disable or Enable and returns
// the state it replaced.
func (k *Kernel) SetLevel(level IntrLevel) IntrLevel {
	if level == IntrOn {
		return k.Enable()
	}
	return k.Disable()
}

// InContext reports whether an external interrupt is being handled.
func (k *Kernel) InContext() bool {
	return k.inExternal
}

// YieldOnReturn asks the dispatcher to yield the interrupted thread
// once the handler has returned.  Only valid inside an external
// handler; a yield never happens synchronously in interrupt context.
func (k *Kernel) YieldOnReturn() {
	kassert(k.InContext(), "YieldOnReturn outside interrupt context")
	k.yieldOnReturn = true
}

// IntrName returns the diagnostic name registered for a vector.
func (k *Kernel) IntrName(vec uint8) string {
	return k.names[vec]
}

// RegisterExternal registers a handler for a hardware IRQ vector
// (0x20..0x2f).  External gates always disable delivery on entry and
// always have privilege 0.
func (k *Kernel) RegisterExternal(vec uint8, h Handler, name string) {
	kassert(vec >= irqBase && vec < irqLimit,
		"external vector %#02x outside the hardware IRQ range", vec)
	k.registerHandler(vec, 0, IntrOff, h, name)
}

// RegisterIRQ registers a handler for hardware line 0..15, mapping the
// line through the controller's remapped base.
func (k *Kernel) RegisterIRQ(line int, h Handler, name string) {
	kassert(line >= 0 && line < 16, "IRQ line %d out of range", line)
	k.RegisterExternal(uint8(irqBase+line), h, name)
}

// RegisterInternal registers a handler for a software fault or trap
// vector, with the caller's privilege level and, through level, the
// gate kind: IntrOn builds a trap gate, IntrOff an interrupt gate.
func (k *Kernel) RegisterInternal(vec uint8, dpl int, level IntrLevel, h Handler, name string) {
	kassert(vec < irqBase || vec >= irqLimit,
		"internal vector %#02x inside the hardware IRQ range", vec)
	k.registerHandler(vec, dpl, level, h, name)
}

func (k *Kernel) registerHandler(vec uint8, dpl int, level IntrLevel, h Handler, name string) {
	kassert(h != nil, "nil handler for vector %#02x", vec)
	kassert(dpl >= 0 && dpl <= 3, "privilege level %d for vector %#02x out of range", dpl, vec)
	kassert(k.handlers[vec] == nil,
		"vector %#02x (%s) already has a handler", vec, k.names[vec])
	kind := InterruptGate
	if level == IntrOn {
		kind = TrapGate
	}
	k.gates[vec] = gate{kind: kind, dpl: dpl, present: true}
	k.handlers[vec] = h
	k.names[vec] = name
}

// Assert raises hardware line 0..15 on the controller.  Safe to call
// from any goroutine; the running thread takes the interrupt at its
// next poll point.
func (k *Kernel) Assert(line int) {
	k.pic.raise(line)
	select {
	case k.pending <- struct{}{}:
	default:
	}
}

// Poll gives the simulated core a chance to take pending external
// interrupts.  Hardware does this between instructions; the simulation
// does it here, at interrupt enable, in the idle halt, and in busy
// waits.  A no-op while delivery is off.
func (k *Kernel) Poll() {
	for k.level == IntrOn {
		vec, ok := k.pic.acknowledge()
		if !ok {
			return
		}
		k.deliver(vec)
	}
}

// deliver pushes one hardware interrupt through its gate: snapshot a
// frame, apply the gate's masking behavior, dispatch, then restore the
// interrupted state the way iret would.
func (k *Kernel) deliver(vec uint8) {
	f := k.makeFrame(uint64(vec), 0)
	if k.gates[vec].kind == InterruptGate {
		k.level = IntrOff
	}
	k.dispatch(&f)
	if f.RFlags&flagIF != 0 {
		k.level = IntrOn
	} else {
		k.level = IntrOff
	}
}

// Trap raises an internal vector synchronously on the current thread,
// the way a fault or an intentional software trap would arrive.
func (k *Kernel) Trap(vec uint8, errorCode uint64) {
	kassert(vec < irqBase || vec >= irqLimit,
		"Trap on hardware IRQ vector %#02x", vec)
	old := k.level
	f := k.makeFrame(uint64(vec), errorCode)
	if k.gates[vec].kind == InterruptGate {
		k.level = IntrOff
	}
	k.dispatch(&f)
	k.level = old
}

func (k *Kernel) makeFrame(vec, errorCode uint64) Frame {
	f := Frame{
		Vec:       vec,
		ErrorCode: errorCode,
		CS:        selKCSeg,
		SS:        selKDSeg,
		DS:        selKDSeg,
		ES:        selKDSeg,
	}
	if k.level == IntrOn {
		f.RFlags |= flagIF
	}
	if t := k.current; t != nil {
		f.R.RAX = uint64(t.tid)
	}
	return f
}

// dispatch is the one entry point for every vector.  External
// interrupts are special: they are taken one at a time with delivery
// off, they must be acknowledged to the controller, and a yield
// requested during handling is deferred to the return path.
func (k *Kernel) dispatch(f *Frame) {
	external := f.Vec >= irqBase && f.Vec < irqLimit
	if external {
		kassert(k.level == IntrOff, "external interrupt taken with delivery on")
		kassert(!k.InContext(), "nested external interrupt")
		k.inExternal = true
		k.yieldOnReturn = false
	}

	if h := k.handlers[f.Vec]; h != nil {
		h(f)
	} else if f.Vec == spuriousPrimary || f.Vec == spuriousSecondary {
		// Controller timing can produce these with no real
		// request behind them.  Ignore.
	} else {
		k.DumpFrame(f)
		trace.Fatalf("unexpected interrupt %#04x (%s)", f.Vec, k.IntrName(uint8(f.Vec)))
	}

	if external {
		kassert(k.level == IntrOff, "external handler re-enabled delivery")
		kassert(k.InContext(), "external handler cleared interrupt context")
		k.inExternal = false
		k.pic.eoi(uint8(f.Vec))
		if k.yieldOnReturn {
			k.Yield()
		}
	}
}

// Segment selectors for the synthetic frames.
const (
	selKCSeg = 0x08
	selKDSeg = 0x10
)
