package kernel

import (
	"sync"

	"lull/trace"
)

// Model of the two chained 8259A programmable interrupt controllers.
//
// By hardware default the controllers deliver lines 0..15 on vectors
// 0..15, colliding with the CPU's trap and exception vectors, so
// initialization remaps them to 0x20..0x2f with the standard
// four-command handshake per chip.  The secondary chip cascades into
// line 2 of the primary.
//
// Device goroutines assert lines asynchronously; everything else runs
// on the single simulated core, so the request state carries its own
// small lock.

const (
	irqBase  = 0x20 // primary chip's remapped base vector
	irqSlave = 0x28 // secondary chip's remapped base vector
	irqLimit = 0x30

	// Lines whose vectors arrive without a handler because of
	// controller timing artifacts; dispatch ignores them.
	spuriousPrimary   = 0x27
	spuriousSecondary = 0x2f

	cascadeLine = 2

	icw1Init     = 0x11 // edge triggered, cascade, ICW4 expected
	icw4Mode8086 = 0x01
)

type i8259 struct {
	offset   uint8 // vector = offset + line
	irr      uint8 // requested, not yet serviced
	isr      uint8 // being serviced, cleared by EOI
	imr      uint8 // masked lines
	icwState int   // progress through the init handshake
}

// command models a write to the chip's command port.
func (c *i8259) command(b uint8) {
	if b == icw1Init {
		c.icwState = 1
		c.irr, c.isr = 0, 0
		return
	}
	trace.Fatalf("unsupported 8259 command %#02x", b)
}

// data models a write to the chip's data port: the three ICW words
// while a handshake is in progress, the mask register otherwise.
func (c *i8259) data(b uint8) {
	switch c.icwState {
	case 1: // ICW2: vector offset
		c.offset = b
		c.icwState = 2
	case 2: // ICW3: cascade wiring
		c.icwState = 3
	case 3: // ICW4: mode
		if b != icw4Mode8086 {
			trace.Fatalf("unsupported 8259 ICW4 %#02x", b)
		}
		c.icwState = 0
	default: // OCW1: interrupt mask
		c.imr = b
	}
}

type dualPIC struct {
	mu        sync.Mutex
	primary   i8259
	secondary i8259
}

// init performs the boot handshake: mask everything, program both
// chips, then unmask all lines.
func (p *dualPIC) init() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.primary.data(0xff)
	p.secondary.data(0xff)

	p.primary.command(icw1Init)
	p.primary.data(irqBase)          // ICW2: lines IR0..7 -> 0x20..0x27
	p.primary.data(1 << cascadeLine) // ICW3: secondary on line 2
	p.primary.data(icw4Mode8086)     // ICW4

	p.secondary.command(icw1Init)
	p.secondary.data(irqSlave)    // ICW2: lines IR0..7 -> 0x28..0x2f
	p.secondary.data(cascadeLine) // ICW3: cascade identity
	p.secondary.data(icw4Mode8086)

	p.primary.data(0x00)
	p.secondary.data(0x00)
}

// raise asserts hardware line 0..15.  Safe from any goroutine.
func (p *dualPIC) raise(line int) {
	kassert(line >= 0 && line < 16, "interrupt line %d out of range", line)
	p.mu.Lock()
	defer p.mu.Unlock()
	if line < 8 {
		p.primary.irr |= 1 << line
	} else {
		p.secondary.irr |= 1 << (line - 8)
		p.primary.irr |= 1 << cascadeLine
	}
}

// acknowledge takes the highest-priority pending unmasked line,
// moves it from requested to in-service, and returns its vector.
// Priority follows the cascade: 0, 1, then the secondary's 8..15
// behind line 2, then 3..7.
func (p *dualPIC) acknowledge() (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range picPriority {
		if line < 8 {
			bit := uint8(1) << line
			if line == cascadeLine {
				continue // never delivered directly, only cascaded
			}
			if p.primary.irr&bit != 0 && p.primary.imr&bit == 0 {
				p.primary.irr &^= bit
				p.primary.isr |= bit
				return p.primary.offset + uint8(line), true
			}
			continue
		}
		bit := uint8(1) << (line - 8)
		if p.secondary.irr&bit != 0 && p.secondary.imr&bit == 0 {
			p.secondary.irr &^= bit
			p.secondary.isr |= bit
			if p.secondary.irr == 0 {
				p.primary.irr &^= 1 << cascadeLine
			}
			return p.secondary.offset + uint8(line-8), true
		}
	}
	return 0, false
}

var picPriority = [...]int{0, 1, 8, 9, 10, 11, 12, 13, 14, 15, 3, 4, 5, 6, 7}

// eoi acknowledges end of interrupt for vec.  The primary chip always
// gets the acknowledgment; the secondary only when the vector came from
// its range.  Skipping this is fatal on real hardware too: the line is
// never delivered again.
func (p *dualPIC) eoi(vec uint8) {
	kassert(vec >= irqBase && vec < irqLimit, "EOI for non-IRQ vector %#02x", vec)
	p.mu.Lock()
	defer p.mu.Unlock()
	if vec >= irqSlave {
		p.secondary.isr &^= 1 << (vec - irqSlave)
		p.primary.isr &^= 1 << cascadeLine
	} else {
		p.primary.isr &^= 1 << (vec - irqBase)
	}
}

// inService reports whether any line is between acknowledge and EOI.
func (p *dualPIC) inService() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.primary.isr != 0 || p.secondary.isr != 0
}
