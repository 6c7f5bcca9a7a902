package kernel

import (
	"github.com/fatih/color"

	"lull/trace"
)

// flagIF is the interrupt-enable bit of the simulated RFLAGS.
const flagIF = uint64(1) << 9

// Registers is the general-purpose register file of a trap frame.  The
// values in a simulated frame are synthetic but the dump layout is the
// real one, so fault output reads like the machine's.
type Registers struct {
	R15 uint64
	R14 uint64
	R13 uint64
	R12 uint64
	R11 uint64
	R10 uint64
	R9  uint64
	R8  uint64
	RSI uint64
	RDI uint64
	RBP uint64
	RDX uint64
	RCX uint64
	RBX uint64
	RAX uint64
}

// Frame is what the hardware hands the dispatch entry point: the
// vector, an error code for the faults that push one, and the
// interrupted thread's register state.
type Frame struct {
	R         Registers
	ES        uint16
	DS        uint16
	Vec       uint64
	ErrorCode uint64
	RIP       uint64
	CS        uint16
	RFlags    uint64
	RSP       uint64
	SS        uint16
}

var (
	dumpHead = color.New(color.FgCyan)
	dumpBody = color.New(color.FgHiBlack)
)

// DumpFrame prints the full register and segment state of a trap frame
// with the vector's diagnostic name.  This is the last thing the kernel
// says before an unexpected-interrupt halt.
func (k *Kernel) DumpFrame(f *Frame) {
	out := trace.Output()
	dumpHead.Fprintf(out, "Interrupt %#04x (%s) at rip=%#x\n", f.Vec, k.IntrName(uint8(f.Vec)), f.RIP)
	dumpBody.Fprintf(out, " error=%016x thread=%s\n", f.ErrorCode, k.Current().Name())
	dumpBody.Fprintf(out, "rax %016x rbx %016x rcx %016x rdx %016x\n", f.R.RAX, f.R.RBX, f.R.RCX, f.R.RDX)
	dumpBody.Fprintf(out, "rsp %016x rbp %016x rsi %016x rdi %016x\n", f.RSP, f.R.RBP, f.R.RSI, f.R.RDI)
	dumpBody.Fprintf(out, "rip %016x r8  %016x r9  %016x r10 %016x\n", f.RIP, f.R.R8, f.R.R9, f.R.R10)
	dumpBody.Fprintf(out, "r11 %016x r12 %016x r13 %016x r14 %016x\n", f.R.R11, f.R.R12, f.R.R13, f.R.R14)
	dumpBody.Fprintf(out, "r15 %016x rflags %08x\n", f.R.R15, f.RFlags)
	dumpBody.Fprintf(out, "es: %04x ds: %04x cs: %04x ss: %04x\n", f.ES, f.DS, f.CS, f.SS)
}
