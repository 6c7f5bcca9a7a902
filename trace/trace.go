// Package trace is the kernel's leveled logger.  Levels are a bitmask
// so callers can turn on exactly the chatter they want; the fatal level
// is not maskable because it is the kernel-halt path.
package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
	StatsMask MaskLevel = 0x10
	fatalMask MaskLevel = 0x80
)

// KernelPanic is the value carried by the panic raised from Fatalf.  A
// kernel contract violation has no recovery path; tests observe this
// type to check that the fatal tier fired.
type KernelPanic string

func (k KernelPanic) String() string { return string(k) }

var level = fatalMask | StatsMask | ErrorMask | WarnMask | InfoMask

var out io.Writer = os.Stdout

var (
	errorPrefix = color.New(color.FgRed)
	warnPrefix  = color.New(color.FgYellow)
	infoPrefix  = color.New(color.FgGreen)
	debugPrefix = color.New(color.FgCyan)
	statsPrefix = color.New(color.FgMagenta)
	fatalPrefix = color.New(color.FgRed, color.Bold)
)

// SetOutput redirects the log and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	prev := out
	out = w
	return prev
}

// Output returns the current log writer, for diagnostics that format
// their own output but should land wherever the log goes.
func Output() io.Writer {
	return out
}

// SetLevel sets the log mask directly; pass something like
// ErrorMask|DebugMask to control exactly what gets printed.  Returns
// the previous mask.
func SetLevel(mask MaskLevel) MaskLevel {
	if mask&0x1f == 0 {
		fmt.Fprintf(out, " WARN: trace.SetLevel is turning off all log messages\n")
	}
	prev := level & 0x1f
	level = (mask & 0x1f) | fatalMask
	return prev
}

// Level returns the current mask.
func Level() MaskLevel {
	return level & 0x1f
}

// ParseLevel maps a config-file word to a mask.  Everything at and
// below the named level is enabled, the way the kernel boots it.
func ParseLevel(name string) (MaskLevel, bool) {
	switch name {
	case "", "info":
		return ErrorMask | WarnMask | InfoMask | StatsMask, true
	case "error":
		return ErrorMask, true
	case "warn":
		return ErrorMask | WarnMask, true
	case "debug":
		return ErrorMask | WarnMask | InfoMask | StatsMask | DebugMask, true
	case "quiet":
		return Nothing, true
	}
	return Nothing, false
}

func logf(l MaskLevel, format string, params ...interface{}) {
	if level&l == 0 {
		return
	}
	start := 0
	switch {
	case l&fatalMask > 0:
		fatalPrefix.Fprintf(out, "PANIC:")
	case l&ErrorMask > 0:
		errorPrefix.Fprintf(out, "ERROR:")
	case l&WarnMask > 0:
		warnPrefix.Fprintf(out, " WARN:")
	case l&InfoMask > 0:
		infoPrefix.Fprintf(out, " INFO:")
	case l&DebugMask > 0:
		debugPrefix.Fprintf(out, "DEBUG:")
	case l&StatsMask > 0:
		category, ok := params[0].(string)
		if !ok {
			category = "unknown"
		}
		statsPrefix.Fprintf(out, "STATS[%s]:", category)
		start = 1
	}
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	fmt.Fprintf(out, " "+format, params[start:]...)
}

// Fatalf logs the message unconditionally and halts the kernel by
// panicking with a KernelPanic.  Fatalf is not maskable and does not
// return.
func Fatalf(format string, params ...interface{}) {
	logf(fatalMask, format, params...)
	panic(KernelPanic(fmt.Sprintf(format, params...)))
}

// Errorf logs at the ErrorMask level.
func Errorf(format string, params ...interface{}) {
	logf(ErrorMask, format, params...)
}

// Warnf logs at the WarnMask level.
func Warnf(format string, params ...interface{}) {
	logf(WarnMask, format, params...)
}

// Infof logs at the InfoMask level.
func Infof(format string, params ...interface{}) {
	logf(InfoMask, format, params...)
}

// Debugf logs at the DebugMask level.
func Debugf(format string, params ...interface{}) {
	logf(DebugMask, format, params...)
}

// Statsf logs at the StatsMask level; category shows up in the prefix
// so reports from different subsystems can be told apart.
func Statsf(category string, format string, params ...interface{}) {
	logf(StatsMask, format, append([]interface{}{category}, params...)...)
}
