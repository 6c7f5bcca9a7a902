// Command lull boots the simulated kernel and wires it to real
// devices: wall-clock time drives the interval timer line, the
// controlling terminal drives the keyboard line.  A couple of periodic
// threads show the scheduler and the sleep queue at work; press q to
// shut down.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-tty"

	"lull/kernel"
	"lull/trace"
)

const irqKeyboard = 1

// keyboard buffers runes between the terminal-reader goroutine and the
// interrupt handler, the way a controller's FIFO sits between the key
// matrix and the bus.
type keyboard struct {
	mu   sync.Mutex
	keys []rune
}

func (kb *keyboard) push(r rune) {
	kb.mu.Lock()
	kb.keys = append(kb.keys, r)
	kb.mu.Unlock()
}

func (kb *keyboard) pop() (rune, bool) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if len(kb.keys) == 0 {
		return 0, false
	}
	r := kb.keys[0]
	kb.keys = kb.keys[1:]
	return r, true
}

func main() {
	cfgPath := flag.String("config", "", "YAML kernel configuration file")
	flag.Parse()

	cfg := kernel.DefaultConfig()
	if *cfgPath != "" {
		var err error
		cfg, err = kernel.LoadConfig(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lull: %v\n", err)
			os.Exit(1)
		}
	}

	k := kernel.New(cfg)
	k.Boot()

	kb := &keyboard{}
	var quit kernel.Semaphore
	quit.Init(k, 0)

	k.RegisterIRQ(irqKeyboard, func(f *kernel.Frame) {
		for {
			r, ok := kb.pop()
			if !ok {
				return
			}
			if r == 'q' {
				quit.Up()
				k.YieldOnReturn()
				return
			}
			trace.Infof("key %q", r)
		}
	}, "8042 Keyboard")

	k.Start()

	// Wall-clock time asserts the timer line at the configured rate.
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.TimerHz))
		defer ticker.Stop()
		for range ticker.C {
			k.Assert(kernel.IRQTimer)
		}
	}()

	// The raw terminal asserts the keyboard line per keypress.
	if term, err := tty.Open(); err != nil {
		trace.Warnf("no terminal, keyboard disabled: %v", err)
	} else {
		defer term.Close()
		go func() {
			for {
				r, err := term.ReadRune()
				if err != nil {
					return
				}
				kb.push(r)
				k.Assert(irqKeyboard)
			}
		}()
	}

	k.Calibrate()

	k.Create("chirp", kernel.PriDefault+10, func(any) {
		for i := 1; ; i++ {
			k.Sleep(cfg.TimerHz)
			trace.Infof("chirp %d at tick %d", i, k.Ticks())
		}
	}, nil)
	k.Create("drone", kernel.PriDefault, func(any) {
		for i := 1; ; i++ {
			k.Sleep(3 * cfg.TimerHz)
			trace.Infof("drone %d at tick %d (load avg %d)", i, k.Ticks(), k.GetLoadAvg())
		}
	}, nil)

	trace.Infof("kernel up at %d Hz, quantum %d ticks; press q to quit",
		cfg.TimerHz, cfg.TimeSlice)
	quit.Down()
	k.Shutdown()
}
