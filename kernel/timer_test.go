package kernel

import (
	"fmt"
	"testing"
)

func TestPITDivisor(t *testing.T) {
	cases := []struct {
		hz      int64
		divisor uint16
	}{
		{100, 11932}, // rounds up from 11931.8
		{1000, 1193},
		{19, 62799},
	}
	for _, tc := range cases {
		cfg := testConfig()
		cfg.TimerHz = tc.hz
		k := New(cfg)
		if k.pitDivisor != tc.divisor {
			t.Errorf("divisor for %d Hz is %d, want %d", tc.hz, k.pitDivisor, tc.divisor)
		}
	}
}

func TestTicksAdvance(t *testing.T) {
	k := bootKernel(t, testConfig())

	if k.Ticks() != 0 {
		t.Fatalf("fresh kernel has %d ticks", k.Ticks())
	}
	then := k.Ticks()
	for i := 0; i < 7; i++ {
		tick(k)
	}
	if k.Ticks() != 7 {
		t.Fatalf("ticks are %d after 7 interrupts", k.Ticks())
	}
	if k.Elapsed(then) != 7 {
		t.Fatalf("Elapsed reports %d", k.Elapsed(then))
	}
}

func TestSleepZeroReturnsImmediately(t *testing.T) {
	k := bootKernel(t, testConfig())

	k.Sleep(0)
	k.Sleep(-3)
	if k.Ticks() != 0 {
		t.Fatal("non-positive sleep consumed ticks")
	}
	if !k.sleepers.Empty() {
		t.Fatal("non-positive sleep left a record behind")
	}
}

func TestSleepWakesOnTimeInPriorityOrder(t *testing.T) {
	k := bootKernel(t, testConfig())

	var order []int
	sleeper := func(arg any) {
		prio := arg.(int)
		k.Sleep(5)
		order = append(order, prio)
	}
	// Created low to high so arrival order and priority order
	// disagree; ties on the wake tick must resolve by priority.
	for _, prio := range []int{1, 5, 9} {
		k.Create(fmt.Sprintf("sleeper-%d", prio), prio, sleeper, prio)
	}

	// One yield runs each sleeper up to its block.
	k.Yield()
	if k.sleepers.Size() != 3 {
		t.Fatalf("%d sleepers queued, want 3", k.sleepers.Size())
	}

	// Nobody may wake before tick 5.
	for i := 0; i < 4; i++ {
		tick(k)
		if len(order) != 0 {
			t.Fatalf("a sleeper woke at tick %d", k.Ticks())
		}
	}

	tick(k)
	k.Yield()

	if len(order) != 3 {
		t.Fatalf("%d sleepers finished, want 3", len(order))
	}
	for i, want := range []int{9, 5, 1} {
		if order[i] != want {
			t.Fatalf("wake order is %v, want [9 5 1]", order)
		}
	}
	if !k.sleepers.Empty() {
		t.Fatal("sleep queue not empty after all wakes")
	}

	// The records moved to the retired list inside the tick handler;
	// reclamation happens outside interrupt context.
	k.reapRetired()
	if k.records.Live() != 0 {
		t.Fatalf("%d sleep records still live after reaping", k.records.Live())
	}
}

func TestSleepStaggeredDeadlines(t *testing.T) {
	k := bootKernel(t, testConfig())

	woke := map[int64]int64{}
	sleeper := func(arg any) {
		n := arg.(int64)
		k.Sleep(n)
		woke[n] = k.Ticks()
	}
	for _, n := range []int64{2, 7, 4} {
		k.Create(fmt.Sprintf("stagger-%d", n), PriDefault, sleeper, n)
	}
	k.Yield()

	for i := 0; i < 8; i++ {
		tick(k)
		k.Yield() // let anything woken this tick run
	}

	for _, n := range []int64{2, 4, 7} {
		if woke[n] != n {
			t.Errorf("Sleep(%d) woke at tick %d", n, woke[n])
		}
	}
}

func TestSleepRecordExhaustionHalts(t *testing.T) {
	cfg := testConfig()
	cfg.PageFrames = 128 // room for a sleeper per record, plus main and idle
	k := bootKernel(t, cfg)

	// Fill the record pool with parked sleepers, then one more.
	sleeper := func(any) { k.Sleep(1000) }
	for i := 0; i < cfg.SleepRecords; i++ {
		if k.Create(fmt.Sprintf("holder-%d", i), PriDefault, sleeper, nil) == TIDError {
			t.Fatalf("ran out of thread pages at %d; size the pools apart", i)
		}
	}
	k.Yield()
	if k.records.Live() != cfg.SleepRecords {
		t.Fatalf("%d records live, want %d", k.records.Live(), cfg.SleepRecords)
	}

	mustHalt(t, "sleep past record exhaustion", func() { k.Sleep(1) })
}

func TestSleepWithInterruptsOffHalts(t *testing.T) {
	k := bootKernel(t, testConfig())
	defer k.Enable()
	k.Disable()
	mustHalt(t, "Sleep with interrupts off", func() { k.Sleep(1) })
}
