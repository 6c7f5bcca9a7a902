package list

import "testing"

// task is a stand-in for a containing structure like a thread control
// block: a couple of ordering keys plus the embedded link.
type task struct {
	seq  int
	prio int
	elem Elem[task]
}

func newTask(seq, prio int) *task {
	t := &task{seq: seq, prio: prio}
	t.elem = ElemOf(t)
	return t
}

func bySeq(a, b *task) bool {
	return a.seq < b.seq
}

func byPrio(a, b *task) bool {
	return a.prio < b.prio
}

// collect walks the list forward and returns the seq of every element.
func collect(l *List[task]) []int {
	var out []int
	for e := l.Begin(); e != l.End(); e = e.Next() {
		out = append(out, e.Value().seq)
	}
	return out
}

func checkOrder(t *testing.T, l *List[task], want []int) {
	t.Helper()
	got := collect(l)
	if len(got) != len(want) {
		t.Fatalf("list has %d elements, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d is %d, want %d (%v vs %v)", i, got[i], want[i], got, want)
		}
	}
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s did not panic", name)
		}
	}()
	fn()
}

func TestEmptyList(t *testing.T) {
	l := New[task]()
	if !l.Empty() {
		t.Fatal("new list is not empty")
	}
	if l.Size() != 0 {
		t.Fatalf("new list has size %d", l.Size())
	}
	if l.Begin() != l.End() {
		t.Fatal("Begin of empty list is not End")
	}
	if l.RBegin() != l.REnd() {
		t.Fatal("RBegin of empty list is not REnd")
	}
	l.Reverse() // no-op, must not blow up
	mustPanic(t, "Front on empty list", func() { l.Front() })
	mustPanic(t, "Back on empty list", func() { l.Back() })
}

func TestPushPopOrder(t *testing.T) {
	l := New[task]()
	for i := 0; i < 8; i++ {
		l.PushBack(&newTask(i, 0).elem)
	}
	checkOrder(t, l, []int{0, 1, 2, 3, 4, 5, 6, 7})
	if l.Size() != 8 {
		t.Fatalf("size is %d, want 8", l.Size())
	}

	// Reverse traversal sees the mirror image.
	want := 7
	for e := l.RBegin(); e != l.REnd(); e = e.Prev() {
		if e.Value().seq != want {
			t.Fatalf("reverse walk saw %d, want %d", e.Value().seq, want)
		}
		want--
	}

	l.PushFront(&newTask(-1, 0).elem)
	if l.Front().Value().seq != -1 {
		t.Fatalf("front is %d after PushFront", l.Front().Value().seq)
	}
	if l.PopFront().Value().seq != -1 {
		t.Fatal("PopFront did not return the front")
	}
	if l.PopBack().Value().seq != 7 {
		t.Fatal("PopBack did not return the back")
	}
	checkOrder(t, l, []int{0, 1, 2, 3, 4, 5, 6})
}

func TestRemoveWhileWalking(t *testing.T) {
	l := New[task]()
	for i := 0; i < 10; i++ {
		l.PushBack(&newTask(i, 0).elem)
	}
	// Drop the odd elements using Remove's returned successor.
	for e := l.Begin(); e != l.End(); {
		if e.Value().seq%2 == 1 {
			e = l.Remove(e)
		} else {
			e = e.Next()
		}
	}
	checkOrder(t, l, []int{0, 2, 4, 6, 8})
}

func TestInsertPositions(t *testing.T) {
	l := New[task]()
	a, b := newTask(1, 0), newTask(3, 0)
	l.PushBack(&a.elem)
	l.PushBack(&b.elem)
	l.Insert(&b.elem, &newTask(2, 0).elem)
	l.Insert(l.End(), &newTask(4, 0).elem)
	checkOrder(t, l, []int{1, 2, 3, 4})

	mustPanic(t, "Insert before head sentinel", func() {
		l.Insert(l.Head(), &newTask(0, 0).elem)
	})
	mustPanic(t, "Insert of unbound element", func() {
		var e Elem[task]
		l.Insert(l.End(), &e)
	})
}

func TestSplice(t *testing.T) {
	src := New[task]()
	dst := New[task]()
	for i := 0; i < 6; i++ {
		src.PushBack(&newTask(i, 0).elem)
	}
	dst.PushBack(&newTask(100, 0).elem)
	dst.PushBack(&newTask(101, 0).elem)

	// Move [1, 4) of src to just before dst's last element.
	first := src.Begin().Next()
	last := first.Next().Next().Next()
	dst.Splice(dst.Back(), first, last)

	checkOrder(t, src, []int{0, 4, 5})
	checkOrder(t, dst, []int{100, 1, 2, 3, 101})

	// Empty range is a no-op.
	dst.Splice(dst.End(), dst.Begin(), dst.Begin())
	checkOrder(t, dst, []int{100, 1, 2, 3, 101})
}

func TestReverse(t *testing.T) {
	l := New[task]()
	for i := 0; i < 5; i++ {
		l.PushBack(&newTask(i, 0).elem)
	}
	l.Reverse()
	checkOrder(t, l, []int{4, 3, 2, 1, 0})
	l.Reverse()
	checkOrder(t, l, []int{0, 1, 2, 3, 4})

	single := New[task]()
	single.PushBack(&newTask(9, 0).elem)
	single.Reverse()
	checkOrder(t, single, []int{9})
}

func TestSort(t *testing.T) {
	// A deterministic scramble: small LCG over 64 values.
	l := New[task]()
	seed := 1
	for i := 0; i < 64; i++ {
		seed = (seed*61 + 7) % 64
		l.PushBack(&newTask(seed, 0).elem)
	}
	l.Sort(bySeq)
	prev := -1
	n := 0
	for e := l.Begin(); e != l.End(); e = e.Next() {
		if e.Value().seq < prev {
			t.Fatalf("out of order after Sort: %d before %d", prev, e.Value().seq)
		}
		prev = e.Value().seq
		n++
	}
	if n != 64 {
		t.Fatalf("sort lost elements: %d of 64 remain", n)
	}

	// Sorting a sorted list must leave it untouched.
	before := collect(l)
	l.Sort(bySeq)
	checkOrder(t, l, before)

	empty := New[task]()
	empty.Sort(bySeq) // must not blow up
	mustPanic(t, "Sort with nil comparator", func() { l.Sort(nil) })
}

func TestSortStability(t *testing.T) {
	// Equal priorities must keep their arrival order.
	l := New[task]()
	arrivals := []struct{ seq, prio int }{
		{0, 2}, {1, 1}, {2, 2}, {3, 1}, {4, 3}, {5, 2}, {6, 1},
	}
	for _, a := range arrivals {
		l.PushBack(&newTask(a.seq, a.prio).elem)
	}
	l.Sort(byPrio)
	checkOrder(t, l, []int{1, 3, 6, 0, 2, 5, 4})
}

func TestInsertOrdered(t *testing.T) {
	l := New[task]()
	for _, seq := range []int{5, 3, 8, 1, 9, 7, 3} {
		l.InsertOrdered(&newTask(seq, 0).elem, bySeq)
	}
	checkOrder(t, l, []int{1, 3, 3, 5, 7, 8, 9})

	// An equal key goes after existing equals, not before.
	tie := newTask(3, 99)
	l.InsertOrdered(&tie.elem, bySeq)
	afterEquals := l.Begin().Next().Next().Next()
	if afterEquals.Value() != tie {
		t.Fatal("equal element was not inserted after existing equals")
	}
}

func TestUnique(t *testing.T) {
	l := New[task]()
	dups := New[task]()
	for i, seq := range []int{1, 1, 2, 3, 3, 3, 4} {
		l.PushBack(&newTask(seq, i).elem)
	}
	l.Unique(dups, bySeq)
	checkOrder(t, l, []int{1, 2, 3, 4})

	// Survivors are the first of each group, duplicates keep
	// encounter order.
	if l.Front().Value().prio != 0 {
		t.Fatal("first of an equal group did not survive")
	}
	var gotDups []int
	for e := dups.Begin(); e != dups.End(); e = e.Next() {
		gotDups = append(gotDups, e.Value().prio)
	}
	if len(gotDups) != 3 || gotDups[0] != 1 || gotDups[1] != 4 || gotDups[2] != 5 {
		t.Fatalf("duplicates are %v, want [1 4 5]", gotDups)
	}

	// Unique with nil duplicates just discards.
	l2 := New[task]()
	l2.PushBack(&newTask(7, 0).elem)
	l2.PushBack(&newTask(7, 1).elem)
	l2.Unique(nil, bySeq)
	checkOrder(t, l2, []int{7})
}

func TestMaxMin(t *testing.T) {
	l := New[task]()
	if l.Max(bySeq) != l.End() {
		t.Fatal("Max of empty list is not End")
	}
	if l.Min(bySeq) != l.End() {
		t.Fatal("Min of empty list is not End")
	}

	for i, seq := range []int{4, 9, 2, 9, 1, 1} {
		l.PushBack(&newTask(seq, i).elem)
	}
	// First of the tied maxima and minima wins.
	if max := l.Max(bySeq).Value(); max.seq != 9 || max.prio != 1 {
		t.Fatalf("Max returned seq=%d prio=%d", max.seq, max.prio)
	}
	if min := l.Min(bySeq).Value(); min.seq != 1 || min.prio != 4 {
		t.Fatalf("Min returned seq=%d prio=%d", min.seq, min.prio)
	}
}

func TestSentinelPanics(t *testing.T) {
	l := New[task]()
	l.PushBack(&newTask(1, 0).elem)

	mustPanic(t, "Value on sentinel", func() { l.End().Value() })
	mustPanic(t, "Next on tail sentinel", func() { l.End().Next() })
	mustPanic(t, "Prev on head sentinel", func() { l.Head().Prev() })
	mustPanic(t, "Remove of sentinel", func() { l.Remove(l.End()) })
}
