// Package list implements the one queue primitive the kernel uses
// everywhere: an intrusive doubly linked list bounded by two sentinel
// elements.  An element lives inside the structure it links (a thread
// control block, a sleep record) and is a member of at most one list
// at a time.  Nothing here allocates.
//
// The sentinel arrangement looks like this for an empty list:
//
//	+------+     +------+
//	| head |<--->| tail |
//	+------+     +------+
//
// and like this with two elements in it:
//
//	+------+     +-------+     +-------+     +------+
//	| head |<--->|   1   |<--->|   2   |<--->| tail |
//	+------+     +-------+     +-------+     +------+
//
// head.prev and tail.next are always nil and every interior element has
// non-nil neighbors on both sides.  The symmetry removes the usual
// special cases: Remove is two pointer assignments with no conditionals.
package list

// Elem is the link embedded in a containing structure.  Make one with
// ElemOf so it can find its way back to its container; the zero Elem is
// only valid as a sentinel.
type Elem[T any] struct {
	prev  *Elem[T]
	next  *Elem[T]
	value *T
}

// Less is an ordering on list containers.  It must be a strict weak
// order: elements that compare equal must not report less-than in
// either direction, or Sort and Unique will misbehave.
type Less[T any] func(a, b *T) bool

// List is a sentinel-bounded intrusive list.  A List must be
// initialized with Init (or created with New) before use, and must not
// be copied afterwards because the sentinels are held by value.
type List[T any] struct {
	head Elem[T]
	tail Elem[T]
}

// ElemOf returns a link bound to its containing value.  Callers embed
// the result in v itself, typically during value initialization.
func ElemOf[T any](v *T) Elem[T] {
	return Elem[T]{value: v}
}

// Value returns the container this link is embedded in.  It panics for
// a sentinel, which has no container.
func (e *Elem[T]) Value() *T {
	if e.value == nil {
		panic("sentinel element has no value (Value)")
	}
	return e.value
}

// Next returns the element after e.  e must be the head sentinel or an
// interior element; the tail sentinel has no next.
func (e *Elem[T]) Next() *Elem[T] {
	if !e.isHead() && !e.isInterior() {
		panic("element is not head or interior (Next)")
	}
	return e.next
}

// Prev returns the element before e.  e must be an interior element or
// the tail sentinel; the head sentinel has no prev.
func (e *Elem[T]) Prev() *Elem[T] {
	if !e.isInterior() && !e.isTail() {
		panic("element is not interior or tail (Prev)")
	}
	return e.prev
}

func (e *Elem[T]) isHead() bool {
	return e != nil && e.prev == nil && e.next != nil
}

func (e *Elem[T]) isInterior() bool {
	return e != nil && e.prev != nil && e.next != nil
}

func (e *Elem[T]) isTail() bool {
	return e != nil && e.prev != nil && e.next == nil
}

// New returns an initialized empty list.
func New[T any]() *List[T] {
	l := &List[T]{}
	l.Init()
	return l
}

// Init resets l to the empty two-sentinel shape.  Any elements that
// were on l are abandoned where they stand.
func (l *List[T]) Init() {
	l.head.prev = nil
	l.head.next = &l.tail
	l.tail.prev = &l.head
	l.tail.next = nil
}

// Begin returns the first element of l, or the tail sentinel if l is
// empty.  Forward traversal runs from Begin to End.
func (l *List[T]) Begin() *Elem[T] {
	return l.head.next
}

// End returns the tail sentinel, the position one past the last
// element.
func (l *List[T]) End() *Elem[T] {
	return &l.tail
}

// RBegin returns the last element of l, or the head sentinel if l is
// empty.  Reverse traversal runs from RBegin to REnd.
func (l *List[T]) RBegin() *Elem[T] {
	return l.tail.prev
}

// REnd returns the head sentinel.
func (l *List[T]) REnd() *Elem[T] {
	return &l.head
}

// Head returns the head sentinel.
func (l *List[T]) Head() *Elem[T] {
	return &l.head
}

// Tail returns the tail sentinel.
func (l *List[T]) Tail() *Elem[T] {
	return &l.tail
}

// Insert splices elem into the list immediately before before.  before
// must be an interior element or the tail sentinel; inserting before
// End is the same as PushBack.  O(1).
func (l *List[T]) Insert(before, elem *Elem[T]) {
	if !before.isInterior() && !before.isTail() {
		panic("insertion point is not interior or tail (Insert)")
	}
	if elem == nil || elem.value == nil {
		panic("element is nil or unbound (Insert)")
	}
	elem.prev = before.prev
	elem.next = before
	before.prev.next = elem
	before.prev = elem
}

// Splice removes the range [first, last) from its current list and
// inserts it immediately before before, which may belong to a different
// list.  O(1) regardless of how many elements move.
func (l *List[T]) Splice(before, first, last *Elem[T]) {
	if !before.isInterior() && !before.isTail() {
		panic("splice target is not interior or tail (Splice)")
	}
	if first == last {
		return
	}
	last = last.Prev()

	if !first.isInterior() || !last.isInterior() {
		panic("splice range is not interior (Splice)")
	}

	// Cleanly detach [first, last] from its current surroundings.
	first.prev.next = last.next
	last.next.prev = first.prev

	// Splice it in before the target.
	first.prev = before.prev
	last.next = before
	before.prev.next = first
	before.prev = last
}

// PushFront inserts elem at the front of l.
func (l *List[T]) PushFront(elem *Elem[T]) {
	l.Insert(l.Begin(), elem)
}

// PushBack inserts elem at the back of l.
func (l *List[T]) PushBack(elem *Elem[T]) {
	l.Insert(l.End(), elem)
}

// Remove unlinks elem and returns the element that followed it.  elem
// must be interior.  After Remove the element must not be treated as a
// list member: calling Next or Prev on it is a contract violation.  A
// loop that removes as it walks should use the returned element:
//
//	for e := l.Begin(); e != l.End(); e = l.Remove(e) {
//		// ...use e.Value()...
//	}
func (l *List[T]) Remove(elem *Elem[T]) *Elem[T] {
	if !elem.isInterior() {
		panic("element is not interior (Remove)")
	}
	elem.prev.next = elem.next
	elem.next.prev = elem.prev
	return elem.next
}

// PopFront removes and returns the first element of l.  l must not be
// empty.
func (l *List[T]) PopFront() *Elem[T] {
	front := l.Front()
	l.Remove(front)
	return front
}

// PopBack removes and returns the last element of l.  l must not be
// empty.
func (l *List[T]) PopBack() *Elem[T] {
	back := l.Back()
	l.Remove(back)
	return back
}

// Front returns the first element of l, which must not be empty.
func (l *List[T]) Front() *Elem[T] {
	if l.Empty() {
		panic("list is empty (Front)")
	}
	return l.head.next
}

// Back returns the last element of l, which must not be empty.
func (l *List[T]) Back() *Elem[T] {
	if l.Empty() {
		panic("list is empty (Back)")
	}
	return l.tail.prev
}

// Size counts the elements in l.  This walks the whole list: there is
// deliberately no cached counter to maintain on the hot enqueue and
// dequeue paths.
func (l *List[T]) Size() int {
	n := 0
	for e := l.Begin(); e != l.End(); e = e.Next() {
		n++
	}
	return n
}

// Empty reports whether l has no elements.  O(1).
func (l *List[T]) Empty() bool {
	return l.Begin() == l.End()
}

// Reverse rewires l so its elements appear in the opposite order.
// O(n).
func (l *List[T]) Reverse() {
	if l.Empty() {
		return
	}
	for e := l.Begin(); e != l.End(); e = e.prev {
		e.prev, e.next = e.next, e.prev
	}
	l.head.next, l.tail.prev = l.tail.prev, l.head.next
	l.head.next.prev = &l.head
	l.tail.prev.next = &l.tail
}

// isSorted reports whether [a, b) is in nondecreasing order under less.
func isSorted[T any](a, b *Elem[T], less Less[T]) bool {
	if a != b {
		for a = a.Next(); a != b; a = a.Next() {
			if less(a.Value(), a.Prev().Value()) {
				return false
			}
		}
	}
	return true
}

// findEndOfRun walks from a, not past b, over a maximal run of
// nondecreasing elements and returns the (exclusive) end of the run.
// [a, b) must be nonempty.
func findEndOfRun[T any](a, b *Elem[T], less Less[T]) *Elem[T] {
	if a == b {
		panic("run must be nonempty (findEndOfRun)")
	}
	for {
		a = a.Next()
		if a == b || less(a.Value(), a.Prev().Value()) {
			return a
		}
	}
}

// inplaceMerge merges [a0, a1b0) with [a1b0, b1) into one run ending at
// b1.  Both input runs must be nonempty and sorted under less; the
// output run is too.
func (l *List[T]) inplaceMerge(a0, a1b0, b1 *Elem[T], less Less[T]) {
	for a0 != a1b0 && a1b0 != b1 {
		if !less(a1b0.Value(), a0.Value()) {
			a0 = a0.Next()
		} else {
			a1b0 = a1b0.Next()
			l.Splice(a0, a1b0.Prev(), a1b0)
		}
	}
}

// Sort orders l under less using a natural, iterative, in-place merge
// sort: find adjacent maximal nondecreasing runs, merge pairs of them
// by splicing, and repeat the pass until a single run remains.
// O(n log n) time and O(1) extra space.  The sort is stable as long as
// less never reports equal-comparing elements as less-than in either
// direction.
func (l *List[T]) Sort(less Less[T]) {
	if less == nil {
		panic("nil comparator (Sort)")
	}
	runs := 0
	for {
		runs = 0
		for a0 := l.Begin(); a0 != l.End(); {
			runs++
			a1b0 := findEndOfRun(a0, l.End(), less)
			if a1b0 == l.End() {
				break
			}
			b1 := findEndOfRun(a1b0, l.End(), less)
			l.inplaceMerge(a0, a1b0, b1, less)
			a0 = b1
		}
		if runs <= 1 {
			break
		}
	}
	if !isSorted(l.Begin(), l.End(), less) {
		panic("list is not sorted after merge passes (Sort)")
	}
}

// InsertOrdered places elem at the first position where it compares
// less than an existing element.  If l was already sorted under the
// same comparator it stays sorted; otherwise the result is whatever the
// linear scan finds.  Average O(n).
func (l *List[T]) InsertOrdered(elem *Elem[T], less Less[T]) {
	e := l.Begin()
	for ; e != l.End(); e = e.Next() {
		if less(elem.Value(), e.Value()) {
			break
		}
	}
	l.Insert(e, elem)
}

// Unique collapses adjacent elements for which neither compares
// less-than the other, keeping the first of each group.  If duplicates
// is non-nil the removed elements are pushed onto it in encounter
// order.
func (l *List[T]) Unique(duplicates *List[T], less Less[T]) {
	if l.Empty() {
		return
	}
	elem := l.Begin()
	for {
		next := elem.Next()
		if next == l.End() {
			return
		}
		if !less(elem.Value(), next.Value()) && !less(next.Value(), elem.Value()) {
			l.Remove(next)
			if duplicates != nil {
				duplicates.PushBack(next)
			}
		} else {
			elem = next
		}
	}
}

// Max returns the largest element under less, or the tail sentinel if l
// is empty.  Among equals the one earliest in the list wins.
func (l *List[T]) Max(less Less[T]) *Elem[T] {
	max := l.Begin()
	if max != l.End() {
		for e := max.Next(); e != l.End(); e = e.Next() {
			if less(max.Value(), e.Value()) {
				max = e
			}
		}
	}
	return max
}

// Min returns the smallest element under less, or the tail sentinel if
// l is empty.  Among equals the one earliest in the list wins.
func (l *List[T]) Min(less Less[T]) *Elem[T] {
	min := l.Begin()
	if min != l.End() {
		for e := min.Next(); e != l.End(); e = e.Next() {
			if less(e.Value(), min.Value()) {
				min = e
			}
		}
	}
	return min
}
