// Package mm is the kernel's page-granularity allocator: fixed pools of
// statically sized frames with a bitset marking which are live.  A
// frame is handed out zero filled and returned by pointer, the way a
// page allocator hands out pages by base address.  There is no general
// dynamic allocation in the kernel core; everything page-shaped comes
// from here.
package mm

import (
	"unsafe"

	"lull/trace"
)

// Pool is a fixed pool of frames of type T.  Alloc returns nil when the
// pool is exhausted; a pool can go from exhausted back to working when
// frames are freed.
type Pool[T any] struct {
	name   string
	frames []T
	used   *BitSet
	live   int
}

// NewPool returns a pool of n frames.  n must be a multiple of 64
// (bitset storage is whole words; watch out when sizing from config).
func NewPool[T any](name string, n uint32) *Pool[T] {
	p := &Pool[T]{
		name:   name,
		frames: make([]T, n),
		used:   NewBitSet(n),
	}
	return p
}

// Alloc returns a zero-filled frame, or nil if the pool is exhausted.
func (p *Pool[T]) Alloc() *T {
	for i := range p.frames {
		if p.used.On(BitIndex(i)) {
			continue
		}
		p.used.Set(BitIndex(i))
		p.live++
		var zero T
		p.frames[i] = zero
		return &p.frames[i]
	}
	return nil
}

// frameIndex maps a frame pointer back to its index, by address
// arithmetic over the backing array.  A pointer that did not come from
// this pool is a contract violation.
func (p *Pool[T]) frameIndex(ptr *T) int {
	base := uintptr(unsafe.Pointer(&p.frames[0]))
	addr := uintptr(unsafe.Pointer(ptr))
	size := unsafe.Sizeof(p.frames[0])
	if addr < base || addr >= base+size*uintptr(len(p.frames)) {
		trace.Fatalf("pointer %p is not from pool %q", ptr, p.name)
	}
	if (addr-base)%size != 0 {
		trace.Fatalf("pointer %p is not frame aligned in pool %q", ptr, p.name)
	}
	return int((addr - base) / size)
}

// Free returns a frame to the pool.  Freeing a frame that is not live,
// or a pointer that is not from this pool, halts the kernel.
func (p *Pool[T]) Free(ptr *T) {
	i := p.frameIndex(ptr)
	if !p.used.On(BitIndex(i)) {
		trace.Fatalf("double free of frame %d in pool %q", i, p.name)
	}
	p.used.Clear(BitIndex(i))
	p.live--
}

// Live returns how many frames are currently allocated.
func (p *Pool[T]) Live() int {
	return p.live
}

// Cap returns the total number of frames in the pool.
func (p *Pool[T]) Cap() int {
	return len(p.frames)
}
