package mm

import "lull/trace"

// BitSet tracks which frames of a pool are in use.  Sizes must be a
// multiple of 64 so the storage is whole words.
type BitSet struct {
	size  uint32
	words []uint64
}

type BitIndex uint32

// NewBitSet returns a cleared bitset of the given size, which must be a
// nonzero multiple of 64.
func NewBitSet(size uint32) *BitSet {
	if size == 0 || size%64 != 0 {
		trace.Fatalf("bitset size is not a multiple of 64: %d", size)
	}
	return &BitSet{
		size:  size,
		words: make([]uint64, size>>6),
	}
}

func (b *BitSet) check(bit BitIndex) {
	if uint32(bit) >= b.size {
		trace.Fatalf("bit %d out of range for bitset of size %d", bit, b.size)
	}
}

// On reports whether bit is set.
func (b *BitSet) On(bit BitIndex) bool {
	b.check(bit)
	return b.words[bit>>6]&(1<<(bit%64)) != 0
}

// Set turns bit on.
func (b *BitSet) Set(bit BitIndex) {
	b.check(bit)
	b.words[bit>>6] |= 1 << (bit % 64)
}

// Clear turns bit off.
func (b *BitSet) Clear(bit BitIndex) {
	b.check(bit)
	b.words[bit>>6] &^= 1 << (bit % 64)
}

// ClearAll turns every bit off.
func (b *BitSet) ClearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
}
