package devol

import "math/bits"

// wordBits is the width of one bitmap word; the C source used uint32_t
// words, scanning for the first word that isn't 0xFFFFFFFF. A 64-bit word
// halves the number of words to scan without changing the algorithm.
const wordBits = 64

const fullWord = ^uint64(0)

// bucket is one lane of the allocator: a slice of a single contiguous slab
// plus its own bitmap (spec.md §4.1, "one bit per block; 1 = allocated").
type bucket struct {
	base  []byte // this bucket's slice of Allocator.slab
	bits  []uint64
	elems int
}

// Allocator is a fixed-size-block pool partitioned into per-worker lanes so
// concurrent allocation/free require no synchronization as long as each
// worker allocates only from its own lane (spec.md §4.1). It is grounded on
// original_source/src/algos/bucket.c's init_bucket_allocator/_balloc/
// _do_bfree, reimplemented without raw pointer arithmetic.
type Allocator struct {
	blockSize int
	buckets   []bucket
	slab      []byte
}

// BucketStats reports allocation occupancy for one lane, the structured
// replacement for bucket.c's printf-based _display_buckets debug dump.
type BucketStats struct {
	Allocated int
	Free      int
}

// NewAllocator reserves buckets*elems*blockSize bytes plus one bitmap per
// bucket, all bits clear. It fails only when blockSize, buckets, or elems
// is non-positive (the Go equivalent of the C contract's "fails only on
// allocation failure": a fixed, valid size request cannot fail to allocate
// in Go the way malloc can).
func NewAllocator(buckets, blockSize, elems int) (*Allocator, error) {
	if buckets <= 0 {
		return nil, &ConfigError{Field: "buckets", Reason: "must be positive"}
	}
	if blockSize <= 0 {
		return nil, &ConfigError{Field: "blockSize", Reason: "must be positive"}
	}
	if elems <= 0 {
		return nil, &ConfigError{Field: "elems", Reason: "must be positive"}
	}

	words := elems / wordBits
	if elems%wordBits != 0 {
		words++
	}

	a := &Allocator{
		blockSize: blockSize,
		buckets:   make([]bucket, buckets),
		slab:      make([]byte, buckets*elems*blockSize),
	}

	for i := 0; i < buckets; i++ {
		lo := i * elems * blockSize
		hi := lo + elems*blockSize
		a.buckets[i] = bucket{
			base:  a.slab[lo:hi:hi],
			bits:  make([]uint64, words),
			elems: elems,
		}
	}

	return a, nil
}

// Alloc returns the address (as a byte offset into this bucket's slab) of
// the first free block in bucket b, setting its bit. It returns (0, false)
// when b is out of range or the bucket is full, the lane-safety contract
// in spec.md §4.1: only the owner of lane b may call this.
func (a *Allocator) Alloc(b int) (int, bool) {
	if b < 0 || b >= len(a.buckets) {
		return 0, false
	}
	bkt := &a.buckets[b]

	for wordIdx, word := range bkt.bits {
		if word == fullWord {
			continue
		}
		bitOffset := bits.TrailingZeros64(^word)
		offset := wordIdx*wordBits + bitOffset
		if offset >= bkt.elems {
			return 0, false
		}
		bkt.bits[wordIdx] |= 1 << uint(bitOffset)
		return offset * a.blockSize, true
	}
	return 0, false
}

// Free clears the bit for the block at addr in bucket b. A misaligned
// address (offset%blockSize != 0) or a double-free (bit already 0) is
// silently tolerated (spec.md §4.1/§7, "ill-formed allocator use").
func (a *Allocator) Free(b int, addr int) {
	if b < 0 || b >= len(a.buckets) {
		return
	}
	bkt := &a.buckets[b]

	if addr < 0 || addr%a.blockSize != 0 {
		return
	}
	offset := addr / a.blockSize
	if offset < 0 || offset >= bkt.elems {
		return
	}

	wordIdx, bitOffset := offset/wordBits, uint(offset%wordBits)
	mask := uint64(1) << bitOffset
	bkt.bits[wordIdx] &^= mask
}

// Stats reports how many blocks in bucket b are allocated vs free.
func (a *Allocator) Stats(b int) BucketStats {
	if b < 0 || b >= len(a.buckets) {
		return BucketStats{}
	}
	bkt := &a.buckets[b]
	allocated := 0
	for i := 0; i < bkt.elems; i++ {
		wordIdx, bitOffset := i/wordBits, uint(i%wordBits)
		if bkt.bits[wordIdx]&(1<<bitOffset) != 0 {
			allocated++
		}
	}
	return BucketStats{Allocated: allocated, Free: bkt.elems - allocated}
}

// Buckets returns the number of lanes this allocator was created with.
func (a *Allocator) Buckets() int { return len(a.buckets) }

// Bytes returns the block at addr in bucket b as a writable byte slice of
// length blockSize, the Go stand-in for the raw void* the C allocator
// handed back. Callers reinterpret the bytes however their payload needs
// (encoding/binary, a fixed-width struct layout, etc.); the allocator only
// owns liveness tracking, not the block's contents.
func (a *Allocator) Bytes(b int, addr int) []byte {
	if b < 0 || b >= len(a.buckets) {
		return nil
	}
	bkt := &a.buckets[b]
	if addr < 0 || addr+a.blockSize > len(bkt.base) {
		return nil
	}
	return bkt.base[addr : addr+a.blockSize]
}

// BlockSize returns the fixed block size this allocator was created with.
func (a *Allocator) BlockSize() int { return a.blockSize }
