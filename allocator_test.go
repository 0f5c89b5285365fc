package devol

import "testing"

func TestAllocator(t *testing.T) {
	t.Run("Alloc Fills Bucket First-Fit", func(t *testing.T) {
		a, err := NewAllocator(2, 8, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var addrs []int
		for i := 0; i < 4; i++ {
			addr, ok := a.Alloc(0)
			if !ok {
				t.Fatalf("bucket 0 exhausted early at i=%d", i)
			}
			addrs = append(addrs, addr)
		}

		for i, addr := range addrs {
			if addr != i*8 {
				t.Errorf("alloc %d: expected first-fit address %d, got %d", i, i*8, addr)
			}
		}

		if _, ok := a.Alloc(0); ok {
			t.Fatalf("expected bucket 0 to be exhausted")
		}

		stats := a.Stats(0)
		if stats.Allocated != 4 || stats.Free != 0 {
			t.Errorf("expected 4 allocated, 0 free; got %+v", stats)
		}

		// Other bucket is untouched.
		if stats := a.Stats(1); stats.Allocated != 0 {
			t.Errorf("expected bucket 1 untouched, got %+v", stats)
		}
	})

	t.Run("Free Then Realloc Reuses Slot", func(t *testing.T) {
		a, _ := NewAllocator(1, 4, 2)
		addr0, _ := a.Alloc(0)
		_, _ = a.Alloc(0)
		a.Free(0, addr0)

		addr, ok := a.Alloc(0)
		if !ok || addr != addr0 {
			t.Errorf("expected realloc to reuse freed slot %d, got %d ok=%v", addr0, addr, ok)
		}
	})

	t.Run("Double Free Is Tolerated", func(t *testing.T) {
		a, _ := NewAllocator(1, 4, 2)
		addr, _ := a.Alloc(0)
		a.Free(0, addr)
		a.Free(0, addr) // must not panic or corrupt state

		stats := a.Stats(0)
		if stats.Allocated != 0 {
			t.Errorf("expected 0 allocated after double free, got %+v", stats)
		}
	})

	t.Run("Ill-Formed Free Is Tolerated", func(t *testing.T) {
		a, _ := NewAllocator(1, 4, 2)

		a.Free(0, -1)   // negative address
		a.Free(0, 3)    // misaligned (not a multiple of blockSize)
		a.Free(0, 4000) // aligned but out of range
		a.Free(5, 0)    // out of range bucket

		stats := a.Stats(0)
		if stats.Allocated != 0 || stats.Free != 2 {
			t.Errorf("expected allocator state untouched, got %+v", stats)
		}
	})

	t.Run("Bytes Returns Correctly Sized Slice", func(t *testing.T) {
		a, _ := NewAllocator(1, 16, 2)
		addr, ok := a.Alloc(0)
		if !ok {
			t.Fatal("alloc failed")
		}
		block := a.Bytes(0, addr)
		if len(block) != 16 {
			t.Errorf("expected block of length 16, got %d", len(block))
		}
		block[0] = 0xFF
		if a.Bytes(0, addr)[0] != 0xFF {
			t.Errorf("expected Bytes to alias the same backing storage")
		}
	})

	t.Run("Spans More Than One Word", func(t *testing.T) {
		a, err := NewAllocator(1, 1, wordBits+5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := 0; i < wordBits+5; i++ {
			if _, ok := a.Alloc(0); !ok {
				t.Fatalf("expected alloc %d to succeed", i)
			}
		}
		if _, ok := a.Alloc(0); ok {
			t.Fatalf("expected bucket exhausted after %d allocs", wordBits+5)
		}
	})

	t.Run("Rejects Non-Positive Parameters", func(t *testing.T) {
		if _, err := NewAllocator(0, 8, 4); err == nil {
			t.Error("expected error for zero buckets")
		}
		if _, err := NewAllocator(1, 0, 4); err == nil {
			t.Error("expected error for zero blockSize")
		}
		if _, err := NewAllocator(1, 8, 0); err == nil {
			t.Error("expected error for zero elems")
		}
	})
}
