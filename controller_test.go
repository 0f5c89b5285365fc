package devol

import "testing"

func TestControllerPRNGStreamsAreDisjoint(t *testing.T) {
	seed := [3]uint16{11, 22, 33}
	c0 := newController(0, 0, 10, seed)
	c1 := newController(1, 0, 10, seed)

	if c0.Float64() == c1.Float64() {
		t.Error("expected different workers to draw from disjoint PRNG streams")
	}
}

func TestControllerIntnRange(t *testing.T) {
	c := newController(0, 0, 10, [3]uint16{1, 2, 3})
	for i := 0; i < 200; i++ {
		n := c.Intn(5)
		if n < 0 || n >= 5 {
			t.Fatalf("Intn(5) out of range: %d", n)
		}
	}
}

func TestControllerAllocWithoutAllocatorReportsNotOK(t *testing.T) {
	c := newController(0, 0, 10, [3]uint16{1, 2, 3})
	if _, _, ok := c.Alloc(); ok {
		t.Error("expected Alloc to report ok=false when no allocator is wired")
	}
	c.Free(0) // must not panic
}

func TestControllerAllocFreeRoundTrip(t *testing.T) {
	alloc, err := NewAllocator(1, 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := newController(0, 0, 10, [3]uint16{1, 2, 3})
	c.alloc = alloc

	block, addr, ok := c.Alloc()
	if !ok {
		t.Fatal("expected Alloc to succeed")
	}
	if len(block) != 4 {
		t.Errorf("expected block length 4, got %d", len(block))
	}

	c.Free(addr)
	if _, _, ok := c.Alloc(); !ok {
		t.Error("expected lane to have a free slot after Free")
	}
}
