package alloc

import (
	"errors"
	"testing"
)

// countingSource wraps a HeapSource and records what passes through it.
type countingSource struct {
	*HeapSource
	allocs int
	freed  []uintptr
	fail   bool
}

func (c *countingSource) Alloc(n uintptr) (uintptr, error) {
	if c.fail {
		return 0, errors.New("exhausted")
	}
	c.allocs++
	return c.HeapSource.Alloc(n)
}

func (c *countingSource) Free(p uintptr) {
	c.freed = append(c.freed, p)
	c.HeapSource.Free(p)
}

func TestMallocAlignment(t *testing.T) {
	a := New(Options{})
	for size := uintptr(1); size <= 4096; size += 37 {
		p, err := a.Malloc(size)
		if err != nil {
			t.Fatalf("malloc(%d): %v", size, err)
		}
		if p%Alignment != 0 {
			t.Fatalf("malloc(%d)=%#x not %d-aligned", size, p, Alignment)
		}
		if err := a.Free(p); err != nil {
			t.Fatalf("free: %v", err)
		}
	}
	if n := a.Outstanding(); n != 0 {
		t.Fatalf("expected no outstanding allocations, got %d", n)
	}
}

func TestUsableRangeInsideBlock(t *testing.T) {
	src := &countingSource{HeapSource: NewHeapSource()}
	a := New(Options{Source: src})
	const size = 300
	p, err := a.Malloc(size)
	if err != nil {
		t.Fatalf("malloc: %v", err)
	}
	h := a.headers[p]
	if p < h.orig+wordSize {
		t.Fatalf("aligned pointer %#x leaves no headroom after %#x", p, h.orig)
	}
	if p+size > h.orig+h.total {
		t.Fatalf("usable range [%#x,%#x) exceeds block [%#x,%#x)", p, p+size, h.orig, h.orig+h.total)
	}
	b, ok := src.block(h.orig)
	if !ok {
		t.Fatalf("backing block missing")
	}
	off := p - h.orig
	for i := uintptr(0); i < size; i++ {
		b[off+i] = byte(i)
	}
	for i := uintptr(0); i < size; i++ {
		if b[off+i] != byte(i) {
			t.Fatalf("byte %d corrupted", i)
		}
	}
	if err := a.Free(p); err != nil {
		t.Fatalf("free: %v", err)
	}
}

func TestRepeatedCyclesFreeOriginalBlock(t *testing.T) {
	src := &countingSource{HeapSource: NewHeapSource()}
	a := New(Options{Source: src})
	for i := 0; i < 1000; i++ {
		size := uintptr(1 + i%513)
		p, err := a.Malloc(size)
		if err != nil {
			t.Fatalf("cycle %d malloc: %v", i, err)
		}
		if p%Alignment != 0 {
			t.Fatalf("cycle %d: %#x not aligned", i, p)
		}
		orig := a.headers[p].orig
		if err := a.Free(p); err != nil {
			t.Fatalf("cycle %d free: %v", i, err)
		}
		if last := src.freed[len(src.freed)-1]; last != orig {
			t.Fatalf("cycle %d: freed %#x, want original %#x", i, last, orig)
		}
	}
	if src.allocs != 1000 || len(src.freed) != 1000 {
		t.Fatalf("allocs=%d frees=%d", src.allocs, len(src.freed))
	}
	if src.Blocks() != 0 || a.Live() != 0 || a.Outstanding() != 0 {
		t.Fatalf("leak: blocks=%d live=%d outstanding=%d", src.Blocks(), a.Live(), a.Outstanding())
	}
}

func TestMallocFailures(t *testing.T) {
	a := New(Options{Source: &countingSource{HeapSource: NewHeapSource(), fail: true}})
	if p, err := a.Malloc(16); p != 0 || !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("expected allocation failure, got p=%#x err=%v", p, err)
	}

	a = New(Options{Limit: 512})
	p, err := a.Malloc(256)
	if err != nil {
		t.Fatalf("first malloc: %v", err)
	}
	if _, err := a.Malloc(256); !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("expected limit failure, got %v", err)
	}
	if err := a.Free(p); err != nil {
		t.Fatalf("free: %v", err)
	}
	if _, err := a.Malloc(256); err != nil {
		t.Fatalf("malloc after free: %v", err)
	}

	if _, err := a.Malloc(^uintptr(0)); !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("expected overflow failure, got %v", err)
	}
}

func TestFreeForeignPointer(t *testing.T) {
	a := New(Options{})
	if err := a.Free(0x1000); !errors.Is(err, ErrForeignPointer) {
		t.Fatalf("expected foreign pointer error, got %v", err)
	}
	p, _ := a.Malloc(8)
	if err := a.Free(p); err != nil {
		t.Fatalf("free: %v", err)
	}
	if err := a.Free(p); !errors.Is(err, ErrForeignPointer) {
		t.Fatalf("double free should be rejected, got %v", err)
	}
}

func TestLibcSourceAlignment(t *testing.T) {
	src, err := NewLibcSource()
	if err != nil {
		t.Skipf("libc unavailable: %v", err)
	}
	a := New(Options{Source: src})
	for i := 0; i < 100; i++ {
		p, err := a.Malloc(uintptr(1 + i*13))
		if err != nil {
			t.Fatalf("malloc: %v", err)
		}
		if p%Alignment != 0 {
			t.Fatalf("%#x not aligned", p)
		}
		if err := a.Free(p); err != nil {
			t.Fatalf("free: %v", err)
		}
	}
}
