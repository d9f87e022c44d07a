package alloc

import (
	"sync"
	"unsafe"
)

// HeapSource hands out blocks from the Go heap. Blocks stay reachable from
// the source until freed, so the collector never reclaims memory a kernel is
// still using; the Go heap does not move objects.
type HeapSource struct {
	mu     sync.Mutex
	blocks map[uintptr][]byte
}

func NewHeapSource() *HeapSource {
	return &HeapSource{blocks: make(map[uintptr][]byte)}
}

func (h *HeapSource) Alloc(n uintptr) (uintptr, error) {
	if n == 0 {
		n = 1
	}
	// []uint64 backing keeps the block word aligned.
	words := make([]uint64, (n+7)/8)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
	p := uintptr(unsafe.Pointer(&b[0]))
	h.mu.Lock()
	h.blocks[p] = b
	h.mu.Unlock()
	return p, nil
}

func (h *HeapSource) Free(p uintptr) {
	h.mu.Lock()
	delete(h.blocks, p)
	h.mu.Unlock()
}

// block returns the backing slice of an outstanding block.
func (h *HeapSource) block(p uintptr) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks[p]
	return b, ok
}

// Blocks reports the number of outstanding blocks.
func (h *HeapSource) Blocks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}
