// Package alloc implements the scoped allocator handed to loaded kernels.
//
// Every address returned by Malloc is a multiple of Alignment. The underlying
// block is larger than requested; the original block address is kept in a
// header record indexed by the aligned address, so Free recovers it in O(1)
// without reading memory in front of the returned pointer.
package alloc

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"hvxhost/internal/metrics"
)

// Alignment of every pointer returned to kernels.
const Alignment = 128

const wordSize = unsafe.Sizeof(uintptr(0))

var (
	// ErrAllocationFailure is returned when the source is exhausted or the
	// configured limit would be exceeded.
	ErrAllocationFailure = errors.New("allocation failure")
	// ErrForeignPointer is returned by Free for addresses this allocator did
	// not produce.
	ErrForeignPointer = errors.New("pointer not produced by this allocator")
)

// Source is the system allocator underneath the aligned allocator. Blocks
// must be at least word aligned.
type Source interface {
	Alloc(n uintptr) (uintptr, error)
	Free(p uintptr)
}

// header describes one outstanding allocation.
type header struct {
	orig  uintptr
	size  uintptr
	total uintptr
}

// Allocator is safe for concurrent use.
type Allocator struct {
	mu      sync.Mutex
	src     Source
	limit   uintptr
	live    uintptr
	headers map[uintptr]header
	log     zerolog.Logger
}

// Options configures an Allocator.
type Options struct {
	// Source defaults to a HeapSource.
	Source Source
	// Limit caps the bytes outstanding at once, including alignment slack.
	// Zero means unlimited.
	Limit  uintptr
	Logger zerolog.Logger
}

// New builds an Allocator.
func New(opts Options) *Allocator {
	src := opts.Source
	if src == nil {
		src = NewHeapSource()
	}
	return &Allocator{
		src:     src,
		limit:   opts.Limit,
		headers: make(map[uintptr]header),
		log:     opts.Logger,
	}
}

// alignUp returns the first Alignment boundary that leaves at least one word
// of headroom after orig.
func alignUp(orig uintptr) uintptr {
	return (orig + Alignment + wordSize - 1) &^ (Alignment - 1)
}

// Malloc returns an aligned address with at least size usable bytes.
func (a *Allocator) Malloc(size uintptr) (uintptr, error) {
	total := size + Alignment
	if total < size {
		return 0, a.fail(size, fmt.Errorf("%w: size overflow", ErrAllocationFailure))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.limit > 0 && a.live+total > a.limit {
		return 0, a.fail(size, fmt.Errorf("%w: limit %d bytes reached", ErrAllocationFailure, a.limit))
	}
	orig, err := a.src.Alloc(total)
	if err != nil || orig == 0 {
		if err == nil {
			err = errors.New("source returned nil")
		}
		return 0, a.fail(size, fmt.Errorf("%w: %v", ErrAllocationFailure, err))
	}
	p := alignUp(orig)
	a.headers[p] = header{orig: orig, size: size, total: total}
	a.live += total
	metrics.AllocLiveBytes.Add(float64(total))
	return p, nil
}

func (a *Allocator) fail(size uintptr, err error) error {
	metrics.AllocFailures.Inc()
	a.log.Warn().Uint64("size", uint64(size)).Err(err).Msg("kernel allocation failed")
	return err
}

// Free releases an address returned by Malloc.
func (a *Allocator) Free(p uintptr) error {
	a.mu.Lock()
	h, ok := a.headers[p]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("%w: %#x", ErrForeignPointer, p)
	}
	delete(a.headers, p)
	a.live -= h.total
	a.mu.Unlock()

	metrics.AllocLiveBytes.Sub(float64(h.total))
	a.src.Free(h.orig)
	return nil
}

// Live reports bytes outstanding, including alignment slack.
func (a *Allocator) Live() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Outstanding reports the number of allocations not yet freed.
func (a *Allocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.headers)
}
