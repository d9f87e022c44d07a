package kernel

import (
	"fmt"

	"hvxhost/internal/alloc"
	"hvxhost/internal/diag"
	"hvxhost/internal/dispatch"
)

// Table is the capability set installed into every kernel image. Loaded code
// cannot link system libraries, so allocation, logging and work dispatch are
// all routed through these six functions.
type Table struct {
	Malloc   func(uctx uintptr, size uintptr) uintptr
	Free     func(uctx uintptr, p uintptr)
	Print    func(uctx uintptr, msg string)
	Error    func(uctx uintptr, msg string)
	DoParFor func(uctx uintptr, task dispatch.Task, min, size int32, closure uintptr) int32
	DoTask   func(uctx uintptr, task dispatch.Task, idx int32, closure uintptr) int32
}

// NewTable builds a Table from an allocator, a dispatcher and a sink.
// Allocation failures and bad frees are reported through the sink's error
// path; Malloc still returns 0 so the kernel can fail its own assertion.
func NewTable(a *alloc.Allocator, d dispatch.Dispatcher, s *diag.Sink) *Table {
	if d == nil {
		d = dispatch.Sequential{}
	}
	return &Table{
		Malloc: func(uctx uintptr, size uintptr) uintptr {
			p, err := a.Malloc(size)
			if err != nil {
				s.Error(uctx, fmt.Sprintf("halide_malloc(%d): %v", size, err))
				return 0
			}
			return p
		},
		Free: func(uctx uintptr, p uintptr) {
			if err := a.Free(p); err != nil {
				s.Error(uctx, "halide_free: "+err.Error())
			}
		},
		Print: s.Print,
		Error: s.Error,
		DoParFor: func(uctx uintptr, task dispatch.Task, min, size int32, closure uintptr) int32 {
			return d.DispatchRange(uctx, task, min, size, closure)
		},
		DoTask: func(uctx uintptr, task dispatch.Task, idx int32, closure uintptr) int32 {
			return d.DispatchOne(uctx, task, idx, closure)
		},
	}
}
