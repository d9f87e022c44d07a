// Package dispatch implements the do-task and do-par-for callbacks kernels use
// to run their inner loops.
package dispatch

import "math"

// Task is one unit of kernel work. uctx and closure are opaque words owned by
// the kernel. A nonzero return is a kernel-defined failure code.
type Task func(uctx uintptr, idx int32, closure uintptr) int32

// Dispatcher runs tasks on behalf of a kernel.
//
// Implementations must keep two guarantees for DispatchRange: a zero result
// means every index in the range ran and succeeded, and a nonzero result is the
// first failure observed, after which no further index is started.
type Dispatcher interface {
	DispatchOne(uctx uintptr, task Task, idx int32, closure uintptr) int32
	DispatchRange(uctx uintptr, task Task, min, size int32, closure uintptr) int32
}

// Sequential runs every task on the calling goroutine in index order.
type Sequential struct{}

// DispatchOne calls task once and returns its status unchanged.
func (Sequential) DispatchOne(uctx uintptr, task Task, idx int32, closure uintptr) int32 {
	return task(uctx, idx, closure)
}

// StatusRangeOverflow is returned by DispatchRange, before any task runs,
// when the last index of the range does not fit in an int32.
const StatusRangeOverflow int32 = -1

// DispatchRange calls task for idx in [min, min+size) and stops at the first
// nonzero status.
func (s Sequential) DispatchRange(uctx uintptr, task Task, min, size int32, closure uintptr) int32 {
	end := int64(min) + int64(size)
	if end-1 > math.MaxInt32 {
		return StatusRangeOverflow
	}
	for x := int64(min); x < end; x++ {
		if r := s.DispatchOne(uctx, task, int32(x), closure); r != 0 {
			return r
		}
	}
	return 0
}
