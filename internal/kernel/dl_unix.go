//go:build linux || darwin

package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"

	"hvxhost/internal/dispatch"
)

// dlOpener loads shared objects with local, lazy binding.
type dlOpener struct{}

// NativeOpener returns the dlopen-backed opener.
func NativeOpener() Opener { return dlOpener{} }

func (dlOpener) Open(path string) (Image, error) {
	h, err := purego.Dlopen(path, purego.RTLD_LOCAL|purego.RTLD_LAZY)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return &dlImage{handle: h}, nil
}

type dlImage struct {
	handle uintptr
}

func (d *dlImage) Lookup(name string) (Proc, bool) {
	p, err := purego.Dlsym(d.handle, name)
	if err != nil || p == 0 {
		return 0, false
	}
	return Proc(p), true
}

func (d *dlImage) SetRuntime(p Proc, t *Table) int32 {
	cb := installNative(t)
	r, _, _ := purego.SyscallN(uintptr(p), cb[0], cb[1], cb[2], cb[3], cb[4], cb[5])
	return int32(r)
}

func (d *dlImage) Call(p Proc, argv unsafe.Pointer) int32 {
	r, _, _ := purego.SyscallN(uintptr(p), uintptr(argv))
	return int32(r)
}

func (d *dlImage) Close() error {
	if err := purego.Dlclose(d.handle); err != nil {
		return fmt.Errorf("dlclose: %w", err)
	}
	return nil
}

// The C side of the runtime table. Callbacks are created once per process
// and forward to whichever Table was installed last; purego callbacks cannot
// be freed.
var (
	nativeOnce  sync.Once
	nativeAddrs [6]uintptr
	nativeTable atomic.Pointer[Table]
)

func installNative(t *Table) [6]uintptr {
	nativeTable.Store(t)
	nativeOnce.Do(func() {
		nativeAddrs = [6]uintptr{
			purego.NewCallback(func(uctx, size uintptr) uintptr {
				return nativeTable.Load().Malloc(uctx, size)
			}),
			purego.NewCallback(func(uctx, p uintptr) {
				nativeTable.Load().Free(uctx, p)
			}),
			purego.NewCallback(func(uctx uintptr, msg *byte) {
				nativeTable.Load().Print(uctx, unix.BytePtrToString(msg))
			}),
			purego.NewCallback(func(uctx uintptr, msg *byte) {
				nativeTable.Load().Error(uctx, unix.BytePtrToString(msg))
			}),
			purego.NewCallback(func(uctx, fn uintptr, min, size int32, closure uintptr) int32 {
				return nativeTable.Load().DoParFor(uctx, foreignTask(fn), min, size, closure)
			}),
			purego.NewCallback(func(uctx, fn uintptr, idx int32, closure uintptr) int32 {
				return nativeTable.Load().DoTask(uctx, foreignTask(fn), idx, closure)
			}),
		}
	})
	return nativeAddrs
}

// foreignTask wraps a C task pointer: int task(void *uctx, int idx, uint8_t *closure).
func foreignTask(fn uintptr) dispatch.Task {
	return func(uctx uintptr, idx int32, closure uintptr) int32 {
		r, _, _ := purego.SyscallN(fn, uctx, uintptr(idx), closure)
		return int32(r)
	}
}
