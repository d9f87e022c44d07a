//go:build linux || darwin

package alloc

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

var (
	libcOnce sync.Once
	libcErr  error

	libcMalloc func(n uintptr) uintptr
	libcFree   func(p uintptr)
)

func libcPath() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/libSystem.B.dylib"
	}
	return "libc.so.6"
}

func loadLibc() error {
	libcOnce.Do(func() {
		lib, err := purego.Dlopen(libcPath(), purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			libcErr = fmt.Errorf("purego dlopen libc: %w", err)
			return
		}
		purego.RegisterLibFunc(&libcMalloc, lib, "malloc")
		purego.RegisterLibFunc(&libcFree, lib, "free")
	})
	return libcErr
}

// LibcSource allocates with the C library's malloc and free. Memory it
// returns is invisible to the Go collector.
type LibcSource struct{}

// NewLibcSource binds malloc and free on first use.
func NewLibcSource() (*LibcSource, error) {
	if err := loadLibc(); err != nil {
		return nil, err
	}
	return &LibcSource{}, nil
}

func (LibcSource) Alloc(n uintptr) (uintptr, error) {
	p := libcMalloc(n)
	if p == 0 {
		return 0, errors.New("malloc returned NULL")
	}
	return p, nil
}

func (LibcSource) Free(p uintptr) { libcFree(p) }
