//go:build !linux && !darwin

package alloc

import "errors"

// LibcSource is unavailable on this platform.
type LibcSource struct{}

func NewLibcSource() (*LibcSource, error) {
	return nil, errors.New("libc allocator is only available on linux and darwin")
}

func (LibcSource) Alloc(n uintptr) (uintptr, error) {
	return 0, errors.New("libc allocator unavailable")
}

func (LibcSource) Free(p uintptr) {}
