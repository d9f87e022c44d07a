package kernel

import (
	"unsafe"
)

// RuntimeHook is the entry point every kernel image must export. It receives
// the six runtime callbacks.
const RuntimeHook = "halide_noos_set_runtime"

// Proc is the address of a resolved function inside an image. Zero means
// not found.
type Proc uintptr

// Image is an opened code image.
type Image interface {
	// Lookup resolves name to a function in the image.
	Lookup(name string) (Proc, bool)
	// SetRuntime calls p as the runtime hook with the callbacks of t.
	SetRuntime(p Proc, t *Table) int32
	// Call invokes p as an argv-style entry point: int fn(void **argv).
	Call(p Proc, argv unsafe.Pointer) int32
	// Close unloads the image.
	Close() error
}

// Opener opens code images from a path.
type Opener interface {
	Open(path string) (Image, error)
}
