package kernel

import (
	"runtime"
	"sync"
	"unsafe"
)

// Buffer is memory passed to a kernel through a buffer descriptor.
type Buffer interface {
	// Host returns the first byte of the buffer, or nil if it is empty.
	Host() unsafe.Pointer
}

// Bytes is a byte slice used as a kernel buffer.
type Bytes []byte

func (b Bytes) Host() unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(b))
}

type sliceBuffer[T any] []T

func (s sliceBuffer[T]) Host() unsafe.Pointer {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(s))
}

// Slice wraps a typed slice as a kernel buffer.
func Slice[T any](s []T) Buffer { return sliceBuffer[T](s) }

// Scalar is a reference to a scalar argument. The kernel receives the
// reference itself, not the value.
type Scalar interface {
	Ref() unsafe.Pointer
}

type scalarRef struct{ p unsafe.Pointer }

func (s scalarRef) Ref() unsafe.Pointer { return s.p }

// ScalarRef passes p through unchanged.
func ScalarRef[T any](p *T) Scalar { return scalarRef{unsafe.Pointer(p)} }

// ScalarOf copies v and passes a reference to the copy.
func ScalarOf[T any](v T) Scalar {
	p := new(T)
	*p = v
	return scalarRef{unsafe.Pointer(p)}
}

// ScalarBytes passes a reference to the first byte of b, for scalars that
// arrive already encoded.
func ScalarBytes(b []byte) Scalar {
	if len(b) == 0 {
		return scalarRef{}
	}
	return scalarRef{unsafe.Pointer(unsafe.SliceData(b))}
}

// bufferT mirrors the stripped buffer descriptor the generated code reads.
// Only host is populated.
type bufferT struct {
	dev  uint64
	host *uint8
}

// ArgKind tags a position in the argument vector.
type ArgKind uint8

const (
	ArgInput ArgKind = iota
	ArgScalar
	ArgOutput
)

func (k ArgKind) String() string {
	switch k {
	case ArgInput:
		return "input"
	case ArgScalar:
		return "scalar"
	case ArgOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Arg is one tagged argument before flattening.
type Arg struct {
	Kind ArgKind
	Ptr  unsafe.Pointer
}

// frame holds everything one invocation hands to foreign code.
type frame struct {
	args  []Arg
	descs []bufferT
	argv  []unsafe.Pointer
	pin   runtime.Pinner
}

var framePool = sync.Pool{
	New: func() any {
		return &frame{
			args:  make([]Arg, 0, 8),
			descs: make([]bufferT, 0, 8),
			argv:  make([]unsafe.Pointer, 0, 8),
		}
	},
}

func getFrame() *frame { return framePool.Get().(*frame) }

func putFrame(f *frame) {
	f.pin.Unpin()
	clear(f.args)
	clear(f.descs)
	clear(f.argv)
	f.args = f.args[:0]
	f.descs = f.descs[:0]
	f.argv = f.argv[:0]
	framePool.Put(f)
}

// collect records the arguments in positional order: inputs, scalars,
// outputs. A nil entry becomes a nil pointer in its position.
func (f *frame) collect(inputs []Buffer, scalars []Scalar, outputs []Buffer) {
	for _, b := range inputs {
		f.args = append(f.args, Arg{Kind: ArgInput, Ptr: hostOf(b)})
	}
	for _, s := range scalars {
		var p unsafe.Pointer
		if s != nil {
			p = s.Ref()
		}
		f.args = append(f.args, Arg{Kind: ArgScalar, Ptr: p})
	}
	for _, b := range outputs {
		f.args = append(f.args, Arg{Kind: ArgOutput, Ptr: hostOf(b)})
	}
}

func hostOf(b Buffer) unsafe.Pointer {
	if b == nil {
		return nil
	}
	return b.Host()
}

// flatten converts the tagged arguments into the untyped vector and pins
// every Go object it references. It returns the address of the vector.
func (f *frame) flatten() unsafe.Pointer {
	n := len(f.args)
	nbuf := 0
	for _, a := range f.args {
		if a.Kind != ArgScalar {
			nbuf++
		}
	}
	// Descriptor addresses are taken below, so size the backing array first.
	if cap(f.descs) < nbuf {
		f.descs = make([]bufferT, 0, nbuf)
	}
	if cap(f.argv) < n || cap(f.argv) == 0 {
		f.argv = make([]unsafe.Pointer, 0, max(n, 1))
	}
	for _, a := range f.args {
		if a.Ptr != nil {
			f.pin.Pin(a.Ptr)
		}
		if a.Kind == ArgScalar {
			f.argv = append(f.argv, a.Ptr)
			continue
		}
		f.descs = append(f.descs, bufferT{host: (*uint8)(a.Ptr)})
		f.argv = append(f.argv, unsafe.Pointer(&f.descs[len(f.descs)-1]))
	}
	if len(f.descs) > 0 {
		f.pin.Pin(unsafe.SliceData(f.descs))
	}
	base := unsafe.SliceData(f.argv[:cap(f.argv)])
	f.pin.Pin(base)
	return unsafe.Pointer(base)
}

// Argv views the argument vector passed to an entry point as n positions.
func Argv(argv unsafe.Pointer, n int) []unsafe.Pointer {
	if argv == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*unsafe.Pointer)(argv), n)
}

// HostOf reads the host pointer out of the buffer descriptor at arg.
func HostOf(arg unsafe.Pointer) unsafe.Pointer {
	if arg == nil {
		return nil
	}
	return unsafe.Pointer((*bufferT)(arg).host)
}
