package kernel

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"unsafe"
)

// EntryFunc is a Go implementation of an argv-style entry point.
type EntryFunc func(argv unsafe.Pointer) int32

// FuncImage describes an in-process code image made of Go functions. It lets
// the loader run without native code: tests, dry runs, and hosts where the
// kernels are simulated.
type FuncImage struct {
	// SetRuntime is exported as the runtime hook. Nil means the image lacks
	// the hook.
	SetRuntime func(t *Table) int32
	Entries    map[string]EntryFunc
	// CloseErr is returned by Close.
	CloseErr error
}

// FuncOpener serves FuncImages by path.
type FuncOpener struct {
	mu     sync.Mutex
	images map[string]*FuncImage
	opens  int
	closes int
}

func NewFuncOpener() *FuncOpener {
	return &FuncOpener{images: make(map[string]*FuncImage)}
}

// Register makes img available at path.
func (o *FuncOpener) Register(path string, img *FuncImage) {
	o.mu.Lock()
	o.images[path] = img
	o.mu.Unlock()
}

// Open returns a fresh handle onto the image registered at path.
func (o *FuncOpener) Open(path string) (Image, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	def, ok := o.images[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	o.opens++
	img := &funcImage{opener: o, def: def, procs: map[string]Proc{}, byProc: map[Proc]string{}}
	names := make([]string, 0, len(def.Entries)+1)
	if def.SetRuntime != nil {
		names = append(names, RuntimeHook)
	}
	for name := range def.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		p := Proc(i + 1)
		img.procs[name] = p
		img.byProc[p] = name
	}
	return img, nil
}

// Counts reports how many handles were opened and closed.
func (o *FuncOpener) Counts() (opens, closes int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens, o.closes
}

type funcImage struct {
	opener *FuncOpener
	def    *FuncImage
	procs  map[string]Proc
	byProc map[Proc]string
}

func (f *funcImage) Lookup(name string) (Proc, bool) {
	p, ok := f.procs[name]
	return p, ok
}

func (f *funcImage) SetRuntime(p Proc, t *Table) int32 {
	if f.byProc[p] != RuntimeHook {
		return -1
	}
	return f.def.SetRuntime(t)
}

func (f *funcImage) Call(p Proc, argv unsafe.Pointer) int32 {
	fn, ok := f.def.Entries[f.byProc[p]]
	if !ok {
		return -1
	}
	return fn(argv)
}

func (f *funcImage) Close() error {
	f.opener.mu.Lock()
	f.opener.closes++
	f.opener.mu.Unlock()
	return f.def.CloseErr
}
