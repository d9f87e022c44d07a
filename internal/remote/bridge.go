// Package remote is the integer-status surface callers on the far side of
// the host/accelerator boundary use. It maps opaque handles to kernel
// modules and symbols and flattens errors into status codes.
package remote

import (
	"bytes"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"hvxhost/internal/kernel"
)

const (
	StatusOK     int32 = 0
	StatusFailed int32 = -1
)

type entry struct {
	mod     *kernel.Module
	symbols map[uint64]kernel.Symbol
	names   map[string]uint64
	nextSym uint64
}

// Bridge exposes a kernel.Loader through handles and status codes.
type Bridge struct {
	loader *kernel.Loader
	log    zerolog.Logger

	mu      sync.Mutex
	modules map[uint64]*entry
}

func NewBridge(loader *kernel.Loader, log zerolog.Logger) *Bridge {
	return &Bridge{loader: loader, log: log, modules: make(map[uint64]*entry)}
}

// InitializeKernels loads code and returns a module handle. codeLen must
// not exceed len(code); the loader still receives all of code. An init
// failure returns the hook's own status.
func (b *Bridge) InitializeKernels(code []byte, codeLen int) (uint64, int32) {
	if codeLen < 0 || codeLen > len(code) {
		b.log.Error().Int("code_len", codeLen).Int("len", len(code)).Msg("code length out of range")
		return 0, StatusFailed
	}
	m, err := b.loader.Load(code)
	if err != nil {
		if kernel.IsInitError(err) {
			return 0, kernel.StatusCode(err)
		}
		return 0, StatusFailed
	}
	b.mu.Lock()
	b.modules[m.ID()] = &entry{
		mod:     m,
		symbols: make(map[uint64]kernel.Symbol),
		names:   make(map[string]uint64),
	}
	b.mu.Unlock()
	return m.ID(), StatusOK
}

// GetSymbol returns a symbol handle for name, or 0 when the module handle is
// unknown or the name does not resolve. The name ends at the first NUL.
func (b *Bridge) GetSymbol(handle uint64, name string, nameLen int) uint64 {
	if nameLen < 0 {
		return 0
	}
	if i := bytes.IndexByte([]byte(name), 0); i >= 0 {
		name = name[:i]
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.modules[handle]
	if !ok {
		return 0
	}
	if h, ok := e.names[name]; ok {
		return h
	}
	sym := e.mod.Lookup(name)
	if !sym.Valid() {
		return 0
	}
	e.nextSym++
	e.symbols[e.nextSym] = sym
	e.names[name] = e.nextSym
	return e.nextSym
}

// Run invokes a symbol with raw byte buffers. Each scalar slice holds the
// encoded value the kernel reads through its reference. The kernel's status
// is returned unchanged; bridge errors return StatusFailed.
func (b *Bridge) Run(handle, symbol uint64, inputs, scalars [][]byte, outputs [][]byte) int32 {
	b.mu.Lock()
	e, ok := b.modules[handle]
	var sym kernel.Symbol
	if ok {
		sym, ok = e.symbols[symbol]
	}
	b.mu.Unlock()
	if !ok {
		return StatusFailed
	}

	in := make([]kernel.Buffer, len(inputs))
	for i, buf := range inputs {
		in[i] = kernel.Bytes(buf)
	}
	sc := make([]kernel.Scalar, len(scalars))
	for i, s := range scalars {
		sc[i] = kernel.ScalarBytes(s)
	}
	out := make([]kernel.Buffer, len(outputs))
	for i, buf := range outputs {
		out[i] = kernel.Bytes(buf)
	}

	rc, err := e.mod.Invoke(sym, in, sc, out)
	if err != nil && !kernel.IsInvocationError(err) {
		if errors.Is(err, kernel.ErrReleased) {
			b.log.Warn().Uint64("handle", handle).Msg("run on released module")
		}
		return StatusFailed
	}
	return rc
}

// ReleaseKernels releases the module behind handle. The handle is forgotten
// even when unloading the image fails.
func (b *Bridge) ReleaseKernels(handle uint64, codeLen int) int32 {
	if codeLen < 0 {
		return StatusFailed
	}
	b.mu.Lock()
	e, ok := b.modules[handle]
	delete(b.modules, handle)
	b.mu.Unlock()
	if !ok {
		return StatusFailed
	}
	if err := e.mod.Release(); err != nil {
		b.log.Error().Err(err).Uint64("handle", handle).Msg("release kernels")
		return StatusFailed
	}
	return StatusOK
}

// Handles returns the number of live module handles.
func (b *Bridge) Handles() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.modules)
}
