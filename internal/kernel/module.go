package kernel

import (
	"sync"
	"time"
)

// Module is a loaded kernel image. It is released exactly once.
type Module struct {
	id       uint64
	path     string
	img      Image
	loader   *Loader
	loadedAt time.Time
	staged   bool

	// mu is held for reading by invocations and for writing by Release.
	mu       sync.RWMutex
	released bool
}

// ID is unique among modules produced by the same Loader.
func (m *Module) ID() uint64 { return m.id }

// Path is the file the image was opened from.
func (m *Module) Path() string { return m.path }

// LoadedAt is when Load returned the module.
func (m *Module) LoadedAt() time.Time { return m.loadedAt }

// Released reports whether Release has been called.
func (m *Module) Released() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.released
}

// Lookup resolves an entry point by name. The zero Symbol is returned when
// the name is absent or the module has been released.
func (m *Module) Lookup(name string) Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.released {
		return Symbol{}
	}
	p, ok := m.img.Lookup(name)
	if !ok {
		return Symbol{}
	}
	return Symbol{mod: m, proc: p, name: name}
}

// Release unloads the image and drops the module's power reference. It
// waits for in-flight invocations. Calling it twice returns ErrReleased.
func (m *Module) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.released = true
	err := m.loader.release(m)
	m.img = nil
	return err
}

// Symbol is an entry point resolved from a Module.
type Symbol struct {
	mod  *Module
	proc Proc
	name string
}

// Valid reports whether the symbol was found.
func (s Symbol) Valid() bool { return s.mod != nil && s.proc != 0 }

// Name returns the name the symbol was looked up with.
func (s Symbol) Name() string { return s.name }

// Module returns the owning module, or nil for the zero Symbol.
func (s Symbol) Module() *Module { return s.mod }
