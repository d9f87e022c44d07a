package kernel

import (
	"errors"
	"time"

	"hvxhost/internal/metrics"
)

var errForeignSymbol = errors.New("symbol belongs to another module")

// Invoke calls sym with the argument vector built from inputs, scalars and
// outputs, in that order. The entry point's status is returned unchanged;
// a nonzero status also comes with an invocation error carrying it.
//
// Invoke may run concurrently with other invocations of the same module;
// callers that need one call at a time must serialise themselves.
func (m *Module) Invoke(sym Symbol, inputs []Buffer, scalars []Scalar, outputs []Buffer) (int32, error) {
	if !sym.Valid() {
		return -1, ErrSymbolNotFound
	}
	if sym.mod != m {
		return -1, &Error{Kind: KindInvocation, Path: m.path, Symbol: sym.name, Code: -1, Err: errForeignSymbol}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.released {
		return -1, ErrReleased
	}

	f := getFrame()
	defer putFrame(f)
	f.collect(inputs, scalars, outputs)
	argv := f.flatten()

	start := time.Now()
	rc := m.img.Call(sym.proc, argv)
	metrics.InvocationDuration.Observe(time.Since(start).Seconds())

	if rc != 0 {
		metrics.InvocationsTotal.WithLabelValues("error").Inc()
		return rc, &Error{Kind: KindInvocation, Path: m.path, Symbol: sym.name, Code: rc}
	}
	metrics.InvocationsTotal.WithLabelValues("ok").Inc()
	return 0, nil
}

// Invoke calls the symbol on its owning module.
func (s Symbol) Invoke(inputs []Buffer, scalars []Scalar, outputs []Buffer) (int32, error) {
	if !s.Valid() {
		return -1, ErrSymbolNotFound
	}
	return s.mod.Invoke(s, inputs, scalars, outputs)
}
