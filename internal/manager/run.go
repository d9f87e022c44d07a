package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hvxhost/internal/kernel"
)

// Run invokes req.Symbol on module id once admitted. A nonzero kernel status
// is returned in RunResult.Status with a nil error.
func (m *Manager) Run(ctx context.Context, id string, req RunRequest) (RunResult, error) {
	if req.Symbol == "" {
		return RunResult{}, invalidRequestError{msg: "symbol is required"}
	}
	for i, n := range req.OutputSizes {
		if n < 0 || n > m.maxOutputBytes {
			return RunResult{}, invalidRequestError{msg: fmt.Sprintf("output %d: size %d out of range [0, %d]", i, n, m.maxOutputBytes)}
		}
	}

	inst, release, err := m.beginRun(ctx, id)
	if err != nil {
		return RunResult{}, err
	}
	defer release()

	sym := inst.Module.Lookup(req.Symbol)
	if !sym.Valid() {
		if inst.Module.Released() {
			return RunResult{}, ErrModuleNotFound(id)
		}
		return RunResult{}, symbolNotFoundError{module: id, name: req.Symbol}
	}

	in := make([]kernel.Buffer, len(req.Inputs))
	for i, b := range req.Inputs {
		in[i] = kernel.Bytes(b)
	}
	sc := make([]kernel.Scalar, len(req.Scalars))
	for i, b := range req.Scalars {
		sc[i] = kernel.ScalarBytes(b)
	}
	outputs := make([][]byte, len(req.OutputSizes))
	out := make([]kernel.Buffer, len(req.OutputSizes))
	for i, n := range req.OutputSizes {
		outputs[i] = make([]byte, n)
		out[i] = kernel.Bytes(outputs[i])
	}

	start := time.Now()
	rc, err := inst.Module.Invoke(sym, in, sc, out)
	dur := time.Since(start)
	if err != nil && !kernel.IsInvocationError(err) {
		if errors.Is(err, kernel.ErrReleased) {
			return RunResult{}, ErrModuleNotFound(id)
		}
		return RunResult{}, err
	}
	inst.runs.Add(1)
	m.runsTotal.Add(1)
	m.emit(EventRunDone, id, map[string]any{"symbol": req.Symbol, "status": rc, "duration_ms": float64(dur.Microseconds()) / 1000})
	return RunResult{Status: rc, Outputs: outputs, Duration: dur}, nil
}
