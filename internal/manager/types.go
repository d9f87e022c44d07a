package manager

import (
	"sync/atomic"
	"time"

	"hvxhost/internal/kernel"
)

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateClosed   State = "closed"
)

// Instance is one loaded kernel module and its admission primitives.
type Instance struct {
	ID       string
	ImageID  string
	Path     string
	State    State
	LoadedAt time.Time
	LastUsed time.Time
	Module   *kernel.Module
	runs     atomic.Uint64
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight run
	queueCh chan struct{} // buffered: queue slots
}

// LoadRequest selects the code to load. Exactly one of ImageID, Path and
// Code must be set.
type LoadRequest struct {
	ImageID string
	Path    string
	Code    []byte
	// ID names the module; generated when empty.
	ID string
}

// RunRequest is one invocation. Scalars are already encoded; see
// EncodeScalar.
type RunRequest struct {
	Symbol      string
	Inputs      [][]byte
	Scalars     [][]byte
	OutputSizes []int
}

// RunResult carries the kernel status and the output buffers. A nonzero
// Status is a kernel-defined failure and is not reported as an error.
type RunResult struct {
	Status   int32
	Outputs  [][]byte
	Duration time.Duration
}
