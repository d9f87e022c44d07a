package kernel

import (
	"errors"
	"sync"
	"testing"

	"hvxhost/internal/alloc"
	"hvxhost/internal/diag"
	"hvxhost/internal/power"
)

// powerRecorder counts power requests.
type powerRecorder struct {
	mu     sync.Mutex
	ons    int
	offs   int
	failOn bool
}

func (r *powerRecorder) PowerOn() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn {
		return errors.New("power on refused")
	}
	r.ons++
	return nil
}

func (r *powerRecorder) PowerOff() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offs++
	return nil
}

func (r *powerRecorder) counts() (ons, offs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ons, r.offs
}

type harness struct {
	opener *FuncOpener
	loader *Loader
	power  *powerRecorder
	alloc  *alloc.Allocator
	table  *Table
}

type harnessOpts struct {
	mode      power.OffMode
	codeMode  CodeMode
	stagePath string
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()
	rec := &powerRecorder{}
	a := alloc.New(alloc.Options{})
	tbl := NewTable(a, nil, diag.New(diag.Options{}))
	op := NewFuncOpener()
	l := NewLoader(Options{
		Opener:    op,
		Table:     tbl,
		Power:     power.New(power.Options{Controller: rec, Mode: o.mode}),
		CodeMode:  o.codeMode,
		StagePath: o.stagePath,
	})
	return &harness{opener: op, loader: l, power: rec, alloc: a, table: tbl}
}

// okImage returns an image whose hook accepts the table and records it.
func okImage(got **Table, entries map[string]EntryFunc) *FuncImage {
	return &FuncImage{
		SetRuntime: func(t *Table) int32 {
			if got != nil {
				*got = t
			}
			return 0
		},
		Entries: entries,
	}
}

func mustLoad(t *testing.T, l *Loader, path string) *Module {
	t.Helper()
	m, err := l.Load([]byte(path))
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	return m
}
