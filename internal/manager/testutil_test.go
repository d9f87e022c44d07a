package manager

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"
	"unsafe"

	"hvxhost/internal/alloc"
	"hvxhost/internal/diag"
	"hvxhost/internal/kernel"
	"hvxhost/internal/power"
	"hvxhost/pkg/types"
)

// gate lets a test hold a kernel inside its entry point.
type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) open() { g.once.Do(func() { close(g.release) }) }

// testImage exports:
//   - add(in, n i32, out): out[i] = in[i] + n for len(out) bytes
//   - fail: returns 5
//   - hold: blocks on the gate
func testImage(g *gate) *kernel.FuncImage {
	return &kernel.FuncImage{
		SetRuntime: func(*kernel.Table) int32 { return 0 },
		Entries: map[string]kernel.EntryFunc{
			"add": func(argv unsafe.Pointer) int32 {
				a := kernel.Argv(argv, 3)
				n := byte(*(*int32)(a[1]))
				in := kernel.HostOf(a[0])
				out := kernel.HostOf(a[2])
				if in == nil || out == nil {
					return 2
				}
				src := unsafe.Slice((*byte)(in), 4)
				dst := unsafe.Slice((*byte)(out), 4)
				for i := range dst {
					dst[i] = src[i] + n
				}
				return 0
			},
			"fail": func(unsafe.Pointer) int32 { return 5 },
			"hold": func(unsafe.Pointer) int32 {
				if g != nil {
					g.entered <- struct{}{}
					<-g.release
				}
				return 0
			},
		},
	}
}

type testEnv struct {
	m      *Manager
	opener *kernel.FuncOpener
	pub    *MemoryPublisher
	alloc  *alloc.Allocator
}

func newTestManager(t *testing.T, cfg ManagerConfig, g *gate) *testEnv {
	t.Helper()
	op := kernel.NewFuncOpener()
	op.Register("/k/test.so", testImage(g))
	a := alloc.New(alloc.Options{})
	l := kernel.NewLoader(kernel.Options{
		Opener: op,
		Table:  kernel.NewTable(a, nil, diag.New(diag.Options{})),
		Power:  power.New(power.Options{}),
	})
	pub := NewMemoryPublisher()
	cfg.Loader = l
	cfg.Allocator = a
	cfg.Publisher = pub
	if cfg.Registry == nil {
		cfg.Registry = []types.Image{{ID: "test.so", Name: "test", Path: "/k/test.so"}}
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return &testEnv{m: m, opener: op, pub: pub, alloc: a}
}

func i32(v int32) []byte { return binary.LittleEndian.AppendUint32(nil, uint32(v)) }

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
