package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"unsafe"

	"hvxhost/internal/alloc"
	"hvxhost/internal/diag"
	"hvxhost/internal/httpapi"
	"hvxhost/internal/kernel"
	"hvxhost/internal/manager"
	"hvxhost/internal/power"
	"hvxhost/pkg/types"
)

const imagePath = "/kernels/e2e.so"

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

// e2eImage exports:
//   - hold: blocks on the gate
//   - keep: allocates 100 bytes through the runtime table and keeps them
//   - drop: frees what keep allocated
func e2eImage(g *gate) *kernel.FuncImage {
	var (
		table *kernel.Table
		kept  uintptr
	)
	return &kernel.FuncImage{
		SetRuntime: func(t *kernel.Table) int32 { table = t; return 0 },
		Entries: map[string]kernel.EntryFunc{
			"hold": func(unsafe.Pointer) int32 {
				g.entered <- struct{}{}
				<-g.release
				return 0
			},
			"keep": func(unsafe.Pointer) int32 {
				kept = table.Malloc(0, 100)
				if kept == 0 {
					return 1
				}
				return 0
			},
			"drop": func(unsafe.Pointer) int32 {
				table.Free(0, kept)
				kept = 0
				return 0
			},
		},
	}
}

type env struct {
	srv   *httptest.Server
	mgr   *manager.Manager
	power *power.Context
	alloc *alloc.Allocator
}

func newServer(t *testing.T, cfg manager.ManagerConfig, g *gate) *env {
	t.Helper()
	op := kernel.NewFuncOpener()
	op.Register(imagePath, e2eImage(g))
	a := alloc.New(alloc.Options{})
	pc := power.New(power.Options{})
	cfg.Loader = kernel.NewLoader(kernel.Options{
		Opener: op,
		Table:  kernel.NewTable(a, nil, diag.New(diag.Options{})),
		Power:  pc,
	})
	cfg.Allocator = a
	cfg.Registry = []types.Image{{ID: "e2e.so", Name: "e2e", Path: imagePath}}
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		g.open()
		srv.Close()
		_ = mgr.Close()
	})
	return &env{srv: srv, mgr: mgr, power: pc, alloc: a}
}

func (e *env) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Errorf("marshal: %v", err)
			return 0, nil
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Errorf("new req: %v", err)
		return 0, nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("do: %v", err)
		return 0, nil
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (e *env) status(t *testing.T) types.StatusResponse {
	t.Helper()
	code, body := e.do(t, http.MethodGet, "/status", nil)
	if code != http.StatusOK {
		t.Fatalf("/status %d %s", code, body)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v", err)
	}
	return st
}
