package ctl

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unsafe"

	"hvxhost/internal/kernel"
	"hvxhost/internal/lift"
	"hvxhost/pkg/types"
)

// doubleImage exports double(in, out): out[i] = 2*in[i] for len 4, and
// fail, which returns 9.
func doubleImage() *kernel.FuncImage {
	return &kernel.FuncImage{
		SetRuntime: func(*kernel.Table) int32 { return 0 },
		Entries: map[string]kernel.EntryFunc{
			"double": func(argv unsafe.Pointer) int32 {
				a := kernel.Argv(argv, 2)
				in := unsafe.Slice((*byte)(kernel.HostOf(a[0])), 4)
				out := unsafe.Slice((*byte)(kernel.HostOf(a[1])), 4)
				for i := range out {
					out[i] = in[i] * 2
				}
				return 0
			},
			"fail": func(unsafe.Pointer) int32 { return 9 },
		},
	}
}

func withOpener(t *testing.T, path string) *kernel.FuncOpener {
	t.Helper()
	op := kernel.NewFuncOpener()
	op.Register(path, doubleImage())
	old := fnOpener
	fnOpener = func() kernel.Opener { return op }
	t.Cleanup(func() { fnOpener = old })
	return op
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestRunKernel_PathMode(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "double.so", []byte("\x7fELF"))
	in := writeFile(t, dir, "in.raw", []byte{1, 2, 3, 4})
	op := withOpener(t, img)

	var out bytes.Buffer
	err := runKernel(&Config{KernelsDir: dir}, RunOptions{
		Image:   "double.so",
		Symbol:  "double",
		Inputs:  []string{in},
		Outputs: []int{4},
	}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "output[0] " + base64.StdEncoding.EncodeToString([]byte{2, 4, 6, 8})
	if !strings.HasPrefix(out.String(), "status 0") || !strings.Contains(out.String(), want) {
		t.Fatalf("output=%q", out.String())
	}
	if opens, closes := op.Counts(); opens != 1 || closes != 1 {
		t.Fatalf("opens=%d closes=%d", opens, closes)
	}
}

func TestRunKernel_BytesModeAndOutPrefix(t *testing.T) {
	dir := t.TempDir()
	stage := filepath.Join(dir, "stage.so")
	cfgPath := writeFile(t, dir, "hvxhost.yaml", []byte("stage_path: "+stage+"\n"))
	img := writeFile(t, dir, "double.so", []byte("image"))
	in := writeFile(t, dir, "in.raw", []byte{5, 6, 7, 8})
	withOpener(t, stage)

	prefix := filepath.Join(dir, "out_")
	err := runKernel(&Config{ConfigPath: cfgPath, KernelsDir: dir}, RunOptions{
		Image:     img,
		Symbol:    "double",
		Inputs:    []string{in},
		Outputs:   []int{4},
		OutPrefix: prefix,
		CodeMode:  "bytes",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, _ := os.ReadFile(stage); string(got) != "image" {
		t.Fatalf("staged=%q", got)
	}
	got, err := os.ReadFile(prefix + "0.bin")
	if err != nil || !bytes.Equal(got, []byte{10, 12, 14, 16}) {
		t.Fatalf("output file=%v err=%v", got, err)
	}
}

func TestRunKernel_Failures(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "double.so", nil)
	op := withOpener(t, img)
	cfg := &Config{KernelsDir: dir}

	var out bytes.Buffer
	err := runKernel(cfg, RunOptions{Image: img, Symbol: "fail"}, &out)
	if err == nil || !strings.Contains(err.Error(), "returned 9") {
		t.Fatalf("expected kernel failure, got %v", err)
	}
	if !strings.HasPrefix(out.String(), "status 9") {
		t.Fatalf("output=%q", out.String())
	}
	if err := runKernel(cfg, RunOptions{Image: img, Symbol: "nope"}, &out); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing symbol, got %v", err)
	}
	if err := runKernel(cfg, RunOptions{Image: filepath.Join(dir, "ghost.so"), Symbol: "double"}, &out); err == nil {
		t.Fatalf("expected initialize failure")
	}
	if err := runKernel(cfg, RunOptions{Image: img, Symbol: "double", Scalars: []string{"i32"}}, &out); err == nil {
		t.Fatalf("expected scalar parse error")
	}
	// Every opened image was closed, including the failing runs.
	if opens, closes := op.Counts(); opens != closes {
		t.Fatalf("opens=%d closes=%d", opens, closes)
	}
}

func TestParseScalars(t *testing.T) {
	got, err := parseScalars([]string{"i32:640", "u8: 7", "bool:1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := [][]byte{{0x80, 0x02, 0, 0}, {7}, {1}}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("scalar %d = %x, want %x", i, got[i], want[i])
		}
	}
	for _, bad := range []string{"640", "i8:300", "c64:1"} {
		if _, err := parseScalars([]string{bad}); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blur.so", []byte("12345"))
	writeFile(t, dir, "readme.txt", nil)
	var out bytes.Buffer
	if err := listImages(&Config{KernelsDir: dir}, &out); err != nil {
		t.Fatalf("images: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "blur.so") || !strings.Contains(s, "5") || strings.Contains(s, "readme") {
		t.Fatalf("listing=%q", s)
	}
}

func TestShowStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/readyz":
			w.WriteHeader(http.StatusOK)
		case "/status":
			_ = json.NewEncoder(w).Encode(types.StatusResponse{State: "ready", ActiveModules: 3, Powered: true})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	var out bytes.Buffer
	if err := showStatus(&Config{Addr: ts.URL}, time.Second, &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(out.Bytes(), &st); err != nil || st.ActiveModules != 3 || !st.Powered {
		t.Fatalf("status output=%q err=%v", out.String(), err)
	}
}

func TestShowStatus_ErrorPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "manager closed", Code: 503})
	}))
	defer ts.Close()
	err := showStatus(&Config{Addr: ts.URL}, 0, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "manager closed") {
		t.Fatalf("expected error payload, got %v", err)
	}
}

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		":8080":             "http://127.0.0.1:8080",
		"host:9":            "http://host:9",
		"http://h:1/":       "http://h:1",
		"https://secure:43": "https://secure:43",
	}
	for in, want := range cases {
		if got := baseURL(in); got != want {
			t.Fatalf("baseURL(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLiftFile(t *testing.T) {
	src := `{
		"f":  {"values": [{"kind": "call", "name": "g", "args": [{"kind": "var", "name": "x"}]}]},
		"g":  {"wrapper": "gw", "args": ["x"], "values": [{"kind": "var", "name": "x"}]},
		"gw": {"args": ["x"], "values": [{"kind": "call", "name": "g", "args": [{"kind": "var", "name": "x"}]}]}
	}`
	var out bytes.Buffer
	if err := liftFile("-", strings.NewReader(src), &out); err != nil {
		t.Fatalf("lift: %v", err)
	}
	env, err := lift.Decode(&out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := env["f"].Callees(); len(got) != 1 || got[0] != "gw" {
		t.Fatalf("f callees=%v", got)
	}
	if got := env["gw"].Callees(); len(got) != 1 || got[0] != "g" {
		t.Fatalf("gw callees=%v", got)
	}

	p := filepath.Join(t.TempDir(), "fns.json")
	if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out.Reset()
	if err := liftFile(p, nil, &out); err != nil {
		t.Fatalf("lift file: %v", err)
	}
	if err := liftFile(filepath.Join(t.TempDir(), "missing.json"), nil, &out); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
