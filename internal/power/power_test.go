package power

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// recorder counts power requests and can be told to fail.
type recorder struct {
	mu      sync.Mutex
	ons     int
	offs    int
	failOn  bool
	failOff bool
}

func (r *recorder) PowerOn() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn {
		return errors.New("HAP_power_set failed")
	}
	r.ons++
	return nil
}

func (r *recorder) PowerOff() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offs++
	if r.failOff {
		return errors.New("power off failed")
	}
	return nil
}

func TestAcquirePowersOnOnce(t *testing.T) {
	rec := &recorder{}
	c := New(Options{Controller: rec})
	for want := 1; want <= 3; want++ {
		if err := c.Acquire(); err != nil {
			t.Fatalf("acquire %d: %v", want, err)
		}
		if c.Active() != want {
			t.Fatalf("active=%d want %d", c.Active(), want)
		}
	}
	if rec.ons != 1 {
		t.Fatalf("expected exactly one power-on, got %d", rec.ons)
	}
	if !c.Powered() {
		t.Fatalf("expected powered")
	}
}

func TestAcquireFailureLeavesCountUnchanged(t *testing.T) {
	rec := &recorder{failOn: true}
	c := New(Options{Controller: rec})
	err := c.Acquire()
	if !errors.Is(err, ErrPowerOn) {
		t.Fatalf("expected ErrPowerOn, got %v", err)
	}
	if c.Active() != 0 || c.Powered() {
		t.Fatalf("failed acquire mutated state: active=%d powered=%v", c.Active(), c.Powered())
	}
	rec.failOn = false
	if err := c.Acquire(); err != nil {
		t.Fatalf("retry acquire: %v", err)
	}
	if rec.ons != 1 || c.Active() != 1 {
		t.Fatalf("ons=%d active=%d", rec.ons, c.Active())
	}
}

func TestReleaseOffOnLastRelease(t *testing.T) {
	rec := &recorder{}
	c := New(Options{Controller: rec, Mode: OffOnLastRelease})
	_ = c.Acquire()
	_ = c.Acquire()

	if err := c.Release(); err != nil {
		t.Fatalf("release 1: %v", err)
	}
	if rec.offs != 0 || c.Active() != 1 {
		t.Fatalf("after first release: offs=%d active=%d", rec.offs, c.Active())
	}
	if err := c.Release(); err != nil {
		t.Fatalf("release 2: %v", err)
	}
	if rec.offs != 1 || c.Active() != 0 || c.Powered() {
		t.Fatalf("after last release: offs=%d active=%d powered=%v", rec.offs, c.Active(), c.Powered())
	}
	if err := c.Release(); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if rec.offs != 1 || c.Active() != 0 {
		t.Fatalf("underflow mutated state: offs=%d active=%d", rec.offs, c.Active())
	}
}

// The legacy rule checks the count before decrementing: releasing the last of
// two modules leaves the count at zero without a power-off, and only a
// further release at zero fires it.
func TestReleaseLegacyPreDecrementCheck(t *testing.T) {
	rec := &recorder{}
	c := New(Options{Controller: rec, Mode: OffLegacy})
	_ = c.Acquire()
	_ = c.Acquire()

	_ = c.Release()
	_ = c.Release()
	if c.Active() != 0 {
		t.Fatalf("active=%d want 0", c.Active())
	}
	if rec.offs != 0 {
		t.Fatalf("legacy mode must not power off when reaching zero, got %d", rec.offs)
	}
	if !c.Powered() {
		t.Fatalf("legacy mode leaves accelerator powered at zero modules")
	}

	if err := c.Release(); err != nil {
		t.Fatalf("legacy release at zero: %v", err)
	}
	if rec.offs != 1 || c.Active() != -1 {
		t.Fatalf("after release at zero: offs=%d active=%d", rec.offs, c.Active())
	}
}

func TestPowerOffFailureIsNotSurfaced(t *testing.T) {
	rec := &recorder{failOff: true}
	c := New(Options{Controller: rec})
	_ = c.Acquire()
	if err := c.Release(); err != nil {
		t.Fatalf("power-off failure should not surface: %v", err)
	}
	if rec.offs != 1 || c.Active() != 0 {
		t.Fatalf("offs=%d active=%d", rec.offs, c.Active())
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	rec := &recorder{}
	c := New(Options{Controller: rec})
	_ = c.Acquire() // hold one so the rail never drops
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Acquire(); err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if err := c.Release(); err != nil {
				t.Errorf("release: %v", err)
			}
		}()
	}
	wg.Wait()
	if rec.ons != 1 || rec.offs != 0 || c.Active() != 1 {
		t.Fatalf("ons=%d offs=%d active=%d", rec.ons, rec.offs, c.Active())
	}
}

func TestParseOffMode(t *testing.T) {
	for in, want := range map[string]OffMode{"": OffOnLastRelease, "last_release": OffOnLastRelease, "legacy": OffLegacy} {
		got, err := ParseOffMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseOffMode(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := ParseOffMode("sometimes"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestFileController(t *testing.T) {
	node := filepath.Join(t.TempDir(), "hvx_power")
	if err := os.WriteFile(node, nil, 0o644); err != nil {
		t.Fatalf("seed node: %v", err)
	}
	ctl, err := NewController("file", node, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := ctl.PowerOn(); err != nil {
		t.Fatalf("power on: %v", err)
	}
	b, _ := os.ReadFile(node)
	if strings.TrimSpace(string(b)) != "1" {
		t.Fatalf("node=%q want 1", b)
	}
	if err := ctl.PowerOff(); err != nil {
		t.Fatalf("power off: %v", err)
	}
	b, _ = os.ReadFile(node)
	if strings.TrimSpace(string(b)) != "0" {
		t.Fatalf("node=%q want 0", b)
	}

	missing := File{Path: filepath.Join(t.TempDir(), "absent")}
	if err := missing.PowerOn(); err == nil {
		t.Fatalf("expected error for missing node")
	}
	if _, err := NewController("file", "", zerolog.Nop()); err == nil {
		t.Fatalf("expected error without node")
	}
	if _, err := NewController("relay", "", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
