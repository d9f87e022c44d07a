// Package power arbitrates the accelerator power rail across modules.
//
// A Context counts active modules. The first Acquire powers the accelerator
// on; the release that leaves no modules active powers it off. The counter
// update and the power decision happen under one lock.
package power

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"hvxhost/internal/metrics"
)

// OffMode selects when Release requests power-off.
type OffMode int

const (
	// OffOnLastRelease powers off when the post-decrement count reaches zero
	// and refuses to decrement below zero.
	OffOnLastRelease OffMode = iota
	// OffLegacy compares the pre-decrement count with zero and decrements
	// unconditionally, so power-off fires only when releasing at a count of
	// zero (leaving -1). Kept for parity with older remote runtimes.
	OffLegacy
)

// ParseOffMode maps a config string to an OffMode.
func ParseOffMode(s string) (OffMode, error) {
	switch s {
	case "", "last_release":
		return OffOnLastRelease, nil
	case "legacy":
		return OffLegacy, nil
	default:
		return OffOnLastRelease, fmt.Errorf("unknown power_off_mode %q", s)
	}
}

func (m OffMode) String() string {
	if m == OffLegacy {
		return "legacy"
	}
	return "last_release"
}

var (
	// ErrPowerOn wraps a failed power-on request.
	ErrPowerOn = errors.New("accelerator power-on failed")
	// ErrUnderflow is returned by Release when no module is active.
	ErrUnderflow = errors.New("power context released with no active modules")
)

// Controller issues the hardware power requests.
type Controller interface {
	PowerOn() error
	PowerOff() error
}

// Context is the owned replacement for a process-wide module counter.
type Context struct {
	mu     sync.Mutex
	active int
	on     bool
	ctl    Controller
	mode   OffMode
	log    zerolog.Logger
}

// Options configures a Context.
type Options struct {
	Controller Controller
	Mode       OffMode
	Logger     zerolog.Logger
}

// New returns a Context with no active modules. A nil controller is
// replaced with Nop.
func New(opts Options) *Context {
	ctl := opts.Controller
	if ctl == nil {
		ctl = Nop{}
	}
	return &Context{ctl: ctl, mode: opts.Mode, log: opts.Logger}
}

// Acquire registers one more active module, powering on first if none were
// active. On failure the count is unchanged.
func (c *Context) Acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == 0 {
		c.log.Info().Msg("Requesting power for HVX...")
		if err := c.ctl.PowerOn(); err != nil {
			metrics.PowerTransitions.WithLabelValues("on", "error").Inc()
			c.log.Error().Err(err).Msg("unable to power on HVX")
			return fmt.Errorf("%w: %v", ErrPowerOn, err)
		}
		metrics.PowerTransitions.WithLabelValues("on", "ok").Inc()
		c.on = true
	}
	c.active++
	metrics.ModulesActive.Set(float64(c.active))
	return nil
}

// Release unregisters one active module. Power-off failures are logged and
// otherwise ignored.
func (c *Context) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.mode {
	case OffLegacy:
		pre := c.active
		c.active--
		if pre == 0 {
			c.powerOff()
		}
	default:
		if c.active <= 0 {
			return ErrUnderflow
		}
		c.active--
		if c.active == 0 {
			c.powerOff()
		}
	}
	metrics.ModulesActive.Set(float64(c.active))
	return nil
}

func (c *Context) powerOff() {
	if err := c.ctl.PowerOff(); err != nil {
		metrics.PowerTransitions.WithLabelValues("off", "error").Inc()
		c.log.Warn().Err(err).Msg("HVX power-off request failed")
	} else {
		metrics.PowerTransitions.WithLabelValues("off", "ok").Inc()
	}
	c.on = false
}

// Active returns the current count. It may be negative in OffLegacy mode.
func (c *Context) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Powered reports whether the last request issued was a power-on.
func (c *Context) Powered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

// Mode returns the configured power-off mode.
func (c *Context) Mode() OffMode { return c.mode }
