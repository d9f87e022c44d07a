package power

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Nop accepts every request. Used when the host has no power control node.
type Nop struct {
	Logger zerolog.Logger
}

func (n Nop) PowerOn() error {
	n.Logger.Debug().Msg("power on (nop)")
	return nil
}

func (n Nop) PowerOff() error {
	n.Logger.Debug().Msg("power off (nop)")
	return nil
}

// File drives a control node such as a sysfs attribute by writing "1" for
// power-on and "0" for power-off.
type File struct {
	Path string
}

func (f File) PowerOn() error  { return f.write("1\n") }
func (f File) PowerOff() error { return f.write("0\n") }

func (f File) write(v string) error {
	if f.Path == "" {
		return fmt.Errorf("power control node not configured")
	}
	// O_WRONLY without O_CREATE: a missing node is an error, not a new file.
	fh, err := os.OpenFile(f.Path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open power node: %w", err)
	}
	if _, err := fh.WriteString(v); err != nil {
		_ = fh.Close()
		return fmt.Errorf("write power node: %w", err)
	}
	return fh.Close()
}

// NewController builds the controller named in configuration.
func NewController(kind, node string, log zerolog.Logger) (Controller, error) {
	switch kind {
	case "", "nop":
		return Nop{Logger: log}, nil
	case "file":
		if node == "" {
			return nil, fmt.Errorf("power_control=file requires power_node")
		}
		return File{Path: node}, nil
	default:
		return nil, fmt.Errorf("unknown power_control %q", kind)
	}
}
