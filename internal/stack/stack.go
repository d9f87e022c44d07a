// Package stack assembles the host runtime from configuration: allocator,
// diagnostics sink, dispatcher, callback table, power context and loader.
package stack

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"hvxhost/internal/alloc"
	"hvxhost/internal/config"
	"hvxhost/internal/diag"
	"hvxhost/internal/dispatch"
	"hvxhost/internal/kernel"
	"hvxhost/internal/power"
)

// Stack is one fully wired host runtime.
type Stack struct {
	Alloc  *alloc.Allocator
	Diag   *diag.Sink
	Table  *kernel.Table
	Power  *power.Context
	Loader *kernel.Loader
}

// Build wires a Stack from cfg. cfg must already have defaults applied. A
// nil opener selects kernel.NativeOpener.
func Build(cfg config.Config, opener kernel.Opener, log zerolog.Logger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var src alloc.Source
	switch strings.ToLower(cfg.Allocator) {
	case "libc":
		ls, err := alloc.NewLibcSource()
		if err != nil {
			return nil, fmt.Errorf("libc allocator: %w", err)
		}
		src = ls
	default:
		src = alloc.NewHeapSource()
	}
	a := alloc.New(alloc.Options{
		Source: src,
		Limit:  uintptr(cfg.AllocLimitBytes),
		Logger: log.With().Str("component", "alloc").Logger(),
	})
	sink := diag.New(diag.Options{Logger: log, Legacy: cfg.LegacyErrorSink})
	table := kernel.NewTable(a, dispatch.Sequential{}, sink)

	ctl, err := power.NewController(strings.ToLower(cfg.PowerControl), cfg.PowerNode, log.With().Str("component", "power").Logger())
	if err != nil {
		return nil, err
	}
	mode, err := power.ParseOffMode(strings.ToLower(cfg.PowerOffMode))
	if err != nil {
		return nil, err
	}
	pc := power.New(power.Options{
		Controller: ctl,
		Mode:       mode,
		Logger:     log.With().Str("component", "power").Logger(),
	})

	codeMode, err := kernel.ParseCodeMode(cfg.CodeMode)
	if err != nil {
		return nil, err
	}
	if opener == nil {
		opener = kernel.NativeOpener()
	}
	l := kernel.NewLoader(kernel.Options{
		Opener:    opener,
		Table:     table,
		Power:     pc,
		CodeMode:  codeMode,
		StagePath: cfg.StagePath,
		Logger:    log.With().Str("component", "loader").Logger(),
	})
	return &Stack{Alloc: a, Diag: sink, Table: table, Power: pc, Loader: l}, nil
}

// NewLogger builds the process logger from log_level and log_format.
func NewLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log_level: %w", err)
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
