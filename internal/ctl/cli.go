// Package ctl implements the hvxctl command line.
package ctl

import (
	"fmt"
	"io"
	"os"
)

type Config struct {
	Addr       string
	KernelsDir string
	ConfigPath string
	LogLvl     string
}

// DefaultConfig reads HVXCTL_* environment defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:       envStr("HVXCTL_ADDR", ":8080"),
		KernelsDir: envStr("HVXCTL_KERNELS_DIR", ""),
		ConfigPath: envStr("HVXCTL_CONFIG", ""),
		LogLvl:     envStr("HVXCTL_LOG_LEVEL", "info"),
	}
}

// Run executes the command tree with args. It returns an error instead of
// exiting, enabling reuse from tests.
func Run(args []string, cfg *Config, stdin io.Reader, stdout io.Writer) error {
	root := buildRootCmdWith(cfg)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	return root.Execute()
}

// Main is the hvxctl entry point.
func Main() {
	if err := Run(os.Args[1:], DefaultConfig(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
