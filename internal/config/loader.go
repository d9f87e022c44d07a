package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"hvxhost/internal/common/fsutil"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	KernelsDir string `json:"kernels_dir" yaml:"kernels_dir" toml:"kernels_dir"`

	// CodeMode is "path" or "bytes".
	CodeMode  string `json:"code_mode" yaml:"code_mode" toml:"code_mode"`
	StagePath string `json:"stage_path" yaml:"stage_path" toml:"stage_path"`

	// PowerControl is "nop" or "file"; PowerNode is the file written by "file".
	PowerControl string `json:"power_control" yaml:"power_control" toml:"power_control"`
	PowerNode    string `json:"power_node" yaml:"power_node" toml:"power_node"`
	// PowerOffMode is "last_release" or "legacy".
	PowerOffMode string `json:"power_off_mode" yaml:"power_off_mode" toml:"power_off_mode"`

	// Allocator is "heap" or "libc".
	Allocator       string `json:"allocator" yaml:"allocator" toml:"allocator"`
	AllocLimitBytes int64  `json:"alloc_limit_bytes" yaml:"alloc_limit_bytes" toml:"alloc_limit_bytes"`

	MaxQueueDepth  int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS      int `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	DrainTimeoutMS int `json:"drain_timeout_ms" yaml:"drain_timeout_ms" toml:"drain_timeout_ms"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	LegacyErrorSink bool     `json:"legacy_error_sink" yaml:"legacy_error_sink" toml:"legacy_error_sink"`
}

// Defaults returns the configuration used when nothing is specified.
func Defaults() Config {
	return Config{
		Addr:           ":8080",
		KernelsDir:     "~/kernels",
		CodeMode:       "path",
		StagePath:      "/data/hvx_kernels.so",
		PowerControl:   "nop",
		PowerOffMode:   "last_release",
		Allocator:      "heap",
		MaxQueueDepth:  32,
		MaxWaitMS:      30000,
		DrainTimeoutMS: 5000,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// ApplyDefaults fills every unspecified field from Defaults and expands a
// leading '~' in paths.
func (c *Config) ApplyDefaults() error {
	d := Defaults()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.KernelsDir == "" {
		c.KernelsDir = d.KernelsDir
	}
	if c.CodeMode == "" {
		c.CodeMode = d.CodeMode
	}
	if c.StagePath == "" {
		c.StagePath = d.StagePath
	}
	if c.PowerControl == "" {
		c.PowerControl = d.PowerControl
	}
	if c.PowerOffMode == "" {
		c.PowerOffMode = d.PowerOffMode
	}
	if c.Allocator == "" {
		c.Allocator = d.Allocator
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = d.MaxQueueDepth
	}
	if c.MaxWaitMS <= 0 {
		c.MaxWaitMS = d.MaxWaitMS
	}
	if c.DrainTimeoutMS <= 0 {
		c.DrainTimeoutMS = d.DrainTimeoutMS
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	var err error
	if c.KernelsDir, err = fsutil.ExpandHome(c.KernelsDir); err != nil {
		return err
	}
	if c.StagePath, err = fsutil.ExpandHome(c.StagePath); err != nil {
		return err
	}
	return nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	check := func(field, v string, allowed ...string) error {
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return nil
			}
		}
		return fmt.Errorf("%s: unsupported value %q (want one of %s)", field, v, strings.Join(allowed, ", "))
	}
	if err := check("code_mode", c.CodeMode, "path", "bytes"); err != nil {
		return err
	}
	if err := check("power_control", c.PowerControl, "nop", "file"); err != nil {
		return err
	}
	if strings.EqualFold(c.PowerControl, "file") && c.PowerNode == "" {
		return fmt.Errorf("power_node is required when power_control is file")
	}
	if err := check("power_off_mode", c.PowerOffMode, "last_release", "legacy"); err != nil {
		return err
	}
	if err := check("allocator", c.Allocator, "heap", "libc"); err != nil {
		return err
	}
	if err := check("log_format", c.LogFormat, "json", "console"); err != nil {
		return err
	}
	if c.AllocLimitBytes < 0 {
		return fmt.Errorf("alloc_limit_bytes must not be negative")
	}
	return nil
}

func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitMS) * time.Millisecond }

func (c Config) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMS) * time.Millisecond
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
