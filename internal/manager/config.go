package manager

import (
	"time"

	"github.com/rs/zerolog"

	"hvxhost/internal/alloc"
	"hvxhost/internal/kernel"
	"hvxhost/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth  = 32
	defaultMaxWait        = 30 * time.Second
	defaultDrainTimeout   = 5 * time.Second
	defaultMaxOutputBytes = 64 << 20
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Loader opens kernel modules. Required.
	Loader *kernel.Loader
	// Allocator backs the runtime table; only used for status reporting.
	Allocator *alloc.Allocator
	Registry  []types.Image

	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	// MaxOutputBytes caps the size of a single output buffer.
	MaxOutputBytes int

	Publisher EventPublisher
	Logger    zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:     StateReady,
		loader:    cfg.Loader,
		alloc:     cfg.Allocator,
		registry:  cfg.Registry,
		instances: make(map[string]*Instance),
		publisher: cfg.Publisher,
		log:       cfg.Logger.With().Str("component", "manager").Logger(),
		startTime: time.Now(),
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		m.maxOutputBytes = defaultMaxOutputBytes
	} else {
		m.maxOutputBytes = cfg.MaxOutputBytes
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	return m
}
