package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"hvxhost/internal/alloc"
	"hvxhost/internal/kernel"
	"hvxhost/pkg/types"
)

type Manager struct {
	mu        sync.RWMutex
	state     State
	err       string
	loader    *kernel.Loader
	alloc     *alloc.Allocator
	registry  []types.Image
	instances map[string]*Instance
	nextID    uint64

	publisher EventPublisher
	log       zerolog.Logger

	// Queue config
	maxQueueDepth  int
	maxWait        time.Duration
	drainTimeout   time.Duration
	maxOutputBytes int

	loadsTotal atomic.Uint64
	runsTotal  atomic.Uint64
	startTime  time.Time
}

// SetEventPublisher replaces the event sink. nil restores the no-op default.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

// Ready reports whether the manager accepts loads and runs.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.loader != nil
}

// ListImages returns the kernel images known to the registry.
func (m *Manager) ListImages() []types.Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Image, len(m.registry))
	copy(out, m.registry)
	return out
}

// SetImages replaces the registry, e.g. after a rescan.
func (m *Manager) SetImages(images []types.Image) {
	m.mu.Lock()
	m.registry = append([]types.Image(nil), images...)
	m.mu.Unlock()
}

// Modules lists the loaded modules.
func (m *Manager) Modules() []types.InstanceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instanceStatusesLocked()
}

func (m *Manager) getImageByID(id string) (types.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, img := range m.registry {
		if img.ID == id {
			return img, true
		}
	}
	return types.Image{}, false
}

// emit logs a lifecycle event and hands it to the publisher.
func (m *Manager) emit(name, moduleID string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	ev := m.log.Info()
	if warnEvent(name) {
		ev = m.log.Warn()
	}
	ev.Str("event", name).Str("module", moduleID).Fields(fields).Msg("manager event")
	m.mu.RLock()
	pub := m.publisher
	m.mu.RUnlock()
	pub.Publish(Event{Name: name, ModuleID: moduleID, At: time.Now(), Fields: fields})
}
