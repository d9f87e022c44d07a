package manager

import "time"

// Lifecycle event names.
const (
	EventLoadStart     = "load_start"
	EventLoadReady     = "load_ready"
	EventLoadError     = "load_error"
	EventRunDone       = "run_done"
	EventUnloadStart   = "unload_start"
	EventUnloadTimeout = "unload_timeout"
	EventUnloadDone    = "unload_done"
)

// Event is one module lifecycle transition.
type Event struct {
	Name     string
	ModuleID string
	At       time.Time
	Fields   map[string]any
}

// EventPublisher receives events from the manager. Publish is called
// synchronously on the lifecycle path and must not block.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// warnEvent reports whether an event is logged at warn level.
func warnEvent(name string) bool {
	return name == EventLoadError || name == EventUnloadTimeout
}
