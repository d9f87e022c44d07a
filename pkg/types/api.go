package types

import "encoding/json"

// ImagesResponse wraps the list of images returned by GET /images.
type ImagesResponse struct {
	// List of available kernel images.
	Images []Image `json:"images"`
}

// LoadRequest is the body of POST /modules. Exactly one of ImageID, Path
// and Code must be set.
type LoadRequest struct {
	// Image from the kernels directory.
	// example: blur3x3.so
	ImageID string `json:"image_id,omitempty" example:"blur3x3.so"`
	// Path to an image on the daemon's filesystem.
	// example: /data/kernels/blur3x3.so
	Path string `json:"path,omitempty" example:"/data/kernels/blur3x3.so"`
	// Raw image bytes (base64). Only accepted when the daemon stages code.
	Code []byte `json:"code,omitempty" swaggertype:"string" format:"base64"`
	// Optional module ID. Generated when empty.
	// example: blur
	ID string `json:"id,omitempty" example:"blur"`
}

// ScalarArg is one typed scalar passed to a kernel.
type ScalarArg struct {
	// One of i8, i16, i32, i64, u8, u16, u32, u64, f32, f64, bool.
	// example: i32
	Type string `json:"type" example:"i32"`
	// Numeric value. Booleans are 0 or 1.
	// example: 640
	Value json.Number `json:"value" swaggertype:"number" example:"640"`
}

// RunRequest is the body of POST /modules/{id}/run.
type RunRequest struct {
	// Entry point to invoke.
	// example: blur3x3
	Symbol string `json:"symbol" example:"blur3x3"`
	// Input buffers (base64), in positional order.
	Inputs [][]byte `json:"inputs,omitempty" swaggertype:"array,string"`
	// Scalars, passed after the inputs.
	Scalars []ScalarArg `json:"scalars,omitempty"`
	// Sizes in bytes of the output buffers to allocate.
	// example: [307200]
	Outputs []int `json:"outputs,omitempty"`
}

// RunResponse is returned by POST /modules/{id}/run.
type RunResponse struct {
	// Status returned by the kernel. Nonzero is a kernel-defined failure.
	// example: 0
	Status int32 `json:"status" example:"0"`
	// Output buffers (base64) after the call.
	Outputs [][]byte `json:"outputs" swaggertype:"array,string"`
	// Wall time of the invocation in milliseconds.
	// example: 1.25
	DurationMS float64 `json:"duration_ms" example:"1.25"`
}

// SymbolResponse is returned by GET /modules/{id}/symbols/{name}.
type SymbolResponse struct {
	// example: blur
	Module string `json:"module" example:"blur"`
	// example: blur3x3
	Name string `json:"name" example:"blur3x3"`
	// Whether the module exports the symbol.
	// example: true
	Found bool `json:"found" example:"true"`
}

// ModulesResponse wraps the list of loaded modules returned by GET /modules.
type ModulesResponse struct {
	Modules []InstanceStatus `json:"modules"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// InstanceStatus summarizes a loaded module.
type InstanceStatus struct {
	// ID of the module.
	// example: blur
	ModuleID string `json:"module_id" example:"blur"`
	// Image the module was loaded from, when it came from the registry.
	// example: blur3x3.so
	ImageID string `json:"image_id,omitempty" example:"blur3x3.so"`
	// Path the image was opened from.
	// example: /data/kernels/blur3x3.so
	Path string `json:"path" example:"/data/kernels/blur3x3.so"`
	// Lifecycle state (loading, ready, draining).
	// example: ready
	State string `json:"state" example:"ready"`
	// When the module was loaded (unix seconds).
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
	// Last time this module served a run (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Current queue length for incoming runs.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of runs currently executing.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued runs allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Runs completed by this module.
	// example: 12
	Runs uint64 `json:"runs" example:"12"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Loaded modules.
	Instances []InstanceStatus `json:"instances"`
	// Overall manager state (ready, closed).
	// example: ready
	State string `json:"state" example:"ready"`
	// Modules holding the accelerator powered.
	// example: 1
	ActiveModules int `json:"active_modules" example:"1"`
	// Whether the accelerator is currently powered.
	// example: true
	Powered bool `json:"powered" example:"true"`
	// Power-off policy (last_release or legacy).
	// example: last_release
	PowerOffMode string `json:"power_off_mode" example:"last_release"`
	// Bytes currently allocated by kernels.
	// example: 4096
	AllocLiveBytes uint64 `json:"alloc_live_bytes" example:"4096"`
	// Allocations not yet freed.
	// example: 2
	AllocOutstanding int `json:"alloc_outstanding" example:"2"`
	// Total number of successful module loads.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total number of completed runs.
	// example: 340
	RunsTotal uint64 `json:"runs_total" example:"340"`
	// Number of modules currently draining (unload in progress).
	// example: 0
	DrainingCount int `json:"draining_count" example:"0"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
