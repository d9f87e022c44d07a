// Package manager coordinates kernel modules by ID on top of the kernel
// loader: loading from the image registry, per-module admission, runs, and
// graceful unload. It is structured into small files by concern:
//
//   - manager.go: core Manager type, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, Instance, LoadRequest, RunRequest).
//   - errors.go: error types and helpers (IsTooBusy, IsModuleNotFound, ...).
//   - load.go: Load and Resolve.
//   - queue_admission.go: per-instance queueing and single in-flight run.
//   - run.go: Run, argument assembly and invocation.
//   - scalar.go: typed scalar encoding for callers that speak JSON.
//   - unload.go: Unload (drain then release) and Close.
//   - status_report.go: Status reporting.
//   - events.go, eventpub_memory.go: lifecycle events.
//
// The kernel package imposes no reentrancy guarantee; this package is where
// one-call-at-a-time per module is enforced.
package manager
