package manager

import (
	"errors"
	"time"
)

// Unload initiates a graceful drain of a module and removes it.
//   - Sets instance state to draining to reject new runs.
//   - Waits up to drainTimeout for in-flight and queued runs to finish.
//   - Releases the kernel module and removes the instance entry.
//
// A release failure is returned after the instance has been removed.
func (m *Manager) Unload(moduleID string) error {
	if moduleID == "" {
		return ErrModuleNotFound("(unspecified)")
	}
	m.mu.Lock()
	inst := m.instances[moduleID]
	if inst == nil || inst.State == StateLoading {
		m.mu.Unlock()
		return ErrModuleNotFound(moduleID)
	}
	if inst.State == StateDraining {
		m.mu.Unlock()
		return drainingError{moduleID: moduleID}
	}
	inst.State = StateDraining
	m.mu.Unlock()
	m.emit(EventUnloadStart, moduleID, nil)

	deadline := time.Now().Add(m.drainTimeout)
	for {
		qlen := len(inst.queueCh)
		inflight := len(inst.genCh)
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.emit(EventUnloadTimeout, moduleID, map[string]any{"inflight": inflight, "queue": qlen})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Release waits for an invocation still running past the deadline.
	err := inst.Module.Release()

	m.mu.Lock()
	delete(m.instances, moduleID)
	if err != nil {
		m.err = err.Error()
	}
	m.mu.Unlock()

	fields := map[string]any{"runs": inst.runs.Load()}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.emit(EventUnloadDone, moduleID, fields)
	return err
}

// Close unloads every module and stops accepting new work. The accelerator
// is powered off once the last module is released.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosed
	ids := make([]string, 0, len(m.instances))
	for id, inst := range m.instances {
		if inst.State == StateReady {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.Unload(id); err != nil && !IsModuleNotFound(err) && !IsDraining(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
