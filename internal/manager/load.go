package manager

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"hvxhost/internal/kernel"
	"hvxhost/pkg/types"
)

// Load opens a kernel module and registers it under req.ID (or a generated
// ID). The kernel loader is not cancellable; ctx is only checked before the
// load starts.
func (m *Manager) Load(ctx context.Context, req LoadRequest) (types.InstanceStatus, error) {
	if err := ctx.Err(); err != nil {
		return types.InstanceStatus{}, err
	}
	code, path, err := m.resolveCode(req)
	if err != nil {
		return types.InstanceStatus{}, err
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return types.InstanceStatus{}, ErrClosed
	}
	id := req.ID
	if id == "" {
		m.nextID++
		id = "m" + strconv.FormatUint(m.nextID, 10)
		for m.instances[id] != nil {
			m.nextID++
			id = "m" + strconv.FormatUint(m.nextID, 10)
		}
	} else if m.instances[id] != nil {
		m.mu.Unlock()
		return types.InstanceStatus{}, alreadyLoadedError{id: id}
	}
	// Reserve the ID while the image loads.
	inst := &Instance{
		ID:      id,
		ImageID: req.ImageID,
		Path:    path,
		State:   StateLoading,
		genCh:   make(chan struct{}, 1),
		queueCh: make(chan struct{}, m.maxQueueDepth),
	}
	m.instances[id] = inst
	m.mu.Unlock()

	m.emit(EventLoadStart, id, map[string]any{"image": req.ImageID, "path": path})
	startTs := time.Now()
	mod, err := m.loader.Load(code)
	if err != nil {
		m.mu.Lock()
		delete(m.instances, id)
		m.err = err.Error()
		m.mu.Unlock()
		m.emit(EventLoadError, id, map[string]any{"error": err.Error()})
		return types.InstanceStatus{}, err
	}

	m.mu.Lock()
	if m.state == StateClosed {
		// Close ran while the image was loading and did not see this
		// instance as ready; drop the module here so power is released.
		delete(m.instances, id)
		m.mu.Unlock()
		if err := mod.Release(); err != nil {
			m.log.Warn().Err(err).Str("module", id).Msg("release after close")
		}
		m.emit(EventLoadError, id, map[string]any{"error": ErrClosed.Error()})
		return types.InstanceStatus{}, ErrClosed
	}
	now := time.Now()
	inst.Module = mod
	inst.Path = mod.Path()
	inst.State = StateReady
	inst.LoadedAt = now
	inst.LastUsed = now
	st := statusOf(inst)
	m.mu.Unlock()
	m.loadsTotal.Add(1)
	m.emit(EventLoadReady, id, map[string]any{"path": mod.Path(), "duration_ms": time.Since(startTs).Milliseconds()})
	return st, nil
}

// resolveCode turns a request into the argument the kernel loader expects
// in its configured code mode, plus a path for display.
func (m *Manager) resolveCode(req LoadRequest) ([]byte, string, error) {
	set := 0
	for _, ok := range []bool{req.ImageID != "", req.Path != "", len(req.Code) > 0} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, "", invalidRequestError{msg: "exactly one of image_id, path or code is required"}
	}
	bytesMode := m.loader.CodeMode() == kernel.CodeModeBytes

	path := req.Path
	if req.ImageID != "" {
		img, ok := m.getImageByID(req.ImageID)
		if !ok {
			return nil, "", imageNotFoundError{id: req.ImageID}
		}
		path = img.Path
	}
	if len(req.Code) > 0 {
		if !bytesMode {
			return nil, "", invalidRequestError{msg: "raw code requires code_mode=bytes"}
		}
		return req.Code, "", nil
	}
	if !bytesMode {
		return []byte(path), path, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return b, path, nil
}

// Resolve reports whether module id exports name.
func (m *Manager) Resolve(id, name string) (bool, error) {
	inst, err := m.readyInstance(id)
	if err != nil {
		return false, err
	}
	return inst.Module.Lookup(name).Valid(), nil
}

func (m *Manager) readyInstance(id string) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst := m.instances[id]
	if inst == nil || inst.State == StateLoading {
		return nil, ErrModuleNotFound(id)
	}
	if inst.State == StateDraining {
		return nil, drainingError{moduleID: id}
	}
	return inst, nil
}
