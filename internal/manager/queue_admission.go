package manager

import (
	"context"
	"time"
)

// admit blocks until ch accepts a token, ctx is done or wait elapses.
func admit(ctx context.Context, ch chan struct{}, wait time.Duration, moduleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooBusy(moduleID)
	}
}

// beginRun reserves a queue slot and then the module's single in-flight
// slot, each bounded by maxWait. The returned func releases both. Runs
// admitted before an unload starts are allowed to finish.
func (m *Manager) beginRun(ctx context.Context, moduleID string) (*Instance, func(), error) {
	noop := func() {}
	inst, err := m.readyInstance(moduleID)
	if err != nil {
		return nil, noop, err
	}
	if err := admit(ctx, inst.queueCh, m.maxWait, moduleID); err != nil {
		return nil, noop, err
	}
	if err := admit(ctx, inst.genCh, m.maxWait, moduleID); err != nil {
		<-inst.queueCh
		return nil, noop, err
	}
	m.mu.Lock()
	inst.LastUsed = time.Now()
	m.mu.Unlock()
	return inst, func() { <-inst.genCh; <-inst.queueCh }, nil
}
