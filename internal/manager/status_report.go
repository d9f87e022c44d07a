package manager

import (
	"sort"
	"time"

	"hvxhost/pkg/types"
)

func statusOf(inst *Instance) types.InstanceStatus {
	return types.InstanceStatus{
		ModuleID:      inst.ID,
		ImageID:       inst.ImageID,
		Path:          inst.Path,
		State:         string(inst.State),
		LoadedAt:      inst.LoadedAt.Unix(),
		LastUsed:      inst.LastUsed.Unix(),
		QueueLen:      len(inst.queueCh),
		Inflight:      len(inst.genCh),
		MaxQueueDepth: cap(inst.queueCh),
		Runs:          inst.runs.Load(),
	}
}

func (m *Manager) instanceStatusesLocked() []types.InstanceStatus {
	out := make([]types.InstanceStatus, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, statusOf(inst))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		Instances:      m.instanceStatusesLocked(),
		State:          string(m.state),
		LoadsTotal:     m.loadsTotal.Load(),
		RunsTotal:      m.runsTotal.Load(),
		LastError:      m.err,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	for _, inst := range resp.Instances {
		if inst.State == string(StateDraining) {
			resp.DrainingCount++
		}
	}
	if m.loader != nil {
		p := m.loader.Power()
		resp.ActiveModules = p.Active()
		resp.Powered = p.Powered()
		resp.PowerOffMode = p.Mode().String()
	}
	if m.alloc != nil {
		resp.AllocLiveBytes = uint64(m.alloc.Live())
		resp.AllocOutstanding = m.alloc.Outstanding()
	}
	return resp
}
