package daemon

import (
	"sort"
	"sync"
	"time"

	"copier/internal/model"
)

type MappingStatus struct {
	Mapping   *model.Mapping
	State     model.MappingState
	Synced    int
	Removed   int
	Failed    int
	LastError string
	LastSync  *time.Time
}

// StateTable tracks per-Mapping bookkeeping. It is only reported, never used
// to decide what to execute.
type StateTable struct {
	mu       sync.RWMutex
	statuses map[int]*MappingStatus
}

func NewStateTable(mappings []*model.Mapping) *StateTable {
	t := &StateTable{statuses: make(map[int]*MappingStatus, len(mappings))}
	for _, m := range mappings {
		t.statuses[m.ID] = &MappingStatus{Mapping: m, State: model.StateUnsynced}
	}
	return t
}

func (t *StateTable) Record(result model.SyncResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.statuses[result.Action.Mapping.ID]
	if !ok {
		return
	}

	s.State = model.NextState(s.State, result)
	switch {
	case result.Err != nil:
		s.Failed++
		s.LastError = result.Err.Error()
		return
	case result.Outcome == model.OutcomeRemoved:
		s.Removed++
	case result.Outcome == model.OutcomeCopied:
		s.Synced++
	}
	s.LastSync = new(time.Now())
}

func (t *StateTable) State(id int) model.MappingState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, ok := t.statuses[id]; ok {
		return s.State
	}
	return ""
}

func (t *StateTable) Snapshots() []model.MappingSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snaps := make([]model.MappingSnapshot, 0, len(t.statuses))
	for _, s := range t.statuses {
		snaps = append(snaps, model.MappingSnapshot{
			Copyset:   s.Mapping.Copyset,
			Source:    s.Mapping.Source,
			Target:    s.Mapping.Target,
			State:     s.State,
			Synced:    s.Synced,
			Removed:   s.Removed,
			Failed:    s.Failed,
			LastError: s.LastError,
			LastSync:  s.LastSync,
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Copyset != snaps[j].Copyset {
			return snaps[i].Copyset < snaps[j].Copyset
		}
		return snaps[i].Target < snaps[j].Target
	})

	return snaps
}
