package daemon

import (
	"errors"
	"testing"

	"copier/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTable_Record(t *testing.T) {
	a := &model.Mapping{ID: 0, Copyset: "b", Target: "/dst/a"}
	b := &model.Mapping{ID: 1, Copyset: "a", Target: "/dst/b"}
	table := NewStateTable([]*model.Mapping{a, b})

	table.Record(model.SyncResult{Action: model.Action{Mapping: a}, Outcome: model.OutcomeCopied})
	table.Record(model.SyncResult{Action: model.Action{Mapping: a}, Outcome: model.OutcomeFailed, Err: errors.New("denied")})
	table.Record(model.SyncResult{Action: model.Action{Mapping: b}, Outcome: model.OutcomeRemoved})
	table.Record(model.SyncResult{Action: model.Action{Mapping: &model.Mapping{ID: 9}}, Outcome: model.OutcomeCopied})

	snaps := table.Snapshots()
	require.Len(t, snaps, 2)

	assert.Equal(t, "a", snaps[0].Copyset, "sorted by copyset")
	assert.Equal(t, model.StateSourceAbsent, snaps[0].State)
	assert.Equal(t, 1, snaps[0].Removed)
	assert.NotNil(t, snaps[0].LastSync)

	assert.Equal(t, model.StateSynced, snaps[1].State, "failure keeps previous state")
	assert.Equal(t, 1, snaps[1].Synced)
	assert.Equal(t, 1, snaps[1].Failed)
	assert.Equal(t, "denied", snaps[1].LastError)
}
