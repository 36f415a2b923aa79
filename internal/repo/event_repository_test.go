package repo

import (
	"context"
	"testing"
	"time"

	"immigration/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestEventRepository_StatusHistory(t *testing.T) {
	r := NewEventRepository(newTestDB(t))
	ctx := context.Background()

	t0 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.AppendStatusEvent(ctx, &model.StatusEvent{
		DocumentID: 1, DocumentNumber: "TD-00001", OldStatus: model.StatusFilled, NewStatus: model.StatusApproved, OccurredAt: t0.Add(time.Hour),
	}))
	require.NoError(t, r.AppendStatusEvent(ctx, &model.StatusEvent{
		DocumentID: 1, DocumentNumber: "TD-00001", NewStatus: model.StatusFilled, OccurredAt: t0,
	}))
	require.NoError(t, r.AppendStatusEvent(ctx, &model.StatusEvent{
		DocumentID: 2, NewStatus: model.StatusFilled, OccurredAt: t0,
	}))

	events, err := r.ListStatusEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.StatusFilled, events[0].NewStatus)
	assert.Equal(t, model.Status(""), events[0].OldStatus)
	assert.Equal(t, model.StatusApproved, events[1].NewStatus)

	none, err := r.ListStatusEvents(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventRepository_Audit(t *testing.T) {
	r := NewEventRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, r.AppendAudit(ctx, &model.AuditEntry{
		DocumentID: 7, DocumentNumber: "TD-00007", Action: model.ActionUpdate, Actor: "officer1",
		Changes: datatypes.JSONMap{"full_name": "Amina Ali"},
	}))

	entries, err := r.ListAudit(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionUpdate, entries[0].Action)
	assert.Equal(t, "Amina Ali", entries[0].Changes["full_name"])
}
