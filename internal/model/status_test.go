package model

import (
	"testing"
	"time"

	"immigration/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTo_ForwardChain(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := &TravelDocument{Status: StatusFilled}

	old, err := TransitionTo(doc, StatusApproved, now)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, old)
	assert.Equal(t, StatusApproved, doc.Status)
	assert.Equal(t, now, doc.UpdatedAt)

	old, err = TransitionTo(doc, StatusPrinted, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, old)
	assert.Equal(t, StatusPrinted, doc.Status)
}

func TestTransitionTo_Rejected(t *testing.T) {
	cases := []struct {
		name   string
		from   Status
		target Status
	}{
		{"skip approved", StatusFilled, StatusPrinted},
		{"out of printed to filled", StatusPrinted, StatusFilled},
		{"out of printed to approved", StatusPrinted, StatusApproved},
		{"printed to printed", StatusPrinted, StatusPrinted},
		{"backwards", StatusApproved, StatusFilled},
		{"same state", StatusFilled, StatusFilled},
		{"unknown target", StatusFilled, Status("archived")},
		{"empty current", Status(""), StatusApproved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			doc := &TravelDocument{Status: tc.from, UpdatedAt: before}
			_, err := TransitionTo(doc, tc.target, time.Now())

			var ite *apperr.InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, string(tc.from), ite.From)
			assert.Equal(t, string(tc.target), ite.To)
			assert.ErrorIs(t, err, apperr.ErrInvalidState)
			assert.Equal(t, tc.from, doc.Status)
			assert.Equal(t, before, doc.UpdatedAt)
		})
	}
}

func TestStatus_Helpers(t *testing.T) {
	assert.True(t, StatusFilled.Valid())
	assert.False(t, Status("").Valid())
	assert.Equal(t, []Status{StatusApproved}, StatusFilled.Successors())
	assert.Empty(t, StatusPrinted.Successors())
	assert.Equal(t, "#FFA500", StatusFilled.Color())
	assert.Equal(t, "#000000", Status("x").Color())
	assert.Equal(t, "Waa la Daabacay", StatusPrinted.Label())
}
