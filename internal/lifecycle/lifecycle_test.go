package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-golang/internal/models"
)

func datePtr(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

// record builds a request advanced through the first n milestones.
func record(requested, placed bool, milestones int) *models.RequestRecord {
	r := &models.RequestRecord{
		ID:             "req-1",
		ProductCode:    "SKU-100",
		RequestedEmail: "branch@example.com",
		Requested:      requested,
		PlaceOrder:     placed,
		ShowButton:     !placed,
	}
	dates := []string{"2026-01-02", "2026-01-05", "2026-01-09", "2026-01-12"}
	for i := 0; i < milestones; i++ {
		r.SetDate(models.DateFields[i], *datePtr(dates[i]))
	}
	return r
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		name string
		rec  *models.RequestRecord
		want Stage
	}{
		{"fresh record", record(false, false, 0), StageNotRequested},
		{"acknowledged only", record(true, false, 0), StageRequestedNotOrdered},
		{"confirmed, no milestones", record(true, true, 0), StageOrderTaken},
		{"order taken stamped", record(true, true, 1), StageOrderTaken},
		{"product sent", record(true, true, 2), StageOrderSent},
		{"near warehouse", record(true, true, 3), StageNearWarehouse},
		{"delivered", record(true, true, 4), StageDelivered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StageOf(tt.rec))
		})
	}
}

func TestStageOfDisplaysWhateverIsPresent(t *testing.T) {
	// A later milestone with an earlier one missing is the backend's
	// bug, not ours; the stage still follows the latest stamp.
	r := record(true, true, 0)
	r.SetDate(models.FieldReachedNearBranch, *datePtr("2026-01-09"))
	assert.Equal(t, StageNearWarehouse, StageOf(r))
}

func TestPermittedActionsRequestedNotOrdered(t *testing.T) {
	// Scenario: acknowledged request, order not yet placed.
	r := record(true, false, 0)
	actions := PermittedActions(r, false)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionPlaceOrder, actions[0].Kind)
	assert.False(t, TimelinePermitted(r))
}

func TestPermittedActionsConfirmedNoMilestones(t *testing.T) {
	r := record(true, true, 0)
	actions := PermittedActions(r, false)

	kinds := make([]ActionKind, 0, len(actions))
	for _, a := range actions {
		kinds = append(kinds, a.Kind)
	}
	assert.NotContains(t, kinds, ActionPlaceOrder)
	assert.Contains(t, kinds, ActionShowTimeline)
	assert.NotContains(t, kinds, ActionDelete)

	field, ok := NextField(r)
	require.True(t, ok)
	assert.Equal(t, models.FieldOrderTaken, field)
}

func TestPermittedActionsDelivered(t *testing.T) {
	r := record(true, true, 4)
	actions := PermittedActions(r, false)

	kinds := make([]ActionKind, 0, len(actions))
	for _, a := range actions {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, ActionDelete)
	assert.NotContains(t, kinds, ActionAdvanceStage)

	_, ok := NextField(r)
	assert.False(t, ok)

	assert.True(t, Permits(r, ActionDelete))
	assert.False(t, Permits(r, ActionAdvanceStage))
}

func TestHideTimelineWhenOpen(t *testing.T) {
	r := record(true, true, 1)

	open := PermittedActions(r, true)
	closed := PermittedActions(r, false)

	assertHasKind := func(actions []Action, kind ActionKind) bool {
		for _, a := range actions {
			if a.Kind == kind {
				return true
			}
		}
		return false
	}
	assert.True(t, assertHasKind(open, ActionHideTimeline))
	assert.False(t, assertHasKind(open, ActionShowTimeline))
	assert.True(t, assertHasKind(closed, ActionShowTimeline))
}

func TestTimelineNotPermittedWithoutBothFlags(t *testing.T) {
	assert.False(t, TimelinePermitted(record(false, true, 0)))
	assert.False(t, TimelinePermitted(record(true, false, 0)))
	assert.True(t, TimelinePermitted(record(true, true, 0)))
}

func TestCanAdvanceOrdering(t *testing.T) {
	r := record(true, true, 1)

	assert.False(t, CanAdvance(r, models.FieldOrderTaken), "already stamped")
	assert.True(t, CanAdvance(r, models.FieldOrderSend))
	assert.False(t, CanAdvance(r, models.FieldReachedNearBranch), "skips a stage")
	assert.False(t, CanAdvance(r, models.FieldDelivered))
}

func TestCanAdvanceNeedsConfirmedOrder(t *testing.T) {
	r := record(true, false, 0)
	assert.False(t, CanAdvance(r, models.FieldOrderTaken))

	r = record(false, true, 0)
	assert.False(t, CanAdvance(r, models.FieldOrderTaken))
}

func TestCanDeleteOnlyWhenDelivered(t *testing.T) {
	assert.False(t, CanDelete(record(true, true, 3)))
	assert.True(t, CanDelete(record(true, true, 4)))
}

func TestTimelineEntries(t *testing.T) {
	r := record(true, true, 2)
	entries := Timeline(r)

	require.Len(t, entries, 4)
	assert.Equal(t, "Order Taken", entries[0].Label)
	assert.Equal(t, "Product Sent", entries[1].Label)
	assert.Equal(t, "Reached Near Warehouse", entries[2].Label)
	assert.Equal(t, "Delivered", entries[3].Label)

	assert.True(t, entries[0].Reached)
	assert.True(t, entries[1].Reached)
	assert.False(t, entries[2].Reached)
	assert.False(t, entries[3].Reached)

	assert.Equal(t, "2026-01-02", FormatDate(entries[0].Date))
	assert.Equal(t, "Not Yet", FormatDate(entries[3].Date))
}

func TestStageStrings(t *testing.T) {
	assert.Equal(t, "NOT_REQUESTED", StageNotRequested.String())
	assert.Equal(t, "DELIVERED", StageDelivered.String())
	assert.Equal(t, "PLACE_ORDER", ActionPlaceOrder.String())
}
