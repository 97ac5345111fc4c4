// Package lifecycle derives, from a request's persisted fields alone,
// its current delivery stage, the admin actions valid against it, and
// the timeline entries to display. It performs no I/O and holds no
// state; callers re-derive on every render.
package lifecycle

import (
	"github.com/stockflow/stockflow-golang/internal/models"
)

// Stage is a request's position in the delivery lifecycle.
type Stage int

const (
	StageNotRequested Stage = iota
	StageRequestedNotOrdered
	StageOrderTaken
	StageOrderSent
	StageNearWarehouse
	StageDelivered
)

func (s Stage) String() string {
	switch s {
	case StageNotRequested:
		return "NOT_REQUESTED"
	case StageRequestedNotOrdered:
		return "REQUESTED_NOT_ORDERED"
	case StageOrderTaken:
		return "ORDER_TAKEN"
	case StageOrderSent:
		return "ORDER_SENT"
	case StageNearWarehouse:
		return "NEAR_WAREHOUSE"
	case StageDelivered:
		return "DELIVERED"
	}
	return "UNKNOWN"
}

// stageForField maps a milestone field to the stage it stamps.
// OrderTakenDate dates the ORDER_TAKEN stage that PlaceOrder already
// entered; the later three each advance the stage.
func stageForField(f models.DateField) Stage {
	switch f {
	case models.FieldOrderTaken:
		return StageOrderTaken
	case models.FieldOrderSend:
		return StageOrderSent
	case models.FieldReachedNearBranch:
		return StageNearWarehouse
	case models.FieldDelivered:
		return StageDelivered
	}
	return StageNotRequested
}

// StageOf returns the highest stage the record has reached. Milestone
// dates win over the booleans; a confirmed order with no dates yet is
// already ORDER_TAKEN (the admin took it, the warehouse just hasn't
// stamped it).
func StageOf(r *models.RequestRecord) Stage {
	for i := len(models.DateFields) - 1; i >= 0; i-- {
		f := models.DateFields[i]
		if r.Date(f) != nil {
			return stageForField(f)
		}
	}
	if r.PlaceOrder {
		return StageOrderTaken
	}
	if r.Requested {
		return StageRequestedNotOrdered
	}
	return StageNotRequested
}

// ActionKind enumerates the admin-facing actions.
type ActionKind int

const (
	ActionPlaceOrder ActionKind = iota
	ActionShowTimeline
	ActionHideTimeline
	ActionAdvanceStage
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionPlaceOrder:
		return "PLACE_ORDER"
	case ActionShowTimeline:
		return "SHOW_TIMELINE"
	case ActionHideTimeline:
		return "HIDE_TIMELINE"
	case ActionAdvanceStage:
		return "ADVANCE_STAGE"
	case ActionDelete:
		return "DELETE"
	}
	return "UNKNOWN"
}

// Action is one permitted admin action. Field is set only for
// ActionAdvanceStage and names the milestone the action would stamp.
type Action struct {
	Kind  ActionKind
	Field models.DateField
}

// CanPlaceOrder reports whether the order-confirmation action is still
// available. PlaceOrder is monotonic, so this goes false forever after
// one successful confirmation.
func CanPlaceOrder(r *models.RequestRecord) bool {
	return !r.PlaceOrder
}

// TimelinePermitted reports whether the delivery timeline may be shown:
// the order must be confirmed AND the request acknowledged as genuine.
func TimelinePermitted(r *models.RequestRecord) bool {
	return r.PlaceOrder && r.Requested
}

// CanAdvance reports whether the given milestone may be stamped next.
// Every earlier-stage field must already be set — the booleans count as
// earlier stages for the first milestone — and the field itself unset.
func CanAdvance(r *models.RequestRecord, field models.DateField) bool {
	if !r.Requested || !r.PlaceOrder {
		return false
	}
	for _, f := range models.DateFields {
		if f == field {
			return r.Date(f) == nil
		}
		if r.Date(f) == nil {
			return false
		}
	}
	return false
}

// NextField returns the first unstamped milestone, if advancing is
// currently permitted at all.
func NextField(r *models.RequestRecord) (models.DateField, bool) {
	for _, f := range models.DateFields {
		if CanAdvance(r, f) {
			return f, true
		}
	}
	return "", false
}

// CanDelete reports whether the record may be removed: only once the
// terminal stage is reached.
func CanDelete(r *models.RequestRecord) bool {
	return r.DeliveredDate != nil
}

// PermittedActions returns the actions valid for the record's current
// state. timelineOpen is the caller's ephemeral toggle state and only
// selects between SHOW_TIMELINE and HIDE_TIMELINE.
func PermittedActions(r *models.RequestRecord, timelineOpen bool) []Action {
	var actions []Action
	if CanPlaceOrder(r) {
		actions = append(actions, Action{Kind: ActionPlaceOrder})
	}
	if TimelinePermitted(r) {
		if timelineOpen {
			actions = append(actions, Action{Kind: ActionHideTimeline})
		} else {
			actions = append(actions, Action{Kind: ActionShowTimeline})
		}
	}
	for _, f := range models.DateFields {
		if CanAdvance(r, f) {
			actions = append(actions, Action{Kind: ActionAdvanceStage, Field: f})
		}
	}
	if CanDelete(r) {
		actions = append(actions, Action{Kind: ActionDelete})
	}
	return actions
}

// Permits reports whether the given action kind appears in
// PermittedActions for the record.
func Permits(r *models.RequestRecord, kind ActionKind) bool {
	switch kind {
	case ActionPlaceOrder:
		return CanPlaceOrder(r)
	case ActionShowTimeline, ActionHideTimeline:
		return TimelinePermitted(r)
	case ActionAdvanceStage:
		_, ok := NextField(r)
		return ok
	case ActionDelete:
		return CanDelete(r)
	}
	return false
}
