// Package view owns the ephemeral per-session UI state: which timeline
// is open, the transient alert message, and the order-confirmation
// sub-state. None of it is persisted; a refetch of the record list
// resets it to defaults derived from the records themselves.
package view

import (
	"sync"
	"time"

	"github.com/stockflow/stockflow-golang/internal/models"
)

// DefaultAlertTTL is how long a transient alert stays visible.
const DefaultAlertTTL = 2 * time.Second

const noPending = -1

// Projector holds one administrator session's view state.
type Projector struct {
	mu sync.Mutex

	// timelineDefault[i] is recomputed from each record's PlaceOrder on
	// every Reset; openIndex is the single user-toggled open timeline.
	timelineDefault []bool
	openIndex       int

	// pendingIndex is the row awaiting place-order confirmation.
	pendingIndex int

	alert      string
	alertTTL   time.Duration
	alertTimer *time.Timer
	alertGen   uint64 // guards against a stale timer clearing a newer alert
}

func NewProjector(alertTTL time.Duration) *Projector {
	if alertTTL <= 0 {
		alertTTL = DefaultAlertTTL
	}
	return &Projector{
		openIndex:    noPending,
		pendingIndex: noPending,
		alertTTL:     alertTTL,
	}
}

// Reset derives fresh view state from a refetched record list. All open
// timelines collapse and any pending confirmation is abandoned; only the
// PlaceOrder-derived default visibility survives.
func (p *Projector) Reset(records []models.RequestRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timelineDefault = make([]bool, len(records))
	for i := range records {
		p.timelineDefault[i] = records[i].PlaceOrder
	}
	p.openIndex = noPending
	p.pendingIndex = noPending
}

// ToggleTimeline opens the timeline at index, or closes it if it is the
// one already open. Opening one closes any other.
func (p *Projector) ToggleTimeline(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openIndex == index {
		p.openIndex = noPending
		return
	}
	p.openIndex = index
}

// TimelineOpen reports whether the timeline at index should render: the
// user toggled it open and the record's default visibility allows it.
func (p *Projector) TimelineOpen(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openIndex != index {
		return false
	}
	return index >= 0 && index < len(p.timelineDefault) && p.timelineDefault[index]
}

// RequestConfirmation marks the row awaiting place-order confirmation.
// A prior pending confirmation is abandoned; only one may be pending.
func (p *Projector) RequestConfirmation(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingIndex = index
}

// PendingConfirmation returns the pending row, if any.
func (p *Projector) PendingConfirmation() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingIndex, p.pendingIndex != noPending
}

// Cancel abandons the pending confirmation without dispatching anything.
func (p *Projector) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingIndex = noPending
}

// Confirm runs the supplied action for the pending row. Whatever the
// outcome, the confirmation state returns to none; the action's error is
// passed through for the caller to surface.
func (p *Projector) Confirm(do func(index int) error) error {
	p.mu.Lock()
	index := p.pendingIndex
	p.pendingIndex = noPending
	p.mu.Unlock()

	if index == noPending {
		return nil
	}
	return do(index)
}

// SetAlert replaces the transient message and restarts its expiry timer.
// The previous timer is invalidated so it can never clear this message.
func (p *Projector) SetAlert(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.alert = msg
	p.alertGen++
	gen := p.alertGen

	if p.alertTimer != nil {
		p.alertTimer.Stop()
	}
	p.alertTimer = time.AfterFunc(p.alertTTL, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.alertGen == gen {
			p.alert = ""
		}
	})
}

// Alert returns the current transient message, empty once expired.
func (p *Projector) Alert() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alert
}

// ClearAlert drops the message immediately.
func (p *Projector) ClearAlert() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alert = ""
	p.alertGen++
	if p.alertTimer != nil {
		p.alertTimer.Stop()
		p.alertTimer = nil
	}
}
