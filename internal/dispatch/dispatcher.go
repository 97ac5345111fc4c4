// Package dispatch executes admin actions against the remote Request
// Store and keeps a local mirror of the records consistent with it.
// Every action is two-phase: a local precondition check against the
// lifecycle engine, then the remote call; the mirror mutates only after
// the store reports success.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stockflow/stockflow-golang/internal/lifecycle"
	"github.com/stockflow/stockflow-golang/internal/models"
)

var (
	// ErrPreconditionFailed is returned when an action is attempted
	// outside its permitted state. The store is never contacted.
	ErrPreconditionFailed = errors.New("action not permitted in current state")

	// ErrActionInFlight is returned while the same action on the same
	// record is still awaiting its response. Prevents double-firing a
	// remote mutation from rapid repeated clicks.
	ErrActionInFlight = errors.New("action already in flight for this record")

	// ErrRecordNotFound is returned when the mirror holds no record for
	// the given key.
	ErrRecordNotFound = errors.New("request not found")
)

// Store is the remote Request Store collaborator.
type Store interface {
	ListRequests(ctx context.Context, adminID int64) ([]models.RequestRecord, error)
	SetField(ctx context.Context, id string, field string, value any) error
	ConfirmOrder(ctx context.Context, id string) error
	DeleteRequest(ctx context.Context, productCode, requestedEmail string) error
}

// Dispatcher owns the local mirror for one administrator session.
type Dispatcher struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu      sync.Mutex
	records []models.RequestRecord
	busy    map[string]struct{} // "<id>/<action>" keys with a call outstanding
}

func New(store Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store: store,
		log:   log,
		now:   time.Now,
		busy:  make(map[string]struct{}),
	}
}

// Refresh replaces the mirror with the store's current record list for
// the scope. Callers must re-derive any ephemeral view state afterwards.
func (d *Dispatcher) Refresh(ctx context.Context, adminID int64) ([]models.RequestRecord, error) {
	records, err := d.store.ListRequests(ctx, adminID)
	if err != nil {
		d.log.Warn("refresh failed", zap.Int64("admin_id", adminID), zap.Error(err))
		return nil, fmt.Errorf("list requests: %w", err)
	}

	d.mu.Lock()
	d.records = records
	d.mu.Unlock()

	d.log.Info("requests refreshed", zap.Int64("admin_id", adminID), zap.Int("count", len(records)))
	return d.Records(), nil
}

// Records returns a copy of the mirror.
func (d *Dispatcher) Records() []models.RequestRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.RequestRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Get returns a copy of the record with the given ID.
func (d *Dispatcher) Get(id string) (models.RequestRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.records {
		if d.records[i].ID == id {
			return d.records[i], true
		}
	}
	return models.RequestRecord{}, false
}

// acquire claims the busy key for one record+action pair, checking the
// precondition while the mirror is locked.
func (d *Dispatcher) acquire(id string, kind lifecycle.ActionKind, permitted func(*models.RequestRecord) bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.find(id)
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if !permitted(rec) {
		return fmt.Errorf("%s: %w", kind, ErrPreconditionFailed)
	}

	key := id + "/" + kind.String()
	if _, inFlight := d.busy[key]; inFlight {
		return fmt.Errorf("%s: %w", kind, ErrActionInFlight)
	}
	d.busy[key] = struct{}{}
	return nil
}

func (d *Dispatcher) release(id string, kind lifecycle.ActionKind) {
	d.mu.Lock()
	delete(d.busy, id+"/"+kind.String())
	d.mu.Unlock()
}

// find returns the mirror's record for id. Caller holds d.mu.
func (d *Dispatcher) find(id string) *models.RequestRecord {
	for i := range d.records {
		if d.records[i].ID == id {
			return &d.records[i]
		}
	}
	return nil
}

// PlaceOrder confirms the order for a request via the store's dedicated
// confirmation endpoint. On success the mirror's PlaceOrder flips true
// (forever) and the place-order affordance is cleared.
func (d *Dispatcher) PlaceOrder(ctx context.Context, id string) error {
	if err := d.acquire(id, lifecycle.ActionPlaceOrder, lifecycle.CanPlaceOrder); err != nil {
		return err
	}
	defer d.release(id, lifecycle.ActionPlaceOrder)

	if err := d.store.ConfirmOrder(ctx, id); err != nil {
		d.log.Warn("order confirmation failed", zap.String("request_id", id), zap.Error(err))
		return fmt.Errorf("confirm order: %w", err)
	}

	d.mu.Lock()
	if rec := d.find(id); rec != nil {
		rec.PlaceOrder = true
		rec.ShowButton = false
	}
	d.mu.Unlock()

	d.log.Info("order confirmed", zap.String("request_id", id))
	return nil
}

// AdvanceStage stamps the next delivery milestone on the record. The
// store owns the authoritative timestamp; the mirror records the
// dispatch time, to be reconciled on the next refresh.
func (d *Dispatcher) AdvanceStage(ctx context.Context, id string, field models.DateField) error {
	permitted := func(r *models.RequestRecord) bool { return lifecycle.CanAdvance(r, field) }
	if err := d.acquire(id, lifecycle.ActionAdvanceStage, permitted); err != nil {
		return err
	}
	defer d.release(id, lifecycle.ActionAdvanceStage)

	stamp := d.now()
	if err := d.store.SetField(ctx, id, string(field), true); err != nil {
		d.log.Warn("stage advance failed",
			zap.String("request_id", id),
			zap.String("field", string(field)),
			zap.Error(err))
		return fmt.Errorf("advance %s: %w", field, err)
	}

	d.mu.Lock()
	if rec := d.find(id); rec != nil {
		rec.SetDate(field, stamp)
	}
	d.mu.Unlock()

	d.log.Info("stage advanced", zap.String("request_id", id), zap.String("field", string(field)))
	return nil
}

// DeleteRequest removes a delivered request. The store keys deletion by
// productCode+requestedEmail, and the mirror drops every record matching
// that compound key once the store confirms.
func (d *Dispatcher) DeleteRequest(ctx context.Context, productCode, requestedEmail string) error {
	d.mu.Lock()
	var target *models.RequestRecord
	for i := range d.records {
		if d.records[i].ProductCode == productCode && d.records[i].RequestedEmail == requestedEmail {
			target = &d.records[i]
			break
		}
	}
	if target == nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, productCode, requestedEmail)
	}
	if !lifecycle.CanDelete(target) {
		d.mu.Unlock()
		return fmt.Errorf("%s: %w", lifecycle.ActionDelete, ErrPreconditionFailed)
	}

	key := target.ID + "/" + lifecycle.ActionDelete.String()
	if _, inFlight := d.busy[key]; inFlight {
		d.mu.Unlock()
		return fmt.Errorf("%s: %w", lifecycle.ActionDelete, ErrActionInFlight)
	}
	d.busy[key] = struct{}{}
	id := target.ID
	d.mu.Unlock()
	defer d.release(id, lifecycle.ActionDelete)

	if err := d.store.DeleteRequest(ctx, productCode, requestedEmail); err != nil {
		d.log.Warn("delete failed",
			zap.String("product_code", productCode),
			zap.String("requested_email", requestedEmail),
			zap.Error(err))
		return fmt.Errorf("delete request: %w", err)
	}

	d.mu.Lock()
	kept := d.records[:0]
	for _, rec := range d.records {
		if rec.ProductCode != productCode || rec.RequestedEmail != requestedEmail {
			kept = append(kept, rec)
		}
	}
	d.records = kept
	d.mu.Unlock()

	d.log.Info("request deleted",
		zap.String("product_code", productCode),
		zap.String("requested_email", requestedEmail))
	return nil
}
