package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockflow/stockflow-golang/internal/lifecycle"
	"github.com/stockflow/stockflow-golang/internal/models"
)

// fakeStore records calls and answers with configurable errors.
type fakeStore struct {
	mu       sync.Mutex
	records  []models.RequestRecord
	failWith error

	setFieldCalls []string
	confirmCalls  []string
	deleteCalls   []string

	confirmGate    chan struct{} // if non-nil, ConfirmOrder blocks until closed
	confirmStarted chan struct{} // if non-nil, receives once ConfirmOrder is entered
}

func (f *fakeStore) ListRequests(ctx context.Context, adminID int64) ([]models.RequestRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]models.RequestRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeStore) SetField(ctx context.Context, id string, field string, value any) error {
	f.mu.Lock()
	f.setFieldCalls = append(f.setFieldCalls, id+"/"+field)
	f.mu.Unlock()
	return f.failWith
}

func (f *fakeStore) ConfirmOrder(ctx context.Context, id string) error {
	if f.confirmStarted != nil {
		f.confirmStarted <- struct{}{}
	}
	if f.confirmGate != nil {
		<-f.confirmGate
	}
	f.mu.Lock()
	f.confirmCalls = append(f.confirmCalls, id)
	f.mu.Unlock()
	return f.failWith
}

func (f *fakeStore) DeleteRequest(ctx context.Context, productCode, requestedEmail string) error {
	f.mu.Lock()
	f.deleteCalls = append(f.deleteCalls, productCode+"/"+requestedEmail)
	f.mu.Unlock()
	return f.failWith
}

func seedRecords() []models.RequestRecord {
	delivered := time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)
	taken := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	return []models.RequestRecord{
		{
			ID: "req-1", ProductCode: "SKU-100", RequestedEmail: "a@example.com",
			Requested: true, PlaceOrder: false, ShowButton: true,
		},
		{
			ID: "req-2", ProductCode: "SKU-200", RequestedEmail: "b@example.com",
			Requested: true, PlaceOrder: true,
			OrderTakenDate: &taken,
		},
		{
			ID: "req-3", ProductCode: "SKU-300", RequestedEmail: "c@example.com",
			Requested: true, PlaceOrder: true,
			OrderTakenDate: &taken, OrderSendDate: &taken,
			ReachedNearBranchDate: &taken, DeliveredDate: &delivered,
		},
	}
}

func newTestDispatcher(t *testing.T, store *fakeStore) *Dispatcher {
	t.Helper()
	d := New(store, zap.NewNop())
	_, err := d.Refresh(context.Background(), 1)
	require.NoError(t, err)
	return d
}

func TestPlaceOrderSuccessMutatesMirror(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)

	require.NoError(t, d.PlaceOrder(context.Background(), "req-1"))

	rec, ok := d.Get("req-1")
	require.True(t, ok)
	assert.True(t, rec.PlaceOrder)
	assert.False(t, rec.ShowButton)
	assert.Equal(t, []string{"req-1"}, store.confirmCalls)

	// PLACE_ORDER never comes back for this record.
	assert.False(t, lifecycle.CanPlaceOrder(&rec))
}

func TestPlaceOrderRejectedWhenAlreadyPlaced(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)

	err := d.PlaceOrder(context.Background(), "req-2")
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Empty(t, store.confirmCalls, "store must not be contacted")
}

func TestPlaceOrderRemoteFailureLeavesMirror(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)
	store.failWith = errors.New("502 bad gateway")

	err := d.PlaceOrder(context.Background(), "req-1")
	require.Error(t, err)

	rec, ok := d.Get("req-1")
	require.True(t, ok)
	assert.False(t, rec.PlaceOrder, "no optimistic mutation")
	assert.True(t, lifecycle.CanPlaceOrder(&rec), "action stays permitted")

	// A later attempt succeeds once the store recovers.
	store.failWith = nil
	require.NoError(t, d.PlaceOrder(context.Background(), "req-1"))
}

func TestAdvanceStageOrdering(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)

	// req-2 has only orderTakenDate; the only legal advance is orderSendDate.
	err := d.AdvanceStage(context.Background(), "req-2", models.FieldDelivered)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Empty(t, store.setFieldCalls)

	require.NoError(t, d.AdvanceStage(context.Background(), "req-2", models.FieldOrderSend))
	assert.Equal(t, []string{"req-2/orderSendDate"}, store.setFieldCalls)

	rec, ok := d.Get("req-2")
	require.True(t, ok)
	require.NotNil(t, rec.OrderSendDate)
	assert.Equal(t, lifecycle.StageOrderSent, lifecycle.StageOf(&rec))
}

func TestAdvanceStageUsesDispatchClock(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)
	fixed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	require.NoError(t, d.AdvanceStage(context.Background(), "req-2", models.FieldOrderSend))

	rec, _ := d.Get("req-2")
	require.NotNil(t, rec.OrderSendDate)
	assert.Equal(t, fixed, *rec.OrderSendDate)
}

func TestDeleteRequiresDelivered(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)

	err := d.DeleteRequest(context.Background(), "SKU-200", "b@example.com")
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Empty(t, store.deleteCalls)
	assert.Len(t, d.Records(), 3)
}

func TestDeleteRemovesExactlyOneByCompoundKey(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)

	require.NoError(t, d.DeleteRequest(context.Background(), "SKU-300", "c@example.com"))
	assert.Equal(t, []string{"SKU-300/c@example.com"}, store.deleteCalls)

	records := d.Records()
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.NotEqual(t, "req-3", rec.ID)
	}
}

func TestDeleteRemoteFailureKeepsRecord(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)
	store.failWith = errors.New("remote rejected")

	err := d.DeleteRequest(context.Background(), "SKU-300", "c@example.com")
	require.Error(t, err)
	assert.Len(t, d.Records(), 3)
}

func TestUnknownRecord(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)

	assert.ErrorIs(t, d.PlaceOrder(context.Background(), "nope"), ErrRecordNotFound)
	assert.ErrorIs(t, d.DeleteRequest(context.Background(), "SKU-999", "x@example.com"), ErrRecordNotFound)
}

func TestPlaceOrderAtMostOneInFlight(t *testing.T) {
	store := &fakeStore{
		records:        seedRecords(),
		confirmGate:    make(chan struct{}),
		confirmStarted: make(chan struct{}, 1),
	}
	d := newTestDispatcher(t, store)

	firstDone := make(chan error, 1)
	go func() { firstDone <- d.PlaceOrder(context.Background(), "req-1") }()

	// The first call holds the busy key while blocked inside the store.
	<-store.confirmStarted
	err := d.PlaceOrder(context.Background(), "req-1")
	assert.ErrorIs(t, err, ErrActionInFlight)

	close(store.confirmGate)
	require.NoError(t, <-firstDone)
	assert.Equal(t, []string{"req-1"}, store.confirmCalls, "single backend mutation")
}

func TestRefreshReplacesMirror(t *testing.T) {
	store := &fakeStore{records: seedRecords()}
	d := newTestDispatcher(t, store)

	store.records = store.records[:1]
	records, err := d.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Len(t, d.Records(), 1)
}
