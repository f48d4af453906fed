package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/shared"
)

type mockDeliveryRepo struct {
	nextID     int64
	deliveries map[int64]*DeliveryOrder
	createErr  error
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{deliveries: map[int64]*DeliveryOrder{}}
}

func (m *mockDeliveryRepo) Create(_ context.Context, record DeliveryOrder) (int64, string, error) {
	if m.createErr != nil {
		return 0, "", m.createErr
	}
	m.nextID++
	record.ID = m.nextID
	record.DeliveryNumber = fmt.Sprintf("%04d/RGI/DO/VIII/2026", m.nextID)
	m.deliveries[record.ID] = &record
	return record.ID, record.DeliveryNumber, nil
}

func (m *mockDeliveryRepo) Get(_ context.Context, id int64) (*DeliveryOrder, error) {
	d, ok := m.deliveries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDeliveryRepo) List(_ context.Context, req ListDeliveriesRequest) ([]DeliveryOrder, error) {
	var out []DeliveryOrder
	for _, d := range m.deliveries {
		if req.OrderID != nil && d.OrderID != *req.OrderID {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDeliveryRepo) ShippedLines(_ context.Context, orderID int64) ([]lineitem.Items, error) {
	var out []lineitem.Items
	for id := int64(1); id <= m.nextID; id++ {
		if d, ok := m.deliveries[id]; ok && d.OrderID == orderID {
			out = append(out, d.Lines)
		}
	}
	return out, nil
}

type mockOrderGate struct {
	orders       map[int64]*order.SalesOrder
	recomputes   []int64
	recomputeErr error
}

func (m *mockOrderGate) Get(_ context.Context, id int64) (*order.SalesOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderGate) RecomputeAfterDelivery(_ context.Context, orderID int64, _ shared.Actor) (*order.Fulfillment, error) {
	if m.recomputeErr != nil {
		return nil, m.recomputeErr
	}
	m.recomputes = append(m.recomputes, orderID)
	return &order.Fulfillment{}, nil
}

type mockIdempotency struct {
	keys    map[string]bool
	deletes []string
}

func (m *mockIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *mockIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	m.deletes = append(m.deletes, key)
	return nil
}

var deliveryActor = shared.Actor{ID: 5, Role: shared.RoleEmployee}

func newTestDeliveryService() (*Service, *mockDeliveryRepo, *mockOrderGate, *mockIdempotency) {
	repo := newMockDeliveryRepo()
	gate := &mockOrderGate{orders: map[int64]*order.SalesOrder{
		1: {
			ID:     1,
			Status: order.StatusOngoing,
			Lines:  lineitem.Items{{Name: "Valve", Unit: "pcs", Quantity: 10, Price: 5}},
		},
	}}
	idem := &mockIdempotency{keys: map[string]bool{}}
	return NewService(repo, gate, idem, nil, nil), repo, gate, idem
}

func TestCreateDeliveryRecomputesOrder(t *testing.T) {
	svc, repo, gate, _ := newTestDeliveryService()

	created, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 6}},
	}, "", deliveryActor)
	require.NoError(t, err)

	assert.NotEmpty(t, created.DeliveryNumber)
	assert.Equal(t, []int64{1}, gate.recomputes)
	assert.Len(t, repo.deliveries, 1)
	assert.False(t, created.DeliveryDate.IsZero())
}

func TestCreateDeliveryRejectsOverShipment(t *testing.T) {
	svc, _, _, _ := newTestDeliveryService()

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 6}},
	}, "", deliveryActor)
	require.NoError(t, err)

	// 6 of 10 shipped, so 5 more exceeds what remains.
	_, err = svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 5}},
	}, "", deliveryActor)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 4}},
	}, "", deliveryActor)
	assert.NoError(t, err)
}

func TestCreateDeliveryRejectsUnknownLine(t *testing.T) {
	svc, _, _, _ := newTestDeliveryService()

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Flange", Quantity: 1}},
	}, "", deliveryActor)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDeliveryRejectsNonPositiveQuantity(t *testing.T) {
	svc, repo, _, _ := newTestDeliveryService()

	for _, qty := range []float64{0, -3} {
		_, err := svc.Create(context.Background(), CreateDeliveryRequest{
			OrderID: 1,
			Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: qty}},
		}, "", deliveryActor)
		assert.ErrorIs(t, err, shared.ErrValidation)
	}
	assert.Empty(t, repo.deliveries, "rejected lines must not persist")
}

func TestCreateDeliveryRejectsDuplicateLine(t *testing.T) {
	svc, _, _, _ := newTestDeliveryService()

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines: []CreateDeliveryLineReq{
			{Name: "Valve", Quantity: 3},
			{Name: "Valve", Quantity: 3},
		},
	}, "", deliveryActor)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDeliveryRejectsClosedOrder(t *testing.T) {
	svc, _, gate, _ := newTestDeliveryService()
	gate.orders[1].Status = order.StatusWaitingApproval

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 1}},
	}, "", deliveryActor)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCreateDeliveryIdempotencyKey(t *testing.T) {
	svc, _, _, idem := newTestDeliveryService()

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 2}},
	}, "req-1", deliveryActor)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 2}},
	}, "req-1", deliveryActor)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Empty(t, idem.deletes)
}

func TestCreateDeliveryFreesKeyOnFailure(t *testing.T) {
	svc, repo, _, idem := newTestDeliveryService()
	repo.createErr = fmt.Errorf("connection reset")

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 2}},
	}, "req-2", deliveryActor)
	require.Error(t, err)
	assert.Equal(t, []string{"req-2"}, idem.deletes)

	repo.createErr = nil
	_, err = svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 2}},
	}, "req-2", deliveryActor)
	assert.NoError(t, err)
}

func TestCreateDeliveryKeepsKeyAfterPersist(t *testing.T) {
	svc, repo, gate, idem := newTestDeliveryService()
	gate.recomputeErr = errors.New("db down")

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 2}},
	}, "key-1", deliveryActor)
	require.Error(t, err)

	// The delivery order was written before the recompute failed, so the
	// key stays claimed and a retry cannot post the shipment twice.
	assert.Len(t, repo.deliveries, 1)
	assert.Empty(t, idem.deletes)

	gate.recomputeErr = nil
	_, err = svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 2}},
	}, "key-1", deliveryActor)
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Len(t, repo.deliveries, 1)
}

func TestCreateDeliveryInheritsOrderLineDetails(t *testing.T) {
	svc, repo, gate, _ := newTestDeliveryService()
	gate.orders[1].Lines[0].Description = "brass, 2 inch"

	created, err := svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID: 1,
		Lines:   []CreateDeliveryLineReq{{Name: "Valve", Quantity: 1}},
	}, "", deliveryActor)
	require.NoError(t, err)

	stored := repo.deliveries[created.ID]
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "brass, 2 inch", stored.Lines[0].Description)
	assert.Equal(t, "pcs", stored.Lines[0].Unit)

	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	created, err = svc.Create(context.Background(), CreateDeliveryRequest{
		OrderID:      1,
		DeliveryDate: &date,
		Lines:        []CreateDeliveryLineReq{{Name: "Valve", Quantity: 1}},
	}, "", deliveryActor)
	require.NoError(t, err)
	assert.Equal(t, date, created.DeliveryDate)
}
