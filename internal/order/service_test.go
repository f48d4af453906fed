package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/quotation"
	"github.com/rgi-trading/procure/internal/shared"
)

type mockOrderRepo struct {
	nextID int64
	orders map[int64]*SalesOrder
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: map[int64]*SalesOrder{}}
}

func (m *mockOrderRepo) Create(_ context.Context, record SalesOrder) (int64, error) {
	m.nextID++
	record.ID = m.nextID
	m.orders[record.ID] = &record
	return record.ID, nil
}

func (m *mockOrderRepo) Get(_ context.Context, id int64) (*SalesOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, from []Status, next Status, actorID int64) error {
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = next
			o.UpdatedBy = actorID
			return nil
		}
	}
	return shared.ErrInvalidTransition
}

func (m *mockOrderRepo) List(_ context.Context, req ListOrdersRequest) ([]SalesOrder, error) {
	var out []SalesOrder
	for _, o := range m.orders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

type mockQuotationSource struct {
	quotations map[int64]*quotation.Quotation
}

func (m *mockQuotationSource) Get(_ context.Context, id int64) (*quotation.Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return q, nil
}

type mockDeliverySource struct {
	shipments map[int64][]lineitem.Items
}

func (m *mockDeliverySource) ShippedLines(_ context.Context, orderID int64) ([]lineitem.Items, error) {
	return m.shipments[orderID], nil
}

type mockDeriver struct {
	calls int
	err   error
}

func (m *mockDeriver) DeriveForOrder(context.Context, int64, shared.Actor) error {
	m.calls++
	return m.err
}

type mockOrderNotifier struct {
	readyForApproval []int64
}

func (m *mockOrderNotifier) OrderReadyForApproval(_ context.Context, o SalesOrder) {
	m.readyForApproval = append(m.readyForApproval, o.ID)
}

func newTestOrderService() (*Service, *mockOrderRepo, *mockDeliverySource, *mockDeriver, *mockOrderNotifier) {
	repo := newMockOrderRepo()
	deliveries := &mockDeliverySource{shipments: map[int64][]lineitem.Items{}}
	deriver := &mockDeriver{}
	notifier := &mockOrderNotifier{}
	quotations := &mockQuotationSource{quotations: map[int64]*quotation.Quotation{}}
	svc := NewService(repo, quotations, deliveries, notifier, nil, nil, nil)
	svc.SetInvoiceDeriver(deriver)
	return svc, repo, deliveries, deriver, notifier
}

var (
	orderEmployee = shared.Actor{ID: 7, Role: shared.RoleEmployee}
	orderManager  = shared.Actor{ID: 9, Role: shared.RoleManager}
)

func TestCreateOrderFromLines(t *testing.T) {
	svc, _, _, _, _ := newTestOrderService()

	created, err := svc.Create(context.Background(), CreateOrderRequest{
		CompanyName: "PT Mitra Abadi",
		TaxPercent:  10,
		Lines: []CreateOrderLineReq{
			{Name: "Steel pipe", Unit: "pcs", Quantity: 10, Price: 100},
		},
	}, orderEmployee)
	require.NoError(t, err)

	assert.Equal(t, StatusOngoing, created.Status)
	assert.NotEmpty(t, created.OrderNumber)
	assert.InDelta(t, 1000.0, created.Subtotal, 0.001)
	assert.InDelta(t, 100.0, created.Tax, 0.001)
	assert.InDelta(t, 1100.0, created.GrandTotal, 0.001)
}

func TestCreateOrderFromQuotation(t *testing.T) {
	svc, _, _, _, _ := newTestOrderService()
	qid := int64(3)
	svc.quotations.(*mockQuotationSource).quotations[qid] = &quotation.Quotation{
		ID:     qid,
		Status: quotation.StatusProcess,
		Lines: lineitem.Items{
			{Name: "Cement", Unit: "bag", Quantity: 50, Price: 12},
		},
		Subtotal:   600,
		Tax:        66,
		GrandTotal: 666,
	}

	created, err := svc.Create(context.Background(), CreateOrderRequest{QuotationID: &qid}, orderEmployee)
	require.NoError(t, err)

	assert.Equal(t, &qid, created.QuotationID)
	assert.Len(t, created.Lines, 1)
	assert.InDelta(t, 666.0, created.GrandTotal, 0.001)
}

func TestCreateOrderRejectsUnacceptedQuotation(t *testing.T) {
	svc, _, _, _, _ := newTestOrderService()
	qid := int64(4)
	svc.quotations.(*mockQuotationSource).quotations[qid] = &quotation.Quotation{
		ID:     qid,
		Status: quotation.StatusNegotiation,
	}

	_, err := svc.Create(context.Background(), CreateOrderRequest{QuotationID: &qid}, orderEmployee)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestRecomputePartialThenFullDelivery(t *testing.T) {
	svc, repo, deliveries, _, notifier := newTestOrderService()
	id, err := repo.Create(context.Background(), SalesOrder{
		Status: StatusOngoing,
		Lines:  lineitem.Items{{Name: "Valve", Quantity: 10, Price: 5}},
	})
	require.NoError(t, err)

	deliveries.shipments[id] = []lineitem.Items{
		{{Name: "Valve", Quantity: 6}},
	}
	f, err := svc.RecomputeAfterDelivery(context.Background(), id, orderEmployee)
	require.NoError(t, err)
	assert.False(t, f.FullyShipped)
	assert.Equal(t, StatusOnDelivery, repo.orders[id].Status)
	assert.Empty(t, notifier.readyForApproval)

	deliveries.shipments[id] = append(deliveries.shipments[id],
		lineitem.Items{{Name: "Valve", Quantity: 4}})
	f, err = svc.RecomputeAfterDelivery(context.Background(), id, orderEmployee)
	require.NoError(t, err)
	assert.True(t, f.FullyShipped)
	assert.Equal(t, StatusWaitingApproval, repo.orders[id].Status)
	assert.Equal(t, []int64{id}, notifier.readyForApproval)
}

func TestRecomputeRejectedAfterFullShipment(t *testing.T) {
	svc, repo, _, _, _ := newTestOrderService()
	id, _ := repo.Create(context.Background(), SalesOrder{Status: StatusWaitingApproval})

	_, err := svc.RecomputeAfterDelivery(context.Background(), id, orderEmployee)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestApproveDerivesInvoice(t *testing.T) {
	svc, repo, _, deriver, _ := newTestOrderService()
	id, _ := repo.Create(context.Background(), SalesOrder{Status: StatusWaitingApproval})

	approved, err := svc.Approve(context.Background(), id, "looks complete", orderManager)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingPayment, approved.Status)
	assert.Equal(t, 1, deriver.calls)
}

func TestApproveRequiresManagerTier(t *testing.T) {
	svc, repo, _, deriver, _ := newTestOrderService()
	id, _ := repo.Create(context.Background(), SalesOrder{Status: StatusWaitingApproval})

	_, err := svc.Approve(context.Background(), id, "", orderEmployee)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Equal(t, 0, deriver.calls)
	assert.Equal(t, StatusWaitingApproval, repo.orders[id].Status)
}

func TestApproveRequiresFullShipment(t *testing.T) {
	svc, repo, _, _, _ := newTestOrderService()
	id, _ := repo.Create(context.Background(), SalesOrder{Status: StatusOnDelivery})

	_, err := svc.Approve(context.Background(), id, "", orderManager)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Equal(t, StatusOnDelivery, repo.orders[id].Status)
}

func TestApproveRollsBackWhenDerivationFails(t *testing.T) {
	svc, repo, _, deriver, _ := newTestOrderService()
	deriver.err = errors.New("counter table unavailable")
	id, _ := repo.Create(context.Background(), SalesOrder{Status: StatusWaitingApproval})

	_, err := svc.Approve(context.Background(), id, "", orderManager)
	require.Error(t, err)
	assert.Equal(t, StatusWaitingApproval, repo.orders[id].Status)
}

