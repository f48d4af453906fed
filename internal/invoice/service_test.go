package invoice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/shared"
)

type mockInvoiceRepo struct {
	nextID   int64
	nextSeq  int
	invoices map[int64]*Invoice
	byOrder  map[int64]int64

	// Upstream chain state, mirroring the conditional-update cascade the
	// real repository runs in one transaction.
	orderStatus     map[int64]string
	orderQuotation  map[int64]*int64
	quotationStatus map[int64]string
	quotationRFQ    map[int64]*int64
	rfqStatus       map[int64]string
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices:        map[int64]*Invoice{},
		byOrder:         map[int64]int64{},
		orderStatus:     map[int64]string{},
		orderQuotation:  map[int64]*int64{},
		quotationStatus: map[int64]string{},
		quotationRFQ:    map[int64]*int64{},
		rfqStatus:       map[int64]string{},
	}
}

func (m *mockInvoiceRepo) Create(_ context.Context, record Invoice) (*Invoice, error) {
	if id, ok := m.byOrder[record.SalesOrderID]; ok {
		cp := *m.invoices[id]
		return &cp, nil
	}
	m.nextID++
	m.nextSeq++
	record.ID = m.nextID
	record.InvoiceNumber = fmt.Sprintf("%04d/RGI/INV/VIII/2026", m.nextSeq)
	record.Status = StatusOverdue
	m.invoices[record.ID] = &record
	m.byOrder[record.SalesOrderID] = record.ID
	return &record, nil
}

func (m *mockInvoiceRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceRepo) GetBySalesOrder(_ context.Context, orderID int64) (*Invoice, error) {
	id, ok := m.byOrder[orderID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *m.invoices[id]
	return &cp, nil
}

func (m *mockInvoiceRepo) List(_ context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if req.Status != nil && inv.Status != *req.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (m *mockInvoiceRepo) PayCascade(_ context.Context, id int64, paidDate time.Time, _ int64) (*CascadeResult, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	if inv.Status != StatusOverdue {
		return nil, fmt.Errorf("%w: invoice %d is %s, not awaiting payment", shared.ErrInvalidTransition, id, inv.Status)
	}
	if m.orderStatus[inv.SalesOrderID] != "waiting-payment" {
		return nil, fmt.Errorf("%w: sales order %d is not waiting payment", shared.ErrInvalidTransition, inv.SalesOrderID)
	}
	inv.Status = StatusPaid
	inv.PaidDate = &paidDate
	m.orderStatus[inv.SalesOrderID] = "done"

	res := &CascadeResult{SalesOrderID: inv.SalesOrderID}
	quotationID := m.orderQuotation[inv.SalesOrderID]
	if quotationID == nil || m.quotationStatus[*quotationID] != "process" {
		return res, nil
	}
	m.quotationStatus[*quotationID] = "success"
	res.QuotationID = quotationID

	rfqID := m.quotationRFQ[*quotationID]
	if rfqID == nil || m.rfqStatus[*rfqID] != "process" {
		return res, nil
	}
	m.rfqStatus[*rfqID] = "success"
	res.RFQID = rfqID
	return res, nil
}

type mockInvoiceOrders struct {
	orders map[int64]*order.SalesOrder
}

func (m *mockInvoiceOrders) Get(_ context.Context, id int64) (*order.SalesOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

type mockClients struct {
	names     map[int64]string
	addresses map[int64]string
}

func (m *mockClients) BillingInfo(_ context.Context, id int64) (string, string, error) {
	name, ok := m.names[id]
	if !ok {
		return "", "", shared.ErrNotFound
	}
	return name, m.addresses[id], nil
}

type mockInvoiceNotifier struct {
	issued []string
	paid   []string
}

func (m *mockInvoiceNotifier) InvoiceIssued(_ context.Context, inv Invoice) {
	m.issued = append(m.issued, inv.InvoiceNumber)
}

func (m *mockInvoiceNotifier) InvoicePaid(_ context.Context, inv Invoice) {
	m.paid = append(m.paid, inv.InvoiceNumber)
}

var (
	invoiceEmployee = shared.Actor{ID: 3, Role: shared.RoleEmployee}
	invoiceManager  = shared.Actor{ID: 4, Role: shared.RoleManager}
)

func newTestInvoiceService() (*Service, *mockInvoiceRepo, *mockInvoiceOrders, *mockClients, *mockInvoiceNotifier) {
	repo := newMockInvoiceRepo()
	orders := &mockInvoiceOrders{orders: map[int64]*order.SalesOrder{
		1: {
			ID:          1,
			Status:      order.StatusWaitingPayment,
			CompanyName: "PT Mitra Abadi",
			Lines:       lineitem.Items{{Name: "Valve", Quantity: 10, Price: 5}},
			Subtotal:    50,
			Tax:         5,
			GrandTotal:  55,
		},
	}}
	repo.orderStatus[1] = "waiting-payment"
	clients := &mockClients{names: map[int64]string{}, addresses: map[int64]string{}}
	notifier := &mockInvoiceNotifier{}
	return NewService(repo, orders, clients, notifier, nil), repo, orders, clients, notifier
}

// chains order 1 to quotation 5 to rfq 9, both still in process.
func wireUpstreamChain(repo *mockInvoiceRepo) {
	quotationID, rfqID := int64(5), int64(9)
	repo.orderQuotation[1] = &quotationID
	repo.quotationStatus[quotationID] = "process"
	repo.quotationRFQ[quotationID] = &rfqID
	repo.rfqStatus[rfqID] = "process"
}

func TestDeriveForOrderSnapshotsTotals(t *testing.T) {
	svc, repo, _, _, notifier := newTestInvoiceService()

	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	inv, err := repo.GetBySalesOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, inv.Status)
	assert.Equal(t, "PT Mitra Abadi", inv.CompanyName)
	assert.InDelta(t, 55.0, inv.GrandTotal, 0.001)
	assert.Equal(t, "0001/RGI/INV/VIII/2026", inv.InvoiceNumber)
	assert.Equal(t, []string{"0001/RGI/INV/VIII/2026"}, notifier.issued)
}

func TestDeriveForOrderIsIdempotent(t *testing.T) {
	svc, repo, _, _, _ := newTestInvoiceService()

	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))
	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	assert.Len(t, repo.invoices, 1)
	inv, err := repo.GetBySalesOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "0001/RGI/INV/VIII/2026", inv.InvoiceNumber)
}

func TestDeriveForOrderResolvesClientBilling(t *testing.T) {
	svc, repo, orders, clients, _ := newTestInvoiceService()
	clientID := int64(11)
	orders.orders[1].ClientID = &clientID
	clients.names[clientID] = "PT Sumber Rejeki"
	clients.addresses[clientID] = "Jl. Industri 5, Surabaya"

	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	inv, _ := repo.GetBySalesOrder(context.Background(), 1)
	assert.Equal(t, "PT Sumber Rejeki", inv.CompanyName)
	assert.Equal(t, "Jl. Industri 5, Surabaya", inv.BillingAddress)
}

func TestDeriveForOrderFallsBackToOrderBilling(t *testing.T) {
	svc, repo, orders, _, _ := newTestInvoiceService()
	clientID := int64(99) // not in the registry
	orders.orders[1].ClientID = &clientID
	orders.orders[1].BillingAddress = "Jl. Merdeka 1"

	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	inv, _ := repo.GetBySalesOrder(context.Background(), 1)
	assert.Equal(t, "PT Mitra Abadi", inv.CompanyName)
	assert.Equal(t, "Jl. Merdeka 1", inv.BillingAddress)
}

func TestDeriveForOrderComputesMissingTotals(t *testing.T) {
	svc, repo, orders, _, _ := newTestInvoiceService()
	orders.orders[1].Subtotal = 0
	orders.orders[1].Tax = 0
	orders.orders[1].GrandTotal = 0

	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	inv, _ := repo.GetBySalesOrder(context.Background(), 1)
	assert.InDelta(t, 50.0, inv.Subtotal, 0.001)
	assert.InDelta(t, 50.0, inv.GrandTotal, 0.001)
}

func TestSequenceAdvancesAcrossOrders(t *testing.T) {
	svc, repo, orders, _, _ := newTestInvoiceService()
	orders.orders[2] = &order.SalesOrder{ID: 2, Status: order.StatusWaitingPayment, CompanyName: "CV Baru", GrandTotal: 10}

	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))
	require.NoError(t, svc.DeriveForOrder(context.Background(), 2, invoiceManager))

	a, _ := repo.GetBySalesOrder(context.Background(), 1)
	b, _ := repo.GetBySalesOrder(context.Background(), 2)
	assert.Equal(t, "0001/RGI/INV/VIII/2026", a.InvoiceNumber)
	assert.Equal(t, "0002/RGI/INV/VIII/2026", b.InvoiceNumber)
}

func TestPayRequiresManagerTier(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService()
	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	_, err := svc.Pay(context.Background(), 1, invoiceEmployee)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

type mockAudit struct {
	entries []shared.AuditLog
}

func (m *mockAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

func (m *mockAudit) entities() []string {
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Entity)
	}
	return out
}

func TestPayClosesWholeChain(t *testing.T) {
	svc, repo, _, _, _ := newTestInvoiceService()
	wireUpstreamChain(repo)
	audit := &mockAudit{}
	svc.audit = audit
	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	paid, err := svc.Pay(context.Background(), 1, invoiceManager)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Equal(t, "done", repo.orderStatus[1])
	assert.Equal(t, "success", repo.quotationStatus[5])
	assert.Equal(t, "success", repo.rfqStatus[9])
	// Closure is recorded in dependency order, invoice outward.
	assert.Equal(t, []string{"invoice", "invoice", "sales_order", "quotation", "rfq"}, audit.entities())
}

func TestPayWithoutQuotationLeavesUnrelatedRecords(t *testing.T) {
	svc, repo, _, _, _ := newTestInvoiceService()
	unrelatedQuotation, unrelatedRFQ := int64(8), int64(3)
	repo.quotationStatus[unrelatedQuotation] = "process"
	repo.rfqStatus[unrelatedRFQ] = "process"
	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	_, err := svc.Pay(context.Background(), 1, invoiceManager)
	require.NoError(t, err)
	assert.Equal(t, "done", repo.orderStatus[1])
	assert.Equal(t, "process", repo.quotationStatus[unrelatedQuotation])
	assert.Equal(t, "process", repo.rfqStatus[unrelatedRFQ])
}

func TestPayToleratesAlreadyClosedQuotation(t *testing.T) {
	svc, repo, _, _, _ := newTestInvoiceService()
	wireUpstreamChain(repo)
	repo.quotationStatus[5] = "success"
	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	paid, err := svc.Pay(context.Background(), 1, invoiceManager)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Equal(t, "done", repo.orderStatus[1])
	// The RFQ only closes through its quotation; a quotation closed by
	// other means leaves it alone.
	assert.Equal(t, "process", repo.rfqStatus[9])
}

func TestPayMissingInvoiceIsNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestInvoiceService()

	_, err := svc.Pay(context.Background(), 404, invoiceManager)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaySettlesOnceOnly(t *testing.T) {
	svc, _, _, _, notifier := newTestInvoiceService()
	require.NoError(t, svc.DeriveForOrder(context.Background(), 1, invoiceManager))

	paid, err := svc.Pay(context.Background(), 1, invoiceManager)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, []string{"0001/RGI/INV/VIII/2026"}, notifier.paid)

	_, err = svc.Pay(context.Background(), 1, invoiceManager)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Len(t, notifier.paid, 1)
}
