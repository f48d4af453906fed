package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/rgi-trading/procure/internal/observability"
	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, record Invoice) (*Invoice, error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetBySalesOrder(ctx context.Context, orderID int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error)
	PayCascade(ctx context.Context, id int64, paidDate time.Time, actorID int64) (*CascadeResult, error)
}

// OrderSource reads the sales order an invoice snapshots.
type OrderSource interface {
	Get(ctx context.Context, id int64) (*order.SalesOrder, error)
}

// ClientSource resolves billing details from the client registry.
type ClientSource interface {
	BillingInfo(ctx context.Context, clientID int64) (companyName, billingAddress string, err error)
}

// NotifierPort dispatches invoice notifications, fire-and-forget.
type NotifierPort interface {
	InvoiceIssued(ctx context.Context, inv Invoice)
	InvoicePaid(ctx context.Context, inv Invoice)
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service derives invoices from approved sales orders and settles them.
type Service struct {
	repo     RepositoryPort
	orders   OrderSource
	clients  ClientSource
	notifier NotifierPort
	audit    AuditPort
	metrics  *observability.Metrics
}

// NewService constructs an invoice service.
func NewService(repo RepositoryPort, orders OrderSource, clients ClientSource, notifier NotifierPort, audit AuditPort) *Service {
	return &Service{
		repo:     repo,
		orders:   orders,
		clients:  clients,
		notifier: notifier,
		audit:    audit,
	}
}

// SetMetrics injects the document and transition counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// DeriveForOrder snapshots the sales order into a new invoice. Calling it
// again for the same order is a no-op that keeps the first invoice.
func (s *Service) DeriveForOrder(ctx context.Context, orderID int64, actor shared.Actor) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get sales order: %w", err)
	}

	record := Invoice{
		SalesOrderID:   o.ID,
		ClientID:       o.ClientID,
		CompanyName:    o.CompanyName,
		BillingAddress: o.BillingAddress,
		Lines:          o.Lines,
		Subtotal:       o.Subtotal,
		Tax:            o.Tax,
		GrandTotal:     o.GrandTotal,
		CreatedBy:      actor.ID,
	}
	if record.GrandTotal == 0 && len(record.Lines) > 0 {
		record.Subtotal = record.Lines.Total()
		record.GrandTotal = record.Subtotal + record.Tax
	}
	if o.ClientID != nil && s.clients != nil {
		name, address, err := s.clients.BillingInfo(ctx, *o.ClientID)
		if err == nil {
			if name != "" {
				record.CompanyName = name
			}
			if address != "" {
				record.BillingAddress = address
			}
		}
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return fmt.Errorf("derive invoice for order %d: %w", orderID, err)
	}
	s.metrics.RecordDocument("INV")
	s.recordAudit(ctx, actor.ID, "create", "invoice", created.ID,
		map[string]any{"invoice_number": created.InvoiceNumber, "sales_order_id": orderID})
	if s.notifier != nil {
		s.notifier.InvoiceIssued(ctx, *created)
	}
	return nil
}

// Pay settles an invoice and closes the whole document chain behind it.
// Manager tier only.
func (s *Service) Pay(ctx context.Context, id int64, actor shared.Actor) (*Invoice, error) {
	if !actor.Role.CanSetStatus() {
		return nil, fmt.Errorf("%w: only a manager may settle an invoice", shared.ErrPermissionDenied)
	}

	res, err := s.repo.PayCascade(ctx, id, time.Now(), actor.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition("invoice", string(StatusPaid))
	s.metrics.RecordTransition("sales_order", "done")
	s.recordAudit(ctx, actor.ID, "status_change", "invoice", id,
		map[string]any{"from": string(StatusOverdue), "to": string(StatusPaid)})
	s.recordAudit(ctx, actor.ID, "status_change", "sales_order", res.SalesOrderID,
		map[string]any{"to": "done"})
	if res.QuotationID != nil {
		s.metrics.RecordTransition("quotation", "success")
		s.recordAudit(ctx, actor.ID, "status_change", "quotation", *res.QuotationID,
			map[string]any{"to": "success"})
	}
	if res.RFQID != nil {
		s.metrics.RecordTransition("rfq", "success")
		s.recordAudit(ctx, actor.ID, "status_change", "rfq", *res.RFQID,
			map[string]any{"to": "success"})
	}

	paid, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.InvoicePaid(ctx, *paid)
	}
	return paid, nil
}

// Get retrieves an invoice by id.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetBySalesOrder retrieves the invoice derived from a sales order.
func (s *Service) GetBySalesOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	return s.repo.GetBySalesOrder(ctx, orderID)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
