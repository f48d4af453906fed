package order

import (
	"context"
	"fmt"
	"time"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/observability"
	"github.com/rgi-trading/procure/internal/quotation"
	"github.com/rgi-trading/procure/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, record SalesOrder) (int64, error)
	Get(ctx context.Context, id int64) (*SalesOrder, error)
	UpdateStatus(ctx context.Context, id int64, from []Status, next Status, actorID int64) error
	List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, error)
}

// QuotationSource resolves the quotation a sales order is created from.
type QuotationSource interface {
	Get(ctx context.Context, id int64) (*quotation.Quotation, error)
}

// DeliverySource lists the shipped line sets of every delivery order posted
// against a sales order. Implemented by the delivery repository.
type DeliverySource interface {
	ShippedLines(ctx context.Context, orderID int64) ([]lineitem.Items, error)
}

// InvoiceDeriver synthesizes the invoice when an order is approved for
// payment. Wired with a setter because the invoice module sits downstream
// of this one.
type InvoiceDeriver interface {
	DeriveForOrder(ctx context.Context, orderID int64, actor shared.Actor) error
}

// NotifierPort dispatches fulfillment notifications, fire-and-forget.
type NotifierPort interface {
	OrderReadyForApproval(ctx context.Context, o SalesOrder)
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the sales-order fulfillment workflow.
type Service struct {
	repo       RepositoryPort
	quotations QuotationSource
	deliveries DeliverySource
	deriver    InvoiceDeriver
	notifier   NotifierPort
	approvals  *shared.ApprovalRecorder
	audit      AuditPort
	locker     *shared.Locker
	metrics    *observability.Metrics
}

// NewService constructs a sales-order service.
func NewService(repo RepositoryPort, quotations QuotationSource, deliveries DeliverySource, notifier NotifierPort, approvals *shared.ApprovalRecorder, audit AuditPort, locker *shared.Locker) *Service {
	return &Service{
		repo:       repo,
		quotations: quotations,
		deliveries: deliveries,
		notifier:   notifier,
		approvals:  approvals,
		audit:      audit,
		locker:     locker,
	}
}

// SetInvoiceDeriver injects the invoice module after construction.
func (s *Service) SetInvoiceDeriver(d InvoiceDeriver) {
	s.deriver = d
}

// SetMetrics injects the workflow transition counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

func roundTo2(val float64) float64 {
	return float64(int64(val*100+0.5)) / 100
}

func generateOrderNumber() string {
	return fmt.Sprintf("SO-%d", time.Now().UnixNano())
}

// Create opens a sales order, either copied from an accepted quotation or
// built directly from priced lines.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, actor shared.Actor) (*SalesOrder, error) {
	record := SalesOrder{
		OrderNumber:    generateOrderNumber(),
		ClientID:       req.ClientID,
		CompanyName:    req.CompanyName,
		BillingAddress: req.BillingAddress,
		Status:         StatusOngoing,
		CreatedBy:      actor.ID,
		UpdatedBy:      actor.ID,
	}

	if req.QuotationID != nil {
		q, err := s.quotations.Get(ctx, *req.QuotationID)
		if err != nil {
			return nil, fmt.Errorf("get quotation: %w", err)
		}
		if q.Status != quotation.StatusProcess {
			return nil, fmt.Errorf("%w: quotation %d is %s, not accepted", shared.ErrInvalidTransition, q.ID, q.Status)
		}
		record.QuotationID = req.QuotationID
		record.Lines = q.Lines
		record.Subtotal = q.Subtotal
		record.Tax = q.Tax
		record.GrandTotal = q.GrandTotal
	} else {
		if len(req.Lines) == 0 {
			return nil, fmt.Errorf("%w: at least one line item required", shared.ErrValidation)
		}
		items := make(lineitem.Items, 0, len(req.Lines))
		for i, l := range req.Lines {
			if l.GoodID == nil && l.Name == "" {
				return nil, fmt.Errorf("%w: line %d needs a good reference or a name", shared.ErrValidation, i+1)
			}
			if l.Quantity <= 0 {
				return nil, fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
			}
			items = append(items, lineitem.Item{
				GoodID:      l.GoodID,
				Name:        l.Name,
				Description: l.Description,
				Unit:        l.Unit,
				Quantity:    l.Quantity,
				Price:       l.Price,
			})
		}
		record.Lines = items
		record.Subtotal = roundTo2(items.Total())
		record.Tax = roundTo2(record.Subtotal * req.TaxPercent / 100)
		record.GrandTotal = record.Subtotal + record.Tax
	}

	id, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create sales order: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Fulfillment computes the goods-ledger view of an order.
func (s *Service) Fulfillment(ctx context.Context, id int64) (*Fulfillment, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	shipped, err := s.deliveries.ShippedLines(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	f := ComputeFulfillment(existing.Lines, shipped)
	return &f, nil
}

// RecomputeAfterDelivery re-evaluates fulfillment after a delivery order
// was posted and advances the status accordingly. The delivery service
// calls this while holding the per-order lock.
func (s *Service) RecomputeAfterDelivery(ctx context.Context, orderID int64, actor shared.Actor) (*Fulfillment, error) {
	existing, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	if !existing.Status.AcceptsDeliveries() {
		return nil, fmt.Errorf("%w: sales order is %s", shared.ErrInvalidTransition, existing.Status)
	}
	shipped, err := s.deliveries.ShippedLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}

	f := ComputeFulfillment(existing.Lines, shipped)
	from := []Status{StatusOngoing, StatusOnDelivery}
	next := StatusOnDelivery
	if f.FullyShipped {
		next = StatusWaitingApproval
	}
	if err := s.repo.UpdateStatus(ctx, orderID, from, next, actor.ID); err != nil {
		return nil, fmt.Errorf("advance sales order: %w", err)
	}
	if existing.Status != next {
		s.recordTransition(ctx, actor.ID, orderID, existing.Status, next)
	}

	if f.FullyShipped && s.notifier != nil {
		existing.Status = next
		s.notifier.OrderReadyForApproval(ctx, *existing)
	}
	return &f, nil
}

// Approve moves a fully shipped order to waiting-payment and derives its
// invoice in the same operation. Manager tier only.
func (s *Service) Approve(ctx context.Context, id int64, note string, actor shared.Actor) (*SalesOrder, error) {
	if !actor.Role.CanSetStatus() {
		return nil, fmt.Errorf("%w: only a manager may approve a sales order", shared.ErrPermissionDenied)
	}

	var approved *SalesOrder
	err := s.locker.WithLock(ctx, shared.OrderLockKey(id), func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get sales order: %w", err)
		}
		if existing.Status != StatusWaitingApproval {
			return fmt.Errorf("%w: sales order is %s, not waiting approval", shared.ErrInvalidTransition, existing.Status)
		}

		if err := s.repo.UpdateStatus(ctx, id, []Status{StatusWaitingApproval}, StatusWaitingPayment, actor.ID); err != nil {
			return fmt.Errorf("approve sales order: %w", err)
		}
		s.recordTransition(ctx, actor.ID, id, StatusWaitingApproval, StatusWaitingPayment)

		if s.deriver != nil {
			if err := s.deriver.DeriveForOrder(ctx, id, actor); err != nil {
				// Derivation failed: put the order back so approval can be
				// retried instead of stranding it without an invoice.
				if rbErr := s.repo.UpdateStatus(ctx, id, []Status{StatusWaitingPayment}, StatusWaitingApproval, actor.ID); rbErr != nil {
					return fmt.Errorf("derive invoice: %w (rollback failed: %v)", err, rbErr)
				}
				return fmt.Errorf("derive invoice: %w", err)
			}
		}

		if s.approvals != nil {
			_ = s.approvals.Record(ctx, shared.ApprovalLog{
				Module:  "sales_order",
				RefID:   id,
				ActorID: actor.ID,
				Action:  shared.ApprovalApprove,
				Note:    note,
			})
		}

		approved, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Get retrieves a sales order by id.
func (s *Service) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns sales orders matching the filter.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordTransition(ctx context.Context, actorID, id int64, from, to Status) {
	s.metrics.RecordTransition("sales_order", string(to))
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "status_change",
		Entity:   "sales_order",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"from": string(from), "to": string(to)},
	})
}
