package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/observability"
	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, record DeliveryOrder) (int64, string, error)
	Get(ctx context.Context, id int64) (*DeliveryOrder, error)
	List(ctx context.Context, req ListDeliveriesRequest) ([]DeliveryOrder, error)
	ShippedLines(ctx context.Context, orderID int64) ([]lineitem.Items, error)
}

// OrderGate is the slice of the sales-order service a delivery needs:
// reading the order and advancing it after a shipment lands.
type OrderGate interface {
	Get(ctx context.Context, id int64) (*order.SalesOrder, error)
	RecomputeAfterDelivery(ctx context.Context, orderID int64, actor shared.Actor) (*order.Fulfillment, error)
}

// IdempotencyPort deduplicates delivery posts that retry with the same key.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts shipments against sales orders.
type Service struct {
	repo        RepositoryPort
	orders      OrderGate
	idempotency IdempotencyPort
	audit       AuditPort
	locker      *shared.Locker
	metrics     *observability.Metrics
}

// NewService constructs a delivery service.
func NewService(repo RepositoryPort, orders OrderGate, idempotency IdempotencyPort, audit AuditPort, locker *shared.Locker) *Service {
	return &Service{
		repo:        repo,
		orders:      orders,
		idempotency: idempotency,
		audit:       audit,
		locker:      locker,
	}
}

// SetMetrics injects the document counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Create posts a delivery against a sales order and recomputes the order's
// fulfillment under the per-order lock. idemKey, when non-empty, rejects a
// retried request that already landed.
func (s *Service) Create(ctx context.Context, req CreateDeliveryRequest, idemKey string, actor shared.Actor) (*DeliveryOrder, error) {
	if idemKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "delivery"); err != nil {
			return nil, err
		}
	}

	var created *DeliveryOrder
	persisted := false
	err := s.locker.WithLock(ctx, shared.OrderLockKey(req.OrderID), func(ctx context.Context) error {
		existing, err := s.orders.Get(ctx, req.OrderID)
		if err != nil {
			return fmt.Errorf("get sales order: %w", err)
		}
		if !existing.Status.AcceptsDeliveries() {
			return fmt.Errorf("%w: sales order is %s, no further deliveries accepted", shared.ErrInvalidTransition, existing.Status)
		}

		shipped, err := s.repo.ShippedLines(ctx, req.OrderID)
		if err != nil {
			return fmt.Errorf("list prior deliveries: %w", err)
		}
		items, err := buildLines(req.Lines, existing.Lines, shipped)
		if err != nil {
			return err
		}

		deliveryDate := time.Now()
		if req.DeliveryDate != nil {
			deliveryDate = *req.DeliveryDate
		}
		id, number, err := s.repo.Create(ctx, DeliveryOrder{
			OrderID:       req.OrderID,
			Lines:         items,
			DeliveryDate:  deliveryDate,
			VehicleNumber: req.VehicleNumber,
			DriverName:    req.DriverName,
			Note:          req.Note,
			CreatedBy:     actor.ID,
		})
		if err != nil {
			return err
		}
		persisted = true

		if _, err := s.orders.RecomputeAfterDelivery(ctx, req.OrderID, actor); err != nil {
			return fmt.Errorf("recompute fulfillment: %w", err)
		}

		s.recordPost(ctx, actor.ID, id, number, req.OrderID)
		created, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		// Free the key only when nothing was written, so the caller can
		// retry after fixing the request. Once the delivery order exists a
		// retry must not post it again, even if the later fulfillment
		// recompute failed.
		if idemKey != "" && s.idempotency != nil && !persisted && !errors.Is(err, shared.ErrIdempotencyConflict) {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return nil, err
	}
	return created, nil
}

// buildLines validates requested quantities against what the order still
// needs and resolves each line against the order's own line set.
func buildLines(reqLines []CreateDeliveryLineReq, orderLines lineitem.Items, shipped []lineitem.Items) (lineitem.Items, error) {
	remaining := order.Remaining(orderLines, shipped)
	byKey := make(map[string]lineitem.Item, len(orderLines))
	for _, l := range orderLines {
		byKey[l.Key()] = l
	}

	items := make(lineitem.Items, 0, len(reqLines))
	seen := make(map[string]bool, len(reqLines))
	for i, l := range reqLines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
		}
		item := lineitem.Item{GoodID: l.GoodID, Name: l.Name, Unit: l.Unit, Quantity: l.Quantity}
		key := item.Key()
		ordered, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("%w: line %d is not on the sales order", shared.ErrValidation, i+1)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: line %d duplicates an earlier line", shared.ErrValidation, i+1)
		}
		seen[key] = true
		if l.Quantity > remaining[key] {
			return nil, fmt.Errorf("%w: line %d ships %.2f but only %.2f remains", shared.ErrValidation, i+1, l.Quantity, remaining[key])
		}
		item.Name = ordered.Name
		item.Description = ordered.Description
		if item.Unit == "" {
			item.Unit = ordered.Unit
		}
		items = append(items, item)
	}
	return items, nil
}

// Get retrieves a delivery order by id.
func (s *Service) Get(ctx context.Context, id int64) (*DeliveryOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns delivery orders matching the filter.
func (s *Service) List(ctx context.Context, req ListDeliveriesRequest) ([]DeliveryOrder, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordPost(ctx context.Context, actorID, id int64, number string, orderID int64) {
	s.metrics.RecordDocument("DO")
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "create",
		Entity:   "delivery_order",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"delivery_number": number, "order_id": orderID},
	})
}
