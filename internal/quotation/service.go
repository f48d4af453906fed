package quotation

import (
	"context"
	"fmt"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/observability"
	"github.com/rgi-trading/procure/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, record Quotation) (int64, error)
	Get(ctx context.Context, id int64) (*Quotation, error)
	UpdateContent(ctx context.Context, record Quotation, from Status) error
	UpdateStatus(ctx context.Context, id int64, from, next Status, roundDelta int) error
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, error)
}

// RFQGate freezes the originating RFQ when a quotation is issued against it.
type RFQGate interface {
	Freeze(ctx context.Context, id int64, actor shared.Actor) error
	RequesterOf(ctx context.Context, id int64) (int64, error)
}

// NotifierPort dispatches transition notifications. Implementations are
// fire-and-forget; the service never inspects the outcome.
type NotifierPort interface {
	QuotationTransition(ctx context.Context, q Quotation, from, to Status, audience Audience)
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the quotation negotiation workflow.
type Service struct {
	repo     RepositoryPort
	rfqs     RFQGate
	notifier NotifierPort
	audit    AuditPort
	metrics  *observability.Metrics
}

// NewService constructs a quotation service.
func NewService(repo RepositoryPort, rfqs RFQGate, notifier NotifierPort, audit AuditPort) *Service {
	return &Service{repo: repo, rfqs: rfqs, notifier: notifier, audit: audit}
}

// SetMetrics injects the workflow transition counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

func roundTo2(val float64) float64 {
	return float64(int64(val*100+0.5)) / 100
}

func buildLines(reqs []CreateQuotationLineReq) (lineitem.Items, error) {
	items := make(lineitem.Items, 0, len(reqs))
	for i, l := range reqs {
		if l.GoodID == nil && l.Name == "" {
			return nil, fmt.Errorf("%w: line %d needs a good reference or a name", shared.ErrValidation, i+1)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
		}
		if l.Price < 0 {
			return nil, fmt.Errorf("%w: line %d price must not be negative", shared.ErrValidation, i+1)
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
	return items, nil
}

func totalsOf(items lineitem.Items, taxPercent float64) (subtotal, tax, grand float64) {
	subtotal = roundTo2(items.Total())
	tax = roundTo2(subtotal * taxPercent / 100)
	grand = subtotal + tax
	return
}

// Create issues a quotation in the waiting state. When it answers an RFQ,
// that RFQ is frozen to process and the quotation inherits its requester.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, actor shared.Actor) (*Quotation, error) {
	items, err := buildLines(req.Lines)
	if err != nil {
		return nil, err
	}
	subtotal, tax, grand := totalsOf(items, req.TaxPercent)

	requesterID := actor.ID
	if req.RFQID != nil {
		requesterID, err = s.rfqs.RequesterOf(ctx, *req.RFQID)
		if err != nil {
			return nil, fmt.Errorf("resolve rfq %d: %w", *req.RFQID, err)
		}
	}

	record := Quotation{
		RFQID:            req.RFQID,
		RequesterID:      requesterID,
		Lines:            items,
		Subtotal:         subtotal,
		Tax:              tax,
		GrandTotal:       grand,
		NegotiationRound: 0,
		Status:           StatusWaiting,
		CreatedBy:        actor.ID,
	}
	id, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}

	// Freeze after the quotation exists; the conditional write rejects an
	// RFQ that was frozen concurrently.
	if req.RFQID != nil {
		if err := s.rfqs.Freeze(ctx, *req.RFQID, actor); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.QuotationTransition(ctx, *created, "", StatusWaiting, NotifyPrivileged)
	}
	return created, nil
}

// UpdateContent applies a goods/price/terms edit. An edit while the record
// is under negotiation by the non-privileged side implicitly moves it to
// renegotiation, which counts as a status change for notification purposes.
func (s *Service) UpdateContent(ctx context.Context, id int64, req UpdateQuotationRequest, actor shared.Actor) (*Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	decision, err := Decide(Input{
		Current:     existing.Status,
		Kind:        EditContent,
		Privileged:  actor.Role.CanSetStatus(),
		IsRequester: actor.ID == existing.RequesterID,
		CanEdit:     actor.Role.CanEditContent(),
	})
	if err != nil {
		return nil, err
	}

	taxPercent := existingTaxPercent(existing)
	if req.TaxPercent != nil {
		taxPercent = *req.TaxPercent
	}
	if req.Lines != nil {
		existing.Lines, err = buildLines(*req.Lines)
		if err != nil {
			return nil, err
		}
	}
	from := existing.Status
	existing.Subtotal, existing.Tax, existing.GrandTotal = totalsOf(existing.Lines, taxPercent)
	existing.Status = decision.Next

	if err := s.repo.UpdateContent(ctx, *existing, from); err != nil {
		return nil, fmt.Errorf("update quotation: %w", err)
	}

	if from != decision.Next {
		s.recordTransition(ctx, actor.ID, id, from, decision.Next)
		if s.notifier != nil {
			s.notifier.QuotationTransition(ctx, *existing, from, decision.Next, decision.Audience)
		}
	}
	return s.repo.Get(ctx, id)
}

// SetStatus applies a privileged explicit status update.
func (s *Service) SetStatus(ctx context.Context, id int64, req SetStatusRequest, actor shared.Actor) (*Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	decision, err := Decide(Input{
		Current:     existing.Status,
		Kind:        EditStatus,
		Requested:   req.Status,
		Privileged:  actor.Role.CanSetStatus(),
		IsRequester: actor.ID == existing.RequesterID,
		CanEdit:     actor.Role.CanEditContent(),
	})
	if err != nil {
		return nil, err
	}

	from := existing.Status
	if err := s.repo.UpdateStatus(ctx, id, from, decision.Next, decision.RoundDelta); err != nil {
		return nil, fmt.Errorf("set quotation status: %w", err)
	}
	s.recordTransition(ctx, actor.ID, id, from, decision.Next)

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.QuotationTransition(ctx, *updated, from, decision.Next, decision.Audience)
	}
	return updated, nil
}

// Get retrieves a quotation by id.
func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

// List returns quotations matching the filter.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, error) {
	return s.repo.List(ctx, req)
}

// existingTaxPercent recovers the effective tax rate from stored amounts so
// a lines-only edit keeps the rate stable.
func existingTaxPercent(q *Quotation) float64 {
	if q.Subtotal == 0 {
		return 0
	}
	return roundTo2(q.Tax / q.Subtotal * 100)
}

func (s *Service) recordTransition(ctx context.Context, actorID, id int64, from, to Status) {
	s.metrics.RecordTransition("quotation", string(to))
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "status_change",
		Entity:   "quotation",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"from": string(from), "to": string(to)},
	})
}
