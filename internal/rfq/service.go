package rfq

import (
	"context"
	"fmt"

	"github.com/rgi-trading/procure/internal/lineitem"
	"github.com/rgi-trading/procure/internal/observability"
	"github.com/rgi-trading/procure/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, record RFQ) (int64, error)
	Get(ctx context.Context, id int64) (*RFQ, error)
	Update(ctx context.Context, record RFQ) error
	UpdateStatus(ctx context.Context, id int64, from, next Status) error
	List(ctx context.Context, req ListRFQsRequest) ([]RFQ, error)
}

// AuditPort records workflow mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the RFQ lifecycle gate.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics *observability.Metrics
}

// NewService constructs an RFQ service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// SetMetrics injects the workflow transition counters.
func (s *Service) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

func linesFromRequests(reqs []CreateRFQLineReq) lineitem.Items {
	items := make(lineitem.Items, 0, len(reqs))
	for _, l := range reqs {
		items = append(items, lineitem.Item{
			GoodID:      l.GoodID,
			Name:        l.Name,
			Description: l.Description,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
		})
	}
	return items
}

// Create opens a new RFQ for the acting requester.
func (s *Service) Create(ctx context.Context, req CreateRFQRequest, actor shared.Actor) (*RFQ, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line item required", shared.ErrValidation)
	}
	for i, l := range req.Lines {
		if l.GoodID == nil && l.Name == "" {
			return nil, fmt.Errorf("%w: line %d needs a good reference or a name", shared.ErrValidation, i+1)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
		}
	}

	record := RFQ{
		RequesterID:   actor.ID,
		CompanyName:   req.CompanyName,
		ContactName:   req.ContactName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Lines:         linesFromRequests(req.Lines),
		Status:        StatusOpen,
		AttachmentURL: req.AttachmentURL,
	}
	id, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create rfq: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update edits an open RFQ. Frozen RFQs reject all edits; open RFQs accept
// edits only from the requester or a content-privileged role.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRFQRequest, actor shared.Actor) (*RFQ, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get rfq: %w", err)
	}
	if !existing.Status.Editable() {
		return nil, fmt.Errorf("%w: rfq is %s", shared.ErrInvalidTransition, existing.Status)
	}
	if actor.ID != existing.RequesterID && !actor.Role.CanEditContent() {
		return nil, fmt.Errorf("%w: only the requester or an admin may edit this rfq", shared.ErrPermissionDenied)
	}

	if req.CompanyName != nil {
		existing.CompanyName = *req.CompanyName
	}
	if req.ContactName != nil {
		existing.ContactName = *req.ContactName
	}
	if req.ContactEmail != nil {
		existing.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		existing.ContactPhone = *req.ContactPhone
	}
	if req.AttachmentURL != nil {
		existing.AttachmentURL = req.AttachmentURL
	}
	if req.Lines != nil {
		for i, l := range *req.Lines {
			if l.Quantity <= 0 {
				return nil, fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
			}
		}
		existing.Lines = linesFromRequests(*req.Lines)
	}

	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, fmt.Errorf("update rfq: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Freeze moves an open RFQ to process when a quotation is created against
// it. There is no user-driven path back to open.
func (s *Service) Freeze(ctx context.Context, id int64, actor shared.Actor) error {
	if err := s.repo.UpdateStatus(ctx, id, StatusOpen, StatusProcess); err != nil {
		return fmt.Errorf("freeze rfq %d: %w", id, err)
	}
	s.recordTransition(ctx, actor.ID, id, StatusOpen, StatusProcess)
	return nil
}

// Get retrieves an RFQ by id.
func (s *Service) Get(ctx context.Context, id int64) (*RFQ, error) {
	return s.repo.Get(ctx, id)
}

// RequesterOf resolves the requester behind an RFQ. Documents derived from
// the RFQ inherit this identity.
func (s *Service) RequesterOf(ctx context.Context, id int64) (int64, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return record.RequesterID, nil
}

// List returns RFQs matching the filter.
func (s *Service) List(ctx context.Context, req ListRFQsRequest) ([]RFQ, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordTransition(ctx context.Context, actorID, id int64, from, to Status) {
	s.metrics.RecordTransition("rfq", string(to))
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "status_change",
		Entity:   "rfq",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"from": string(from), "to": string(to)},
	})
}
