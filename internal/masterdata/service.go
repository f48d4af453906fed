package masterdata

import (
	"context"
	"fmt"

	"github.com/rgi-trading/procure/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	CreateClient(ctx context.Context, c Client) (int64, error)
	GetClient(ctx context.Context, id int64) (*Client, error)
	UpdateClient(ctx context.Context, id int64, c Client) error
	ListClients(ctx context.Context, f ListFilter) ([]Client, error)

	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
	GetSupplier(ctx context.Context, id int64) (*Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, s Supplier) error
	ListSuppliers(ctx context.Context, f ListFilter) ([]Supplier, error)

	CreateGood(ctx context.Context, g Good) (int64, error)
	GetGood(ctx context.Context, id int64) (*Good, error)
	UpdateGood(ctx context.Context, id int64, g Good) error
	ListGoods(ctx context.Context, f ListFilter) ([]Good, error)
}

// Service exposes registry CRUD. Writes require the admin tier.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a masterdata service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func requireEditor(actor shared.Actor) error {
	if !actor.Role.CanEditContent() {
		return fmt.Errorf("%w: registry writes require the admin tier", shared.ErrPermissionDenied)
	}
	return nil
}

// CreateClient registers a client.
func (s *Service) CreateClient(ctx context.Context, req UpsertClientRequest, actor shared.Actor) (*Client, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateClient(ctx, Client{
		Code: req.Code, Name: req.Name, Address: req.Address,
		Email: req.Email, Phone: req.Phone, DocumentURL: req.DocumentURL,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetClient(ctx, id)
}

// UpdateClient rewrites a client.
func (s *Service) UpdateClient(ctx context.Context, id int64, req UpsertClientRequest, actor shared.Actor) (*Client, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	err := s.repo.UpdateClient(ctx, id, Client{
		Code: req.Code, Name: req.Name, Address: req.Address,
		Email: req.Email, Phone: req.Phone, DocumentURL: req.DocumentURL,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetClient(ctx, id)
}

// GetClient retrieves a client by id.
func (s *Service) GetClient(ctx context.Context, id int64) (*Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients returns clients matching the filter.
func (s *Service) ListClients(ctx context.Context, f ListFilter) ([]Client, error) {
	return s.repo.ListClients(ctx, f)
}

// BillingInfo resolves billing details for invoice derivation.
func (s *Service) BillingInfo(ctx context.Context, clientID int64) (string, string, error) {
	c, err := s.repo.GetClient(ctx, clientID)
	if err != nil {
		return "", "", err
	}
	return c.Name, c.Address, nil
}

// CreateSupplier registers a supplier.
func (s *Service) CreateSupplier(ctx context.Context, req UpsertSupplierRequest, actor shared.Actor) (*Supplier, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateSupplier(ctx, Supplier{
		Code: req.Code, Name: req.Name, Address: req.Address,
		Email: req.Email, Phone: req.Phone, DocumentURL: req.DocumentURL,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetSupplier(ctx, id)
}

// UpdateSupplier rewrites a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, req UpsertSupplierRequest, actor shared.Actor) (*Supplier, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	err := s.repo.UpdateSupplier(ctx, id, Supplier{
		Code: req.Code, Name: req.Name, Address: req.Address,
		Email: req.Email, Phone: req.Phone, DocumentURL: req.DocumentURL,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetSupplier(ctx, id)
}

// GetSupplier retrieves a supplier by id.
func (s *Service) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// ListSuppliers returns suppliers matching the filter.
func (s *Service) ListSuppliers(ctx context.Context, f ListFilter) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, f)
}

// CreateGood registers a catalogue entry.
func (s *Service) CreateGood(ctx context.Context, req UpsertGoodRequest, actor shared.Actor) (*Good, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateGood(ctx, Good{
		Code: req.Code, Name: req.Name, Description: req.Description,
		Unit: req.Unit, Price: req.Price,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetGood(ctx, id)
}

// UpdateGood rewrites a catalogue entry.
func (s *Service) UpdateGood(ctx context.Context, id int64, req UpsertGoodRequest, actor shared.Actor) (*Good, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	err := s.repo.UpdateGood(ctx, id, Good{
		Code: req.Code, Name: req.Name, Description: req.Description,
		Unit: req.Unit, Price: req.Price,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetGood(ctx, id)
}

// GetGood retrieves a catalogue entry by id.
func (s *Service) GetGood(ctx context.Context, id int64) (*Good, error) {
	return s.repo.GetGood(ctx, id)
}

// ListGoods returns catalogue entries matching the filter.
func (s *Service) ListGoods(ctx context.Context, f ListFilter) ([]Good, error) {
	return s.repo.ListGoods(ctx, f)
}
