package masterdata

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgi-trading/procure/internal/shared"
)

type mockRegistryRepo struct {
	nextID  int64
	clients map[int64]*Client
	codes   map[string]bool
}

func newMockRegistryRepo() *mockRegistryRepo {
	return &mockRegistryRepo{clients: map[int64]*Client{}, codes: map[string]bool{}}
}

func (m *mockRegistryRepo) CreateClient(_ context.Context, c Client) (int64, error) {
	if m.codes[c.Code] {
		return 0, shared.ErrAlreadyExists
	}
	m.nextID++
	c.ID = m.nextID
	m.clients[c.ID] = &c
	m.codes[c.Code] = true
	return c.ID, nil
}

func (m *mockRegistryRepo) GetClient(_ context.Context, id int64) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRegistryRepo) UpdateClient(_ context.Context, id int64, c Client) error {
	existing, ok := m.clients[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.ID = id
	c.CreatedAt = existing.CreatedAt
	m.clients[id] = &c
	return nil
}

func (m *mockRegistryRepo) ListClients(_ context.Context, f ListFilter) ([]Client, error) {
	var out []Client
	for _, c := range m.clients {
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockRegistryRepo) CreateSupplier(context.Context, Supplier) (int64, error) { return 0, nil }
func (m *mockRegistryRepo) GetSupplier(context.Context, int64) (*Supplier, error) {
	return nil, shared.ErrNotFound
}
func (m *mockRegistryRepo) UpdateSupplier(context.Context, int64, Supplier) error { return nil }
func (m *mockRegistryRepo) ListSuppliers(context.Context, ListFilter) ([]Supplier, error) {
	return nil, nil
}
func (m *mockRegistryRepo) CreateGood(context.Context, Good) (int64, error) { return 0, nil }
func (m *mockRegistryRepo) GetGood(context.Context, int64) (*Good, error) {
	return nil, shared.ErrNotFound
}
func (m *mockRegistryRepo) UpdateGood(context.Context, int64, Good) error          { return nil }
func (m *mockRegistryRepo) ListGoods(context.Context, ListFilter) ([]Good, error)  { return nil, nil }

var (
	registryAdmin    = shared.Actor{ID: 1, Role: shared.RoleAdmin}
	registryEmployee = shared.Actor{ID: 2, Role: shared.RoleEmployee}
)

func TestCreateClientRequiresAdminTier(t *testing.T) {
	svc := NewService(newMockRegistryRepo())

	_, err := svc.CreateClient(context.Background(), UpsertClientRequest{Code: "C1", Name: "PT Mitra"}, registryEmployee)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	created, err := svc.CreateClient(context.Background(), UpsertClientRequest{Code: "C1", Name: "PT Mitra"}, registryAdmin)
	require.NoError(t, err)
	assert.Equal(t, "PT Mitra", created.Name)
}

func TestCreateClientRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMockRegistryRepo())

	_, err := svc.CreateClient(context.Background(), UpsertClientRequest{Code: "C1", Name: "PT Mitra"}, registryAdmin)
	require.NoError(t, err)

	_, err = svc.CreateClient(context.Background(), UpsertClientRequest{Code: "C1", Name: "PT Lain"}, registryAdmin)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestBillingInfo(t *testing.T) {
	svc := NewService(newMockRegistryRepo())
	created, err := svc.CreateClient(context.Background(), UpsertClientRequest{
		Code: "C1", Name: "PT Mitra", Address: "Jl. Merdeka 1",
	}, registryAdmin)
	require.NoError(t, err)

	name, address, err := svc.BillingInfo(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "PT Mitra", name)
	assert.Equal(t, "Jl. Merdeka 1", address)

	_, _, err = svc.BillingInfo(context.Background(), 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
