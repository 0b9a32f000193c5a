package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wappanel/wappanel/tenants/domain"
)

type stubTenantRepo struct {
	tenants map[string]*domain.Tenant
	calls   int
}

func (s *stubTenantRepo) Create(ctx context.Context, t *domain.Tenant) error { return nil }
func (s *stubTenantRepo) Update(ctx context.Context, t *domain.Tenant) error { return nil }
func (s *stubTenantRepo) Delete(ctx context.Context, id string) error        { return nil }
func (s *stubTenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) { return nil, nil }
func (s *stubTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}
func (s *stubTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	s.calls++
	if t, ok := s.tenants[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func TestClientCache_MissLoadsFromStore(t *testing.T) {
	repo := &stubTenantRepo{tenants: map[string]*domain.Tenant{
		"t1": {ID: "t1", Name: "Acme", Enabled: true},
	}}
	cache := NewClientCache(repo, 10, time.Minute, 0)
	defer cache.Stop()

	s, err := cache.GetSummary(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", s.Name)
	assert.Equal(t, 1, repo.calls)

	// Second read is served from cache.
	_, err = cache.GetSummary(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestClientCache_ExpiredEntryFallsThrough(t *testing.T) {
	repo := &stubTenantRepo{tenants: map[string]*domain.Tenant{
		"t1": {ID: "t1", Name: "Acme"},
	}}
	cache := NewClientCache(repo, 10, 10*time.Millisecond, 0)
	defer cache.Stop()

	_, err := cache.GetSummary(context.Background(), "t1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = cache.GetSummary(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestClientCache_UnknownTenantReturnsError(t *testing.T) {
	cache := NewClientCache(&stubTenantRepo{tenants: map[string]*domain.Tenant{}}, 10, time.Minute, 0)
	defer cache.Stop()

	_, err := cache.GetSummary(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestClientCache_AggressivePurgeAtCapacityPressure(t *testing.T) {
	repo := &stubTenantRepo{tenants: map[string]*domain.Tenant{}}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("t%d", i)
		repo.tenants[id] = &domain.Tenant{ID: id, Name: id}
	}

	cache := NewClientCache(repo, 10, time.Minute, 0)
	defer cache.Stop()

	for i := 0; i < 20; i++ {
		_, err := cache.GetSummary(context.Background(), fmt.Sprintf("t%d", i))
		require.NoError(t, err)
	}

	// The purge keeps occupancy strictly below capacity.
	assert.Less(t, cache.Size(), 10)
}
