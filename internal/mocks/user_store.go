package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// UserStore is a testify mock of store.UserStore.
type UserStore struct {
	mock.Mock
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.
func (m *UserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID implements store.UserStore.
func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.User); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetByEmail implements store.UserStore.
func (m *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if v, ok := args.Get(0).(*domain.User); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// Update implements store.UserStore.
func (m *UserStore) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// UpdateRole implements store.UserStore.
func (m *UserStore) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

// List implements store.UserStore.
func (m *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]*domain.User); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete implements store.UserStore.
func (m *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// WithTx returns the mock itself so expectations cover transactional calls.
func (m *UserStore) WithTx(*sql.Tx) store.UserStore {
	return m
}
