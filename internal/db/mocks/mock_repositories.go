package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/models"
)

type MockResumeRepository struct {
	mock.Mock
}

func (m *MockResumeRepository) WatchByOwner(ctx context.Context, userID string) (*live.Subscription[[]models.Resume], error) {
	args := m.Called(ctx, userID)
	sub, _ := args.Get(0).(*live.Subscription[[]models.Resume])
	return sub, args.Error(1)
}

func (m *MockResumeRepository) WatchByID(ctx context.Context, id string) (*live.Subscription[*models.Resume], error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*live.Subscription[*models.Resume])
	return sub, args.Error(1)
}

func (m *MockResumeRepository) GetByID(ctx context.Context, id string) (*models.Resume, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.Resume)
	return r, args.Error(1)
}

func (m *MockResumeRepository) ListByOwner(ctx context.Context, userID string) ([]models.Resume, error) {
	args := m.Called(ctx, userID)
	r, _ := args.Get(0).([]models.Resume)
	return r, args.Error(1)
}

func (m *MockResumeRepository) ListPublic(ctx context.Context) ([]models.Resume, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]models.Resume)
	return r, args.Error(1)
}

func (m *MockResumeRepository) FindByLegacyID(ctx context.Context, userID, legacyID string) (*models.Resume, error) {
	args := m.Called(ctx, userID, legacyID)
	r, _ := args.Get(0).(*models.Resume)
	return r, args.Error(1)
}

func (m *MockResumeRepository) Upsert(ctx context.Context, resume *models.Resume) error {
	args := m.Called(ctx, resume)
	return args.Error(0)
}

func (m *MockResumeRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockResumeRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockResumeRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).([]models.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
