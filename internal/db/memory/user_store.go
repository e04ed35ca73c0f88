package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/models"
)

// UserStore is an in-memory db.UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

var _ db.UserRepository = (*UserStore)(nil)

// NewUserStore creates a store seeded with users.
func NewUserStore(users ...models.User) *UserStore {
	s := &UserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *UserStore) GetByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, db.ErrNotFound)
	}
	return &u, nil
}

// List returns users ordered by id.
func (s *UserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user with ID '%s' already exists", user.ID)
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

func (s *UserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// AuditStore is an in-memory db.AuditRepository.
type AuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

var _ db.AuditRepository = (*AuditStore)(nil)

// NewAuditStore creates an empty audit log.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Create(_ context.Context, logEntry models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, logEntry)
	return nil
}

// Entries returns a copy of the recorded entries.
func (s *AuditStore) Entries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.entries...)
}
