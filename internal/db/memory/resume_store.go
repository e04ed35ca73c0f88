// Package memory holds process-local implementations of the db repositories.
// Listings follow insertion order, which stands in for the hosted store's natural order.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/models"
)

// ResumeStore is an in-memory db.ResumeRepository with live listeners.
type ResumeStore struct {
	mu       sync.RWMutex
	resumes  map[string]*models.Resume
	order    []string
	watchers map[int]chan struct{}
	nextID   int
}

var _ db.ResumeRepository = (*ResumeStore)(nil)

// NewResumeStore creates an empty store.
func NewResumeStore() *ResumeStore {
	return &ResumeStore{
		resumes:  make(map[string]*models.Resume),
		watchers: make(map[int]chan struct{}),
	}
}

// watch registers a change listener. The channel holds at most one pending
// wake-up; listeners always re-read the latest state.
func (s *ResumeStore) watch() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch
	return ch, func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// notifyLocked must be called with s.mu held.
func (s *ResumeStore) notifyLocked() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners reports the number of registered listeners.
func (s *ResumeStore) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

func (s *ResumeStore) filter(keep func(*models.Resume) bool) []models.Resume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Resume, 0)
	for _, id := range s.order {
		if r := s.resumes[id]; keep(r) {
			out = append(out, *r.Clone())
		}
	}
	return out
}

func (s *ResumeStore) get(id string) *models.Resume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resumes[id].Clone()
}

// WatchByOwner delivers the owner's resumes now and after every change to that set.
func (s *ResumeStore) WatchByOwner(ctx context.Context, userID string) (*live.Subscription[[]models.Resume], error) {
	byOwner := func(r *models.Resume) bool { return r.UserID == userID }
	return startWatch(ctx, s, func() []models.Resume { return s.filter(byOwner) }), nil
}

// WatchByID delivers the resume now and after every change to it; nil while absent.
func (s *ResumeStore) WatchByID(ctx context.Context, id string) (*live.Subscription[*models.Resume], error) {
	return startWatch(ctx, s, func() *models.Resume { return s.get(id) }), nil
}

func startWatch[T any](ctx context.Context, s *ResumeStore, read func() T) *live.Subscription[T] {
	return live.Start(ctx, func(ctx context.Context, emit func(T) bool) error {
		changed, stop := s.watch()
		defer stop()

		current := read()
		if !emit(current) {
			return nil
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
			}
			next := read()
			if reflect.DeepEqual(next, current) {
				continue
			}
			current = next
			if !emit(current) {
				return nil
			}
		}
	})
}

// GetByID returns a copy of the stored resume.
func (s *ResumeStore) GetByID(_ context.Context, id string) (*models.Resume, error) {
	r := s.get(id)
	if r == nil {
		return nil, fmt.Errorf("resume with ID '%s' not found: %w", id, db.ErrNotFound)
	}
	return r, nil
}

// ListByOwner returns the owner's resumes in insertion order.
func (s *ResumeStore) ListByOwner(_ context.Context, userID string) ([]models.Resume, error) {
	return s.filter(func(r *models.Resume) bool { return r.UserID == userID }), nil
}

// ListPublic returns every public resume in insertion order.
func (s *ResumeStore) ListPublic(_ context.Context) ([]models.Resume, error) {
	return s.filter(func(r *models.Resume) bool { return r.IsPublic }), nil
}

// FindByLegacyID returns the resume imported for userID from legacyID.
func (s *ResumeStore) FindByLegacyID(_ context.Context, userID, legacyID string) (*models.Resume, error) {
	found := s.filter(func(r *models.Resume) bool { return r.UserID == userID && r.LegacyID == legacyID })
	if len(found) == 0 {
		return nil, fmt.Errorf("resume imported from '%s' not found: %w", legacyID, db.ErrNotFound)
	}
	return &found[0], nil
}

// Upsert stores a copy of resume, replacing any previous version.
func (s *ResumeStore) Upsert(_ context.Context, resume *models.Resume) error {
	if resume.ID == "" {
		return fmt.Errorf("resume ID cannot be empty for Upsert operation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resumes[resume.ID]; !ok {
		s.order = append(s.order, resume.ID)
	}
	s.resumes[resume.ID] = resume.Clone()
	s.notifyLocked()
	return nil
}

// Delete removes the resume if present.
func (s *ResumeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resumes[id]; !ok {
		return nil
	}
	delete(s.resumes, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.notifyLocked()
	return nil
}

// Exists reports whether id is stored.
func (s *ResumeStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.resumes[id]
	return ok, nil
}

// Count returns the number of stored resumes.
func (s *ResumeStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resumes), nil
}
