package db

import (
	"context"
	"errors"

	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ResumeRepository defines storage operations for resume aggregates.
type ResumeRepository interface {
	// WatchByOwner re-delivers every resume owned by userID whenever that set changes.
	WatchByOwner(ctx context.Context, userID string) (*live.Subscription[[]models.Resume], error)
	// WatchByID delivers the resume, or nil while it does not exist.
	WatchByID(ctx context.Context, id string) (*live.Subscription[*models.Resume], error)
	GetByID(ctx context.Context, id string) (*models.Resume, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Resume, error)
	ListPublic(ctx context.Context) ([]models.Resume, error)
	FindByLegacyID(ctx context.Context, userID, legacyID string) (*models.Resume, error)
	// Upsert writes the whole document keyed by its id.
	Upsert(ctx context.Context, resume *models.Resume) error
	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// UserRepository defines storage operations for user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

// AuditRepository defines storage operations for audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}
