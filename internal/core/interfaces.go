package core

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/session"
)

// ResumeService defines the resume sync, query and editing operations.
type ResumeService interface {
	// SubscribeByOwner re-delivers the owner's resumes, most recent first, on every change.
	SubscribeByOwner(ctx context.Context, userID string) (*live.Subscription[[]models.Resume], error)
	// SubscribeByID delivers the resume or nil while it does not exist.
	SubscribeByID(ctx context.Context, id string) (*live.Subscription[*models.Resume], error)
	// SubscribeForViewer is SubscribeByID with records the viewer may not read delivered as nil.
	SubscribeForViewer(ctx context.Context, viewer session.Principal, id string) (*live.Subscription[*models.Resume], error)
	// GetByID returns (nil, nil) when the resume does not exist.
	GetByID(ctx context.Context, id string) (*models.Resume, error)
	GetForViewer(ctx context.Context, viewer session.Principal, id string) (*models.Resume, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Resume, error)
	Search(ctx context.Context, term string) ([]models.Resume, error)
	SearchProfiles(ctx context.Context, term string) ([]models.ProfileSummary, error)
	Create(ctx context.Context, owner session.Principal, title string) (*models.Resume, error)
	// Save upserts a copy of resume stamped with the current time and returns it.
	Save(ctx context.Context, resume *models.Resume) (*models.Resume, error)
	// Update saves resume on behalf of actor, keeping the stored owner.
	Update(ctx context.Context, actor session.Principal, resume *models.Resume) (*models.Resume, error)
	Delete(ctx context.Context, id string) error
	Remove(ctx context.Context, actor session.Principal, id string) error
	AddTraining(ctx context.Context, owner session.Principal, resumeID string, entry models.Training) (*models.Resume, error)
	UpdateTraining(ctx context.Context, owner session.Principal, resumeID, trainingID string, entry models.Training) (*models.Resume, error)
	DeleteTraining(ctx context.Context, owner session.Principal, resumeID, trainingID string) (*models.Resume, error)
	Feed(ctx context.Context, owner session.Principal) ([]models.FeedItem, error)
}

// UserService defines user profile operations.
type UserService interface {
	// GetOrCreate returns the profile, creating it on first sign-in. The bool reports creation.
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// LookupProfile is GetByID served through the profile cache.
	LookupProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
}

// AdminService defines the administrative user operations.
type AdminService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserStatus(ctx context.Context, actor session.Principal, userID string, active bool) (*models.User, error)
	SetUserRole(ctx context.Context, actor session.Principal, userID, role string) (*models.User, error)
	DeleteUser(ctx context.Context, actor session.Principal, userID string) error
	Stats(ctx context.Context) (*Stats, error)
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}

// MigrationService imports resumes from the legacy local store.
type MigrationService interface {
	ImportLocalResumes(ctx context.Context, source LegacySource, account session.Principal) (*ImportResult, error)
}

// IdentityAdmin is the subset of the Firebase Auth admin client used by this package.
// *auth.Client satisfies it.
type IdentityAdmin interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
	DeleteUser(ctx context.Context, uid string) error
}

// Stats summarizes the stored data for the admin dashboard.
type Stats struct {
	TotalUsers   int `json:"totalUsers"`
	TotalResumes int `json:"totalResumes"`
}
