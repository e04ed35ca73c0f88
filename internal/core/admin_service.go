package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/cache"
	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/session"
)

// adminService implements the AdminService interface.
type adminService struct {
	userRepo     db.UserRepository
	resumeRepo   db.ResumeRepository
	identity     IdentityAdmin
	auditService AuditService
	cache        cache.Cache
	logger       *zap.Logger
}

// NewAdminService creates a new AdminService instance. identity may be nil, in
// which case only the profile documents are changed.
func NewAdminService(
	ur db.UserRepository,
	rr db.ResumeRepository,
	identity IdentityAdmin,
	as AuditService,
	c cache.Cache,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		userRepo:     ur,
		resumeRepo:   rr,
		identity:     identity,
		auditService: as,
		cache:        c,
		logger:       logger,
	}
}

// ListUsers returns every user profile for the admin dashboard.
func (s *adminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// target loads the user an admin operation applies to, mapping absence to ErrUserNotFound.
func (s *adminService) target(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}
	return user, nil
}

// SetUserStatus activates or disables an account. The Firebase Auth account is
// disabled alongside the profile so existing sessions cannot refresh.
func (s *adminService) SetUserStatus(ctx context.Context, actor session.Principal, userID string, active bool) (*models.User, error) {
	if actor.UserID == userID {
		return nil, ErrCannotModifySelf
	}
	user, err := s.target(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update status of user '%s': %w", userID, err)
	}
	if s.identity != nil {
		if _, err := s.identity.UpdateUser(ctx, userID, (&auth.UserToUpdate{}).Disabled(!active)); err != nil {
			s.logger.Warn("Failed to sync disabled flag to auth account", zap.String("userId", userID), zap.Error(err))
		}
	}
	s.forget(ctx, userID)
	s.audit(ctx, actor, models.ActionUserStatus, userID, map[string]interface{}{"isActive": active})
	return user, nil
}

// SetUserRole changes the role on the profile and in the token claims.
// The "role" custom claim takes effect for the user at their next token refresh.
// The change is audited.
func (s *adminService) SetUserRole(ctx context.Context, actor session.Principal, userID, role string) (*models.User, error) {
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, ValidationErrors{{Field: "role", Message: "must be one of: admin user"}}
	}
	user, err := s.target(ctx, userID)
	if err != nil {
		return nil, err
	}

	previous := user.Role
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update role of user '%s': %w", userID, err)
	}
	if s.identity != nil {
		if err := s.identity.SetCustomUserClaims(ctx, userID, map[string]interface{}{"role": role}); err != nil {
			s.logger.Warn("Failed to set role claim", zap.String("userId", userID), zap.Error(err))
		}
	}
	s.forget(ctx, userID)
	s.audit(ctx, actor, models.ActionUserRole, userID, map[string]interface{}{"from": previous, "to": role})
	return user, nil
}

// DeleteUser removes the profile and the auth account.
// Admin accounts cannot be deleted (ErrCannotDeleteAdmin). The user's resumes
// are left in place. The deletion is audited and the cached profile dropped.
func (s *adminService) DeleteUser(ctx context.Context, actor session.Principal, userID string) error {
	user, err := s.target(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return ErrCannotDeleteAdmin
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user '%s': %w", userID, err)
	}
	if s.identity != nil {
		if err := s.identity.DeleteUser(ctx, userID); err != nil && !auth.IsUserNotFound(err) {
			s.logger.Warn("Failed to delete auth account", zap.String("userId", userID), zap.Error(err))
		}
	}
	s.forget(ctx, userID)
	s.audit(ctx, actor, models.ActionUserDelete, userID, map[string]interface{}{"email": user.Email})
	return nil
}

// Stats counts users and resumes for the admin dashboard.
func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	resumes, err := s.resumeRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count resumes: %w", err)
	}
	return &Stats{TotalUsers: users, TotalResumes: resumes}, nil
}

func (s *adminService) forget(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, profileCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate cached profile", zap.String("userId", userID), zap.Error(err))
	}
}

// audit records an admin action. A failed write is logged, not returned:
// the change it describes has already been applied.
func (s *adminService) audit(ctx context.Context, actor session.Principal, action, userID string, details map[string]interface{}) {
	entry := models.AuditLog{
		UserID:     actor.UserID,
		Action:     action,
		TargetType: "USER",
		TargetID:   userID,
		Timestamp:  time.Now().UTC(),
		Details:    details,
	}
	if err := s.auditService.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("Failed to create audit log", zap.String("action", action), zap.String("targetId", userID), zap.Error(err))
	}
}
