package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/cache"
	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/models"
)

// minPasswordLength is the shortest password Firebase Auth accepts.
const minPasswordLength = 6

// profileCacheKey namespaces cached profiles so other cache users cannot collide with them.
func profileCacheKey(userID string) string {
	return "user:" + userID
}

// userService implements the UserService interface.
type userService struct {
	userRepo  db.UserRepository
	identity  IdentityAdmin
	cache     cache.Cache
	cacheTTL  time.Duration
	validator *ResumeValidator
	logger    *zap.Logger
}

// NewUserService creates a new UserService instance. identity may be nil when
// registration is not offered.
func NewUserService(
	userRepo db.UserRepository,
	identity IdentityAdmin,
	c cache.Cache,
	cacheTTL time.Duration,
	v *ResumeValidator,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:  userRepo,
		identity:  identity,
		cache:     c,
		cacheTTL:  cacheTTL,
		validator: v,
		logger:    logger,
	}
}

// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one
// with the user role, active status and the email, display name and photo taken
// from the ID token.
// Returns the user, a boolean indicating if the user was created, and an error if any.
func (s *userService) GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}

	name := displayName
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	now := time.Now().UTC()
	newUser := &models.User{
		ID:        userID,
		Name:      name,
		Email:     email,
		Role:      models.RoleUser,
		IsActive:  true,
		Avatar:    photoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, false, fmt.Errorf("failed to create user (id: %s) after not found: %w", userID, err)
	}
	s.logger.Info("Created user profile on first sign-in", zap.String("userId", userID))
	return newUser, true, nil
}

// GetByID retrieves a user by their ID.
// It returns ErrUserNotFound if the profile document does not exist.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}

// LookupProfile serves GetByID through the profile cache.
// It is used for best-effort enrichment (owner avatars in search results and
// exports). Cache read and write failures are logged and fall through to the
// repository; they never fail the lookup.
func (s *userService) LookupProfile(ctx context.Context, userID string) (*models.User, error) {
	key := profileCacheKey(userID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var u models.User
		if jsonErr := json.Unmarshal([]byte(cached), &u); jsonErr == nil {
			return &u, nil
		}
		s.logger.Warn("Discarding unreadable cached profile", zap.String("key", key))
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, key, string(payload), s.cacheTTL)
	}
	return user, nil
}

// invalidate drops the cached profile after a write.
func (s *userService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, profileCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate cached profile", zap.String("userId", userID), zap.Error(err))
	}
}

// UpdateProfile changes the display name and avatar.
// Only fields present in req are changed. The avatar is subject to the same
// embedded image limit as training images and returns ErrImageTooLarge above it.
// The cached profile is invalidated after a successful write.
func (s *userService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ValidationErrors{{Field: "name", Message: "field is required"}}
		}
		user.Name = name
	}
	if req.Avatar != nil {
		if err := s.validator.CheckImage(*req.Avatar); err != nil {
			return nil, fmt.Errorf("avatar: %w", err)
		}
		user.Avatar = *req.Avatar
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user '%s': %w", userID, err)
	}
	s.invalidate(ctx, userID)
	return user, nil
}

// Register creates the Firebase Auth account and its profile document.
// Failures are reported as *AuthError carrying a message key.
func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if s.identity == nil {
		return nil, &AuthError{Code: AuthUnknown, Err: errors.New("identity provider not configured")}
	}
	email := strings.TrimSpace(req.Email)
	if !s.validator.validEmail(email) {
		return nil, &AuthError{Code: AuthInvalidEmail}
	}
	if len(req.Password) < minPasswordLength {
		return nil, &AuthError{Code: AuthWeakPassword}
	}
	name := strings.TrimSpace(req.Name)

	params := (&auth.UserToCreate{}).Email(email).Password(req.Password)
	if name != "" {
		params = params.DisplayName(name)
	}
	record, err := s.identity.CreateUser(ctx, params)
	if err != nil {
		return nil, &AuthError{Code: authErrorCode(err), Err: err}
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        record.UID,
		Name:      name,
		Email:     email,
		Role:      models.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if delErr := s.identity.DeleteUser(ctx, record.UID); delErr != nil {
			s.logger.Error("Failed to roll back auth account after profile creation failed",
				zap.String("userId", record.UID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create profile for '%s': %w", record.UID, err)
	}
	return user, nil
}

// authErrorCode maps Firebase Auth errors to the message keys shown by the client.
func authErrorCode(err error) string {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return AuthEmailExists
	case auth.IsUserNotFound(err):
		return AuthUserNotFound
	default:
		return AuthUnknown
	}
}
