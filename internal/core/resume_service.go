package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/session"
)

// resumeService implements the ResumeService interface.
type resumeService struct {
	resumeRepo  db.ResumeRepository
	userService UserService
	validator   *ResumeValidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewResumeService creates a new ResumeService instance. users is used to attach
// avatars to profile search results and may be nil.
func NewResumeService(rr db.ResumeRepository, users UserService, v *ResumeValidator, logger *zap.Logger) ResumeService {
	return &resumeService{
		resumeRepo:  rr,
		userService: users,
		validator:   v,
		logger:      logger,
		now:         time.Now,
	}
}

// sortByRecency orders resumes most recently updated first. Equal timestamps fall back to id.
func sortByRecency(resumes []models.Resume) {
	sort.SliceStable(resumes, func(i, j int) bool {
		a, b := resumes[i].UpdatedAt, resumes[j].UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return resumes[i].ID < resumes[j].ID
	})
}

func prepareList(resumes []models.Resume) []models.Resume {
	if resumes == nil {
		resumes = []models.Resume{}
	}
	for i := range resumes {
		resumes[i].BackfillTrainingIDs()
	}
	sortByRecency(resumes)
	return resumes
}

func prepareOne(r *models.Resume) *models.Resume {
	if r != nil {
		r.BackfillTrainingIDs()
	}
	return r
}

// canRead reports whether viewer may see r. Owners and admins see everything, others only public resumes.
func canRead(viewer session.Principal, r *models.Resume) bool {
	return r.IsPublic || r.UserID == viewer.UserID || viewer.IsAdmin()
}

func (s *resumeService) SubscribeByOwner(ctx context.Context, userID string) (*live.Subscription[[]models.Resume], error) {
	sub, err := s.resumeRepo.WatchByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to watch resumes of user '%s': %w", userID, err)
	}
	return live.Map(sub, prepareList), nil
}

func (s *resumeService) SubscribeByID(ctx context.Context, id string) (*live.Subscription[*models.Resume], error) {
	sub, err := s.resumeRepo.WatchByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to watch resume '%s': %w", id, err)
	}
	return live.Map(sub, prepareOne), nil
}

func (s *resumeService) SubscribeForViewer(ctx context.Context, viewer session.Principal, id string) (*live.Subscription[*models.Resume], error) {
	sub, err := s.SubscribeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return live.Map(sub, func(r *models.Resume) *models.Resume {
		if r == nil || !canRead(viewer, r) {
			return nil
		}
		return r
	}), nil
}

// GetByID retrieves a resume. An absent resume is not an error.
func (s *resumeService) GetByID(ctx context.Context, id string) (*models.Resume, error) {
	r, err := s.resumeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume '%s' from repository: %w", id, err)
	}
	return prepareOne(r), nil
}

// GetForViewer returns the resume if viewer may read it.
func (s *resumeService) GetForViewer(ctx context.Context, viewer session.Principal, id string) (*models.Resume, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: resume with ID '%s'", ErrResumeNotFound, id)
	}
	if !canRead(viewer, r) {
		return nil, fmt.Errorf("%w: user '%s' cannot read resume '%s'", ErrForbiddenAccess, viewer.UserID, id)
	}
	return r, nil
}

func (s *resumeService) ListByOwner(ctx context.Context, userID string) ([]models.Resume, error) {
	resumes, err := s.resumeRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes of user '%s': %w", userID, err)
	}
	return prepareList(resumes), nil
}

// Search matches public resumes whose full name, title, email or any skill
// contains term, ignoring case. A blank term matches nothing and reads nothing.
func (s *resumeService) Search(ctx context.Context, term string) ([]models.Resume, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return []models.Resume{}, nil
	}

	public, err := s.resumeRepo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list public resumes: %w", err)
	}

	matches := []models.Resume{}
	for _, r := range public {
		if !r.IsPublic {
			continue
		}
		if matchesTerm(r, needle) {
			r.BackfillTrainingIDs()
			matches = append(matches, r)
		}
	}
	return matches, nil
}

func matchesTerm(r models.Resume, needle string) bool {
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), needle) }
	if contains(r.PersonalInfo.FullName) || contains(r.Title) || contains(r.PersonalInfo.Email) {
		return true
	}
	for _, skill := range r.Skills {
		if contains(skill) {
			return true
		}
	}
	return false
}

// SearchProfiles runs Search and joins every hit with its owner's avatar.
// Owner lookups are best-effort.
func (s *resumeService) SearchProfiles(ctx context.Context, term string) ([]models.ProfileSummary, error) {
	resumes, err := s.Search(ctx, term)
	if err != nil {
		return nil, err
	}

	owners := make(map[string]*models.User)
	profiles := make([]models.ProfileSummary, 0, len(resumes))
	for _, r := range resumes {
		owner, seen := owners[r.UserID]
		if !seen && s.userService != nil {
			u, lookupErr := s.userService.LookupProfile(ctx, r.UserID)
			if lookupErr != nil {
				s.logger.Warn("Owner lookup failed, returning profile without avatar",
					zap.String("resumeId", r.ID), zap.String("userId", r.UserID), zap.Error(lookupErr))
			}
			owner = u
			owners[r.UserID] = u
		}
		profiles = append(profiles, models.NewProfileSummary(r, owner))
	}
	return profiles, nil
}

// Create stores a blank resume for owner.
func (s *resumeService) Create(ctx context.Context, owner session.Principal, title string) (*models.Resume, error) {
	fullName := owner.Name
	if fullName == "" {
		fullName = owner.Email
	}
	return s.Save(ctx, models.NewResume(owner.UserID, title, fullName, owner.Email))
}

// Save validates and upserts a copy of resume. The caller's value is left unchanged.
func (s *resumeService) Save(ctx context.Context, resume *models.Resume) (*models.Resume, error) {
	if resume == nil {
		return nil, ValidationErrors{{Field: "resume", Message: "field is required"}}
	}
	if resume.ID == "" {
		return nil, ValidationErrors{{Field: "id", Message: "field is required"}}
	}

	stored := resume.Clone()
	stored.BackfillTrainingIDs()
	if err := s.validator.Validate(stored); err != nil {
		return nil, err
	}
	stored.UpdatedAt = s.stamp()

	if err := s.resumeRepo.Upsert(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save resume '%s': %w", stored.ID, err)
	}
	return stored.Clone(), nil
}

// stamp returns the current time rounded up to the microsecond so the stored
// value never precedes the moment of the call.
func (s *resumeService) stamp() time.Time {
	t := s.now().UTC()
	r := t.Truncate(time.Microsecond)
	if r.Before(t) {
		r = r.Add(time.Microsecond)
	}
	return r
}

// Update saves resume on behalf of actor. Existing resumes keep their owner;
// new ones are assigned to actor.
func (s *resumeService) Update(ctx context.Context, actor session.Principal, resume *models.Resume) (*models.Resume, error) {
	if resume == nil {
		return nil, ValidationErrors{{Field: "resume", Message: "field is required"}}
	}
	existing, err := s.GetByID(ctx, resume.ID)
	if err != nil {
		return nil, err
	}

	toSave := resume.Clone()
	if existing == nil {
		toSave.UserID = actor.UserID
		return s.Save(ctx, toSave)
	}
	if existing.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: user '%s' is not owner of resume '%s'", ErrForbiddenAccess, actor.UserID, resume.ID)
	}
	toSave.UserID = existing.UserID
	if toSave.MigratedAt == nil {
		toSave.MigratedAt = existing.MigratedAt
	}
	if toSave.LegacyID == "" {
		toSave.LegacyID = existing.LegacyID
	}
	return s.Save(ctx, toSave)
}

// Delete removes the resume. Deleting an absent id succeeds.
func (s *resumeService) Delete(ctx context.Context, id string) error {
	if err := s.resumeRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete resume '%s': %w", id, err)
	}
	return nil
}

// Remove deletes the resume if actor owns it or is an admin.
func (s *resumeService) Remove(ctx context.Context, actor session.Principal, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if existing.UserID != actor.UserID && !actor.IsAdmin() {
		return fmt.Errorf("%w: user '%s' is not owner of resume '%s'", ErrForbiddenAccess, actor.UserID, id)
	}
	return s.Delete(ctx, id)
}
