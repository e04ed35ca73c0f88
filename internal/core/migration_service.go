package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/session"
)

// shortLegacyIDLen is the id length below which an imported resume gets a generated id.
const shortLegacyIDLen = 5

// LegacySource reads the records of a legacy local store.
type LegacySource interface {
	LegacyUsers(ctx context.Context) ([]models.User, error)
	LegacyResumes(ctx context.Context) ([]models.Resume, error)
}

// ImportResult reports the outcome of one import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	IDs      []string `json:"ids"`
}

// migrationService implements the MigrationService interface.
type migrationService struct {
	resumeRepo   db.ResumeRepository
	validator    *ResumeValidator
	auditService AuditService
	logger       *zap.Logger
	now          func() time.Time
}

// NewMigrationService creates a new MigrationService instance.
// The validator bounds embedded images of imported resumes; every imported
// record is audited through as.
func NewMigrationService(rr db.ResumeRepository, v *ResumeValidator, as AuditService, logger *zap.Logger) MigrationService {
	return &migrationService{
		resumeRepo:   rr,
		validator:    v,
		auditService: as,
		logger:       logger,
		now:          time.Now,
	}
}

// ImportLocalResumes copies legacy resumes into the store under account.
// When a legacy user shares the account's email only that user's resumes are
// taken, otherwise every legacy resume is. Records already imported for the
// account, found by id or by legacy id, are skipped.
func (s *migrationService) ImportLocalResumes(ctx context.Context, source LegacySource, account session.Principal) (*ImportResult, error) {
	if account.UserID == "" {
		return nil, errors.New("import requires a signed-in account")
	}

	resumes, err := source.LegacyResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy resumes: %w", err)
	}
	result := &ImportResult{IDs: []string{}}
	if len(resumes) == 0 {
		return result, nil
	}

	users, err := source.LegacyUsers(ctx)
	if err != nil {
		s.logger.Warn("Legacy users unreadable, importing every legacy resume", zap.Error(err))
	}
	resumes = selectForAccount(resumes, users, account.Email)

	for _, legacy := range resumes {
		if legacy.ID == "" {
			s.logger.Warn("Skipping legacy resume without id", zap.String("title", legacy.Title))
			result.Skipped++
			continue
		}

		imported, err := s.importOne(ctx, legacy, account)
		if err != nil {
			return result, err
		}
		if imported == "" {
			result.Skipped++
			continue
		}
		result.Imported++
		result.IDs = append(result.IDs, imported)
	}

	s.logger.Info("Legacy import finished",
		zap.String("userId", account.UserID), zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	return result, nil
}

// importOne writes one legacy resume and returns its new id, or "" when it was already imported.
func (s *migrationService) importOne(ctx context.Context, legacy models.Resume, account session.Principal) (string, error) {
	now := s.now().UTC()
	newID := legacy.ID
	if len(newID) < shortLegacyIDLen {
		newID = fmt.Sprintf("migrated_%s_%d", legacy.ID, now.UnixMilli())
	}

	exists, err := s.resumeRepo.Exists(ctx, newID)
	if err != nil {
		return "", fmt.Errorf("failed to check resume '%s': %w", newID, err)
	}
	if exists {
		return "", nil
	}
	_, err = s.resumeRepo.FindByLegacyID(ctx, account.UserID, legacy.ID)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", fmt.Errorf("failed to look up import of '%s': %w", legacy.ID, err)
	}

	r := legacy.Clone()
	r.ID = newID
	r.UserID = account.UserID
	r.LegacyID = legacy.ID
	r.MigratedAt = &now
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.Title == "" {
		r.Title = models.DefaultResumeTitle
	}
	fillEmptyCollections(r)
	r.BackfillTrainingIDs()

	if err := s.resumeRepo.Upsert(ctx, r); err != nil {
		return "", fmt.Errorf("failed to write imported resume '%s': %w", newID, err)
	}

	entry := models.AuditLog{
		UserID:     account.UserID,
		Action:     models.ActionResumeMigrate,
		TargetType: "RESUME",
		TargetID:   newID,
		Timestamp:  now,
		Details:    map[string]interface{}{"legacyId": legacy.ID},
	}
	if err := s.auditService.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("Failed to create audit log", zap.String("action", entry.Action), zap.String("targetId", newID), zap.Error(err))
	}
	return newID, nil
}

// selectForAccount applies the ownership policy: the resumes of the legacy user
// whose email matches the account (case-insensitive), or every resume when no
// such user owns any.
func selectForAccount(resumes []models.Resume, users []models.User, email string) []models.Resume {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return resumes
	}
	for _, u := range users {
		if strings.ToLower(u.Email) != email {
			continue
		}
		var owned []models.Resume
		for _, r := range resumes {
			if r.UserID == u.ID {
				owned = append(owned, r)
			}
		}
		if len(owned) > 0 {
			return owned
		}
	}
	return resumes
}

// fillEmptyCollections replaces nil slices so imported documents carry empty arrays.
func fillEmptyCollections(r *models.Resume) {
	if r.Experience == nil {
		r.Experience = []models.Experience{}
	}
	if r.Education == nil {
		r.Education = []models.Education{}
	}
	if r.Training == nil {
		r.Training = []models.Training{}
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}
}
