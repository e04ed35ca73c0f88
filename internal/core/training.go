package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/session"
)

// ownedResume loads a resume that owner is allowed to edit.
func (s *resumeService) ownedResume(ctx context.Context, owner session.Principal, resumeID string) (*models.Resume, error) {
	r, err := s.GetByID(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: resume with ID '%s'", ErrResumeNotFound, resumeID)
	}
	if r.UserID != owner.UserID && !owner.IsAdmin() {
		return nil, fmt.Errorf("%w: user '%s' is not owner of resume '%s'", ErrForbiddenAccess, owner.UserID, resumeID)
	}
	return r, nil
}

// defaultResume returns the owner's most recent resume, creating a blank one
// when the owner has none yet.
func (s *resumeService) defaultResume(ctx context.Context, owner session.Principal) (*models.Resume, error) {
	resumes, err := s.ListByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if len(resumes) > 0 {
		return &resumes[0], nil
	}
	return s.Create(ctx, owner, models.DefaultResumeTitle)
}

// AddTraining appends entry to the resume. An empty resumeID targets the
// owner's most recent resume.
func (s *resumeService) AddTraining(ctx context.Context, owner session.Principal, resumeID string, entry models.Training) (*models.Resume, error) {
	var (
		r   *models.Resume
		err error
	)
	if resumeID == "" {
		r, err = s.defaultResume(ctx, owner)
	} else {
		r, err = s.ownedResume(ctx, owner, resumeID)
	}
	if err != nil {
		return nil, err
	}

	if entry.ID == "" || r.TrainingIndex(entry.ID) >= 0 {
		entry.ID = uuid.NewString()
	}
	r.Training = append(r.Training, entry)
	return s.Save(ctx, r)
}

// UpdateTraining replaces the entry's fields with entry, keeping its id.
func (s *resumeService) UpdateTraining(ctx context.Context, owner session.Principal, resumeID, trainingID string, entry models.Training) (*models.Resume, error) {
	r, err := s.ownedResume(ctx, owner, resumeID)
	if err != nil {
		return nil, err
	}
	i := r.TrainingIndex(trainingID)
	if i < 0 {
		return nil, fmt.Errorf("%w: training '%s' in resume '%s'", ErrTrainingNotFound, trainingID, resumeID)
	}
	entry.ID = trainingID
	r.Training[i] = entry
	return s.Save(ctx, r)
}

func (s *resumeService) DeleteTraining(ctx context.Context, owner session.Principal, resumeID, trainingID string) (*models.Resume, error) {
	r, err := s.ownedResume(ctx, owner, resumeID)
	if err != nil {
		return nil, err
	}
	i := r.TrainingIndex(trainingID)
	if i < 0 {
		return nil, fmt.Errorf("%w: training '%s' in resume '%s'", ErrTrainingNotFound, trainingID, resumeID)
	}
	r.Training = append(r.Training[:i], r.Training[i+1:]...)
	return s.Save(ctx, r)
}
