package core

import (
	"context"
	"sort"
	"time"

	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/session"
)

// Feed lists the owner's resumes, newest first, followed by every training
// entry ordered by its date, start date or the parent's update time.
func (s *resumeService) Feed(ctx context.Context, owner session.Principal) ([]models.FeedItem, error) {
	resumes, err := s.ListByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}

	items := make([]models.FeedItem, 0, len(resumes))
	for i := range resumes {
		r := &resumes[i]
		items = append(items, models.FeedItem{
			Type:        models.FeedItemResume,
			ResumeID:    r.ID,
			ResumeTitle: r.Title,
			UpdatedAt:   r.UpdatedAt,
			Owner:       owner.Name,
			Resume:      r,
		})
	}

	type dated struct {
		item models.FeedItem
		at   time.Time
	}
	var training []dated
	for i := range resumes {
		r := &resumes[i]
		for j := range r.Training {
			t := &r.Training[j]
			training = append(training, dated{
				item: models.FeedItem{
					Type:        models.FeedItemTraining,
					ResumeID:    r.ID,
					ResumeTitle: r.Title,
					UpdatedAt:   r.UpdatedAt,
					Owner:       owner.Name,
					Training:    t,
				},
				at: trainingDate(t, r.UpdatedAt),
			})
		}
	}
	sort.SliceStable(training, func(i, j int) bool { return training[i].at.After(training[j].at) })

	for _, d := range training {
		items = append(items, d.item)
	}
	return items, nil
}

func trainingDate(t *models.Training, fallback time.Time) time.Time {
	for _, candidate := range []string{t.Date, t.StartDate} {
		if candidate == "" {
			continue
		}
		if at, err := db.NormalizeTimestamp(candidate); err == nil && !at.IsZero() {
			return at
		}
	}
	return fallback
}
