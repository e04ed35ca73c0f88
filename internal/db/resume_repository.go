package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/resumehub/internal/live"
	"github.com/example/resumehub/internal/models"
)

const resumesCollection = "resumes"

// resumeDocument is the read shape of a stored resume. Timestamp fields may hold
// a Firestore timestamp or an ISO-8601 string depending on which client wrote them.
type resumeDocument struct {
	models.Resume
	UpdatedAt  interface{} `firestore:"updatedAt"`
	MigratedAt interface{} `firestore:"migratedAt"`
}

func (d *resumeDocument) toModel(docID string) (*models.Resume, error) {
	r := d.Resume
	if r.ID == "" {
		r.ID = docID
	}

	updated, err := NormalizeTimestamp(d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("resume '%s' updatedAt: %w", docID, err)
	}
	r.UpdatedAt = updated

	r.MigratedAt = nil
	if d.MigratedAt != nil {
		migrated, err := NormalizeTimestamp(d.MigratedAt)
		if err != nil {
			return nil, fmt.Errorf("resume '%s' migratedAt: %w", docID, err)
		}
		if !migrated.IsZero() {
			r.MigratedAt = &migrated
		}
	}
	return &r, nil
}

// firestoreResumeRepository implements ResumeRepository using Firestore.
type firestoreResumeRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreResumeRepository creates a new Firestore backed ResumeRepository.
func NewFirestoreResumeRepository(client *firestore.Client, logger *zap.Logger) ResumeRepository {
	if client == nil {
		logger.Fatal("Firestore client is not initialized for ResumeRepository.")
	}
	return &firestoreResumeRepository{client: client, logger: logger}
}

func (r *firestoreResumeRepository) decode(snap *firestore.DocumentSnapshot) (*models.Resume, error) {
	var doc resumeDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode resume data for ID '%s': %w", snap.Ref.ID, err)
	}
	return doc.toModel(snap.Ref.ID)
}

// decodeAll skips documents that cannot be decoded so one malformed record
// does not hide the rest of a listing.
func (r *firestoreResumeRepository) decodeAll(snaps []*firestore.DocumentSnapshot) []models.Resume {
	resumes := make([]models.Resume, 0, len(snaps))
	for _, snap := range snaps {
		resume, err := r.decode(snap)
		if err != nil {
			r.logger.Warn("Skipping undecodable resume document", zap.String("id", snap.Ref.ID), zap.Error(err))
			continue
		}
		resumes = append(resumes, *resume)
	}
	return resumes
}

func (r *firestoreResumeRepository) collect(ctx context.Context, query firestore.Query, what string) ([]models.Resume, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var snaps []*firestore.DocumentSnapshot
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", what, err)
		}
		snaps = append(snaps, doc)
	}
	return r.decodeAll(snaps), nil
}

// WatchByOwner listens on the owner query and re-delivers the whole result set on every change.
func (r *firestoreResumeRepository) WatchByOwner(ctx context.Context, userID string) (*live.Subscription[[]models.Resume], error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for WatchByOwner operation")
	}
	query := r.client.Collection(resumesCollection).Where("userId", "==", userID)

	return live.Start(ctx, func(ctx context.Context, emit func([]models.Resume) bool) error {
		iter := query.Snapshots(ctx)
		defer iter.Stop()
		for {
			qs, err := iter.Next()
			if err != nil {
				return fmt.Errorf("resume listener for owner '%s': %w", userID, err)
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				return fmt.Errorf("resume listener for owner '%s': %w", userID, err)
			}
			if !emit(r.decodeAll(snaps)) {
				return nil
			}
		}
	}), nil
}

// WatchByID listens on a single document. A missing or deleted document is delivered as nil.
func (r *firestoreResumeRepository) WatchByID(ctx context.Context, id string) (*live.Subscription[*models.Resume], error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for WatchByID operation")
	}
	ref := r.client.Collection(resumesCollection).Doc(id)

	return live.Start(ctx, func(ctx context.Context, emit func(*models.Resume) bool) error {
		iter := ref.Snapshots(ctx)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				return fmt.Errorf("resume listener for '%s': %w", id, err)
			}
			var resume *models.Resume
			if snap.Exists() {
				resume, err = r.decode(snap)
				if err != nil {
					return err
				}
			}
			if !emit(resume) {
				return nil
			}
		}
	}), nil
}

// GetByID retrieves a resume by id.
func (r *firestoreResumeRepository) GetByID(ctx context.Context, id string) (*models.Resume, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty for GetByID operation")
	}
	snap, err := r.client.Collection(resumesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("resume with ID '%s' not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get resume with ID '%s': %w", id, err)
	}
	return r.decode(snap)
}

// ListByOwner returns every resume owned by userID in store order.
func (r *firestoreResumeRepository) ListByOwner(ctx context.Context, userID string) ([]models.Resume, error) {
	query := r.client.Collection(resumesCollection).Where("userId", "==", userID)
	return r.collect(ctx, query, fmt.Sprintf("resumes for owner '%s'", userID))
}

// ListPublic returns every resume flagged isPublic.
func (r *firestoreResumeRepository) ListPublic(ctx context.Context) ([]models.Resume, error) {
	query := r.client.Collection(resumesCollection).Where("isPublic", "==", true)
	return r.collect(ctx, query, "public resumes")
}

// FindByLegacyID returns the resume imported for userID from the given legacy id.
func (r *firestoreResumeRepository) FindByLegacyID(ctx context.Context, userID, legacyID string) (*models.Resume, error) {
	query := r.client.Collection(resumesCollection).
		Where("userId", "==", userID).
		Where("legacyId", "==", legacyID).
		Limit(1)
	resumes, err := r.collect(ctx, query, "migrated resumes")
	if err != nil {
		return nil, err
	}
	if len(resumes) == 0 {
		return nil, fmt.Errorf("resume imported from '%s' not found: %w", legacyID, ErrNotFound)
	}
	return &resumes[0], nil
}

// Upsert replaces the whole document. No merge: fields absent from resume are removed.
func (r *firestoreResumeRepository) Upsert(ctx context.Context, resume *models.Resume) error {
	if resume.ID == "" {
		return errors.New("resume ID cannot be empty for Upsert operation")
	}
	if _, err := r.client.Collection(resumesCollection).Doc(resume.ID).Set(ctx, resume); err != nil {
		return fmt.Errorf("failed to save resume with ID '%s': %w", resume.ID, err)
	}
	return nil
}

// Delete removes a resume. Firestore deletes of missing documents succeed.
func (r *firestoreResumeRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("id cannot be empty for Delete operation")
	}
	if _, err := r.client.Collection(resumesCollection).Doc(id).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("failed to delete resume with ID '%s': %w", id, err)
	}
	return nil
}

// Exists reports whether a resume document exists.
func (r *firestoreResumeRepository) Exists(ctx context.Context, id string) (bool, error) {
	snap, err := r.client.Collection(resumesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check resume with ID '%s': %w", id, err)
	}
	return snap.Exists(), nil
}

// Count returns the number of stored resumes using an aggregation query.
func (r *firestoreResumeRepository) Count(ctx context.Context) (int, error) {
	return countCollection(ctx, r.client, resumesCollection)
}

func countCollection(ctx context.Context, client *firestore.Client, collection string) (int, error) {
	result, err := client.Collection(collection).NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	v, ok := result["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result for %s: %T", collection, result["all"])
	}
	return int(v.GetIntegerValue()), nil
}
