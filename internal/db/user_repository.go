package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/resumehub/internal/models"
)

const usersCollection = "users"

// userDocument is the read shape of a stored profile; legacy writers stored ISO strings.
type userDocument struct {
	models.User
	CreatedAt interface{} `firestore:"createdAt"`
	UpdatedAt interface{} `firestore:"updatedAt"`
}

func (d *userDocument) toModel(docID string) (*models.User, error) {
	u := d.User
	u.ID = docID
	var err error
	if u.CreatedAt, err = NormalizeTimestamp(d.CreatedAt); err != nil {
		return nil, fmt.Errorf("user '%s' createdAt: %w", docID, err)
	}
	if u.UpdatedAt, err = NormalizeTimestamp(d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("user '%s' updatedAt: %w", docID, err)
	}
	return &u, nil
}

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client, logger *zap.Logger) UserRepository {
	if client == nil {
		logger.Fatal("Firestore client is not initialized for UserRepository.")
	}
	return &firestoreUserRepository{client: client, logger: logger}
}

// Create adds a new user document. The Firebase Auth UID is the document id.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s' already exists: %w", user.ID, err)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}

	var doc userDocument
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
	}
	return doc.toModel(docSnap.Ref.ID)
}

// List returns every user profile.
func (r *firestoreUserRepository) List(ctx context.Context) ([]models.User, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []models.User
	for {
		docSnap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}
		var doc userDocument
		if err := docSnap.DataTo(&doc); err != nil {
			r.logger.Warn("Skipping undecodable user document", zap.String("id", docSnap.Ref.ID), zap.Error(err))
			continue
		}
		user, err := doc.toModel(docSnap.Ref.ID)
		if err != nil {
			r.logger.Warn("Skipping user document with bad timestamps", zap.String("id", docSnap.Ref.ID), zap.Error(err))
			continue
		}
		users = append(users, *user)
	}
	return users, nil
}

// Update overwrites an existing user document.
func (r *firestoreUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// Delete removes a user profile.
func (r *firestoreUserRepository) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("userID cannot be empty for Delete operation")
	}
	if _, err := r.client.Collection(usersCollection).Doc(userID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete user with ID '%s': %w", userID, err)
	}
	return nil
}

// Count returns the number of user profiles.
func (r *firestoreUserRepository) Count(ctx context.Context) (int, error) {
	return countCollection(ctx, r.client, usersCollection)
}
