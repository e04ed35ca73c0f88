package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/models"
)

// legacyResume accepts the loosely typed timestamps written by the old client.
type legacyResume struct {
	models.Resume
	UpdatedAt  interface{} `json:"updatedAt"`
	MigratedAt interface{} `json:"migratedAt"`
}

// legacyUser carries the plain-text password column, which is never read.
type legacyUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
	IsActive *bool  `json:"isActive"`
}

// ParseResumes decodes a JSON array of legacy resumes.
func ParseResumes(raw json.RawMessage) ([]models.Resume, error) {
	if isEmpty(raw) {
		return []models.Resume{}, nil
	}
	var rows []legacyResume
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode legacy resumes: %w", err)
	}

	out := make([]models.Resume, 0, len(rows))
	for i, row := range rows {
		r := row.Resume
		updated, err := db.NormalizeTimestamp(row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("legacy resume %d: updatedAt: %w", i, err)
		}
		r.UpdatedAt = updated
		if row.MigratedAt != nil {
			migrated, err := db.NormalizeTimestamp(row.MigratedAt)
			if err != nil {
				return nil, fmt.Errorf("legacy resume %d: migratedAt: %w", i, err)
			}
			r.MigratedAt = &migrated
		}
		out = append(out, r)
	}
	return out, nil
}

// ParseUsers decodes a JSON array of legacy users. Missing roles default to user
// and a missing active flag to true.
func ParseUsers(raw json.RawMessage) ([]models.User, error) {
	if isEmpty(raw) {
		return []models.User{}, nil
	}
	var rows []legacyUser
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode legacy users: %w", err)
	}

	out := make([]models.User, 0, len(rows))
	for _, row := range rows {
		u := models.User{ID: row.ID, Name: row.Name, Email: row.Email, Role: row.Role, Avatar: row.Avatar, IsActive: true}
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		if row.IsActive != nil {
			u.IsActive = *row.IsActive
		}
		out = append(out, u)
	}
	return out, nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// LegacyUsers returns the users table.
func (s *Store) LegacyUsers(ctx context.Context) ([]models.User, error) {
	raw, err := s.Raw(ctx, TableUsers)
	if err != nil {
		return nil, err
	}
	return ParseUsers(raw)
}

// LegacyResumes returns the resumes table.
func (s *Store) LegacyResumes(ctx context.Context) ([]models.Resume, error) {
	raw, err := s.Raw(ctx, TableResumes)
	if err != nil {
		return nil, err
	}
	return ParseResumes(raw)
}

// PayloadSource serves legacy tables uploaded by a client.
type PayloadSource struct {
	users   []models.User
	resumes []models.Resume
}

// NewPayloadSource decodes both tables up front so malformed uploads fail before any write.
func NewPayloadSource(users, resumes json.RawMessage) (*PayloadSource, error) {
	u, err := ParseUsers(users)
	if err != nil {
		return nil, err
	}
	r, err := ParseResumes(resumes)
	if err != nil {
		return nil, err
	}
	return &PayloadSource{users: u, resumes: r}, nil
}

func (p *PayloadSource) LegacyUsers(context.Context) ([]models.User, error) {
	return p.users, nil
}

func (p *PayloadSource) LegacyResumes(context.Context) ([]models.Resume, error) {
	return p.resumes, nil
}
