// Package legacy reads and writes the key/value tables of the pre-cloud local store.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KeyPrefix namespaces every table key, e.g. "sql_db_resumes".
const KeyPrefix = "sql_db_"

// Table names.
const (
	TableUsers   = "users"
	TableResumes = "resumes"
)

// Record is one row of a legacy table.
type Record map[string]interface{}

// ID returns the record's id as a string, or "".
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Filter selects records. A nil Filter matches every record.
type Filter func(Record) bool

// entry is the persisted form of a whole table.
type entry struct {
	Key       string         `gorm:"primaryKey;column:store_key"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (entry) TableName() string { return "legacy_kv" }

// Store keeps each legacy table as one JSON array under its prefixed key.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the store at dbPath and seeds the default tables.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("auto migrate legacy store: %w", err)
	}

	s := &Store{db: db}
	if err := s.seed(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// DefaultUsers are written to an empty users table.
func DefaultUsers() []Record {
	return []Record{
		{"id": "1", "name": "Admin User", "email": "admin@test.com", "password": "admin", "role": "admin", "avatar": ""},
		{"id": "2", "name": "John Doe", "email": "test@test.com", "password": "1234", "role": "user", "avatar": "assets/profile-placeholder.png"},
	}
}

func (s *Store) seed(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ok, err := hasKey(tx, KeyPrefix+TableUsers); err != nil {
			return err
		} else if !ok {
			if err := saveTable(tx, TableUsers, DefaultUsers()); err != nil {
				return err
			}
		}
		if ok, err := hasKey(tx, KeyPrefix+TableResumes); err != nil {
			return err
		} else if !ok {
			return saveTable(tx, TableResumes, []Record{})
		}
		return nil
	})
}

func hasKey(tx *gorm.DB, key string) (bool, error) {
	var n int64
	if err := tx.Model(&entry{}).Where("store_key = ?", key).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check key %s: %w", key, err)
	}
	return n > 0, nil
}

func loadTable(tx *gorm.DB, table string) ([]Record, error) {
	var e entry
	err := tx.Where("store_key = ?", KeyPrefix+table).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", table, err)
	}
	var rows []Record
	if err := json.Unmarshal(e.Value, &rows); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", table, err)
	}
	if rows == nil {
		rows = []Record{}
	}
	return rows, nil
}

func saveTable(tx *gorm.DB, table string, rows []Record) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode table %s: %w", table, err)
	}
	e := entry{Key: KeyPrefix + table, Value: datatypes.JSON(raw), UpdatedAt: time.Now().UTC()}
	if err := tx.Save(&e).Error; err != nil {
		return fmt.Errorf("save table %s: %w", table, err)
	}
	return nil
}

// Raw returns the JSON array stored for table.
func (s *Store) Raw(ctx context.Context, table string) (json.RawMessage, error) {
	rows, err := s.Select(ctx, table, nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rows)
}

// Select returns the records of table matching where.
func (s *Store) Select(ctx context.Context, table string, where Filter) ([]Record, error) {
	rows, err := loadTable(s.db.WithContext(ctx), table)
	if err != nil {
		return nil, err
	}
	if where == nil {
		return rows, nil
	}
	out := []Record{}
	for _, r := range rows {
		if where(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Insert appends rec to table and returns its id.
func (s *Store) Insert(ctx context.Context, table string, rec Record) (string, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := loadTable(tx, table)
		if err != nil {
			return err
		}
		return saveTable(tx, table, append(rows, rec))
	})
	if err != nil {
		return "", err
	}
	return rec.ID(), nil
}

// Update merges patch over every record matching where and returns the number changed.
func (s *Store) Update(ctx context.Context, table string, patch Record, where Filter) (int, error) {
	affected := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := loadTable(tx, table)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if where == nil || !where(r) {
				continue
			}
			for k, v := range patch {
				r[k] = v
			}
			affected++
		}
		return saveTable(tx, table, rows)
	})
	return affected, err
}

// Delete removes every record matching where. A nil where removes nothing.
func (s *Store) Delete(ctx context.Context, table string, where Filter) (int, error) {
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := loadTable(tx, table)
		if err != nil {
			return err
		}
		kept := make([]Record, 0, len(rows))
		for _, r := range rows {
			if where != nil && where(r) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		return saveTable(tx, table, kept)
	})
	return removed, err
}

// ReplaceTable overwrites table with the records of a JSON array.
func (s *Store) ReplaceTable(ctx context.Context, table string, raw json.RawMessage) error {
	var rows []Record
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	if rows == nil {
		rows = []Record{}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveTable(tx, table, rows)
	})
}
