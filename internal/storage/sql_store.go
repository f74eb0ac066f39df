package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	columnKey    = "entry_key"
	queryKey     = columnKey + " = ?"
	queryKeyLike = columnKey + " LIKE ? ESCAPE '\\'"
	orderKeyAsc  = columnKey + " ASC"
)

var errMissingDatabase = errors.New("storage: database handle is required")

// Entry is a single persisted key-value pair.
type Entry struct {
	Key              string `gorm:"column:entry_key;primaryKey;size:190;not null"`
	Value            string `gorm:"column:entry_value;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "kv_entries"
}

// SQLStore implements Store on top of a GORM database handle.
type SQLStore struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewSQLStore wraps an already migrated database handle.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &SQLStore{db: db, clock: time.Now}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	var entry Entry
	err := s.db.WithContext(ctx).Where(queryKey, key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: get %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	entry := Entry{
		Key:              key,
		Value:            value,
		UpdatedAtSeconds: s.clock().UTC().Unix(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: columnKey}},
			DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at_s"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("storage: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.db.WithContext(ctx).Where(queryKey, key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&Entry{}).
		Where(queryKeyLike, escapeLike(prefix)+"%").
		Order(orderKeyAsc).
		Pluck(columnKey, &keys).Error
	if err != nil {
		return nil, fmt.Errorf("storage: list keys %q: %w", prefix, err)
	}
	return keys, nil
}

// Close closes the underlying sql.DB.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
