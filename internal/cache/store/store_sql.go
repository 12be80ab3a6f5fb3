package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"iinfinder/internal/cache/models"
	"iinfinder/internal/platform/sqldb"
	"iinfinder/internal/registry"
)

// SQLStore persists entries in the screening_cache and confirmation_cache
// tables of SQLite or PostgreSQL.
type SQLStore struct {
	db *sqldb.DB
}

func NewSQLStore(db *sqldb.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) InsertScreening(ctx context.Context, key models.ScreeningKey, entry models.ScreeningEntry) error {
	records, err := json.Marshal(entry.Records)
	if err != nil {
		return fmt.Errorf("encode screening records: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO screening_cache (id, birth_date, series, records, created_at) VALUES (?, ?, ?, ?, ?)`),
		uuid.NewString(), key.Date(), int(key.Series), string(records), toMicros(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert screening cache: %w", err)
	}
	return nil
}

func (s *SQLStore) LatestScreening(ctx context.Context, key models.ScreeningKey, notBefore time.Time) (*models.ScreeningEntry, error) {
	var (
		raw       string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT records, created_at FROM screening_cache
		WHERE birth_date = ? AND series = ? AND created_at > ?
		ORDER BY created_at DESC LIMIT 1`),
		key.Date(), int(key.Series), toMicros(notBefore)).Scan(&raw, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find screening cache: %w", err)
	}
	var records []registry.ScreeningRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode screening records: %w", err)
	}
	return &models.ScreeningEntry{Records: records, CreatedAt: fromMicros(createdAt)}, nil
}

func (s *SQLStore) InsertConfirmation(ctx context.Context, key models.ConfirmationKey, entry models.ConfirmationEntry) error {
	found, err := json.Marshal(nonNil(entry.Found))
	if err != nil {
		return fmt.Errorf("encode found records: %w", err)
	}
	leftover, err := json.Marshal(nonNil(entry.Leftover))
	if err != nil {
		return fmt.Errorf("encode leftover candidates: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO confirmation_cache (id, birth_date, series, name, found, leftover, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		uuid.NewString(), key.Date(), int(key.Series), key.Name, string(found), string(leftover), toMicros(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert confirmation cache: %w", err)
	}
	return nil
}

func (s *SQLStore) LatestConfirmation(ctx context.Context, key models.ConfirmationKey, notBefore time.Time) (*models.ConfirmationEntry, error) {
	var (
		rawFound, rawLeftover string
		createdAt             int64
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT found, leftover, created_at FROM confirmation_cache
		WHERE birth_date = ? AND series = ? AND name = ? AND created_at > ?
		ORDER BY created_at DESC LIMIT 1`),
		key.Date(), int(key.Series), key.Name, toMicros(notBefore)).Scan(&rawFound, &rawLeftover, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find confirmation cache: %w", err)
	}
	entry := &models.ConfirmationEntry{CreatedAt: fromMicros(createdAt)}
	if err := json.Unmarshal([]byte(rawFound), &entry.Found); err != nil {
		return nil, fmt.Errorf("decode found records: %w", err)
	}
	if err := json.Unmarshal([]byte(rawLeftover), &entry.Leftover); err != nil {
		return nil, fmt.Errorf("decode leftover candidates: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) RemoveCreatedBefore(ctx context.Context, level models.Level, cutoff time.Time) (int64, error) {
	var table string
	switch level {
	case models.LevelScreening:
		table = "screening_cache"
	case models.LevelConfirmation:
		table = "confirmation_cache"
	default:
		return 0, fmt.Errorf("unknown cache level %q", level)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE created_at <= ?`), toMicros(cutoff))
	if err != nil {
		return 0, fmt.Errorf("remove expired %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count removed %s: %w", table, err)
	}
	return n, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
