package searchlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"iinfinder/internal/iin"
	"iinfinder/internal/platform/sqldb"
	"iinfinder/pkg/domain"
	"iinfinder/pkg/platform/sentinel"
	"iinfinder/pkg/requestcontext"
)

// quotaTierLimit excludes searches fully served from the result cache.
const quotaTierLimit = 2

// Store persists search log entries in the search_log table.
type Store struct {
	db *sqldb.DB
}

func NewStore(db *sqldb.DB) *Store {
	return &Store{db: db}
}

// Append inserts entry, assigning an ID and creation time when unset.
func (s *Store) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("search log entry is required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO search_log
		(id, owner_id, owner_nick, owner_name, created_at, birth_date, name, series, auto, cache_tier, result_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID.String(), int64(entry.Owner.ID), entry.Owner.Nick, entry.Owner.Name,
		entry.CreatedAt.UnixMicro(), entry.BirthDate.Format(time.DateOnly), entry.Name,
		int(entry.Series), entry.Auto, nullInt(entry.CacheTier), nullInt(entry.ResultCount))
	if err != nil {
		return fmt.Errorf("append search log: %w", err)
	}
	return nil
}

// Complete backfills the outcome of a run. It is the only update an entry
// ever receives.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, cacheTier, resultCount int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE search_log SET cache_tier = ?, result_count = ? WHERE id = ?`),
		cacheTier, resultCount, id.String())
	if err != nil {
		return fmt.Errorf("complete search log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete search log: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complete search log %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// Get returns a single entry.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT
		id, owner_id, owner_nick, owner_name, created_at, birth_date, name, series, auto, cache_tier, result_count
		FROM search_log WHERE id = ?`), id.String())
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get search log %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get search log: %w", err)
	}
	return entry, nil
}

// CountManualSince counts the owner's completed manual searches of series
// created after since that were not served from the result cache. It also
// returns the creation time of the oldest counted entry.
func (s *Store) CountManualSince(ctx context.Context, owner domain.OwnerID, series iin.Series, since time.Time) (int, time.Time, error) {
	var (
		count  int
		oldest sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*), MIN(created_at) FROM search_log
		WHERE owner_id = ? AND auto = ? AND series = ?
		AND cache_tier IS NOT NULL AND cache_tier < ? AND created_at > ?`),
		int64(owner), false, int(series), quotaTierLimit, since.UnixMicro()).Scan(&count, &oldest)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("count manual searches: %w", err)
	}
	if !oldest.Valid {
		return count, time.Time{}, nil
	}
	return count, time.UnixMicro(oldest.Int64).UTC(), nil
}

// RemoveOlderThan deletes entries created at or before cutoff.
func (s *Store) RemoveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM search_log WHERE created_at <= ?`), cutoff.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("remove old search log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove old search log: %w", err)
	}
	return n, nil
}

func scanEntry(row *sql.Row) (*Entry, error) {
	var (
		entry       Entry
		rawID       string
		ownerID     int64
		createdAt   int64
		birthDate   string
		series      int
		cacheTier   sql.NullInt64
		resultCount sql.NullInt64
	)
	err := row.Scan(&rawID, &ownerID, &entry.Owner.Nick, &entry.Owner.Name, &createdAt,
		&birthDate, &entry.Name, &series, &entry.Auto, &cacheTier, &resultCount)
	if err != nil {
		return nil, err
	}
	if entry.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("parse search log id: %w", err)
	}
	if entry.BirthDate, err = time.Parse(time.DateOnly, birthDate); err != nil {
		return nil, fmt.Errorf("parse search log birth date: %w", err)
	}
	entry.Owner.ID = domain.OwnerID(ownerID)
	entry.CreatedAt = time.UnixMicro(createdAt).UTC()
	entry.Series = iin.Series(series)
	if cacheTier.Valid {
		v := int(cacheTier.Int64)
		entry.CacheTier = &v
	}
	if resultCount.Valid {
		v := int(resultCount.Int64)
		entry.ResultCount = &v
	}
	return &entry, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
