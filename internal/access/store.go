package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"iinfinder/internal/platform/sqldb"
	"iinfinder/pkg/domain"
	"iinfinder/pkg/platform/sentinel"
	"iinfinder/pkg/requestcontext"
)

// Store persists access list entries in the access_list table.
type Store struct {
	db *sqldb.DB
}

func NewStore(db *sqldb.DB) *Store {
	return &Store{db: db}
}

// Add inserts or replaces the entry for (kind, owner).
func (s *Store) Add(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("access entry is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO access_list
		(kind, owner_id, expires_at, comment, added_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, owner_id) DO UPDATE SET
			expires_at = excluded.expires_at,
			comment = excluded.comment,
			added_by = excluded.added_by,
			created_at = excluded.created_at`),
		string(entry.Kind), int64(entry.OwnerID), nullMicros(entry.ExpiresAt),
		entry.Comment, int64(entry.AddedBy), entry.CreatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("add access entry: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, kind Kind, owner domain.OwnerID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM access_list WHERE kind = ? AND owner_id = ?`),
		string(kind), int64(owner))
	if err != nil {
		return fmt.Errorf("remove access entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove access entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("remove %s entry for %s: %w", kind, owner, sentinel.ErrNotFound)
	}
	return nil
}

// IsListed reports whether owner has an unexpired entry of kind at now.
func (s *Store) IsListed(ctx context.Context, kind Kind, owner domain.OwnerID, now time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM access_list
		WHERE kind = ? AND owner_id = ? AND (expires_at IS NULL OR expires_at > ?)`),
		string(kind), int64(owner), now.UnixMicro()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check access list: %w", err)
	}
	return n > 0, nil
}

// List returns the unexpired entries of kind, newest first.
func (s *Store) List(ctx context.Context, kind Kind) ([]*Entry, error) {
	now := requestcontext.Now(ctx)
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT kind, owner_id, expires_at, comment, added_by, created_at
		FROM access_list WHERE kind = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at DESC`), string(kind), now.UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("list access entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e         Entry
			rawKind   string
			ownerID   int64
			expiresAt sql.NullInt64
			addedBy   int64
			createdAt int64
		)
		if err := rows.Scan(&rawKind, &ownerID, &expiresAt, &e.Comment, &addedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan access entry: %w", err)
		}
		e.Kind = Kind(rawKind)
		e.OwnerID = domain.OwnerID(ownerID)
		e.AddedBy = domain.OwnerID(addedBy)
		e.CreatedAt = time.UnixMicro(createdAt).UTC()
		if expiresAt.Valid {
			t := time.UnixMicro(expiresAt.Int64).UTC()
			e.ExpiresAt = &t
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list access entries: %w", err)
	}
	return entries, nil
}

// RemoveExpiredAt deletes entries that expired at or before now.
func (s *Store) RemoveExpiredAt(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM access_list WHERE expires_at IS NOT NULL AND expires_at <= ?`), now.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("cleanup access entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup access entries: %w", err)
	}
	return n, nil
}

func nullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMicro(), Valid: true}
}
