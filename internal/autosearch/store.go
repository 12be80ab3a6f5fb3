package autosearch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"iinfinder/internal/iin"
	"iinfinder/internal/platform/sqldb"
	"iinfinder/pkg/domain"
	"iinfinder/pkg/platform/sentinel"
	"iinfinder/pkg/platform/tx"
)

const taskColumns = `id, owner_id, owner_nick, owner_name, birth_date, name, series, candidates, created_at, last_checked_at`

// SQLStore persists tasks in the autosearch_tasks table.
type SQLStore struct {
	db *sqldb.DB
}

func NewSQLStore(db *sqldb.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Replace removes the owner's existing task, if any, and stores task in one
// transaction.
func (s *SQLStore) Replace(ctx context.Context, task *Task) error {
	candidates, err := json.Marshal(task.Candidates)
	if err != nil {
		return fmt.Errorf("encode task candidates: %w", err)
	}
	return tx.Run(ctx, s.db, func(ctx context.Context, t *sql.Tx) error {
		if _, err := t.ExecContext(ctx, s.db.Rebind(`DELETE FROM autosearch_tasks WHERE owner_id = ?`), int64(task.Owner.ID)); err != nil {
			return fmt.Errorf("cancel previous task: %w", err)
		}
		_, err := t.ExecContext(ctx, s.db.Rebind(`INSERT INTO autosearch_tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			task.ID.String(), int64(task.Owner.ID), task.Owner.Nick, task.Owner.Name,
			task.BirthDate.Format(time.DateOnly), task.Name, int(task.Series), string(candidates),
			task.CreatedAt.UnixMicro(), task.LastCheckedAt.UnixMicro())
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Get(ctx context.Context, owner domain.OwnerID) (*Task, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+taskColumns+` FROM autosearch_tasks WHERE owner_id = ?`), int64(owner))
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task for owner %s: %w", owner, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Cancel deletes the owner's task.
func (s *SQLStore) Cancel(ctx context.Context, owner domain.OwnerID) error {
	return s.deleteWhere(ctx, "owner_id", int64(owner))
}

// Delete removes a task by id once it has been resolved.
func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteWhere(ctx, "id", id.String())
}

func (s *SQLStore) deleteWhere(ctx context.Context, column string, value any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM autosearch_tasks WHERE `+column+` = ?`), value)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete task: %w", sentinel.ErrNotFound)
	}
	return nil
}

// ClaimDue selects up to limit tasks last checked at or before now-cooldown,
// oldest first, and stamps them checked at now in the same transaction so a
// concurrent pass cannot pick them up again.
func (s *SQLStore) ClaimDue(ctx context.Context, now time.Time, cooldown time.Duration, limit int) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM autosearch_tasks
		WHERE last_checked_at <= ? ORDER BY last_checked_at ASC, created_at ASC LIMIT ?`
	if s.db.Dialect == sqldb.DialectPostgres {
		query += ` FOR UPDATE SKIP LOCKED`
	}

	var tasks []*Task
	err := tx.Run(ctx, s.db, func(ctx context.Context, t *sql.Tx) error {
		rows, err := t.QueryContext(ctx, s.db.Rebind(query), now.Add(-cooldown).UnixMicro(), limit)
		if err != nil {
			return fmt.Errorf("select due tasks: %w", err)
		}
		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan task: %w", err)
			}
			tasks = append(tasks, task)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("select due tasks: %w", err)
		}

		for _, task := range tasks {
			if _, err := t.ExecContext(ctx, s.db.Rebind(`UPDATE autosearch_tasks SET last_checked_at = ? WHERE id = ?`),
				now.UnixMicro(), task.ID.String()); err != nil {
				return fmt.Errorf("claim task %s: %w", task.ID, err)
			}
			task.LastCheckedAt = now.UTC()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Touch records a completed check without a match.
func (s *SQLStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE autosearch_tasks SET last_checked_at = ? WHERE id = ?`),
		at.UnixMicro(), id.String())
	if err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	return nil
}

// RemoveOlderThan drops tasks created at or before cutoff.
func (s *SQLStore) RemoveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM autosearch_tasks WHERE created_at <= ?`), cutoff.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("remove old tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove old tasks: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		task          Task
		rawID         string
		ownerID       int64
		birthDate     string
		series        int
		candidates    string
		createdAt     int64
		lastCheckedAt int64
	)
	err := row.Scan(&rawID, &ownerID, &task.Owner.Nick, &task.Owner.Name, &birthDate,
		&task.Name, &series, &candidates, &createdAt, &lastCheckedAt)
	if err != nil {
		return nil, err
	}
	if task.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("parse task id: %w", err)
	}
	if task.BirthDate, err = time.Parse(time.DateOnly, birthDate); err != nil {
		return nil, fmt.Errorf("parse task birth date: %w", err)
	}
	if err := json.Unmarshal([]byte(candidates), &task.Candidates); err != nil {
		return nil, fmt.Errorf("decode task candidates: %w", err)
	}
	task.Owner.ID = domain.OwnerID(ownerID)
	task.Series = iin.Series(series)
	task.CreatedAt = time.UnixMicro(createdAt).UTC()
	task.LastCheckedAt = time.UnixMicro(lastCheckedAt).UTC()
	return &task, nil
}
