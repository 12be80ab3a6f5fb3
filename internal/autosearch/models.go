// Package autosearch keeps re-checking leftover candidates for an owner
// until one of them confirms under the owner's query name.
package autosearch

import (
	"time"

	"github.com/google/uuid"

	"iinfinder/internal/iin"
	"iinfinder/internal/registry"
	"iinfinder/pkg/domain"
)

// Task is a pending re-check. An owner has at most one task.
type Task struct {
	ID            uuid.UUID
	Owner         domain.Owner
	BirthDate     time.Time
	Name          string
	Series        iin.Series
	Candidates    []iin.ID
	CreatedAt     time.Time
	LastCheckedAt time.Time
}

// Match is delivered to the owner when a task finds its identifier.
type Match struct {
	Task  Task
	Found []registry.ConfirmationRecord
}
