package autosearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"iinfinder/internal/iin"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
	"iinfinder/internal/registry"
	"iinfinder/internal/search"
	"iinfinder/internal/searchlog"
	"iinfinder/pkg/domain"
	dErrors "iinfinder/pkg/domain-errors"
	"iinfinder/pkg/platform/sentinel"
	pstrings "iinfinder/pkg/platform/strings"
	"iinfinder/pkg/requestcontext"
)

const (
	DefaultBatchSize = 3
	DefaultCooldown  = 4 * time.Hour
)

// Store persists tasks.
type Store interface {
	Replace(ctx context.Context, task *Task) error
	Get(ctx context.Context, owner domain.OwnerID) (*Task, error)
	Cancel(ctx context.Context, owner domain.OwnerID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClaimDue(ctx context.Context, now time.Time, cooldown time.Duration, limit int) ([]*Task, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	RemoveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Confirmer re-checks known candidates without screening.
type Confirmer interface {
	ConfirmOnly(ctx context.Context, candidates []iin.ID, name string) ([]registry.ConfirmationRecord, error)
}

// SearchLog records scheduler runs alongside manual searches.
type SearchLog interface {
	Append(ctx context.Context, entry *searchlog.Entry) error
	Complete(ctx context.Context, id uuid.UUID, cacheTier, resultCount int) error
}

// Notifier tells an owner their task found a match.
type Notifier interface {
	Notify(ctx context.Context, match Match) error
}

// PassResult summarises one scheduler pass.
type PassResult struct {
	Claimed int
	Matched int
	Pending int
	Failed  int
}

type Service struct {
	store     Store
	confirmer Confirmer
	log       SearchLog
	notifier  Notifier
	batchSize int
	cooldown  time.Duration
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, confirmer Confirmer, log SearchLog, notifier Notifier, cfg config.AutoSearchConfig, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("task store is required")
	}
	if confirmer == nil {
		return nil, errors.New("confirmer is required")
	}
	if log == nil {
		return nil, errors.New("search log is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		store:     store,
		confirmer: confirmer,
		log:       log,
		notifier:  notifier,
		batchSize: cfg.BatchSize,
		cooldown:  cfg.Cooldown,
		retention: cfg.Retention,
		logger:    slog.Default(),
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.cooldown <= 0 {
		s.cooldown = DefaultCooldown
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateRequest is what an owner submits to start auto-search.
type CreateRequest struct {
	Owner      domain.Owner
	BirthDate  time.Time
	Name       string
	Series     iin.Series
	Candidates []iin.ID
}

// Create replaces any task the owner has with a new one. The new task is
// due on the next pass.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Task, error) {
	if req.Owner.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	if req.BirthDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "birth date is required")
	}
	if iin.FoldName(req.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !req.Series.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown series digit")
	}
	candidates := pstrings.DedupeAndTrim(req.Candidates)
	for _, c := range candidates {
		if _, err := iin.Parse(c.String()); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid candidate "+c.String())
		}
	}
	if len(candidates) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one candidate is required")
	}

	now := requestcontext.Now(ctx)
	// the candidates were just confirmed by the search that produced them,
	// so the first pass waits out a full cooldown
	task := &Task{
		ID:            uuid.New(),
		Owner:         req.Owner,
		BirthDate:     req.BirthDate,
		Name:          req.Name,
		Series:        req.Series,
		Candidates:    candidates,
		CreatedAt:     now,
		LastCheckedAt: now,
	}
	if err := s.store.Replace(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.logger.InfoContext(ctx, "auto-search task created",
		"owner_id", req.Owner.ID.String(),
		"candidates", len(candidates),
	)
	return task, nil
}

func (s *Service) Get(ctx context.Context, owner domain.OwnerID) (*Task, error) {
	task, err := s.store.Get(ctx, owner)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no auto-search task")
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) Cancel(ctx context.Context, owner domain.OwnerID) error {
	err := s.store.Cancel(ctx, owner)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "no auto-search task")
	}
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "auto-search task cancelled", "owner_id", owner.String())
	return nil
}

// RunOnce claims a batch of due tasks and re-checks each. Per-task failures
// are logged and leave the task for a later pass; only a failed claim is
// returned.
func (s *Service) RunOnce(ctx context.Context) (PassResult, error) {
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	tasks, err := s.store.ClaimDue(ctx, now, s.cooldown, s.batchSize)
	if err != nil {
		return PassResult{}, fmt.Errorf("claim due tasks: %w", err)
	}
	res := PassResult{Claimed: len(tasks)}
	for _, task := range tasks {
		matched, err := s.check(ctx, task)
		switch {
		case err != nil:
			res.Failed++
			s.metrics.RecordAutoSearch("failed")
			s.logger.ErrorContext(ctx, "auto-search check failed",
				"task_id", task.ID.String(),
				"owner_id", task.Owner.ID.String(),
				"error", err,
			)
		case matched:
			res.Matched++
			s.metrics.RecordAutoSearch("matched")
		default:
			res.Pending++
			s.metrics.RecordAutoSearch("pending")
		}
	}
	return res, nil
}

func (s *Service) check(ctx context.Context, task *Task) (bool, error) {
	now := requestcontext.Now(ctx)
	entry := &searchlog.Entry{
		Owner:     task.Owner,
		CreatedAt: now,
		BirthDate: task.BirthDate,
		Name:      task.Name,
		Series:    task.Series,
		Auto:      true,
	}
	if err := s.log.Append(ctx, entry); err != nil {
		return false, fmt.Errorf("append search log: %w", err)
	}

	found, err := s.confirmer.ConfirmOnly(requestcontext.WithOwner(ctx, task.Owner), task.Candidates, task.Name)
	if err != nil {
		return false, fmt.Errorf("confirm candidates: %w", err)
	}
	if err := s.log.Complete(ctx, entry.ID, int(search.TierFresh), len(found)); err != nil {
		return false, fmt.Errorf("complete search log: %w", err)
	}

	if len(found) == 0 {
		if err := s.store.Touch(ctx, task.ID, now); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.notifier.Notify(ctx, Match{Task: *task, Found: found}); err != nil {
		// task stays and is re-checked after the cooldown
		return false, fmt.Errorf("notify owner: %w", err)
	}
	if err := s.store.Delete(ctx, task.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return true, err
	}
	s.logger.InfoContext(ctx, "auto-search task matched",
		"task_id", task.ID.String(),
		"owner_id", task.Owner.ID.String(),
		"found", len(found),
	)
	return true, nil
}

// SweepExpired drops tasks older than the retention period.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	n, err := s.store.RemoveOlderThan(ctx, requestcontext.Now(ctx).Add(-s.retention))
	if err != nil {
		return 0, err
	}
	s.metrics.AddSweepDeleted("autosearch_tasks", n)
	return n, nil
}
