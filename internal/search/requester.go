package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"iinfinder/internal/access"
	"iinfinder/internal/iin"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
	"iinfinder/internal/searchlog"
	"iinfinder/pkg/domain"
	"iinfinder/pkg/requestcontext"
)

// DefaultQuotaWindow is the rolling window the weekly limit applies to.
const DefaultQuotaWindow = 7 * 24 * time.Hour

// Resolver is the pipeline the requester gates.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (*Result, error)
}

// SearchLog records runs and answers quota questions.
type SearchLog interface {
	Append(ctx context.Context, entry *searchlog.Entry) error
	Complete(ctx context.Context, id uuid.UUID, cacheTier, resultCount int) error
	CountManualSince(ctx context.Context, owner domain.OwnerID, series iin.Series, since time.Time) (int, time.Time, error)
}

// AccessList answers allow and deny list membership.
type AccessList interface {
	IsListed(ctx context.Context, kind access.Kind, owner domain.OwnerID, now time.Time) (bool, error)
}

// Requester runs owner-initiated searches: access and quota checks, then a
// logged resolution.
type Requester struct {
	resolver    Resolver
	log         SearchLog
	access      AccessList
	weeklyLimit int
	window      time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type RequesterOption func(*Requester)

func WithRequesterLogger(logger *slog.Logger) RequesterOption {
	return func(r *Requester) {
		r.logger = logger
	}
}

func WithRequesterMetrics(m *metrics.Metrics) RequesterOption {
	return func(r *Requester) {
		r.metrics = m
	}
}

func NewRequester(resolver Resolver, log SearchLog, accessList AccessList, cfg config.QuotaConfig, opts ...RequesterOption) (*Requester, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if log == nil {
		return nil, errors.New("search log is required")
	}
	if accessList == nil {
		return nil, errors.New("access list is required")
	}
	r := &Requester{
		resolver:    resolver,
		log:         log,
		access:      accessList,
		weeklyLimit: cfg.WeeklyLimit,
		window:      cfg.Window,
		logger:      slog.Default(),
	}
	if r.window <= 0 {
		r.window = DefaultQuotaWindow
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Search resolves q on behalf of owner. Deny-listed owners get
// ErrAccessDenied; owners over quota get a *QuotaExceededError.
func (r *Requester) Search(ctx context.Context, owner domain.Owner, q Query) (*Result, error) {
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithOwner(ctx, owner)

	denied, err := r.access.IsListed(ctx, access.KindDeny, owner.ID, now)
	if err != nil {
		return nil, persistence("check deny list", err)
	}
	if denied {
		r.metrics.RecordRejected("denied")
		return nil, ErrAccessDenied
	}
	if err := r.checkQuota(ctx, owner.ID, q.Series, now); err != nil {
		return nil, err
	}

	entry := &searchlog.Entry{
		Owner:     owner,
		CreatedAt: now,
		BirthDate: q.BirthDate,
		Name:      q.Name,
		Series:    q.Series,
	}
	if err := r.log.Append(ctx, entry); err != nil {
		return nil, persistence("append search log", err)
	}

	result, err := r.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := r.log.Complete(ctx, entry.ID, int(result.Tier), len(result.Found)); err != nil {
		return nil, persistence("complete search log", err)
	}
	r.logger.InfoContext(ctx, "search completed",
		"owner_id", owner.ID.String(),
		"cache_tier", int(result.Tier),
		"found", len(result.Found),
		"leftover", len(result.Leftover),
	)
	return result, nil
}

// checkQuota applies to recent-series searches only; legacy-series searches
// are rare and never counted.
func (r *Requester) checkQuota(ctx context.Context, owner domain.OwnerID, series iin.Series, now time.Time) error {
	if r.weeklyLimit <= 0 || series != iin.SeriesRecent {
		return nil
	}
	allowed, err := r.access.IsListed(ctx, access.KindAllow, owner, now)
	if err != nil {
		return persistence("check allow list", err)
	}
	if allowed {
		return nil
	}
	count, oldest, err := r.log.CountManualSince(ctx, owner, series, now.Add(-r.window))
	if err != nil {
		return persistence("count searches", err)
	}
	if count < r.weeklyLimit {
		return nil
	}
	r.metrics.RecordRejected("quota")
	return &QuotaExceededError{Limit: r.weeklyLimit, RetryAt: oldest.Add(r.window)}
}

