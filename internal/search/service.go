// Package search runs the identifier resolution pipeline: cache check,
// candidate screening, name filtering, confirmation and assembly.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"iinfinder/internal/cache/models"
	"iinfinder/internal/iin"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
	"iinfinder/internal/registry"
	dErrors "iinfinder/pkg/domain-errors"
)

var tracer = otel.Tracer("iinfinder/search")

// DefaultWindowSize is how many positions past the last registered
// identifier are probed for unregistered ones.
const DefaultWindowSize = 4

// Screener checks candidates against the public registry. Results are
// aligned with ids.
type Screener interface {
	Screen(ctx context.Context, ids []iin.ID) []registry.ScreeningResult
}

// Confirmer checks candidates against the CAPTCHA-gated registry. Results
// are aligned with ids.
type Confirmer interface {
	Confirm(ctx context.Context, ids []iin.ID) []registry.ConfirmationResult
}

// Cache is the tiered result cache. A miss is ok=false with a nil error.
type Cache interface {
	Screening(ctx context.Context, key models.ScreeningKey) (*models.ScreeningEntry, bool, error)
	PutScreening(ctx context.Context, key models.ScreeningKey, entry models.ScreeningEntry) error
	Confirmation(ctx context.Context, key models.ConfirmationKey) (*models.ConfirmationEntry, bool, error)
	PutConfirmation(ctx context.Context, key models.ConfirmationKey, entry models.ConfirmationEntry) error
}

// Tier reports how much of a resolution was served from cache.
type Tier int

const (
	// TierFresh means candidates were generated and screened.
	TierFresh Tier = iota
	// TierScreening means a cached screening batch was reused.
	TierScreening
	// TierConfirmation means the whole result came from cache.
	TierConfirmation
)

func (t Tier) String() string {
	return strconv.Itoa(int(t))
}

// Query is one resolution request.
type Query struct {
	BirthDate time.Time
	Name      string
	Series    iin.Series
}

// Result is what a resolution returns. Found is in generation order.
type Result struct {
	Tier     Tier
	Found    []registry.ConfirmationRecord
	Leftover []iin.ID
}

type Service struct {
	cache          Cache
	screener       Screener
	confirmer      Confirmer
	candidateCount int
	windowSize     int
	logger         *slog.Logger
	metrics        *metrics.Metrics
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

func New(cache Cache, screener Screener, confirmer Confirmer, cfg config.SearchConfig, opts ...Option) (*Service, error) {
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	if screener == nil {
		return nil, errors.New("screener is required")
	}
	if confirmer == nil {
		return nil, errors.New("confirmer is required")
	}
	s := &Service{
		cache:          cache,
		screener:       screener,
		confirmer:      confirmer,
		candidateCount: cfg.CandidateCount,
		windowSize:     cfg.WindowSize,
		logger:         slog.Default(),
	}
	if s.candidateCount <= 0 {
		s.candidateCount = iin.DefaultCandidateCount
	}
	if s.windowSize <= 0 {
		s.windowSize = DefaultWindowSize
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func validateQuery(q Query) (string, error) {
	if q.BirthDate.IsZero() {
		return "", dErrors.New(dErrors.CodeValidation, "birth date is required")
	}
	if !q.Series.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown series digit")
	}
	name := iin.FoldName(q.Name)
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return name, nil
}

// Resolve finds the identifiers whose legal name matches q.Name. Upstream
// failures for single candidates degrade them silently; only cache store
// failures are returned, as *PersistenceError. A run with any transient
// lookup is returned but not cached at either level.
func (s *Service) Resolve(ctx context.Context, q Query) (*Result, error) {
	name, err := validateQuery(q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ctx, span := tracer.Start(ctx, "search.resolve", trace.WithAttributes(
		attribute.String("birth_date", q.BirthDate.Format(time.DateOnly)),
		attribute.Int("series", int(q.Series)),
	))
	defer span.End()

	result, err := s.resolve(ctx, q, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		s.logger.ErrorContext(ctx, "resolution aborted", "error", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("cache_tier", int(result.Tier)),
		attribute.Int("found", len(result.Found)),
		attribute.Int("leftover", len(result.Leftover)),
	)
	s.metrics.ObserveResolve(result.Tier.String(), len(result.Found) > 0, time.Since(start))
	return result, nil
}

func (s *Service) resolve(ctx context.Context, q Query, name string) (*Result, error) {
	screeningKey := models.ScreeningKey{BirthDate: q.BirthDate, Series: q.Series}
	confirmationKey := models.ConfirmationKey{ScreeningKey: screeningKey, Name: name}

	cached, ok, err := s.cache.Confirmation(ctx, confirmationKey)
	if err != nil {
		return nil, persistence("lookup confirmation cache", err)
	}
	if ok {
		return &Result{Tier: TierConfirmation, Found: cached.Found, Leftover: cached.Leftover}, nil
	}

	tier := TierScreening
	batch, ok, err := s.cache.Screening(ctx, screeningKey)
	if err != nil {
		return nil, persistence("lookup screening cache", err)
	}
	var (
		records  []registry.ScreeningRecord
		degraded int
	)
	if ok {
		records = batch.Records
	} else {
		tier = TierFresh
		records, degraded = s.screen(ctx, q)
		// a batch with unanswered lookups would hide names for the whole
		// screening horizon, so only complete batches are kept
		if degraded == 0 {
			if err := s.cache.PutScreening(ctx, screeningKey, models.ScreeningEntry{Records: records}); err != nil {
				return nil, persistence("store screening cache", err)
			}
		}
	}

	sel := selectCandidates(records, name, s.windowSize)
	s.logger.DebugContext(ctx, "candidates selected",
		"screened", len(records),
		"matched", len(sel.matched),
		"window", len(sel.window),
	)

	results := s.confirm(ctx, sel.candidates())
	byID := make(map[iin.ID]registry.ConfirmationResult, len(results))
	for _, r := range results {
		byID[r.Record.ID] = r
	}

	result := &Result{
		Tier:     tier,
		Found:    matchConfirmed(results, name),
		Leftover: leftoverFrom(sel.window, byID, name),
	}
	for _, r := range results {
		if r.Outcome == registry.OutcomeTransient {
			degraded++
		}
	}
	if degraded > 0 {
		s.logger.WarnContext(ctx, "degraded run not cached", "transient", degraded)
		return result, nil
	}
	err = s.cache.PutConfirmation(ctx, confirmationKey, models.ConfirmationEntry{
		Found:    result.Found,
		Leftover: result.Leftover,
	})
	if err != nil {
		return nil, persistence("store confirmation cache", err)
	}
	return result, nil
}

// screen runs a fresh screening batch and reports how many lookups went
// unanswered.
func (s *Service) screen(ctx context.Context, q Query) ([]registry.ScreeningRecord, int) {
	ids := iin.Generate(q.BirthDate, q.Series, s.candidateCount)
	ctx, span := tracer.Start(ctx, "search.screening", trace.WithAttributes(attribute.Int("candidates", len(ids))))
	defer span.End()

	results := s.screener.Screen(ctx, ids)
	records := make([]registry.ScreeningRecord, len(results))
	transient := 0
	for i, r := range results {
		records[i] = r.Record
		if r.Outcome == registry.OutcomeTransient {
			transient++
		}
	}
	span.SetAttributes(attribute.Int("transient", transient))
	if transient > 0 {
		s.logger.WarnContext(ctx, "screening degraded candidates", "transient", transient, "total", len(ids))
	}
	return records, transient
}

func (s *Service) confirm(ctx context.Context, ids []iin.ID) []registry.ConfirmationResult {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "search.confirmation", trace.WithAttributes(attribute.Int("candidates", len(ids))))
	defer span.End()
	return s.confirmer.Confirm(ctx, ids)
}

// ConfirmOnly runs confirmation over known candidates and returns the ones
// whose legal name matches. It neither generates nor screens and touches no
// cache.
func (s *Service) ConfirmOnly(ctx context.Context, candidates []iin.ID, name string) ([]registry.ConfirmationRecord, error) {
	folded := iin.FoldName(name)
	if folded == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return matchConfirmed(s.confirm(ctx, candidates), folded), nil
}
