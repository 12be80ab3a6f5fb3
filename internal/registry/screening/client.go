// Package screening queries the public registry that maps an identifier to
// a short registered name. It is cheap and unthrottled, so every candidate
// of a batch is looked up at once.
package screening

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"iinfinder/internal/iin"
	"iinfinder/internal/platform/breaker"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
	"iinfinder/internal/registry"
)

const upstreamName = "screening"

type lookupRequest struct {
	IINBin string `json:"iinBin"`
}

type lookupResponse struct {
	FIO       string `json:"fio"`
	CorrectDt string `json:"correctDt"`
}

type Client struct {
	httpClient    *http.Client
	url           string
	origin        string
	referer       string
	userAgent     string
	timeout       time.Duration
	successStatus int
	breaker       *gobreaker.CircuitBreaker[[]registry.ScreeningResult]
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New builds a client from cfg. The breaker is created here so its state
// change hook sees the final logger and metrics.
func New(cfg config.ScreeningConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("screening url is required")
	}
	c := &Client{
		httpClient:    &http.Client{},
		url:           cfg.URL,
		origin:        cfg.Origin,
		referer:       cfg.Referer,
		userAgent:     cfg.UserAgent,
		timeout:       cfg.Timeout,
		successStatus: cfg.SuccessStatus,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.successStatus == 0 {
		c.successStatus = http.StatusAccepted
	}
	c.breaker = breaker.New[[]registry.ScreeningResult](upstreamName, cfg.Breaker, c.logger, c.metrics)
	return c, nil
}

// Screen looks up every id concurrently. The result slice is aligned with
// ids. A failed lookup degrades to a nameless record with a transient
// outcome; it never aborts the batch.
//
// The breaker guards whole batches: a batch fails only when no lookup got
// an answer, and a half-open breaker lets a whole batch through rather than
// a single request.
func (c *Client) Screen(ctx context.Context, ids []iin.ID) []registry.ScreeningResult {
	if len(ids) == 0 {
		return []registry.ScreeningResult{}
	}
	results, err := c.breaker.Execute(func() ([]registry.ScreeningResult, error) {
		results := c.screenAll(ctx, ids)
		return results, unanswered(results)
	})
	if results == nil {
		// rejected by the breaker before any lookup ran
		return rejectedBatch(ids, registry.NewUpstreamError(registry.ErrorOutage, upstreamName, "circuit open", err))
	}
	return results
}

func (c *Client) screenAll(ctx context.Context, ids []iin.ID) []registry.ScreeningResult {
	results := make([]registry.ScreeningResult, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			results[i] = c.Lookup(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// unanswered returns the first lookup error when every lookup failed.
func unanswered(results []registry.ScreeningResult) error {
	for _, r := range results {
		if r.Outcome != registry.OutcomeTransient {
			return nil
		}
	}
	return results[0].Err
}

func rejectedBatch(ids []iin.ID, err error) []registry.ScreeningResult {
	results := make([]registry.ScreeningResult, len(ids))
	for i, id := range ids {
		results[i] = registry.ScreeningResult{
			Record:  registry.ScreeningRecord{ID: id},
			Outcome: registry.OutcomeTransient,
			Err:     err,
		}
	}
	return results
}

// Lookup screens a single id. It bypasses the breaker.
func (c *Client) Lookup(ctx context.Context, id iin.ID) registry.ScreeningResult {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	record, err := c.fetch(ctx, id)

	result := registry.ScreeningResult{Record: record, Outcome: registry.OutcomeNotFound}
	switch {
	case err != nil:
		var ue *registry.UpstreamError
		if !errors.As(err, &ue) {
			err = registry.TransportError(upstreamName, "lookup "+id.String(), err)
		}
		c.logger.DebugContext(ctx, "screening lookup failed",
			"iin", id.String(),
			"category", registry.GetCategory(err),
			"error", err,
		)
		result = registry.ScreeningResult{
			Record:  registry.ScreeningRecord{ID: id},
			Outcome: registry.OutcomeTransient,
			Err:     err,
		}
	case record.HasName():
		result.Outcome = registry.OutcomeFound
	}
	c.metrics.RecordUpstreamOutcome(upstreamName, result.Outcome.String(), time.Since(start))
	return result
}

func (c *Client) fetch(ctx context.Context, id iin.ID) (registry.ScreeningRecord, error) {
	record := registry.ScreeningRecord{ID: id}

	body, err := json.Marshal(lookupRequest{IINBin: id.String()})
	if err != nil {
		return record, registry.NewUpstreamError(registry.ErrorInternal, upstreamName, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return record, registry.NewUpstreamError(registry.ErrorInternal, upstreamName, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return record, registry.TransportError(upstreamName, "post", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != c.successStatus {
		_, _ = io.Copy(io.Discard, resp.Body)
		return record, nil
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return record, registry.NewUpstreamError(registry.ErrorBadData, upstreamName, "decode response", err)
	}
	if name := strings.TrimSpace(payload.FIO); name != "" {
		record.RegisteredName = &name
	}
	if date, ok := parseRegistryDate(payload.CorrectDt); ok {
		record.RegistryDate = &date
	}
	return record, nil
}

// parseRegistryDate keeps the date part of "2023-05-12 10:04:11".
func parseRegistryDate(raw string) (time.Time, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return time.Time{}, false
	}
	d, err := time.Parse(time.DateOnly, fields[0])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
