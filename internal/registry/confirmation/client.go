// Package confirmation runs the captcha-gated exchange against the registry
// that returns a candidate's legal name. Every candidate gets its own
// session: a fresh cookie jar, challenge and view-state token.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"iinfinder/internal/iin"
	"iinfinder/internal/platform/breaker"
	"iinfinder/internal/platform/config"
	"iinfinder/internal/platform/metrics"
	"iinfinder/internal/registry"
)

const upstreamName = "confirmation"

// Solver decodes the base64 PNG challenge into its digits.
type Solver interface {
	SolveBase64(payload string) (string, error)
}

type Client struct {
	transport     http.RoundTripper
	url           string
	userAgent     string
	timeout       time.Duration
	minCodeLength int
	solver        Solver
	breaker       *gobreaker.CircuitBreaker[[]registry.ConfirmationResult]
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Client)

// WithTransport sets the round tripper shared by all per-candidate sessions.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(cfg config.ConfirmationConfig, solver Solver, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("confirmation url is required")
	}
	if solver == nil {
		return nil, errors.New("captcha solver is required")
	}
	c := &Client{
		transport:     http.DefaultTransport,
		url:           cfg.URL,
		userAgent:     cfg.UserAgent,
		timeout:       cfg.Timeout,
		minCodeLength: cfg.MinCodeLength,
		solver:        solver,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = breaker.New[[]registry.ConfirmationResult](upstreamName, cfg.Breaker, c.logger, c.metrics)
	return c, nil
}

// Confirm runs one independent exchange per id concurrently. The result
// slice is aligned with ids and never carries a batch-level error. The
// breaker guards the batch as a whole and counts it as failed only when
// every exchange went unanswered.
func (c *Client) Confirm(ctx context.Context, ids []iin.ID) []registry.ConfirmationResult {
	if len(ids) == 0 {
		return []registry.ConfirmationResult{}
	}
	results, err := c.breaker.Execute(func() ([]registry.ConfirmationResult, error) {
		results := c.confirmAll(ctx, ids)
		return results, unanswered(results)
	})
	if results == nil {
		open := registry.NewUpstreamError(registry.ErrorOutage, upstreamName, "circuit open", err)
		results = make([]registry.ConfirmationResult, len(ids))
		for i, id := range ids {
			results[i] = registry.ConfirmationResult{
				Record:  registry.ConfirmationRecord{ID: id},
				Outcome: registry.OutcomeTransient,
				Err:     open,
			}
		}
	}
	return results
}

func (c *Client) confirmAll(ctx context.Context, ids []iin.ID) []registry.ConfirmationResult {
	results := make([]registry.ConfirmationResult, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			results[i] = c.ConfirmOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func unanswered(results []registry.ConfirmationResult) error {
	for _, r := range results {
		if r.Outcome != registry.OutcomeTransient {
			return nil
		}
	}
	return results[0].Err
}

// ConfirmOne runs the challenge, solve and submit steps for a single id
// without consulting the breaker.
func (c *Client) ConfirmOne(ctx context.Context, id iin.ID) registry.ConfirmationResult {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	record, solveErr, err := c.exchange(ctx, id)

	var result registry.ConfirmationResult
	switch {
	case err != nil:
		var ue *registry.UpstreamError
		if !errors.As(err, &ue) {
			err = registry.TransportError(upstreamName, "confirm "+id.String(), err)
		}
		c.logger.DebugContext(ctx, "confirmation exchange failed",
			"iin", id.String(),
			"category", registry.GetCategory(err),
			"error", err,
		)
		result = registry.ConfirmationResult{
			Record:  registry.ConfirmationRecord{ID: id},
			Outcome: registry.OutcomeTransient,
			Err:     err,
		}
	case record.Exists():
		result = registry.ConfirmationResult{Record: record, Outcome: registry.OutcomeFound}
	default:
		result = registry.ConfirmationResult{Record: record, Outcome: registry.OutcomeNotFound, Err: solveErr}
	}
	c.metrics.RecordUpstreamOutcome(upstreamName, result.Outcome.String(), time.Since(start))
	return result
}

// exchange returns a non-nil miss when the captcha decoded short; the
// submission still happens and the registry is expected to answer not found.
func (c *Client) exchange(ctx context.Context, id iin.ID) (registry.ConfirmationRecord, error, error) {
	record := registry.ConfirmationRecord{ID: id}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return record, nil, registry.NewUpstreamError(registry.ErrorInternal, upstreamName, "create cookie jar", err)
	}
	hc := &http.Client{Transport: c.transport, Jar: jar}

	ch, err := c.fetchChallenge(ctx, hc)
	if err != nil {
		return record, nil, err
	}

	var miss error
	code, err := c.solver.SolveBase64(ch.image)
	if err != nil || len(code) < c.minCodeLength {
		miss = registry.NewUpstreamError(registry.ErrorSolveMiss, upstreamName,
			fmt.Sprintf("decoded %d digits", len(code)), err)
		c.metrics.IncrementSolveMiss()
		c.logger.DebugContext(ctx, "captcha solve miss", "iin", id.String(), "code_length", len(code), "error", err)
	}

	fragment, err := c.submit(ctx, hc, id, code, ch.viewState)
	if err != nil {
		return record, miss, err
	}
	parsed, err := parseResult(fragment)
	if err != nil {
		return record, miss, registry.NewUpstreamError(registry.ErrorBadData, upstreamName, "parse result fragment", err)
	}
	parsed.ID = id
	return parsed, miss, nil
}

type challenge struct {
	image     string
	viewState string
}

func (c *Client) fetchChallenge(ctx context.Context, hc *http.Client) (challenge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return challenge{}, registry.NewUpstreamError(registry.ErrorInternal, upstreamName, "build challenge request", err)
	}
	c.setUserAgent(req)

	resp, err := hc.Do(req)
	if err != nil {
		return challenge{}, registry.TransportError(upstreamName, "get challenge", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return challenge{}, registry.NewUpstreamError(registry.ErrorOutage, upstreamName,
			fmt.Sprintf("challenge status %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return challenge{}, registry.NewUpstreamError(registry.ErrorBadData, upstreamName, "parse challenge page", err)
	}
	return parseChallenge(doc)
}

func (c *Client) submit(ctx context.Context, hc *http.Client, id iin.ID, code, viewState string) (string, error) {
	form := formValues(id, code, viewState)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", registry.NewUpstreamError(registry.ErrorInternal, upstreamName, "build submit request", err)
	}
	c.setUserAgent(req)
	req.Header.Set("Accept", "application/xml, text/xml, */*; q=0.01")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Faces-Request", "partial/ajax")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := hc.Do(req)
	if err != nil {
		return "", registry.TransportError(upstreamName, "submit form", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", registry.NewUpstreamError(registry.ErrorOutage, upstreamName,
			fmt.Sprintf("submit status %d", resp.StatusCode), nil)
	}

	fragment, err := extractUpdate(resp.Body, formID)
	if err != nil {
		return "", registry.NewUpstreamError(registry.ErrorBadData, upstreamName, "parse partial response", err)
	}
	return fragment, nil
}

func (c *Client) setUserAgent(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// formValues is the JSF partial submit of the person check button.
func formValues(id iin.ID, code, viewState string) url.Values {
	return url.Values{
		"javax.faces.partial.ajax":    {"true"},
		"javax.faces.source":          {checkButton},
		"javax.faces.partial.execute": {formID},
		"javax.faces.partial.render":  {formID},
		checkButton:                   {checkButton},
		formID:                        {formID},
		"captcha":                     {code},
		"rcfield:0:inputValue":        {id.String()},
		"connectionpoint":             {""},
		"userAgreementCheckHidden":    {"true"},
		"certrequestStr":              {""},
		"keyidStr":                    {""},
		"javax.faces.ViewState":       {viewState},
	}
}
