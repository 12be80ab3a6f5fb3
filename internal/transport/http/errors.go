package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"iinfinder/internal/search"
	dErrors "iinfinder/pkg/domain-errors"
	"iinfinder/pkg/platform/httputil"
	"iinfinder/pkg/platform/sentinel"
	"iinfinder/pkg/requestcontext"
)

type quotaResponse struct {
	Error       string    `json:"error"`
	Description string    `json:"error_description"`
	Limit       int       `json:"limit"`
	RetryAt     time.Time `json:"retry_at"`
}

// toDomainError maps service and store errors onto response codes.
func toDomainError(err error) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, search.ErrAccessDenied):
		return dErrors.Wrap(err, dErrors.CodeForbidden, "owner is not allowed to search")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "dependency unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
	}
}

// writeFailure logs err at a level matching its status and writes the
// error response. Quota rejections carry retry_at and Retry-After.
func writeFailure(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, op string, err error) {
	requestID := requestcontext.RequestID(ctx)

	var quota *search.QuotaExceededError
	if errors.As(err, &quota) {
		logger.InfoContext(ctx, "request over quota",
			"request_id", requestID,
			"op", op,
			"retry_at", quota.RetryAt,
		)
		wait := time.Until(quota.RetryAt)
		if wait < time.Second {
			wait = time.Second
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
		httputil.WriteJSON(w, http.StatusTooManyRequests, quotaResponse{
			Error:       string(dErrors.CodeQuotaExceeded),
			Description: "weekly search quota used up",
			Limit:       quota.Limit,
			RetryAt:     quota.RetryAt.UTC(),
		})
		return
	}

	err = toDomainError(err)
	status := httputil.StatusFor(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed",
			"request_id", requestID,
			"op", op,
			"persistence", search.IsPersistence(err),
			"error", err,
		)
	} else {
		logger.WarnContext(ctx, "request rejected",
			"request_id", requestID,
			"op", op,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
