package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"iinfinder/pkg/platform/httputil"
	"iinfinder/pkg/requestcontext"
)

// SearchHandler serves resolution and confirm-only requests.
type SearchHandler struct {
	searcher  Searcher
	confirmer Confirmer
	logger    *slog.Logger
}

func NewSearchHandler(searcher Searcher, confirmer Confirmer, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, confirmer: confirmer, logger: logger}
}

func (h *SearchHandler) Register(r chi.Router) {
	r.Post("/v1/resolve", h.handleResolve)
	r.Post("/v1/confirm", h.handleConfirm)
}

func (h *SearchHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[resolveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	res, err := h.searcher.Search(ctx, req.Owner, req.query)
	if err != nil {
		writeFailure(ctx, h.logger, w, "resolve", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resolveResponse{
		CacheTier: int(res.Tier),
		Found:     toRecords(res.Found),
		Leftover:  toIDStrings(res.Leftover),
	})
}

func (h *SearchHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[confirmRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	found, err := h.confirmer.ConfirmOnly(ctx, req.ids, req.Name)
	if err != nil {
		writeFailure(ctx, h.logger, w, "confirm", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, confirmResponse{Found: toRecords(found)})
}
