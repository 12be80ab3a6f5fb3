package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"iinfinder/pkg/domain"
	dErrors "iinfinder/pkg/domain-errors"
	"iinfinder/pkg/platform/httputil"
	"iinfinder/pkg/requestcontext"
)

type AutoSearchHandler struct {
	service AutoSearchService
	logger  *slog.Logger
}

func NewAutoSearchHandler(service AutoSearchService, logger *slog.Logger) *AutoSearchHandler {
	return &AutoSearchHandler{service: service, logger: logger}
}

func (h *AutoSearchHandler) Register(r chi.Router) {
	r.Put("/v1/auto-search", h.handleCreate)
	r.Get("/v1/auto-search/{ownerID}", h.handleGet)
	r.Delete("/v1/auto-search/{ownerID}", h.handleCancel)
}

// handleCreate replaces any task the owner already has.
func (h *AutoSearchHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[autoSearchRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	task, err := h.service.Create(ctx, req.create)
	if err != nil {
		writeFailure(ctx, h.logger, w, "create auto-search", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTask(task))
}

func (h *AutoSearchHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	task, err := h.service.Get(ctx, owner)
	if err != nil {
		writeFailure(ctx, h.logger, w, "get auto-search", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTask(task))
}

func (h *AutoSearchHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(ctx, owner); err != nil {
		writeFailure(ctx, h.logger, w, "cancel auto-search", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ownerParam(w http.ResponseWriter, r *http.Request) (domain.OwnerID, bool) {
	owner, err := domain.ParseOwnerID(chi.URLParam(r, "ownerID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error()))
		return 0, false
	}
	return owner, true
}
