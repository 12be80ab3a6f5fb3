package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"iinfinder/internal/access"
	dErrors "iinfinder/pkg/domain-errors"
	"iinfinder/pkg/platform/httputil"
	"iinfinder/pkg/requestcontext"
)

// AccessHandler lets operators maintain the allow and deny lists.
type AccessHandler struct {
	store  AccessStore
	logger *slog.Logger
}

func NewAccessHandler(store AccessStore, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{store: store, logger: logger}
}

func (h *AccessHandler) Register(r chi.Router) {
	r.Get("/v1/access/{kind}", h.handleList)
	r.Put("/v1/access/{kind}/{ownerID}", h.handleAdd)
	r.Delete("/v1/access/{kind}/{ownerID}", h.handleRemove)
}

func (h *AccessHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	entries, err := h.store.List(ctx, kind)
	if err != nil {
		writeFailure(ctx, h.logger, w, "list access", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": toAccessEntries(entries)})
}

func (h *AccessHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	// the body is optional; a bare PUT lists the owner without expiry
	req := &accessRequest{}
	if r.ContentLength != 0 {
		if req, ok = httputil.DecodeAndPrepare[accessRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx)); !ok {
			return
		}
	}

	entry := &access.Entry{
		Kind:      kind,
		OwnerID:   owner,
		ExpiresAt: req.ExpiresAt,
		Comment:   req.Comment,
		AddedBy:   req.AddedBy,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := h.store.Add(ctx, entry); err != nil {
		writeFailure(ctx, h.logger, w, "add access", err)
		return
	}
	h.logger.InfoContext(ctx, "access entry added",
		"request_id", requestcontext.RequestID(ctx),
		"kind", string(kind),
		"owner_id", owner.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccessHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	owner, ok := ownerParam(w, r)
	if !ok {
		return
	}
	if err := h.store.Remove(ctx, kind, owner); err != nil {
		writeFailure(ctx, h.logger, w, "remove access", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func kindParam(w http.ResponseWriter, r *http.Request) (access.Kind, bool) {
	kind, err := access.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error()))
		return "", false
	}
	return kind, true
}
