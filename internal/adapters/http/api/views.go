package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/koishow/internal/domain/timeline"
	"github.com/okian/koishow/pkg/logger"
)

// ViewDependencies defines the view lifecycle operations.
type ViewDependencies interface {
	OpenView(ctx context.Context, showID string, disabled bool, stages []timeline.ServerStage) (ViewState, error)
	View(ctx context.Context, viewID string) (ViewState, error)
	CloseView(ctx context.Context, viewID string) error
	SetDisabled(ctx context.Context, viewID string, disabled bool) (ViewState, error)
	RefreshView(ctx context.Context, viewID string) (ViewState, error)
	StartEdit(ctx context.Context, viewID string) (ViewState, error)
	CancelEdit(ctx context.Context, viewID string) (ViewState, error)
	Save(ctx context.Context, viewID string) (SaveOutcome, error)
}

// ViewsHandler handles view requests.
type ViewsHandler struct {
	deps   ViewDependencies
	logger logger.Logger
}

// NewViewsHandler creates a new views handler.
func NewViewsHandler(deps ViewDependencies, log logger.Logger) *ViewsHandler {
	return &ViewsHandler{deps: deps, logger: log}
}

// HandleOpen handles POST /views.
func (h *ViewsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	const op = "api.open_view"
	var req openViewRequest
	if err := decode(r, op, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	st, err := h.deps.OpenView(r.Context(), req.ShowID, req.Disabled, req.Stages)
	if err != nil {
		fail(w, r, h.logger, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/views/"+st.ViewID)
	writeJSON(w, http.StatusCreated, st)
}

// HandleGet handles GET /views/{viewID}.
func (h *ViewsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.get_view", h.deps.View)
}

// HandlePatch handles PATCH /views/{viewID}.
func (h *ViewsHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_view"
	var req patchViewRequest
	if err := decode(r, op, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	h.respond(w, r, op, func(ctx context.Context, viewID string) (ViewState, error) {
		return h.deps.SetDisabled(ctx, viewID, *req.Disabled)
	})
}

// HandleClose handles DELETE /views/{viewID}.
func (h *ViewsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseView(r.Context(), chi.URLParam(r, "viewID")); err != nil {
		fail(w, r, h.logger, Wrap("api.close_view", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh handles POST /views/{viewID}/refresh.
func (h *ViewsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.refresh_view", h.deps.RefreshView)
}

// HandleEdit handles POST /views/{viewID}/edit.
func (h *ViewsHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.start_edit", h.deps.StartEdit)
}

// HandleCancel handles POST /views/{viewID}/cancel.
func (h *ViewsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.cancel_edit", h.deps.CancelEdit)
}

// HandleSave handles POST /views/{viewID}/save.
func (h *ViewsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Save(r.Context(), chi.URLParam(r, "viewID"))
	if err != nil {
		fail(w, r, h.logger, Wrap("api.save", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ViewsHandler) respond(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) (ViewState, error)) {
	st, err := fn(r.Context(), chi.URLParam(r, "viewID"))
	if err != nil {
		fail(w, r, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
