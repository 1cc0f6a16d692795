package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
	"github.com/okian/koishow/pkg/logger"
)

// StageDependencies defines the per-stage edit operations.
type StageDependencies interface {
	UpdateStage(ctx context.Context, viewID string, kind timeline.StageKind, upd StageUpdate) (ViewState, error)
	ScheduleStage(ctx context.Context, viewID string, kind timeline.StageKind) (ViewState, error)
	UnscheduleStage(ctx context.Context, viewID string, kind timeline.StageKind) (ViewState, error)
	DisabledTimes(ctx context.Context, viewID string, kind timeline.StageKind, field schedule.Field, day time.Time, selectedHour int) (schedule.DisabledTimes, error)
}

// StagesHandler handles stage requests.
type StagesHandler struct {
	deps   StageDependencies
	loc    *time.Location
	logger logger.Logger
}

// NewStagesHandler creates a new stages handler. Calendar days in queries
// are read in loc.
func NewStagesHandler(deps StageDependencies, loc *time.Location, log logger.Logger) *StagesHandler {
	return &StagesHandler{deps: deps, loc: loc, logger: log}
}

// HandleUpdate handles PATCH /views/{viewID}/stages/{kind}.
func (h *StagesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_stage"
	kind, err := stageKind(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	var req updateStageRequest
	if err := decode(r, op, &req); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	upd, err := req.update()
	if err != nil {
		fail(w, r, h.logger, WrapKind(op, ErrBadRequest, err))
		return
	}
	st, err := h.deps.UpdateStage(r.Context(), chi.URLParam(r, "viewID"), kind, upd)
	if err != nil {
		fail(w, r, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleSchedule handles POST /views/{viewID}/stages/{kind}.
func (h *StagesHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.schedule_stage", h.deps.ScheduleStage)
}

// HandleUnschedule handles DELETE /views/{viewID}/stages/{kind}.
func (h *StagesHandler) HandleUnschedule(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.unschedule_stage", h.deps.UnscheduleStage)
}

// HandleDisabledTimes handles GET /views/{viewID}/stages/{kind}/disabled-times.
func (h *StagesHandler) HandleDisabledTimes(w http.ResponseWriter, r *http.Request) {
	const op = "api.disabled_times"
	kind, err := stageKind(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	q := disabledTimesQuery{
		Field: r.URL.Query().Get("field"),
		Day:   r.URL.Query().Get("day"),
		Hour:  r.URL.Query().Get("hour"),
	}
	if err := q.Validate(); err != nil {
		fail(w, r, h.logger, WrapKind(op, ErrBadRequest, err))
		return
	}
	field, day, hour, err := q.parse(h.loc)
	if err != nil {
		fail(w, r, h.logger, WrapKind(op, ErrBadRequest, err))
		return
	}
	dt, err := h.deps.DisabledTimes(r.Context(), chi.URLParam(r, "viewID"), kind, field, day, hour)
	if err != nil {
		fail(w, r, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

func (h *StagesHandler) respond(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string, timeline.StageKind) (ViewState, error)) {
	kind, err := stageKind(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	st, err := fn(r.Context(), chi.URLParam(r, "viewID"), kind)
	if err != nil {
		fail(w, r, h.logger, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
