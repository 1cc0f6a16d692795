// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
	"github.com/okian/koishow/internal/domain/types"
	"github.com/okian/koishow/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ViewDependencies
	StageDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	catalogHandler *CatalogHandler
	viewsHandler   *ViewsHandler
	stagesHandler  *StagesHandler
}

// Option applies a configuration option to the Server.
type Option func(*options)

type options struct {
	loc    *time.Location
	logger logger.Logger
}

// WithLocation sets the zone used to read calendar days in queries.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithLogger sets a custom logger for request failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("api")
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		catalogHandler: NewCatalogHandler(),
		viewsHandler:   NewViewsHandler(deps, o.logger),
		stagesHandler:  NewStagesHandler(deps, o.loc, o.logger),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/catalog", MetricsMiddleware(s.catalogHandler.HandleCatalog, "catalog"))

	r.Route("/views", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.viewsHandler.HandleOpen, "views"))
		r.Route("/{viewID}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(s.viewsHandler.HandleGet, "view"))
			r.Patch("/", MetricsMiddleware(s.viewsHandler.HandlePatch, "view"))
			r.Delete("/", MetricsMiddleware(s.viewsHandler.HandleClose, "view"))
			r.Post("/refresh", MetricsMiddleware(s.viewsHandler.HandleRefresh, "refresh"))
			r.Post("/edit", MetricsMiddleware(s.viewsHandler.HandleEdit, "edit"))
			r.Post("/cancel", MetricsMiddleware(s.viewsHandler.HandleCancel, "cancel"))
			r.Post("/save", MetricsMiddleware(s.viewsHandler.HandleSave, "save"))

			r.Route("/stages/{kind}", func(r chi.Router) {
				r.Patch("/", MetricsMiddleware(s.stagesHandler.HandleUpdate, "stage"))
				r.Post("/", MetricsMiddleware(s.stagesHandler.HandleSchedule, "stage"))
				r.Delete("/", MetricsMiddleware(s.stagesHandler.HandleUnschedule, "stage"))
				r.Get("/disabled-times", MetricsMiddleware(s.stagesHandler.HandleDisabledTimes, "disabled_times"))
			})
		})
	})
}

// NewRouter returns a chi router with request IDs, panic recovery and all
// API routes registered.
func NewRouter(ctx context.Context, deps Dependencies, statsProvider StatsProvider, opts ...Option) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	NewServer(deps, statsProvider, opts...).Register(ctx, r)
	return r
}

// Aliases for the read shapes returned by handlers.
type (
	ViewState   = types.ViewState
	SaveOutcome = types.SaveOutcome
	StageUpdate = types.StageUpdate
)

type errorResponse struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Problems []schedule.Problem `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var verr *schedule.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	writeJSON(w, status, resp)
}

// fail writes err with the status it maps to and logs server-side failures.
func fail(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// stageKind reads the {kind} path parameter.
func stageKind(r *http.Request) (timeline.StageKind, error) {
	name := chi.URLParam(r, "kind")
	kind, ok := timeline.ParseKind(name)
	if !ok {
		return 0, WrapKind("api.stage_kind", ErrUnknownStage, errors.New(name))
	}
	return kind, nil
}
