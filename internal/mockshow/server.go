// Package mockshow serves an in-memory stand-in for the Koi show REST API's
// show-detail and status-update endpoints, for local development and tests.
package mockshow

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/koishow/internal/domain/timeline"
)

// Server holds shows in memory and implements http.Handler.
type Server struct {
	mu           sync.RWMutex
	shows        map[string]timeline.Show
	failUpdates  bool
	failFetches  bool
	updateCalls  int
	fetchCalls   int
	lastRequests []string
	router       chi.Router
}

type response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// New creates an empty server.
func New() *Server {
	s := &Server{shows: make(map[string]timeline.Show)}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/v1/koi-show/{showID}", s.handleGetShow)
	r.Put("/api/v1/show-status/{showID}", s.handlePutStatuses)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lastRequests = append(s.lastRequests, r.Header.Get(middleware.RequestIDHeader))
	s.mu.Unlock()
	s.router.ServeHTTP(w, r)
}

// Seed stores show, replacing any show with the same id.
func (s *Server) Seed(show timeline.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()
	show.Stages = cloneStages(show.Stages)
	s.shows[show.ID] = show
}

// Show returns the stored copy of a show.
func (s *Server) Show(id string) (timeline.Show, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	show, ok := s.shows[id]
	show.Stages = cloneStages(show.Stages)
	return show, ok
}

// FailUpdates makes every status update answer 500 while on is true.
func (s *Server) FailUpdates(on bool) {
	s.mu.Lock()
	s.failUpdates = on
	s.mu.Unlock()
}

// FailFetches makes every show fetch answer 500 while on is true.
func (s *Server) FailFetches(on bool) {
	s.mu.Lock()
	s.failFetches = on
	s.mu.Unlock()
}

// Calls returns how many fetches and updates were served.
func (s *Server) Calls() (fetches, updates int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchCalls, s.updateCalls
}

// RequestIDs returns the X-Request-Id header of every request seen.
func (s *Server) RequestIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lastRequests...)
}

func (s *Server) handleGetShow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "showID")
	s.mu.Lock()
	s.fetchCalls++
	fail := s.failFetches
	show, ok := s.shows[id]
	show.Stages = cloneStages(show.Stages)
	s.mu.Unlock()

	switch {
	case fail:
		writeJSON(w, http.StatusInternalServerError, response{StatusCode: 500, Message: "show detail unavailable"})
	case !ok:
		writeJSON(w, http.StatusNotFound, response{StatusCode: 404, Message: "show not found"})
	default:
		if show.Stages == nil {
			show.Stages = []timeline.ServerStage{}
		}
		writeJSON(w, http.StatusOK, response{StatusCode: 200, Message: "ok", Data: show})
	}
}

func (s *Server) handlePutStatuses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "showID")
	var records []timeline.ServerStage
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, response{StatusCode: 400, Message: "body must be an array of show statuses"})
		return
	}
	if err := checkRecords(records); err != nil {
		writeJSON(w, http.StatusBadRequest, response{StatusCode: 400, Message: err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.failUpdates {
		writeJSON(w, http.StatusInternalServerError, response{StatusCode: 500, Message: "status update failed"})
		return
	}
	show, ok := s.shows[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, response{StatusCode: 404, Message: "show not found"})
		return
	}
	show.Stages = cloneStages(records)
	s.shows[id] = show
	writeJSON(w, http.StatusOK, response{StatusCode: 200, Message: "updated"})
}

func checkRecords(records []timeline.ServerStage) error {
	seen := make(map[timeline.StageKind]bool, len(records))
	for _, rec := range records {
		kind, ok := timeline.ParseKind(rec.StatusName)
		if !ok {
			return errors.New("unknown statusName " + rec.StatusName)
		}
		if seen[kind] {
			return errors.New("duplicate statusName " + rec.StatusName)
		}
		seen[kind] = true
	}
	return nil
}

func cloneStages(in []timeline.ServerStage) []timeline.ServerStage {
	if in == nil {
		return nil
	}
	out := make([]timeline.ServerStage, len(in))
	for i, rec := range in {
		rec.StartDate = timeline.CloneTime(rec.StartDate)
		rec.EndDate = timeline.CloneTime(rec.EndDate)
		out[i] = rec
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
