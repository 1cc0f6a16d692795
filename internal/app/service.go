// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/koishow/internal/adapters/repository"
	"github.com/okian/koishow/internal/app/session"
	"github.com/okian/koishow/internal/domain/dedupe"
	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
	"github.com/okian/koishow/internal/domain/types"
	"github.com/okian/koishow/pkg/logger"
	"github.com/okian/koishow/pkg/metrics"
)

// ShowAPI is the show REST API as used by editor sessions.
type ShowAPI interface {
	session.ShowFetcher
	session.StatusUpdater
}

// Service implements the API dependencies for timeline views.
type Service struct {
	mu sync.RWMutex

	// Core components
	api   ShowAPI
	views repository.Store
	saves dedupe.Deduper

	// Configuration
	maxViews    int
	viewIdleTTL time.Duration

	// State
	started bool
	newID   func() string

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMaxViews bounds the number of open views.
func WithMaxViews(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxViews = n
		}
	}
}

// WithViewIdleTTL closes views that have been idle for ttl. Zero disables
// expiry.
func WithViewIdleTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.viewIdleTTL = ttl
		}
	}
}

// WithStore replaces the default in-memory view store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.views = store
		}
	}
}

// WithIDGenerator overrides how view IDs are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service that talks to api.
func New(api ShowAPI, opts ...Option) *Service {
	s := &Service{
		api:         api,
		maxViews:    1000,
		viewIdleTTL: 30 * time.Minute,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.views == nil {
		s.views = repository.NewMemoryStore(ctx,
			repository.WithMaxViews(s.maxViews),
			repository.WithIdleTTL(s.viewIdleTTL),
		)
	}
	s.saves = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.maxViews))

	s.started = true
	s.logger.Info(ctx, "timeline service started",
		logger.Int("maxViews", s.maxViews),
		logger.Duration("viewIdleTTL", s.viewIdleTTL),
	)
	return nil
}

// Stop shuts down the service and closes the view store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if closer, ok := s.views.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "timeline service stopped")
}

// OpenView opens a show-detail view. When stages is non-nil the timeline is
// built from it; otherwise the show is fetched first and a failed fetch
// leaves no view behind.
func (s *Service) OpenView(ctx context.Context, showID string, disabled bool, stages []timeline.ServerStage) (types.ViewState, error) {
	if err := s.ready(); err != nil {
		return types.ViewState{}, err
	}
	if showID == "" {
		return types.ViewState{}, ErrMissingShowID
	}

	viewID := s.newID()
	log := s.logger.With(logger.String("view_id", viewID))
	opts := []session.Option{session.WithDisabled(disabled), session.WithLogger(log)}
	if stages != nil {
		opts = append(opts, session.WithServerStages(stages))
	}
	sess := session.New(showID, s.api, s.api, opts...)

	if stages == nil {
		if err := sess.Load(ctx); err != nil {
			return types.ViewState{}, err
		}
	}

	v := &repository.View{ID: viewID, ShowID: showID, Session: sess, OpenedAt: time.Now()}
	if err := s.views.Put(ctx, v); err != nil {
		return types.ViewState{}, err
	}
	metrics.RecordViewOpened()
	log.Info(ctx, "view opened", logger.String("show_id", showID), logger.Bool("disabled", disabled))
	return s.state(v), nil
}

// View returns the current state of a view.
func (s *Service) View(ctx context.Context, viewID string) (types.ViewState, error) {
	v, err := s.view(ctx, viewID)
	if err != nil {
		return types.ViewState{}, err
	}
	return s.state(v), nil
}

// CloseView discards a view and any unsaved edits.
func (s *Service) CloseView(ctx context.Context, viewID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.views.Delete(ctx, viewID); err != nil {
		return err
	}
	s.logger.Info(ctx, "view closed", logger.String("view_id", viewID))
	return nil
}

// SetDisabled updates the host's editing lock for a view.
func (s *Service) SetDisabled(ctx context.Context, viewID string, disabled bool) (types.ViewState, error) {
	return s.apply(ctx, viewID, func(sess *session.Session) error {
		sess.SetDisabled(disabled)
		return nil
	})
}

// RefreshView reloads the view's timeline from the show API.
func (s *Service) RefreshView(ctx context.Context, viewID string) (types.ViewState, error) {
	return s.apply(ctx, viewID, func(sess *session.Session) error { return sess.Load(ctx) })
}

// StartEdit switches a view to Editing.
func (s *Service) StartEdit(ctx context.Context, viewID string) (types.ViewState, error) {
	return s.apply(ctx, viewID, func(sess *session.Session) error { return sess.StartEdit(ctx) })
}

// CancelEdit discards a view's pending edits.
func (s *Service) CancelEdit(ctx context.Context, viewID string) (types.ViewState, error) {
	return s.apply(ctx, viewID, func(sess *session.Session) error { return sess.Cancel(ctx) })
}

// UpdateStage stages new instants for one stage.
func (s *Service) UpdateStage(ctx context.Context, viewID string, kind timeline.StageKind, upd types.StageUpdate) (types.ViewState, error) {
	return s.apply(ctx, viewID, func(sess *session.Session) error {
		if upd.Start != nil {
			if err := sess.SetStart(kind, *upd.Start); err != nil {
				return err
			}
		}
		if upd.End != nil {
			return sess.SetEnd(kind, *upd.End)
		}
		return nil
	})
}

// ScheduleStage adds a stage to a view's pending edits.
func (s *Service) ScheduleStage(ctx context.Context, viewID string, kind timeline.StageKind) (types.ViewState, error) {
	return s.apply(ctx, viewID, func(sess *session.Session) error { return sess.Schedule(kind) })
}

// UnscheduleStage removes a stage from a view's pending edits.
func (s *Service) UnscheduleStage(ctx context.Context, viewID string, kind timeline.StageKind) (types.ViewState, error) {
	return s.apply(ctx, viewID, func(sess *session.Session) error { return sess.Unschedule(kind) })
}

// DisabledTimes returns picker constraints for one field of a stage.
func (s *Service) DisabledTimes(ctx context.Context, viewID string, kind timeline.StageKind, field schedule.Field, day time.Time, selectedHour int) (schedule.DisabledTimes, error) {
	v, err := s.view(ctx, viewID)
	if err != nil {
		return schedule.DisabledTimes{}, err
	}
	return v.Session.DisabledTimes(kind, field, day, selectedHour)
}

// Save validates and commits a view's pending edits. Only one save per view
// runs at a time.
func (s *Service) Save(ctx context.Context, viewID string) (types.SaveOutcome, error) {
	v, err := s.view(ctx, viewID)
	if err != nil {
		return types.SaveOutcome{}, err
	}
	if s.saves.SeenAndRecord(ctx, viewID) {
		metrics.RecordSave(metrics.SaveRejected)
		return types.SaveOutcome{}, session.ErrSaveInFlight
	}
	defer s.saves.Unrecord(ctx, viewID)

	res, err := v.Session.Save(ctx)
	if err != nil {
		return types.SaveOutcome{}, err
	}
	out := types.SaveOutcome{ViewState: s.state(v), Records: res.Records}
	if res.RefreshErr != nil {
		out.RefreshError = res.RefreshErr.Error()
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"maxViews":    s.maxViews,
		"viewIdleTTL": s.viewIdleTTL.String(),
	}
	if s.started {
		open := s.views.Count(context.Background())
		stats["openViews"] = open
		stats["savesInFlight"] = s.saves.Size()
		metrics.UpdateActiveViews(open)
	}
	return stats
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) view(ctx context.Context, viewID string) (*repository.View, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.views.Get(ctx, viewID)
}

func (s *Service) apply(ctx context.Context, viewID string, fn func(*session.Session) error) (types.ViewState, error) {
	v, err := s.view(ctx, viewID)
	if err != nil {
		return types.ViewState{}, err
	}
	if err := fn(v.Session); err != nil {
		return types.ViewState{}, fmt.Errorf("view %s: %w", viewID, err)
	}
	return s.state(v), nil
}

func (s *Service) state(v *repository.View) types.ViewState {
	snap := v.Session.Snapshot()
	return types.ViewState{
		ViewID:     v.ID,
		ShowID:     snap.ShowID,
		ShowName:   snap.ShowName,
		ShowStatus: snap.ShowStatus,
		Mode:       string(snap.Mode),
		Disabled:   snap.Disabled,
		Saving:     snap.Saving,
		Stages:     snap.Stages,
		Selected:   snap.Selected,
		Buffer:     snap.Buffer,
		LoadedAt:   snap.LoadedAt,
	}
}
