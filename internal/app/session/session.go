// Package session implements the timeline editor session: a Viewing/Editing
// state machine over one show's timeline that buffers date edits, validates
// them as a batch and commits them through the show API.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
	"github.com/okian/koishow/pkg/logger"
	"github.com/okian/koishow/pkg/metrics"
)

// ShowFetcher loads the current show detail.
type ShowFetcher interface {
	FetchShow(ctx context.Context, showID string) (*timeline.Show, error)
}

// StatusUpdater persists a full replacement set of stage records.
type StatusUpdater interface {
	UpdateStatuses(ctx context.Context, showID string, records []timeline.ServerStage) error
}

// Mode is the session state.
type Mode string

// Session modes.
const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

// Snapshot is a point-in-time copy of the session for rendering.
type Snapshot struct {
	ShowID     string            `json:"showId"`
	ShowName   string            `json:"showName,omitempty"`
	ShowStatus string            `json:"showStatus,omitempty"`
	Mode       Mode              `json:"mode"`
	Disabled   bool              `json:"disabled"`
	Saving     bool              `json:"saving"`
	Stages     timeline.Timeline `json:"stages"`
	Selected   []timeline.Stage  `json:"selected"`
	Buffer     []schedule.Entry  `json:"buffer,omitempty"`
	LoadedAt   time.Time         `json:"loadedAt"`
}

// SaveResult describes a committed batch.
type SaveResult struct {
	Records []timeline.ServerStage `json:"records"`
	// RefreshErr is set when the commit succeeded but reloading the
	// timeline afterwards failed; the last known timeline is kept.
	RefreshErr error `json:"-"`
}

// Session is one open show-detail view. Methods are safe for concurrent use;
// the show API is never called with the lock held.
type Session struct {
	mu sync.Mutex

	showID   string
	disabled bool
	mode     Mode
	saving   bool

	show     timeline.Show
	timeline timeline.Timeline
	loadedAt time.Time
	buffer   *schedule.Buffer

	fetcher ShowFetcher
	updater StatusUpdater
	logger  logger.Logger
	now     func() time.Time
}

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithDisabled sets the host's business-rule lock on editing.
func WithDisabled(disabled bool) Option {
	return func(s *Session) { s.disabled = disabled }
}

// WithServerStages seeds the timeline from a stage list the host already has.
func WithServerStages(stages []timeline.ServerStage) Option {
	return func(s *Session) {
		s.show.Stages = stages
		s.timeline = timeline.Build(stages)
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session in Viewing mode with an empty timeline.
func New(showID string, fetcher ShowFetcher, updater StatusUpdater, opts ...Option) *Session {
	s := &Session{
		showID:   showID,
		mode:     ModeViewing,
		show:     timeline.Show{ID: showID},
		timeline: timeline.Build(nil),
		fetcher:  fetcher,
		updater:  updater,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("session")
	}
	s.logger = s.logger.With(logger.String("show_id", showID))
	return s
}

// ShowID returns the show this session edits.
func (s *Session) ShowID() string { return s.showID }

// Load fetches the show and rebuilds the timeline. On failure the last
// known timeline is kept and the error is returned.
func (s *Session) Load(ctx context.Context) error {
	show, err := s.fetcher.FetchShow(ctx, s.showID)
	if err != nil {
		metrics.RecordRefresh(metrics.UpstreamError)
		s.logger.Warn(ctx, "timeline refresh failed; keeping last known timeline", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	tl := timeline.Build(show.Stages)

	s.mu.Lock()
	s.show = *show
	s.timeline = tl
	s.loadedAt = s.now()
	s.mu.Unlock()

	metrics.RecordRefresh(metrics.UpstreamOK)
	s.logger.Debug(ctx, "timeline loaded", logger.Int("selected", len(timeline.OrderedSelected(tl))))
	return nil
}

// SetDisabled updates the host's editing lock. It does not end an edit that
// is already in progress.
func (s *Session) SetDisabled(disabled bool) {
	s.mu.Lock()
	s.disabled = disabled
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ShowID:     s.showID,
		ShowName:   s.show.Name,
		ShowStatus: s.show.Status,
		Mode:       s.mode,
		Disabled:   s.disabled,
		Saving:     s.saving,
		Stages:     s.timeline.Clone(),
		Selected:   timeline.OrderedSelected(s.timeline),
		LoadedAt:   s.loadedAt,
	}
	if s.buffer != nil {
		snap.Buffer = s.buffer.Entries()
	}
	return snap
}

// StartEdit moves the session to Editing and seeds the buffer from every
// selected stage.
func (s *Session) StartEdit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.disabled:
		return ErrDisabled
	case s.mode == ModeEditing:
		return ErrAlreadyEditing
	}
	s.buffer = schedule.NewBuffer(s.timeline)
	s.mode = ModeEditing
	metrics.RecordEditStarted()
	s.logger.Info(ctx, "timeline edit started", logger.Int("buffered", s.buffer.Len()))
	return nil
}

// Cancel discards the buffer and returns to Viewing without contacting the
// show API.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.buffer = nil
	s.mode = ModeViewing
	metrics.RecordEditCancelled()
	s.logger.Info(ctx, "timeline edit cancelled")
	return nil
}

// SetStart stages a new start instant for kind.
func (s *Session) SetStart(kind timeline.StageKind, t time.Time) error {
	return s.mutate(func(b *schedule.Buffer) error { return b.SetStart(kind, t) })
}

// SetEnd stages a new end instant for kind.
func (s *Session) SetEnd(kind timeline.StageKind, t time.Time) error {
	return s.mutate(func(b *schedule.Buffer) error { return b.SetEnd(kind, t) })
}

// Schedule adds an unscheduled kind to the buffer.
func (s *Session) Schedule(kind timeline.StageKind) error {
	return s.mutate(func(b *schedule.Buffer) error { return b.Schedule(kind) })
}

// Unschedule removes kind from the buffer.
func (s *Session) Unschedule(kind timeline.StageKind) error {
	return s.mutate(func(b *schedule.Buffer) error { return b.Unschedule(kind) })
}

// DisabledTimes returns the picker constraints for editing field of kind on
// day, computed from the buffer as it is now.
func (s *Session) DisabledTimes(kind timeline.StageKind, field schedule.Field, day time.Time, selectedHour int) (schedule.DisabledTimes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeEditing || s.buffer == nil {
		return schedule.DisabledTimes{}, ErrNotEditing
	}
	if !kind.Valid() {
		return schedule.DisabledTimes{}, fmt.Errorf("%w: %d", timeline.ErrUnknownStage, int(kind))
	}
	return schedule.DisabledTimesFor(kind, field, s.buffer, day, selectedHour), nil
}

// Save validates the buffer and, when it is valid, submits it as the show's
// new stage list. A validation failure keeps the session in Editing with
// per-stage messages and sends nothing. Once submitted, the buffer is
// cleared and the session returns to Viewing whether or not the show API
// accepted it; on success the timeline is reloaded.
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := schedule.Validate(s.buffer); err != nil {
		s.mu.Unlock()
		metrics.RecordSave(metrics.SaveValidationFailed)
		var verr *schedule.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				metrics.RecordValidationProblem(string(p.Rule))
			}
		}
		s.logger.Info(ctx, "timeline save rejected by validation", logger.Error(err))
		return nil, err
	}
	records := schedule.Payload(s.buffer, s.timeline)
	s.saving = true
	s.mu.Unlock()

	err := s.updater.UpdateStatuses(ctx, s.showID, records)

	s.mu.Lock()
	s.saving = false
	s.buffer = nil
	s.mode = ModeViewing
	s.mu.Unlock()

	if err != nil {
		metrics.RecordSave(metrics.SaveUpstreamFailed)
		s.logger.Error(ctx, "timeline save failed; edits discarded", logger.Int("records", len(records)), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	metrics.RecordSave(metrics.SaveSucceeded)
	s.logger.Info(ctx, "timeline saved", logger.Int("records", len(records)))

	res := &SaveResult{Records: records}
	if rerr := s.Load(ctx); rerr != nil {
		res.RefreshErr = rerr
	}
	return res, nil
}

func (s *Session) mutate(fn func(*schedule.Buffer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return fn(s.buffer)
}

func (s *Session) editableLocked() error {
	switch {
	case s.saving:
		return ErrSaveInFlight
	case s.mode != ModeEditing || s.buffer == nil:
		return ErrNotEditing
	}
	return nil
}
