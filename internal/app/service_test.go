package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/koishow/internal/adapters/repository"
	service "github.com/okian/koishow/internal/app"
	"github.com/okian/koishow/internal/app/session"
	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
	"github.com/okian/koishow/internal/domain/types"
	"github.com/okian/koishow/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var errUpstream = errors.New("upstream down")

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

type fakeAPI struct {
	mu       sync.Mutex
	stages   []timeline.ServerStage
	fetchErr error
	updates  int

	block   chan struct{}
	entered chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{stages: []timeline.ServerStage{
		{StatusName: "RegistrationOpen", StartDate: ptr(at(1, 9, 0)), EndDate: ptr(at(3, 18, 0)), IsActive: true},
		{StatusName: "Preliminary", StartDate: ptr(at(5, 9, 0)), EndDate: ptr(at(5, 17, 0))},
	}}
}

func (f *fakeAPI) FetchShow(_ context.Context, showID string) (*timeline.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &timeline.Show{ID: showID, Name: "Autumn Show", Stages: append([]timeline.ServerStage(nil), f.stages...)}, nil
}

func (f *fakeAPI) UpdateStatuses(_ context.Context, _ string, records []timeline.ServerStage) error {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if block != nil {
		close(entered)
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.stages = append([]timeline.ServerStage(nil), records...)
	return nil
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("view-%d", n)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service that has not been started", t, func() {
		svc := service.New(newFakeAPI())

		Convey("Then operations are refused", func() {
			_, err := svc.OpenView(context.Background(), "show-1", false, nil)
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.CloseView(context.Background(), "view-1"), ShouldEqual, service.ErrNotStarted)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})

		Convey("Then Stop is a no-op", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})
}

func TestService_Views(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		api := newFakeAPI()
		svc := service.New(api,
			service.WithMaxViews(2),
			service.WithViewIdleTTL(0),
			service.WithIDGenerator(sequentialIDs()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a view is opened", func() {
			st, err := svc.OpenView(ctx, "show-1", false, nil)
			So(err, ShouldBeNil)

			Convey("Then it holds the fetched timeline", func() {
				So(st.ViewID, ShouldEqual, "view-1")
				So(st.ShowName, ShouldEqual, "Autumn Show")
				So(st.Stages, ShouldHaveLength, timeline.StageCount)
				So(st.Selected, ShouldHaveLength, 2)
				So(st.Mode, ShouldEqual, string(session.ModeViewing))
			})

			Convey("And it can be fetched and closed", func() {
				got, err := svc.View(ctx, "view-1")
				So(err, ShouldBeNil)
				So(got.ShowID, ShouldEqual, "show-1")

				So(svc.CloseView(ctx, "view-1"), ShouldBeNil)
				_, err = svc.View(ctx, "view-1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And the stats count it", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["openViews"], ShouldEqual, 1)
			})
		})

		Convey("When the host supplies the stage list", func() {
			api.fetchErr = errUpstream
			st, err := svc.OpenView(ctx, "show-1", true, []timeline.ServerStage{
				{StatusName: "Award", StartDate: ptr(at(9, 10, 0)), EndDate: ptr(at(9, 11, 0))},
			})

			Convey("Then no fetch is needed", func() {
				So(err, ShouldBeNil)
				So(st.Disabled, ShouldBeTrue)
				So(st.Selected, ShouldHaveLength, 1)
				So(st.Selected[0].Kind, ShouldEqual, timeline.Award)
			})
		})

		Convey("When the initial fetch fails", func() {
			api.fetchErr = errUpstream
			_, err := svc.OpenView(ctx, "show-1", false, nil)

			Convey("Then no view is left open", func() {
				So(errors.Is(err, errUpstream), ShouldBeTrue)
				So(svc.GetStats()["openViews"], ShouldEqual, 0)
			})
		})

		Convey("When no show id is given", func() {
			_, err := svc.OpenView(ctx, "", false, nil)
			So(err, ShouldEqual, service.ErrMissingShowID)
		})

		Convey("When more views are opened than allowed", func() {
			_, err := svc.OpenView(ctx, "show-1", false, nil)
			So(err, ShouldBeNil)
			_, err = svc.OpenView(ctx, "show-2", false, nil)
			So(err, ShouldBeNil)
			_, err = svc.OpenView(ctx, "show-3", false, nil)

			Convey("Then the extra view is refused", func() {
				So(errors.Is(err, repository.ErrCapacity), ShouldBeTrue)
			})
		})

		Convey("Unknown views are reported as not found", func() {
			_, err := svc.StartEdit(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.Save(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Editing(t *testing.T) {
	Convey("Given an open view", t, func() {
		ctx := context.Background()
		api := newFakeAPI()
		svc := service.New(api, service.WithViewIdleTTL(0), service.WithIDGenerator(sequentialIDs()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		_, err := svc.OpenView(ctx, "show-1", false, nil)
		So(err, ShouldBeNil)

		Convey("When the view is disabled", func() {
			_, err := svc.SetDisabled(ctx, "view-1", true)
			So(err, ShouldBeNil)
			_, err = svc.StartEdit(ctx, "view-1")

			Convey("Then editing cannot start", func() {
				So(errors.Is(err, session.ErrDisabled), ShouldBeTrue)
			})
		})

		Convey("When editing", func() {
			st, err := svc.StartEdit(ctx, "view-1")
			So(err, ShouldBeNil)
			So(st.Mode, ShouldEqual, string(session.ModeEditing))

			Convey("Then start and end can be set together", func() {
				st, err := svc.UpdateStage(ctx, "view-1", timeline.Preliminary, types.StageUpdate{
					Start: ptr(at(6, 9, 0)),
					End:   ptr(at(7, 12, 0)),
				})
				So(err, ShouldBeNil)
				for _, e := range st.Buffer {
					if e.Kind == timeline.Preliminary {
						So(*e.Start, ShouldEqual, at(6, 9, 0))
						So(*e.End, ShouldEqual, at(7, 12, 0))
					}
				}
			})

			Convey("Then a stage can be scheduled and saved", func() {
				_, err := svc.ScheduleStage(ctx, "view-1", timeline.Final)
				So(err, ShouldBeNil)
				_, err = svc.UpdateStage(ctx, "view-1", timeline.Final, types.StageUpdate{
					Start: ptr(at(8, 9, 0)),
					End:   ptr(at(8, 17, 0)),
				})
				So(err, ShouldBeNil)

				out, err := svc.Save(ctx, "view-1")
				So(err, ShouldBeNil)
				So(out.Records, ShouldHaveLength, 3)
				So(out.Mode, ShouldEqual, string(session.ModeViewing))
				So(out.Selected, ShouldHaveLength, 3)
				So(out.RefreshError, ShouldBeEmpty)
			})

			Convey("Then an unscheduled stage disappears from the buffer", func() {
				st, err := svc.UnscheduleStage(ctx, "view-1", timeline.Preliminary)
				So(err, ShouldBeNil)
				So(st.Buffer, ShouldHaveLength, 1)
			})

			Convey("Then picker constraints are served", func() {
				dt, err := svc.DisabledTimes(ctx, "view-1", timeline.Preliminary, schedule.FieldEnd, at(5, 0, 0), -1)
				So(err, ShouldBeNil)
				So(dt.Hours, ShouldBeEmpty)
			})

			Convey("Then an invalid batch is refused", func() {
				_, err := svc.UpdateStage(ctx, "view-1", timeline.Preliminary, types.StageUpdate{
					Start: ptr(at(2, 9, 0)),
				})
				So(err, ShouldBeNil)
				_, err = svc.Save(ctx, "view-1")
				So(errors.Is(err, schedule.ErrInvalidTimeline), ShouldBeTrue)
				So(api.updates, ShouldEqual, 0)
			})

			Convey("Then cancel returns to Viewing", func() {
				st, err := svc.CancelEdit(ctx, "view-1")
				So(err, ShouldBeNil)
				So(st.Mode, ShouldEqual, string(session.ModeViewing))
				So(st.Buffer, ShouldBeEmpty)
			})

			Convey("Then a concurrent save for the same view is refused", func() {
				api.block = make(chan struct{})
				api.entered = make(chan struct{})
				done := make(chan error, 1)
				go func() {
					_, err := svc.Save(ctx, "view-1")
					done <- err
				}()
				<-api.entered

				_, err := svc.Save(ctx, "view-1")
				So(errors.Is(err, session.ErrSaveInFlight), ShouldBeTrue)
				So(svc.GetStats()["savesInFlight"], ShouldEqual, 1)

				close(api.block)
				So(<-done, ShouldBeNil)
				So(svc.GetStats()["savesInFlight"], ShouldEqual, 0)
			})
		})

		Convey("When a refresh fails", func() {
			api.fetchErr = errUpstream
			_, err := svc.RefreshView(ctx, "view-1")

			Convey("Then the last known timeline is kept", func() {
				So(errors.Is(err, session.ErrRefreshFailed), ShouldBeTrue)
				st, err := svc.View(ctx, "view-1")
				So(err, ShouldBeNil)
				So(st.Selected, ShouldHaveLength, 2)
			})
		})
	})
}
