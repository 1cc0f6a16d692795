package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(s string) *time.Time {
	t := at(s)
	return &t
}

func stage(kind timeline.StageKind, start, end string) timeline.ServerStage {
	rec := timeline.ServerStage{StatusName: kind.String()}
	if start != "" {
		rec.StartDate = ptr(start)
	}
	if end != "" {
		rec.EndDate = ptr(end)
	}
	return rec
}

func problemsOf(err error) []schedule.Problem {
	var verr *schedule.ValidationError
	if errors.As(err, &verr) {
		return verr.Problems
	}
	return nil
}

func rulesOf(err error) []schedule.Rule {
	var out []schedule.Rule
	for _, p := range problemsOf(err) {
		out = append(out, p.Rule)
	}
	return out
}

func TestNewBuffer(t *testing.T) {
	Convey("Given a timeline with two selected stages", t, func() {
		tl := timeline.Build([]timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
			stage(timeline.Finished, "2025-01-20 18:00", "2025-01-21 10:00"),
		})

		Convey("When seeding a buffer", func() {
			b := schedule.NewBuffer(tl)

			Convey("Then only selected stages are buffered", func() {
				So(b.Len(), ShouldEqual, 2)
				So(b.Has(timeline.RegistrationOpen), ShouldBeTrue)
				So(b.Has(timeline.KoiCheckIn), ShouldBeFalse)
			})

			Convey("And Finished is collapsed to a single instant", func() {
				e, ok := b.Entry(timeline.Finished)
				So(ok, ShouldBeTrue)
				So(e.End.Equal(*e.Start), ShouldBeTrue)
			})

			Convey("And edits do not leak into the timeline", func() {
				So(b.SetStart(timeline.RegistrationOpen, at("2025-01-02 09:00")), ShouldBeNil)
				reg, _ := tl.Stage(timeline.RegistrationOpen)
				So(reg.Start.Equal(at("2025-01-01 09:00")), ShouldBeTrue)
			})
		})
	})
}

func TestBufferEdits(t *testing.T) {
	Convey("Given a buffer with registration, check-in and finish", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
			stage(timeline.KoiCheckIn, "2025-01-06 08:00", "2025-01-06 17:00"),
			stage(timeline.Finished, "2025-01-20 18:00", "2025-01-20 18:00"),
		}))

		Convey("When moving registration's start", func() {
			So(b.SetStart(timeline.RegistrationOpen, at("2025-01-02 10:00")), ShouldBeNil)

			Convey("Then its end is independent", func() {
				e, _ := b.Entry(timeline.RegistrationOpen)
				So(e.End.Equal(at("2025-01-05 18:00")), ShouldBeTrue)
			})
		})

		Convey("When moving check-in to another day", func() {
			So(b.SetStart(timeline.KoiCheckIn, at("2025-01-07 07:30")), ShouldBeNil)

			Convey("Then its end follows onto that day with its own time", func() {
				e, _ := b.Entry(timeline.KoiCheckIn)
				So(e.Start.Equal(at("2025-01-07 07:30")), ShouldBeTrue)
				So(e.End.Equal(at("2025-01-07 17:00")), ShouldBeTrue)
			})
		})

		Convey("When check-in's end was edited directly before moving its start", func() {
			So(b.SetEnd(timeline.KoiCheckIn, at("2025-01-08 12:00")), ShouldBeNil)
			So(b.SetStart(timeline.KoiCheckIn, at("2025-01-07 07:30")), ShouldBeNil)

			Convey("Then the explicit end is kept", func() {
				e, _ := b.Entry(timeline.KoiCheckIn)
				So(e.End.Equal(at("2025-01-08 12:00")), ShouldBeTrue)
			})
		})

		Convey("When setting either instant of Finished", func() {
			So(b.SetEnd(timeline.Finished, at("2025-01-22 12:00")), ShouldBeNil)
			e, _ := b.Entry(timeline.Finished)
			So(e.Start.Equal(at("2025-01-22 12:00")), ShouldBeTrue)
			So(e.End.Equal(at("2025-01-22 12:00")), ShouldBeTrue)

			So(b.SetStart(timeline.Finished, at("2025-01-23 12:00")), ShouldBeNil)
			e, _ = b.Entry(timeline.Finished)
			So(e.End.Equal(at("2025-01-23 12:00")), ShouldBeTrue)
		})

		Convey("When editing a stage that is not scheduled", func() {
			err := b.SetStart(timeline.Award, at("2025-01-19 09:00"))

			Convey("Then ErrNotScheduled is returned", func() {
				So(errors.Is(err, schedule.ErrNotScheduled), ShouldBeTrue)
			})
		})

		Convey("When scheduling and unscheduling a stage", func() {
			So(b.Schedule(timeline.Award), ShouldBeNil)
			So(b.Has(timeline.Award), ShouldBeTrue)
			So(b.SetStart(timeline.Award, at("2025-01-19 09:00")), ShouldBeNil)
			So(b.Schedule(timeline.Award), ShouldBeNil)
			e, _ := b.Entry(timeline.Award)
			So(e.Start, ShouldNotBeNil)

			So(b.Unschedule(timeline.Award), ShouldBeNil)
			So(b.Has(timeline.Award), ShouldBeFalse)
			So(errors.Is(b.Unschedule(timeline.Award), schedule.ErrNotScheduled), ShouldBeTrue)
		})

		Convey("When scheduling an unknown kind", func() {
			err := b.Schedule(timeline.StageKind(11))
			So(errors.Is(err, timeline.ErrUnknownStage), ShouldBeTrue)
		})

		Convey("Then entries come back in canonical order", func() {
			entries := b.Entries()
			So(len(entries), ShouldEqual, 3)
			So(entries[0].Kind, ShouldEqual, timeline.RegistrationOpen)
			So(entries[1].Kind, ShouldEqual, timeline.KoiCheckIn)
			So(entries[2].Kind, ShouldEqual, timeline.Finished)
		})
	})
}

func TestValidateSelfConsistency(t *testing.T) {
	Convey("Given a stage whose start is after its end", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.Exhibition, "2025-02-02 10:00", "2025-02-01 10:00"),
		}))

		Convey("Then validation fails on that stage", func() {
			err := schedule.Validate(b)
			So(errors.Is(err, schedule.ErrInvalidTimeline), ShouldBeTrue)
			So(rulesOf(err), ShouldResemble, []schedule.Rule{schedule.RuleSelfConsistency})
			So(b.Errors()[timeline.Exhibition], ShouldContainSubstring, "is after end")
		})
	})

	Convey("Given a stage whose start equals its end", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.Exhibition, "2025-02-01 10:00", "2025-02-01 10:00"),
		}))

		Convey("Then it is accepted", func() {
			So(schedule.Validate(b), ShouldBeNil)
		})
	})
}

func TestValidateEnvelope(t *testing.T) {
	Convey("Given registration and finish bounds", t, func() {
		base := []timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
			stage(timeline.Finished, "2025-01-20 18:00", "2025-01-20 18:00"),
		}

		Convey("When a stage starts before registration opens", func() {
			b := schedule.NewBuffer(timeline.Build(append(base,
				stage(timeline.TicketCheckIn, "2024-12-31 09:00", "2024-12-31 10:00"))))
			err := schedule.Validate(b)

			Convey("Then an envelope problem is reported", func() {
				So(rulesOf(err), ShouldContain, schedule.RuleEnvelope)
				So(b.Errors()[timeline.TicketCheckIn], ShouldContainSubstring, "before registration opens")
			})
		})

		Convey("When a stage ends after the show finishes", func() {
			b := schedule.NewBuffer(timeline.Build(append(base,
				stage(timeline.Award, "2025-01-19 09:00", "2025-01-21 09:00"))))
			err := schedule.Validate(b)

			Convey("Then an envelope problem is reported", func() {
				So(rulesOf(err), ShouldContain, schedule.RuleEnvelope)
				So(b.Errors()[timeline.Award], ShouldContainSubstring, "after the show finishes")
			})
		})

		Convey("When no finish is scheduled", func() {
			b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
				stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
				stage(timeline.Award, "2025-12-19 09:00", "2025-12-21 09:00"),
			}))

			Convey("Then the upper bound is not checked", func() {
				So(schedule.Validate(b), ShouldBeNil)
			})
		})
	})
}

func TestValidateSequence(t *testing.T) {
	Convey("Given registration ending exactly when check-in starts", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
			stage(timeline.KoiCheckIn, "2025-01-05 18:00", "2025-01-06 08:00"),
		}))

		Convey("Then touching boundaries are rejected", func() {
			err := schedule.Validate(b)
			So(rulesOf(err), ShouldResemble, []schedule.Rule{schedule.RuleSequence})
			problems := problemsOf(err)
			So(problems[0].Kind, ShouldEqual, timeline.KoiCheckIn)
			So(b.Errors()[timeline.KoiCheckIn], ShouldContainSubstring, "Registration Open")
		})
	})

	Convey("Given check-in moved one minute after registration ends", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
			stage(timeline.KoiCheckIn, "2025-01-05 18:01", "2025-01-06 08:00"),
		}))

		Convey("Then the batch is valid", func() {
			So(schedule.Validate(b), ShouldBeNil)
			So(b.Errors(), ShouldBeEmpty)
		})
	})

	Convey("Given check-in starting at 2025-01-06 08:01 with its end still at 08:00", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
			stage(timeline.KoiCheckIn, "2025-01-06 08:01", "2025-01-06 08:00"),
		}))

		Convey("Then only its own start/end order fails", func() {
			So(rulesOf(schedule.Validate(b)), ShouldResemble, []schedule.Rule{schedule.RuleSelfConsistency})
		})
	})

	Convey("Given non-adjacent kinds with an unscheduled gap", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.Preliminary, "2025-03-01 09:00", "2025-03-01 12:00"),
			stage(timeline.Final, "2025-03-01 11:00", "2025-03-01 15:00"),
		}))

		Convey("Then the scheduled neighbours are still compared", func() {
			err := schedule.Validate(b)
			So(rulesOf(err), ShouldResemble, []schedule.Rule{schedule.RuleSequence})
		})
	})

	Convey("Given a pair missing one of the compared dates", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.Preliminary, "2025-03-01 09:00", ""),
			stage(timeline.Evaluation, "2025-03-01 08:00", "2025-03-01 15:00"),
		}))

		Convey("Then the pair is skipped and only completeness fails", func() {
			So(rulesOf(schedule.Validate(b)), ShouldResemble, []schedule.Rule{schedule.RuleComplete})
		})
	})
}

func TestValidateAccumulates(t *testing.T) {
	Convey("Given a batch with several violations", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 18:00"),
			stage(timeline.KoiCheckIn, "2025-01-04 09:00", "2025-01-03 09:00"),
			stage(timeline.Finished, "2025-01-02 18:00", ""),
		}))

		Convey("Then every problem is reported in rule order", func() {
			err := schedule.Validate(b)
			So(err, ShouldNotBeNil)
			rules := rulesOf(err)
			So(rules[0], ShouldEqual, schedule.RuleSelfConsistency)
			So(rules, ShouldContain, schedule.RuleEnvelope)
			So(rules, ShouldContain, schedule.RuleSequence)
			So(err.Error(), ShouldStartWith, "timeline validation failed: ")
		})

		Convey("And a later valid run clears the recorded messages", func() {
			_ = schedule.Validate(b)
			So(b.SetStart(timeline.KoiCheckIn, at("2025-01-06 09:00")), ShouldBeNil)
			So(b.SetEnd(timeline.KoiCheckIn, at("2025-01-06 17:00")), ShouldBeNil)
			So(b.SetStart(timeline.Finished, at("2025-01-20 18:00")), ShouldBeNil)
			So(schedule.Validate(b), ShouldBeNil)
			So(b.Errors(), ShouldBeEmpty)
		})
	})
}

func TestDisabledTimesFor(t *testing.T) {
	Convey("Given check-in between registration and the preliminary round", t, func() {
		b := schedule.NewBuffer(timeline.Build([]timeline.ServerStage{
			stage(timeline.RegistrationOpen, "2025-01-01 09:00", "2025-01-05 14:30"),
			stage(timeline.KoiCheckIn, "2025-01-05 15:00", "2025-01-05 20:00"),
			stage(timeline.Preliminary, "2025-01-05 21:15", "2025-01-06 12:00"),
		}))
		day := at("2025-01-05 00:00")

		Convey("When picking check-in's start on the day registration ends", func() {
			got := schedule.DisabledTimesFor(timeline.KoiCheckIn, schedule.FieldStart, b, day, 14)

			Convey("Then earlier hours and minutes are disabled", func() {
				So(got.Hours, ShouldResemble, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13})
				So(len(got.Minutes), ShouldEqual, 30)
				So(got.Minutes[29], ShouldEqual, 29)
			})
		})

		Convey("When the picker's hour differs from the bound's hour", func() {
			got := schedule.DisabledTimesFor(timeline.KoiCheckIn, schedule.FieldStart, b, day, 16)
			So(got.Minutes, ShouldBeEmpty)
		})

		Convey("When picking check-in's end on the day the preliminary starts", func() {
			got := schedule.DisabledTimesFor(timeline.KoiCheckIn, schedule.FieldEnd, b, day, 21)

			Convey("Then later hours and minutes are disabled", func() {
				So(got.Hours, ShouldResemble, []int{22, 23})
				So(got.Minutes[0], ShouldEqual, 16)
				So(got.Minutes[len(got.Minutes)-1], ShouldEqual, 59)
			})
		})

		Convey("When picking on a different calendar day", func() {
			got := schedule.DisabledTimesFor(timeline.KoiCheckIn, schedule.FieldStart, b, at("2025-01-07 00:00"), 14)

			Convey("Then nothing is disabled", func() {
				So(got.Hours, ShouldBeEmpty)
				So(got.Minutes, ShouldBeEmpty)
			})
		})

		Convey("When the stage has no neighbour", func() {
			got := schedule.DisabledTimesFor(timeline.RegistrationOpen, schedule.FieldStart, b, day, 9)
			So(got.Hours, ShouldBeEmpty)

			got = schedule.DisabledTimesFor(timeline.Preliminary, schedule.FieldEnd, b, day, 9)
			So(got.Hours, ShouldBeEmpty)
		})
	})

	Convey("Given field names", t, func() {
		f, err := schedule.ParseField("end")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, schedule.FieldEnd)

		_, err = schedule.ParseField("middle")
		So(errors.Is(err, schedule.ErrInvalidField), ShouldBeTrue)
	})
}

func TestPayload(t *testing.T) {
	Convey("Given a timeline with an active stage and a newly scheduled one", t, func() {
		tl := timeline.Build([]timeline.ServerStage{
			{StatusName: "RegistrationOpen", Description: "Entries accepted online", StartDate: ptr("2025-01-01 09:00"), EndDate: ptr("2025-01-05 18:00"), IsActive: true},
			stage(timeline.KoiCheckIn, "2025-01-05 18:01", "2025-01-06 08:00"),
		})
		b := schedule.NewBuffer(tl)
		So(b.Schedule(timeline.Finished), ShouldBeNil)
		So(b.SetStart(timeline.Finished, at("2025-01-20 18:00")), ShouldBeNil)

		Convey("When building the payload", func() {
			got := schedule.Payload(b, tl)

			Convey("Then every scheduled stage is included in order", func() {
				So(len(got), ShouldEqual, 3)
				So(got[0].StatusName, ShouldEqual, "RegistrationOpen")
				So(got[1].StatusName, ShouldEqual, "KoiCheckIn")
				So(got[2].StatusName, ShouldEqual, "Finished")
			})

			Convey("And active flags are echoed unchanged", func() {
				So(got[0].IsActive, ShouldBeTrue)
				So(got[1].IsActive, ShouldBeFalse)
				So(got[2].IsActive, ShouldBeFalse)
			})

			Convey("And the show's own descriptions are echoed back", func() {
				So(got[0].Description, ShouldEqual, "Entries accepted online")
			})

			Convey("And stages without one fall back to the catalog", func() {
				So(got[1].Description, ShouldEqual, timeline.KoiCheckIn.Description())
				So(got[2].Description, ShouldEqual, timeline.Finished.Description())
			})
		})
	})
}
