package mockshow

import (
	"time"

	"github.com/okian/koishow/internal/domain/timeline"
)

// Demo returns a show whose configured stages form a valid schedule starting
// on the day after from, at midnight in from's location.
func Demo(id string, from time.Time) timeline.Show {
	y, m, d := from.Date()
	day0 := time.Date(y, m, d+1, 0, 0, 0, 0, from.Location())
	at := func(day, hour int) *time.Time {
		t := day0.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
		return &t
	}
	return timeline.Show{
		ID:     id,
		Name:   "Demo Koi Show",
		Status: "upcoming",
		Stages: []timeline.ServerStage{
			{StatusName: timeline.RegistrationOpen.String(), Description: "Entries accepted online", StartDate: at(0, 9), EndDate: at(3, 18), IsActive: true},
			{StatusName: timeline.KoiCheckIn.String(), StartDate: at(4, 8), EndDate: at(4, 12)},
			{StatusName: timeline.Preliminary.String(), StartDate: at(4, 13), EndDate: at(4, 17)},
			{StatusName: timeline.Evaluation.String(), StartDate: at(5, 9), EndDate: at(5, 12)},
			{StatusName: timeline.Final.String(), StartDate: at(5, 14), EndDate: at(5, 17)},
			{StatusName: timeline.Award.String(), StartDate: at(6, 10), EndDate: at(6, 11)},
			{StatusName: timeline.Finished.String(), StartDate: at(6, 18), EndDate: at(6, 18)},
		},
	}
}
