package timeline

import "time"

// Stage is one timeline entry for a show.
type Stage struct {
	Kind        StageKind `json:"kind"`
	Order       int       `json:"order"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	// ServerDescription is the show's own text for the stage, echoed back
	// on update. Description always comes from the catalog.
	ServerDescription string     `json:"serverDescription,omitempty"`
	Start             *time.Time `json:"startDate"`
	End               *time.Time `json:"endDate"`
	// IsActive is assigned by the server and only ever echoed back.
	IsActive bool `json:"isActive"`
	// Selected is true when the kind is scheduled for this show.
	Selected bool `json:"selected"`
}

// ServerStage is the wire record exchanged with the show API, both in the
// show-detail response and in the batch status update request.
type ServerStage struct {
	StatusName  string     `json:"statusName"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	IsActive    bool       `json:"isActive"`
}

// Show is the subset of the show-detail response the timeline needs.
type Show struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status string        `json:"status"`
	Stages []ServerStage `json:"showStatuses"`
}

// Timeline is the full ten-entry catalog for one show in canonical order.
type Timeline []Stage

// Stage returns the entry for kind.
func (tl Timeline) Stage(kind StageKind) (Stage, bool) {
	for _, s := range tl {
		if s.Kind == kind {
			return s, true
		}
	}
	return Stage{}, false
}

// Active returns the stage the server marked as live, if any.
func (tl Timeline) Active() (Stage, bool) {
	for _, s := range tl {
		if s.IsActive {
			return s, true
		}
	}
	return Stage{}, false
}

// Clone returns a deep copy of tl.
func (tl Timeline) Clone() Timeline {
	if tl == nil {
		return nil
	}
	out := make(Timeline, len(tl))
	for i, s := range tl {
		s.Start = CloneTime(s.Start)
		s.End = CloneTime(s.End)
		out[i] = s
	}
	return out
}

// CloneTime copies t so callers never share a pointer with the source.
func CloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
