package schedule

import (
	"fmt"
	"time"

	"github.com/okian/koishow/internal/domain/timeline"
)

// Field selects which instant of a stage a time picker edits.
type Field string

// Editable fields.
const (
	FieldStart Field = "start"
	FieldEnd   Field = "end"
)

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case FieldStart, FieldEnd:
		return Field(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// DisabledTimes lists the hours and minutes a picker should grey out.
type DisabledTimes struct {
	Hours   []int `json:"disabledHours"`
	Minutes []int `json:"disabledMinutes"`
}

// DisabledTimesFor computes advisory time-of-day limits for editing field
// of kind on the calendar date of day. A start may not be earlier than the
// preceding scheduled stage's end on the same day; an end may not be later
// than the following scheduled stage's start on the same day. selectedHour
// is the hour currently chosen in the picker, or negative when none is; the
// minute list only applies to that hour. Hard ordering is still enforced by
// Validate.
func DisabledTimesFor(kind timeline.StageKind, field Field, b *Buffer, day time.Time, selectedHour int) DisabledTimes {
	out := DisabledTimes{Hours: []int{}, Minutes: []int{}}
	if b == nil {
		return out
	}
	prev, next := b.neighbours(kind)

	switch field {
	case FieldStart:
		if prev == nil || prev.End == nil || !sameDay(day, *prev.End) {
			return out
		}
		bound := prev.End.In(day.Location())
		out.Hours = span(0, bound.Hour()-1)
		if selectedHour == bound.Hour() {
			out.Minutes = span(0, bound.Minute()-1)
		}
	case FieldEnd:
		if next == nil || next.Start == nil || !sameDay(day, *next.Start) {
			return out
		}
		bound := next.Start.In(day.Location())
		out.Hours = span(bound.Hour()+1, 23)
		if selectedHour == bound.Hour() {
			out.Minutes = span(bound.Minute()+1, 59)
		}
	}
	return out
}

func span(from, to int) []int {
	out := []int{}
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
