package schedule

import "errors"

// Sentinel kinds for schedule errors.
var (
	ErrNotScheduled    = errors.New("stage not scheduled in edit buffer")
	ErrInvalidTimeline = errors.New("invalid timeline")
	ErrInvalidField    = errors.New("invalid time field")
)
