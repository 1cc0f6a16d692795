package timeline

import "errors"

// Sentinel kinds for timeline errors.
var (
	ErrUnknownStage = errors.New("unknown stage")
)
