package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrDisabled       = errors.New("timeline editing is disabled for this show")
	ErrNotEditing     = errors.New("session is not editing")
	ErrAlreadyEditing = errors.New("session is already editing")
	ErrSaveInFlight   = errors.New("a save is already in flight")
	ErrSaveFailed     = errors.New("timeline save failed")
	ErrRefreshFailed  = errors.New("timeline refresh failed")
)
