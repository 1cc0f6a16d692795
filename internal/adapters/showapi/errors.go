package showapi

import (
	"errors"
	"fmt"
)

// Sentinel kinds for show API failures.
var (
	ErrTimeout           = errors.New("show api timeout")
	ErrCanceled          = errors.New("show api request canceled")
	ErrUnavailable       = errors.New("show api unavailable")
	ErrNotFound          = errors.New("show not found")
	ErrUnauthorized      = errors.New("show api unauthorized")
	ErrMalformedResponse = errors.New("malformed show api response")
)

// StatusError is returned for a non-2xx HTTP status, or a non-2xx statusCode
// inside a 200 envelope, without a dedicated kind.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("show api error [%d]: %s", e.StatusCode, e.Message)
}
