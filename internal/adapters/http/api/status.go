package api

import (
	"errors"
	"net/http"

	"github.com/okian/koishow/internal/adapters/repository"
	"github.com/okian/koishow/internal/adapters/showapi"
	service "github.com/okian/koishow/internal/app"
	"github.com/okian/koishow/internal/app/session"
	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
)

// statusClientClosedRequest is reported when the caller went away before the
// show API answered; nobody reads the response.
const statusClientClosedRequest = 499

// errorStatus maps a failure to its HTTP status and error code. Order
// matters: a failed save wraps the show API error that caused it.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrMissingShowID),
		errors.Is(err, schedule.ErrInvalidField):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnknownStage), errors.Is(err, timeline.ErrUnknownStage):
		return http.StatusBadRequest, "unknown_stage"
	case errors.Is(err, schedule.ErrInvalidTimeline):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "view_not_found"
	case errors.Is(err, repository.ErrCapacity):
		return http.StatusTooManyRequests, "too_many_views"
	case errors.Is(err, session.ErrDisabled):
		return http.StatusConflict, "disabled"
	case errors.Is(err, session.ErrNotEditing):
		return http.StatusConflict, "not_editing"
	case errors.Is(err, session.ErrAlreadyEditing):
		return http.StatusConflict, "already_editing"
	case errors.Is(err, session.ErrSaveInFlight):
		return http.StatusConflict, "save_in_flight"
	case errors.Is(err, schedule.ErrNotScheduled):
		return http.StatusConflict, "not_scheduled"
	case errors.Is(err, showapi.ErrCanceled):
		return statusClientClosedRequest, "canceled"
	case errors.Is(err, session.ErrSaveFailed) && errors.Is(err, showapi.ErrTimeout):
		return http.StatusGatewayTimeout, "save_failed"
	case errors.Is(err, session.ErrSaveFailed):
		return http.StatusBadGateway, "save_failed"
	case errors.Is(err, showapi.ErrNotFound):
		return http.StatusNotFound, "show_not_found"
	case errors.Is(err, showapi.ErrTimeout):
		return http.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, session.ErrRefreshFailed),
		errors.Is(err, showapi.ErrUnavailable),
		errors.Is(err, showapi.ErrUnauthorized),
		errors.Is(err, showapi.ErrMalformedResponse):
		return http.StatusBadGateway, "upstream_failed"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	var se *showapi.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway, "upstream_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}
