package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
)

const dayLayout = "2006-01-02"

// openViewRequest is the body of POST /views. Stages, when present, is the
// show's current stage list and spares the initial fetch.
type openViewRequest struct {
	ShowID   string                 `json:"showId"`
	Disabled bool                   `json:"disabled"`
	Stages   []timeline.ServerStage `json:"showStatuses"`
}

func (m openViewRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ShowID, validation.Required, validation.Length(1, 128), is.PrintableASCII),
	)
}

// patchViewRequest is the body of PATCH /views/{viewID}.
type patchViewRequest struct {
	Disabled *bool `json:"disabled"`
}

func (m patchViewRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Disabled, validation.NotNil),
	)
}

// updateStageRequest is the body of PATCH /views/{viewID}/stages/{kind}.
// Instants are RFC 3339.
type updateStageRequest struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

func (m updateStageRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Start,
			validation.When(m.End == nil, validation.Required.Error("start or end is required")),
			validation.NilOrNotEmpty,
			validation.Date(time.RFC3339),
		),
		validation.Field(&m.End,
			validation.NilOrNotEmpty,
			validation.Date(time.RFC3339),
		),
	)
}

func (m updateStageRequest) update() (StageUpdate, error) {
	var upd StageUpdate
	for _, f := range []struct {
		raw *string
		dst **time.Time
	}{{m.Start, &upd.Start}, {m.End, &upd.End}} {
		if f.raw == nil {
			continue
		}
		t, err := time.Parse(time.RFC3339, *f.raw)
		if err != nil {
			return StageUpdate{}, err
		}
		*f.dst = &t
	}
	return upd, nil
}

// disabledTimesQuery is the query of GET .../disabled-times.
type disabledTimesQuery struct {
	Field string
	Day   string
	Hour  string
}

func (m disabledTimesQuery) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Field, validation.Required, validation.In(string(schedule.FieldStart), string(schedule.FieldEnd))),
		validation.Field(&m.Day, validation.Required, validation.Date(dayLayout)),
		validation.Field(&m.Hour, validation.By(func(value any) error {
			if m.Hour == "" {
				return nil
			}
			h, err := strconv.Atoi(m.Hour)
			if err != nil || h < -1 || h > 23 {
				return validation.NewError("validation_hour", "must be an hour between 0 and 23, or -1 for none")
			}
			return nil
		})),
	)
}

// parse returns the field, the calendar day in loc, and the selected hour
// (-1 when none).
func (m disabledTimesQuery) parse(loc *time.Location) (schedule.Field, time.Time, int, error) {
	field, err := schedule.ParseField(m.Field)
	if err != nil {
		return "", time.Time{}, 0, err
	}
	day, err := time.ParseInLocation(dayLayout, m.Day, loc)
	if err != nil {
		return "", time.Time{}, 0, err
	}
	hour := -1
	if m.Hour != "" {
		if hour, err = strconv.Atoi(m.Hour); err != nil {
			return "", time.Time{}, 0, err
		}
	}
	return field, day, hour, nil
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, op string, v validation.Validatable) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err))
	}
	if err := v.Validate(); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
