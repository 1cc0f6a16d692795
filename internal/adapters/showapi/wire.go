package showapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/koishow/internal/domain/timeline"
)

// envelope is the response wrapper used by every show API endpoint.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type wireShow struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Status       string      `json:"status"`
	ShowStatuses []wireStage `json:"showStatuses"`
}

type wireStage struct {
	StatusName  string  `json:"statusName"`
	Description string  `json:"description"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	IsActive    bool    `json:"isActive"`
}

// Layouts accepted for timestamps; zone-less ones are read in the client's
// configured location.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(raw *string, loc *time.Location) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: bad timestamp %q", ErrMalformedResponse, s)
}

// decodeShow turns a show-detail envelope payload into a timeline.Show.
// Anything that does not fit the explicit show shape is rejected.
func decodeShow(data json.RawMessage, loc *time.Location) (*timeline.Show, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("%w: show data must be an object", ErrMalformedResponse)
	}
	var ws wireShow
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	show := &timeline.Show{
		ID:     ws.ID,
		Name:   ws.Name,
		Status: ws.Status,
		Stages: make([]timeline.ServerStage, 0, len(ws.ShowStatuses)),
	}
	for _, st := range ws.ShowStatuses {
		start, err := parseTimestamp(st.StartDate, loc)
		if err != nil {
			return nil, err
		}
		end, err := parseTimestamp(st.EndDate, loc)
		if err != nil {
			return nil, err
		}
		show.Stages = append(show.Stages, timeline.ServerStage{
			StatusName:  st.StatusName,
			Description: st.Description,
			StartDate:   start,
			EndDate:     end,
			IsActive:    st.IsActive,
		})
	}
	return show, nil
}
