// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/koishow/internal/domain/schedule"
	"github.com/okian/koishow/internal/domain/timeline"
)

// CatalogEntry describes one stage kind.
type CatalogEntry struct {
	Kind        timeline.StageKind `json:"kind"`
	Order       int                `json:"order"`
	Label       string             `json:"label"`
	Description string             `json:"description"`
}

// Catalog returns the ten stage kinds in canonical order.
func Catalog() []CatalogEntry {
	kinds := timeline.Kinds()
	out := make([]CatalogEntry, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, CatalogEntry{Kind: k, Order: k.Order(), Label: k.Label(), Description: k.Description()})
	}
	return out
}

// ViewState is the read shape of one open view.
type ViewState struct {
	ViewID     string            `json:"viewId"`
	ShowID     string            `json:"showId"`
	ShowName   string            `json:"showName,omitempty"`
	ShowStatus string            `json:"showStatus,omitempty"`
	Mode       string            `json:"mode"`
	Disabled   bool              `json:"disabled"`
	Saving     bool              `json:"saving"`
	Stages     timeline.Timeline `json:"stages"`
	Selected   []timeline.Stage  `json:"selected"`
	Buffer     []schedule.Entry  `json:"buffer,omitempty"`
	LoadedAt   time.Time         `json:"loadedAt"`
}

// SaveOutcome is the result of a committed save.
type SaveOutcome struct {
	ViewState
	Records []timeline.ServerStage `json:"records"`
	// RefreshError is set when the save went through but reloading the
	// timeline afterwards failed.
	RefreshError string `json:"refreshError,omitempty"`
}

// StageUpdate carries the instants to set on one stage. Start is applied
// before End so an explicit end is never moved by the start's day change.
type StageUpdate struct {
	Start *time.Time
	End   *time.Time
}
