// Package timeline models the fixed ten-stage lifecycle of a koi show and
// merges server-reported stage records into it.
package timeline

import (
	"fmt"
	"strings"
)

// StageKind identifies one phase of the show lifecycle. The integer value is
// the canonical ordering key and is never sent over the wire.
type StageKind int

// Stage kinds in canonical order.
const (
	RegistrationOpen StageKind = iota + 1
	KoiCheckIn
	TicketCheckIn
	Preliminary
	Evaluation
	Final
	Exhibition
	PublicResult
	Award
	Finished
)

// StageCount is the size of the stage catalog.
const StageCount = 10

type catalogEntry struct {
	name        string
	label       string
	description string
}

// catalog is indexed by kind-1.
var catalog = [StageCount]catalogEntry{
	{"RegistrationOpen", "Registration Open", "Koi owners register their fish for the show."},
	{"KoiCheckIn", "Koi Check-In", "Registered koi are received, measured and assigned to tanks."},
	{"TicketCheckIn", "Ticket Check-In", "Visitors present their tickets at the venue entrance."},
	{"Preliminary", "Preliminary Round", "Referees score every koi in its category."},
	{"Evaluation", "Evaluation Round", "Koi that passed the preliminary round are evaluated again."},
	{"Final", "Final Round", "Finalists compete for the category awards."},
	{"Exhibition", "Exhibition", "Koi are exhibited to the public."},
	{"PublicResult", "Public Results", "Competition results are published."},
	{"Award", "Award Ceremony", "Prizes are handed to the winning owners."},
	{"Finished", "Show Finished", "The show is closed."},
}

// Kinds returns every stage kind in canonical order.
func Kinds() []StageKind {
	out := make([]StageKind, StageCount)
	for i := range out {
		out[i] = StageKind(i + 1)
	}
	return out
}

// Valid reports whether k is one of the ten catalog kinds.
func (k StageKind) Valid() bool { return k >= RegistrationOpen && k <= Finished }

// Order is the canonical position of k, starting at 1.
func (k StageKind) Order() int { return int(k) }

// String returns the wire status name.
func (k StageKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("StageKind(%d)", int(k))
	}
	return catalog[k-1].name
}

// Label is the human readable title of k.
func (k StageKind) Label() string {
	if !k.Valid() {
		return ""
	}
	return catalog[k-1].label
}

// Description is the fixed catalog description of k.
func (k StageKind) Description() string {
	if !k.Valid() {
		return ""
	}
	return catalog[k-1].description
}

// ParseKind maps a wire status name to its kind. Matching ignores case and
// the separators '_', '-' and ' ', so "koi_check_in" and "KoiCheckIn" agree.
func ParseKind(name string) (StageKind, bool) {
	want := normalizeName(name)
	if want == "" {
		return 0, false
	}
	for i, e := range catalog {
		if normalizeName(e.name) == want {
			return StageKind(i + 1), true
		}
	}
	return 0, false
}

func normalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// MarshalText encodes k as its wire status name.
func (k StageKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a wire status name.
func (k *StageKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, string(b))
	}
	*k = parsed
	return nil
}
