// Package schedule holds the edit buffer for a show timeline together with
// the batch validation and time-picker rules applied to it.
package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/koishow/internal/domain/timeline"
)

// Entry is the tentative schedule for one stage.
type Entry struct {
	Kind  timeline.StageKind `json:"kind"`
	Start *time.Time         `json:"startDate"`
	End   *time.Time         `json:"endDate"`
	Error string             `json:"error,omitempty"`

	endEdited bool
}

// Buffer is a working copy of stage dates keyed by kind. It is owned by a
// single edit session and is not safe for concurrent use.
type Buffer struct {
	entries map[timeline.StageKind]*Entry
}

// NewBuffer seeds a buffer from every selected stage of tl.
func NewBuffer(tl timeline.Timeline) *Buffer {
	b := &Buffer{entries: make(map[timeline.StageKind]*Entry)}
	for _, s := range tl {
		if !s.Selected || !s.Kind.Valid() {
			continue
		}
		e := &Entry{
			Kind:  s.Kind,
			Start: timeline.CloneTime(s.Start),
			End:   timeline.CloneTime(s.End),
		}
		if s.Kind == timeline.Finished {
			// Finished is a single instant.
			e.End = timeline.CloneTime(e.Start)
		}
		b.entries[s.Kind] = e
	}
	return b
}

// Len returns the number of scheduled stages.
func (b *Buffer) Len() int { return len(b.entries) }

// Has reports whether kind is scheduled in the buffer.
func (b *Buffer) Has(kind timeline.StageKind) bool {
	_, ok := b.entries[kind]
	return ok
}

// Entry returns a copy of the entry for kind.
func (b *Buffer) Entry(kind timeline.StageKind) (Entry, bool) {
	e, ok := b.entries[kind]
	if !ok {
		return Entry{}, false
	}
	return e.copy(), true
}

// Entries returns copies of all entries in canonical stage order.
func (b *Buffer) Entries() []Entry {
	out := make([]Entry, 0, len(b.entries))
	for _, kind := range b.kinds() {
		out = append(out, b.entries[kind].copy())
	}
	return out
}

// Errors returns the per-stage validation messages currently recorded.
func (b *Buffer) Errors() map[timeline.StageKind]string {
	out := make(map[timeline.StageKind]string)
	for kind, e := range b.entries {
		if e.Error != "" {
			out[kind] = e.Error
		}
	}
	return out
}

// SetStart sets the start instant of kind. For stages other than
// RegistrationOpen an end that has not been edited directly follows the new
// start onto its calendar day, keeping its own time of day. Finished keeps
// start and end equal.
func (b *Buffer) SetStart(kind timeline.StageKind, t time.Time) error {
	e, err := b.lookup(kind)
	if err != nil {
		return err
	}
	e.Start = &t
	switch {
	case kind == timeline.Finished:
		e.End = timeline.CloneTime(&t)
	case kind != timeline.RegistrationOpen && e.End != nil && !e.endEdited:
		end := onDay(t, *e.End)
		e.End = &end
	}
	return nil
}

// SetEnd sets the end instant of kind. For Finished it moves the single
// closing instant, start included.
func (b *Buffer) SetEnd(kind timeline.StageKind, t time.Time) error {
	e, err := b.lookup(kind)
	if err != nil {
		return err
	}
	e.End = &t
	e.endEdited = true
	if kind == timeline.Finished {
		e.Start = timeline.CloneTime(&t)
	}
	return nil
}

// Schedule adds kind to the buffer with no dates. Scheduling a kind that is
// already present is a no-op.
func (b *Buffer) Schedule(kind timeline.StageKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", timeline.ErrUnknownStage, int(kind))
	}
	if _, ok := b.entries[kind]; !ok {
		b.entries[kind] = &Entry{Kind: kind}
	}
	return nil
}

// Unschedule removes kind from the buffer.
func (b *Buffer) Unschedule(kind timeline.StageKind) error {
	if _, err := b.lookup(kind); err != nil {
		return err
	}
	delete(b.entries, kind)
	return nil
}

// ClearErrors drops every recorded validation message.
func (b *Buffer) ClearErrors() {
	for _, e := range b.entries {
		e.Error = ""
	}
}

func (b *Buffer) lookup(kind timeline.StageKind) (*Entry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", timeline.ErrUnknownStage, int(kind))
	}
	e, ok := b.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotScheduled, kind)
	}
	return e, nil
}

func (b *Buffer) kinds() []timeline.StageKind {
	out := make([]timeline.StageKind, 0, len(b.entries))
	for kind := range b.entries {
		out = append(out, kind)
	}
	slices.Sort(out)
	return out
}

// neighbours returns the scheduled entries immediately before and after
// kind in canonical order.
func (b *Buffer) neighbours(kind timeline.StageKind) (prev, next *Entry) {
	for _, k := range b.kinds() {
		switch {
		case k < kind:
			prev = b.entries[k]
		case k > kind && next == nil:
			next = b.entries[k]
		}
	}
	return prev, next
}

func (e *Entry) copy() Entry {
	return Entry{
		Kind:      e.Kind,
		Start:     timeline.CloneTime(e.Start),
		End:       timeline.CloneTime(e.End),
		Error:     e.Error,
		endEdited: e.endEdited,
	}
}

// onDay returns the instant on day's calendar date with tod's time of day,
// in day's location.
func onDay(day, tod time.Time) time.Time {
	tod = tod.In(day.Location())
	y, m, d := day.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), day.Location())
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
