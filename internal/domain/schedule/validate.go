package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/koishow/internal/domain/timeline"
)

// Rule names the check a Problem came from.
type Rule string

// Validation rules in the order they run.
const (
	RuleSelfConsistency Rule = "self_consistency"
	RuleEnvelope        Rule = "envelope"
	RuleSequence        Rule = "sequence"
	RuleComplete        Rule = "complete"
)

const messageTimeLayout = "2006-01-02 15:04"

// Problem is one validation failure attributed to a stage.
type Problem struct {
	Kind    timeline.StageKind `json:"kind"`
	Rule    Rule               `json:"rule"`
	Message string             `json:"message"`
}

// ValidationError carries every problem found in one batch.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	return "timeline validation failed: " + strings.Join(e.Messages(), "; ")
}

// Is lets callers match any ValidationError with ErrInvalidTimeline.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidTimeline }

// Messages returns the human readable message of each problem.
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		out[i] = p.Message
	}
	return out
}

// Validate checks the whole buffer and records a message on every failing
// stage. It returns a *ValidationError listing each violation, or nil.
//
// Rules, in order:
//  1. a stage's start is not after its end;
//  2. every stage other than RegistrationOpen starts no earlier than
//     RegistrationOpen's start, and every end is no later than Finished's
//     start;
//  3. walking stages in canonical order, each stage starts strictly after
//     the previous one ends;
//  4. every scheduled stage has both dates.
//
// Missing dates never fail rules 1-3; the pair or bound is skipped.
func Validate(b *Buffer) error {
	b.ClearErrors()
	entries := make([]*Entry, 0, len(b.entries))
	for _, kind := range b.kinds() {
		entries = append(entries, b.entries[kind])
	}

	var problems []Problem
	add := func(kind timeline.StageKind, rule Rule, format string, args ...any) {
		problems = append(problems, Problem{
			Kind:    kind,
			Rule:    rule,
			Message: fmt.Sprintf("%s: ", kind.Label()) + fmt.Sprintf(format, args...),
		})
	}

	for _, e := range entries {
		if e.Start != nil && e.End != nil && e.Start.After(*e.End) {
			add(e.Kind, RuleSelfConsistency, "start %s is after end %s", stamp(e.Start), stamp(e.End))
		}
	}

	var showStart, showEnd *time.Time
	if reg, ok := b.entries[timeline.RegistrationOpen]; ok {
		showStart = reg.Start
	}
	if fin, ok := b.entries[timeline.Finished]; ok {
		showEnd = fin.Start
	}
	for _, e := range entries {
		if e.Kind != timeline.RegistrationOpen && showStart != nil && e.Start != nil && e.Start.Before(*showStart) {
			add(e.Kind, RuleEnvelope, "start %s is before registration opens at %s", stamp(e.Start), stamp(showStart))
		}
		if showEnd != nil && e.End != nil && e.End.After(*showEnd) {
			add(e.Kind, RuleEnvelope, "end %s is after the show finishes at %s", stamp(e.End), stamp(showEnd))
		}
	}

	for i := 0; i+1 < len(entries); i++ {
		cur, next := entries[i], entries[i+1]
		if cur.End == nil || next.Start == nil {
			continue
		}
		if !next.Start.After(*cur.End) {
			add(next.Kind, RuleSequence, "start %s must be after %s ends at %s",
				stamp(next.Start), cur.Kind.Label(), stamp(cur.End))
		}
	}

	for _, e := range entries {
		switch {
		case e.Start == nil && e.End == nil:
			add(e.Kind, RuleComplete, "start and end dates are required")
		case e.Start == nil:
			add(e.Kind, RuleComplete, "start date is required")
		case e.End == nil:
			add(e.Kind, RuleComplete, "end date is required")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	for _, p := range problems {
		e := b.entries[p.Kind]
		if e.Error == "" {
			e.Error = p.Message
		} else {
			e.Error += "; " + p.Message
		}
	}
	return &ValidationError{Problems: problems}
}

func stamp(t *time.Time) string { return t.Format(messageTimeLayout) }
