package schedule

import "github.com/okian/koishow/internal/domain/timeline"

// Payload builds the batch update body from every scheduled stage in the
// buffer. The active flag and the server description are copied unchanged
// from tl; stages tl does not know as selected are sent inactive with the
// catalog description.
func Payload(b *Buffer, tl timeline.Timeline) []timeline.ServerStage {
	out := make([]timeline.ServerStage, 0, b.Len())
	for _, kind := range b.kinds() {
		e := b.entries[kind]
		rec := timeline.ServerStage{
			StatusName:  kind.String(),
			Description: kind.Description(),
			StartDate:   timeline.CloneTime(e.Start),
			EndDate:     timeline.CloneTime(e.End),
		}
		if s, ok := tl.Stage(kind); ok {
			if s.Selected && s.ServerDescription != "" {
				rec.Description = s.ServerDescription
			}
			rec.IsActive = s.Selected && s.IsActive
		}
		out = append(out, rec)
	}
	return out
}
