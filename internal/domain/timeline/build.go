package timeline

import "slices"

// Build reconstructs the full ten-stage catalog from server records. A
// stage whose kind appears in server is selected and carries its dates,
// active flag and server description; every other stage stays unselected with no dates. Unknown
// status names are dropped. When a kind appears twice the first record wins.
func Build(server []ServerStage) Timeline {
	tl := make(Timeline, StageCount)
	for i, kind := range Kinds() {
		tl[i] = Stage{
			Kind:        kind,
			Order:       kind.Order(),
			Label:       kind.Label(),
			Description: kind.Description(),
		}
	}
	for _, rec := range server {
		kind, ok := ParseKind(rec.StatusName)
		if !ok {
			continue
		}
		st := &tl[kind-1]
		if st.Selected {
			continue
		}
		st.Selected = true
		st.IsActive = rec.IsActive
		st.ServerDescription = rec.Description
		st.Start = CloneTime(rec.StartDate)
		st.End = CloneTime(rec.EndDate)
	}
	return tl
}

// OrderedSelected returns only the selected stages sorted by canonical order,
// whatever order tl is in.
func OrderedSelected(tl Timeline) []Stage {
	out := make([]Stage, 0, len(tl))
	for _, s := range tl.Clone() {
		if s.Selected {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b Stage) int { return int(a.Kind) - int(b.Kind) })
	return out
}
