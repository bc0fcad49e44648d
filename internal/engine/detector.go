package engine

// diffMembership compares the previous and new geofence sets of a terminal and
// returns what changed. Edge-triggered by construction: identical sets produce
// no output, so a terminal parked inside a fence emits nothing report after
// report. Order is preserved (exited in previous-set order, entered in
// new-set order) to keep event streams deterministic.
func diffMembership(previous, current []string) (entered, exited []string) {
	prev := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		prev[id] = struct{}{}
	}
	cur := make(map[string]struct{}, len(current))
	for _, id := range current {
		cur[id] = struct{}{}
	}

	for _, id := range previous {
		if _, ok := cur[id]; !ok {
			exited = append(exited, id)
		}
	}
	for _, id := range current {
		if _, ok := prev[id]; !ok {
			entered = append(entered, id)
		}
	}
	return entered, exited
}
