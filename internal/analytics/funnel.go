package analytics

// StepOccurrence is the slice of a step event the funnel needs: who reached
// which step in which attempt. The store projects windowed events down to
// this before any counting happens.
type StepOccurrence struct {
	UserID    string
	SessionID string
	Step      string
}

// FunnelStep is one row of a computed funnel.
type FunnelStep struct {
	Step  string  `json:"step"`
	Count int     `json:"count"`
	Rate  float64 `json:"rate"`
}

// BuildFunnel counts, for each named step in order, the distinct
// (userID, sessionID) pairs that produced at least one event at that step.
// Deduplication keeps a retried client emission from inflating a step.
//
// Rates are relative to the first step. The engine does not assume or
// enforce that counts are non-increasing: a user reaching step 3 without
// step 2 shows up as-is, because the funnel is a diagnostic, not a
// normalized progression.
func BuildFunnel(steps []string, events []StepOccurrence) []FunnelStep {
	type pair struct{ user, session string }

	seen := make(map[string]map[pair]struct{}, len(steps))
	for _, s := range steps {
		seen[s] = make(map[pair]struct{})
	}
	for _, e := range events {
		set, ok := seen[e.Step]
		if !ok {
			continue // step not part of this funnel
		}
		set[pair{e.UserID, e.SessionID}] = struct{}{}
	}

	out := make([]FunnelStep, 0, len(steps))
	base := 0
	if len(steps) > 0 {
		base = len(seen[steps[0]])
	}
	for i, s := range steps {
		count := len(seen[s])
		rate := pctOf(count, base)
		if i == 0 && base > 0 {
			rate = 100
		}
		out = append(out, FunnelStep{Step: s, Count: count, Rate: rate})
	}
	return out
}
