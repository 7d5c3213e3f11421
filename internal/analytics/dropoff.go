package analytics

import "sort"

// DefaultDropOffLimit is how many drop-off pairs a report returns unless the
// caller asks for more.
const DefaultDropOffLimit = 5

// DropOff is the loss between two adjacent funnel steps.
type DropOff struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Dropped  int     `json:"dropped"`
	DropRate float64 `json:"drop_rate"`
}

// TopDropOffs ranks adjacent-step losses in a computed funnel, worst first,
// and returns at most limit entries (DefaultDropOffLimit when limit <= 0).
//
// Pairs whose source step has zero reach are excluded entirely: their
// drop-off is undefined, not 0%. A negative drop (out-of-order producer
// emissions) floors at zero so the pair still surfaces without going
// negative.
func TopDropOffs(funnel []FunnelStep, limit int) []DropOff {
	if limit <= 0 {
		limit = DefaultDropOffLimit
	}

	out := make([]DropOff, 0, len(funnel))
	for i := 0; i+1 < len(funnel); i++ {
		from, to := funnel[i], funnel[i+1]
		if from.Count == 0 {
			continue
		}
		dropped := from.Count - to.Count
		if dropped < 0 {
			dropped = 0
		}
		out = append(out, DropOff{
			From:     from.Step,
			To:       to.Step,
			Dropped:  dropped,
			DropRate: pctOf(dropped, from.Count),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DropRate > out[j].DropRate
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
