package analytics

import (
	"sort"
	"time"
)

// CohortGranularity selects how users are grouped by first appearance.
type CohortGranularity string

const (
	CohortDaily  CohortGranularity = "daily"
	CohortWeekly CohortGranularity = "weekly"
)

// Valid reports whether g is a known granularity.
func (g CohortGranularity) Valid() bool {
	return g == CohortDaily || g == CohortWeekly
}

// RetentionHorizons are the fixed day offsets the dashboard displays.
var RetentionHorizons = []int{1, 3, 7, 14, 21, 30}

// ActivityDay says a user produced at least one qualifying event (step event
// or attributed play) on a calendar day. The store emits one row per
// (user, day) pair.
type ActivityDay struct {
	UserID string
	Day    time.Time // midnight UTC
}

// RetentionRates holds the per-horizon return rates for one cohort. A nil
// entry means the cohort has not lived through that horizon yet, which is
// distinct from a measured 0%.
type RetentionRates struct {
	Day1  *float64 `json:"day1"`
	Day3  *float64 `json:"day3"`
	Day7  *float64 `json:"day7"`
	Day14 *float64 `json:"day14"`
	Day21 *float64 `json:"day21"`
	Day30 *float64 `json:"day30"`
}

func (r *RetentionRates) set(horizon int, v *float64) {
	switch horizon {
	case 1:
		r.Day1 = v
	case 3:
		r.Day3 = v
	case 7:
		r.Day7 = v
	case 14:
		r.Day14 = v
	case 21:
		r.Day21 = v
	case 30:
		r.Day30 = v
	}
}

func (r RetentionRates) get(horizon int) *float64 {
	switch horizon {
	case 1:
		return r.Day1
	case 3:
		return r.Day3
	case 7:
		return r.Day7
	case 14:
		return r.Day14
	case 21:
		return r.Day21
	case 30:
		return r.Day30
	}
	return nil
}

// CohortRow is one cohort with its per-horizon return rates.
type CohortRow struct {
	Cohort     string `json:"cohort"` // "2026-08-03" or the Monday of an ISO week
	CohortSize int    `json:"cohort_size"`
	RetentionRates
}

// RetentionReport is the full cohort table plus the cross-cohort summary.
type RetentionReport struct {
	Granularity  CohortGranularity `json:"granularity"`
	Cohorts      []CohortRow       `json:"cohorts"`
	TotalUsers   int               `json:"total_users"`
	AvgRetention RetentionRates    `json:"avg_retention"`
}

// BuildRetention groups users by the calendar day (or ISO week) of their
// first qualifying event and measures, for each horizon h, the fraction
// active exactly on cohortDate+h. Horizons the cohort has not reached yet
// (cohortDate+h after today) report nil, never a deflated percentage, and
// are excluded from the cross-cohort averages rather than counted as 0.
func BuildRetention(rows []ActivityDay, granularity CohortGranularity, today time.Time) RetentionReport {
	today = truncateDay(today.UTC())

	firstSeen := make(map[string]time.Time)
	active := make(map[string]map[time.Time]struct{})
	for _, row := range rows {
		day := truncateDay(row.Day.UTC())
		if first, ok := firstSeen[row.UserID]; !ok || day.Before(first) {
			firstSeen[row.UserID] = day
		}
		days, ok := active[row.UserID]
		if !ok {
			days = make(map[time.Time]struct{})
			active[row.UserID] = days
		}
		days[day] = struct{}{}
	}

	cohorts := make(map[time.Time][]string)
	for user, first := range firstSeen {
		key := first
		if granularity == CohortWeekly {
			key = isoWeekStart(first)
		}
		cohorts[key] = append(cohorts[key], user)
	}

	report := RetentionReport{Granularity: granularity, Cohorts: make([]CohortRow, 0, len(cohorts))}

	keys := make([]time.Time, 0, len(cohorts))
	for k := range cohorts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	sums := make(map[int]float64, len(RetentionHorizons))
	counts := make(map[int]int, len(RetentionHorizons))

	for _, cohortDate := range keys {
		users := cohorts[cohortDate]
		row := CohortRow{Cohort: cohortDate.Format("2006-01-02"), CohortSize: len(users)}
		report.TotalUsers += len(users)

		for _, h := range RetentionHorizons {
			target := cohortDate.AddDate(0, 0, h)
			if target.After(today) {
				continue // not yet reachable: stays nil
			}
			returned := 0
			for _, u := range users {
				if _, ok := active[u][target]; ok {
					returned++
				}
			}
			rate := pctOf(returned, len(users))
			row.set(h, &rate)
			sums[h] += rate
			counts[h]++
		}
		report.Cohorts = append(report.Cohorts, row)
	}

	for _, h := range RetentionHorizons {
		if counts[h] == 0 {
			continue
		}
		avg := round1(sums[h] / float64(counts[h]))
		report.AvgRetention.set(h, &avg)
	}
	return report
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// isoWeekStart returns the Monday of t's ISO week.
func isoWeekStart(t time.Time) time.Time {
	t = truncateDay(t)
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return t.AddDate(0, 0, -offset)
}
