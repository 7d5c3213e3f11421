package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var retentionToday = time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestBuildRetentionPartialCohort(t *testing.T) {
	// Ten users first seen 5 days ago, four of them back on day 3.
	var rows []ActivityDay
	for i := 0; i < 10; i++ {
		rows = append(rows, ActivityDay{UserID: fmt.Sprintf("u%d", i), Day: day(-5)})
	}
	for i := 0; i < 4; i++ {
		rows = append(rows, ActivityDay{UserID: fmt.Sprintf("u%d", i), Day: day(-2)})
	}

	report := BuildRetention(rows, CohortDaily, retentionToday)
	require.Len(t, report.Cohorts, 1)

	cohort := report.Cohorts[0]
	assert.Equal(t, day(-5).Format("2006-01-02"), cohort.Cohort)
	assert.Equal(t, 10, cohort.CohortSize)

	require.NotNil(t, cohort.Day3)
	assert.Equal(t, 40.0, *cohort.Day3)

	require.NotNil(t, cohort.Day1)
	assert.Equal(t, 0.0, *cohort.Day1, "an elapsed horizon with no returns is a measured 0, not null")

	assert.Nil(t, cohort.Day7, "a horizon the cohort has not lived through must be null")
	assert.Nil(t, cohort.Day14)
	assert.Nil(t, cohort.Day21)
	assert.Nil(t, cohort.Day30)
}

func TestBuildRetentionExactDayDefinition(t *testing.T) {
	// Activity on day 2 must not count toward the day-3 horizon: "active on
	// day N" means exactly calendar day N, not within N days.
	rows := []ActivityDay{
		{UserID: "u1", Day: day(-10)},
		{UserID: "u1", Day: day(-8)}, // day 2
	}

	report := BuildRetention(rows, CohortDaily, retentionToday)
	require.Len(t, report.Cohorts, 1)
	require.NotNil(t, report.Cohorts[0].Day3)
	assert.Equal(t, 0.0, *report.Cohorts[0].Day3)
	require.NotNil(t, report.Cohorts[0].Day1)
	assert.Equal(t, 0.0, *report.Cohorts[0].Day1)
}

func TestBuildRetentionAverageExcludesUnreachableCohorts(t *testing.T) {
	rows := []ActivityDay{
		// Cohort A: 40 days ago, returned on day 7.
		{UserID: "a1", Day: day(-40)},
		{UserID: "a1", Day: day(-33)},
		{UserID: "a2", Day: day(-40)},
		// Cohort B: 2 days ago, day 7 unreachable.
		{UserID: "b1", Day: day(-2)},
	}

	report := BuildRetention(rows, CohortDaily, retentionToday)
	require.Len(t, report.Cohorts, 2)

	// Only cohort A contributes to the day-7 average; cohort B is excluded,
	// not counted as 0.
	require.NotNil(t, report.AvgRetention.Day7)
	assert.Equal(t, 50.0, *report.AvgRetention.Day7)

	// Cohort A lived through day 30 with no return: a measured 0 average.
	require.NotNil(t, report.AvgRetention.Day30)
	assert.Equal(t, 0.0, *report.AvgRetention.Day30)
}

func TestBuildRetentionWeeklyCohorts(t *testing.T) {
	// Monday and Thursday of one ISO week land in the same weekly cohort.
	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	rows := []ActivityDay{
		{UserID: "u1", Day: monday},
		{UserID: "u2", Day: monday.AddDate(0, 0, 3)},
		{UserID: "u1", Day: monday.AddDate(0, 0, 7)}, // active on weekStart+7
	}

	report := BuildRetention(rows, CohortWeekly, retentionToday)
	require.Len(t, report.Cohorts, 1)

	cohort := report.Cohorts[0]
	assert.Equal(t, "2026-08-03", cohort.Cohort)
	assert.Equal(t, 2, cohort.CohortSize)
	require.NotNil(t, cohort.Day7)
	assert.Equal(t, 50.0, *cohort.Day7)
}

func TestBuildRetentionFirstSeenWins(t *testing.T) {
	// Rows arrive unordered; the user's cohort is their earliest day.
	rows := []ActivityDay{
		{UserID: "u1", Day: day(-3)},
		{UserID: "u1", Day: day(-9)},
		{UserID: "u1", Day: day(-6)},
	}

	report := BuildRetention(rows, CohortDaily, retentionToday)
	require.Len(t, report.Cohorts, 1)
	assert.Equal(t, day(-9).Format("2006-01-02"), report.Cohorts[0].Cohort)
	require.NotNil(t, report.Cohorts[0].Day3)
	assert.Equal(t, 100.0, *report.Cohorts[0].Day3)
}

func TestBuildRetentionEmptyInput(t *testing.T) {
	report := BuildRetention(nil, CohortDaily, retentionToday)
	assert.Empty(t, report.Cohorts)
	assert.Equal(t, 0, report.TotalUsers)
	assert.Nil(t, report.AvgRetention.Day1)
}

func TestBuildRetentionRateBounds(t *testing.T) {
	var rows []ActivityDay
	for i := 0; i < 5; i++ {
		rows = append(rows, ActivityDay{UserID: fmt.Sprintf("u%d", i), Day: day(-20)})
		if i%2 == 0 {
			rows = append(rows, ActivityDay{UserID: fmt.Sprintf("u%d", i), Day: day(-19)})
			rows = append(rows, ActivityDay{UserID: fmt.Sprintf("u%d", i), Day: day(-13)})
		}
	}

	report := BuildRetention(rows, CohortDaily, retentionToday)
	for _, cohort := range report.Cohorts {
		for _, h := range RetentionHorizons {
			if rate := cohort.get(h); rate != nil {
				assert.GreaterOrEqual(t, *rate, 0.0)
				assert.LessOrEqual(t, *rate, 100.0)
			}
		}
	}
}

func TestBuildRetentionIdempotent(t *testing.T) {
	rows := []ActivityDay{
		{UserID: "u1", Day: day(-8)},
		{UserID: "u2", Day: day(-8)},
		{UserID: "u1", Day: day(-7)},
	}
	assert.Equal(t,
		BuildRetention(rows, CohortDaily, retentionToday),
		BuildRetention(rows, CohortDaily, retentionToday))
}
