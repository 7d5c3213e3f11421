package analytics

import (
	"math"
	"sort"

	"github.com/godlykids/engagement-analytics/internal/models"
)

// FeedbackDisplayChars truncates surfaced free text for qualitative review.
const FeedbackDisplayChars = 200

// FeedbackEntry is one verbatim comment with its score and platform context.
// No NLP or summarization is performed.
type FeedbackEntry struct {
	Feedback   string `json:"feedback"`
	NPSScore   *int   `json:"nps_score,omitempty"`
	Platform   string `json:"platform,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

// PreferenceTally counts the raw wants-more votes. Independent counts, not
// normalized against scores.
type PreferenceTally struct {
	WantsMoreBooks int `json:"wants_more_books"`
	WantsMoreSongs int `json:"wants_more_songs"`
	WantsMoreGames int `json:"wants_more_games"`
}

// NPSReport is the survey aggregate for a window.
type NPSReport struct {
	Promoters    int             `json:"promoters"`  // score 9-10
	Passives     int             `json:"passives"`   // score 7-8
	Detractors   int             `json:"detractors"` // score 1-6
	TotalScored  int             `json:"total_scored"`
	NPS          int             `json:"nps"` // -100..100
	AverageScore float64         `json:"average_score"`
	Distribution map[int]int     `json:"distribution"` // exact score 1..10 -> count
	Feedback     []FeedbackEntry `json:"feedback"`
	Preferences  PreferenceTally `json:"preferences"`
}

// AggregateNPS classifies and scores the responses that carry an npsScore,
// and surfaces free-text feedback most-recent-first. Responses without a
// score still contribute feedback and preference votes.
func AggregateNPS(responses []models.SurveyResponse) NPSReport {
	report := NPSReport{Distribution: make(map[int]int, 10)}
	for s := 1; s <= 10; s++ {
		report.Distribution[s] = 0
	}

	sum := 0
	sorted := make([]models.SurveyResponse, len(responses))
	copy(sorted, responses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.After(sorted[j].SubmittedAt)
	})

	for _, r := range sorted {
		if r.NPSScore != nil {
			score := *r.NPSScore
			if score >= 1 && score <= 10 {
				report.TotalScored++
				sum += score
				report.Distribution[score]++
				switch {
				case score >= 9:
					report.Promoters++
				case score >= 7:
					report.Passives++
				default:
					report.Detractors++
				}
			}
		}

		if r.CustomFeedback != "" {
			report.Feedback = append(report.Feedback, FeedbackEntry{
				Feedback:   truncate(r.CustomFeedback, FeedbackDisplayChars),
				NPSScore:   r.NPSScore,
				Platform:   r.Metadata.Platform,
				AppVersion: r.Metadata.AppVersion,
			})
		}
		if r.Metadata.WantsMoreBooks {
			report.Preferences.WantsMoreBooks++
		}
		if r.Metadata.WantsMoreSongs {
			report.Preferences.WantsMoreSongs++
		}
		if r.Metadata.WantsMoreGames {
			report.Preferences.WantsMoreGames++
		}
	}

	if report.TotalScored > 0 {
		report.NPS = int(math.Round(100 * float64(report.Promoters-report.Detractors) / float64(report.TotalScored)))
		report.AverageScore = round1(float64(sum) / float64(report.TotalScored))
	}
	return report
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
