package models

import (
	"time"

	"github.com/google/uuid"
)

// SurveyType classifies a satisfaction submission.
type SurveyType string

const (
	SurveyWeeklyFeedback SurveyType = "weekly_feedback"
	SurveyNPS            SurveyType = "nps"
	SurveyFeatureRequest SurveyType = "feature_request"
	SurveyExit           SurveyType = "exit_survey"
)

// Valid reports whether t is one of the known survey types.
func (t SurveyType) Valid() bool {
	switch t {
	case SurveyWeeklyFeedback, SurveyNPS, SurveyFeatureRequest, SurveyExit:
		return true
	}
	return false
}

// MaxFeedbackChars caps stored free-text feedback.
const MaxFeedbackChars = 2000

// SurveyMetadata carries the documented, non-enforced auxiliary attributes of
// a submission. Unknown producer fields stay in the open Extra map.
type SurveyMetadata struct {
	Platform           string `json:"platform,omitempty"`
	AppVersion         string `json:"app_version,omitempty"`
	DaysUsingApp       int    `json:"days_using_app,omitempty"`
	SubscriptionStatus string `json:"subscription_status,omitempty"`
	WantsMoreBooks     bool   `json:"wants_more_books,omitempty"`
	WantsMoreSongs     bool   `json:"wants_more_songs,omitempty"`
	WantsMoreGames     bool   `json:"wants_more_games,omitempty"`
}

// SurveyResponse is one satisfaction submission. Created once, never mutated
// or deleted by the engine.
type SurveyResponse struct {
	ID             uuid.UUID      `json:"id"`
	UserID         string         `json:"user_id"`
	Email          string         `json:"email,omitempty"`
	SurveyType     SurveyType     `json:"survey_type"`
	NPSScore       *int           `json:"nps_score,omitempty"` // 1..10
	CustomFeedback string         `json:"custom_feedback,omitempty"`
	Metadata       SurveyMetadata `json:"metadata"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// SurveyIngestRequest is the POST /events/survey payload.
type SurveyIngestRequest struct {
	UserID         string         `json:"user_id"`
	Email          string         `json:"email,omitempty"`
	SurveyType     string         `json:"survey_type"`
	NPSScore       *int           `json:"nps_score,omitempty"`
	CustomFeedback string         `json:"custom_feedback,omitempty"`
	Metadata       SurveyMetadata `json:"metadata,omitempty"`
	SubmittedAt    string         `json:"submitted_at,omitempty"`
}
