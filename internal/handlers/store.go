package handlers

import (
	"context"
	"time"

	"github.com/godlykids/engagement-analytics/internal/analytics"
	"github.com/godlykids/engagement-analytics/internal/models"
)

// EventStore is the append side of persistence. Writes are independent
// appends; the engine performs no dedup beyond the distinct-pair counting in
// the funnel.
type EventStore interface {
	InsertStepEvent(ctx context.Context, e models.StepEvent) error
	InsertPlayEvent(ctx context.Context, e models.PlayEvent) error
	InsertSurveyResponse(ctx context.Context, r models.SurveyResponse) error
}

// AnalyticsStore is the read side: windowed row fetches the aggregation
// engine consumes. Every window is half-open [from,to).
type AnalyticsStore interface {
	StepOccurrences(ctx context.Context, kind models.EventKind, from, to time.Time) ([]analytics.StepOccurrence, error)
	ActivityDays(ctx context.Context, from, to time.Time) ([]analytics.ActivityDay, error)
	PlayEvents(ctx context.Context, from, to time.Time) ([]models.PlayEvent, error)
	SurveyResponses(ctx context.Context, from, to time.Time) ([]models.SurveyResponse, error)
}
