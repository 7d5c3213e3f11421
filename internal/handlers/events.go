package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/godlykids/engagement-analytics/internal/auth"
	"github.com/godlykids/engagement-analytics/internal/logger"
	"github.com/godlykids/engagement-analytics/internal/metrics"
	"github.com/godlykids/engagement-analytics/internal/models"
)

// parseRFC3339 parses an RFC3339 timestamp and normalizes it to UTC.
func parseRFC3339(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// timestampOrNow returns the parsed timestamp, or ingest time when absent.
func timestampOrNow(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Now().UTC(), true
	}
	t, err := parseRFC3339(ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// RegisterEventRoutes registers the append path, one endpoint per event kind.
//
//	POST /events/onboarding
//	POST /events/tutorial
//	POST /events/play
//	POST /events/survey
//
// Events are immutable once stored. A missing user_id on step and survey
// events is rejected outright, never coerced to an anonymous bucket that
// would hide data loss from the producer. Idempotency of retries is the
// producer's responsibility.
func RegisterEventRoutes(r gin.IRoutes, log *logger.Logger, st EventStore) {
	log = log.With("handler", "events")

	r.POST("/events/onboarding", stepEventHandler(log, st, models.KindOnboarding))
	r.POST("/events/tutorial", stepEventHandler(log, st, models.KindTutorial))
	r.POST("/events/play", playEventHandler(log, st))
	r.POST("/events/survey", surveyHandler(log, st))
}

func stepEventHandler(log *logger.Logger, st EventStore, kind models.EventKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.StepEventIngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			reject(c, kind, "invalid_json", "invalid JSON payload")
			return
		}
		if req.UserID == "" {
			reject(c, kind, "missing_user_id", "user_id required")
			return
		}
		if req.Step == "" {
			reject(c, kind, "missing_step", "step required")
			return
		}
		occurredAt, ok := timestampOrNow(req.OccurredAt)
		if !ok {
			reject(c, kind, "bad_timestamp", "occurred_at must be RFC3339")
			return
		}

		// Without a client session id, retries of this attempt cannot be
		// deduplicated by the funnel's distinct-pair counting.
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		e := models.StepEvent{
			ID:         uuid.New(),
			UserID:     req.UserID,
			SessionID:  sessionID,
			Kind:       kind,
			Step:       req.Step,
			Metadata:   req.Metadata,
			OccurredAt: occurredAt,
		}
		if err := st.InsertStepEvent(c.Request.Context(), e); err != nil {
			log.Error("step event insert failed", "kind", kind, "producer", auth.Producer(c), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		log.Debug("step event stored", "kind", kind, "step", e.Step, "producer", auth.Producer(c))
		metrics.EventsIngested.WithLabelValues(string(kind)).Inc()
		c.JSON(http.StatusCreated, models.IngestResponse{ID: e.ID.String()})
	}
}

func playEventHandler(log *logger.Logger, st EventStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PlayEventIngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			reject(c, "play", "invalid_json", "invalid JSON payload")
			return
		}
		contentType := models.ContentType(req.ContentType)
		if !contentType.Valid() {
			reject(c, "play", "bad_content_type", "content_type must be book, episode, or playlist")
			return
		}
		if req.ContentID == "" {
			reject(c, "play", "missing_content_id", "content_id required")
			return
		}
		playedAt, ok := timestampOrNow(req.PlayedAt)
		if !ok {
			reject(c, "play", "bad_timestamp", "played_at must be RFC3339")
			return
		}

		completion := req.CompletionPercent
		if completion < 0 {
			completion = 0
		} else if completion > 100 {
			completion = 100
		}

		e := models.PlayEvent{
			ID:                   uuid.New(),
			UserID:               req.UserID, // empty is fine: anonymous play
			ContentType:          contentType,
			ContentID:            req.ContentID,
			PlaylistID:           req.PlaylistID,
			ItemIndex:            req.ItemIndex,
			PlayedAt:             playedAt,
			DurationSeconds:      req.DurationSeconds,
			TotalDurationSeconds: req.TotalDurationSeconds,
			PagesViewed:          req.PagesViewed,
			TotalPages:           req.TotalPages,
			CompletionPercent:    completion,
			IsEngagementUpdate:   req.IsEngagementUpdate,
		}
		if err := st.InsertPlayEvent(c.Request.Context(), e); err != nil {
			log.Error("play event insert failed", "producer", auth.Producer(c), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		log.Debug("play event stored", "content_type", e.ContentType, "producer", auth.Producer(c))
		metrics.EventsIngested.WithLabelValues("play").Inc()
		c.JSON(http.StatusCreated, models.IngestResponse{ID: e.ID.String()})
	}
}

func surveyHandler(log *logger.Logger, st EventStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SurveyIngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			reject(c, "survey", "invalid_json", "invalid JSON payload")
			return
		}
		if req.UserID == "" {
			reject(c, "survey", "missing_user_id", "user_id required")
			return
		}
		surveyType := models.SurveyType(req.SurveyType)
		if !surveyType.Valid() {
			reject(c, "survey", "bad_survey_type", "unknown survey_type")
			return
		}
		if req.NPSScore != nil && (*req.NPSScore < 1 || *req.NPSScore > 10) {
			reject(c, "survey", "bad_nps_score", "nps_score must be between 1 and 10")
			return
		}
		submittedAt, ok := timestampOrNow(req.SubmittedAt)
		if !ok {
			reject(c, "survey", "bad_timestamp", "submitted_at must be RFC3339")
			return
		}

		feedback := req.CustomFeedback
		if len([]rune(feedback)) > models.MaxFeedbackChars {
			feedback = string([]rune(feedback)[:models.MaxFeedbackChars])
		}

		resp := models.SurveyResponse{
			ID:             uuid.New(),
			UserID:         req.UserID,
			Email:          req.Email,
			SurveyType:     surveyType,
			NPSScore:       req.NPSScore,
			CustomFeedback: feedback,
			Metadata:       req.Metadata,
			SubmittedAt:    submittedAt,
		}
		if err := st.InsertSurveyResponse(c.Request.Context(), resp); err != nil {
			log.Error("survey insert failed", "producer", auth.Producer(c), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		log.Debug("survey stored", "survey_type", resp.SurveyType, "producer", auth.Producer(c))
		metrics.EventsIngested.WithLabelValues("survey").Inc()
		c.JSON(http.StatusCreated, models.IngestResponse{ID: resp.ID.String()})
	}
}

func reject(c *gin.Context, kind models.EventKind, reason, msg string) {
	metrics.EventsRejected.WithLabelValues(string(kind), reason).Inc()
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
