package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godlykids/engagement-analytics/internal/analytics"
	"github.com/godlykids/engagement-analytics/internal/cache"
	"github.com/godlykids/engagement-analytics/internal/logger"
	"github.com/godlykids/engagement-analytics/internal/models"
)

var queryNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func newAnalyticsRouter(st *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAnalyticsHandler(logger.NewNop(), st, &cache.Cache{}, AnalyticsOptions{
		OnboardingSteps:       []string{"started", "created", "subscribed"},
		TutorialSteps:         []string{"started", "completed"},
		TrendingHalfLifeHours: 24,
		DropOffLimit:          5,
		Now:                   func() time.Time { return queryNow },
	})
	h.RegisterAnalyticsRoutes(r)
	return r
}

func getJSON(t *testing.T, r *gin.Engine, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestFunnelEndpoint(t *testing.T) {
	st := &fakeStore{occurrences: []analytics.StepOccurrence{
		{UserID: "u1", SessionID: "s1", Step: "started"},
		{UserID: "u2", SessionID: "s2", Step: "started"},
		{UserID: "u1", SessionID: "s1", Step: "created"},
	}}
	r := newAnalyticsRouter(st)

	var resp struct {
		Kind   string                 `json:"kind"`
		Days   int                    `json:"days"`
		Funnel []analytics.FunnelStep `json:"funnel"`
	}
	w := getJSON(t, r, "/analytics/funnel?kind=onboarding&days=14", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "onboarding", resp.Kind)
	assert.Equal(t, 14, resp.Days)
	require.Len(t, resp.Funnel, 3)
	assert.Equal(t, 2, resp.Funnel[0].Count)
	assert.Equal(t, 50.0, resp.Funnel[1].Rate)
	assert.Equal(t, 0, resp.Funnel[2].Count)
}

func TestFunnelEndpointRejectsUnknownKind(t *testing.T) {
	r := newAnalyticsRouter(&fakeStore{})
	w := getJSON(t, r, "/analytics/funnel?kind=checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFunnelEndpointRejectsBadDays(t *testing.T) {
	r := newAnalyticsRouter(&fakeStore{})
	assert.Equal(t, http.StatusBadRequest, getJSON(t, r, "/analytics/funnel?days=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, r, "/analytics/funnel?days=soon", nil).Code)
}

func TestDropOffEndpoint(t *testing.T) {
	st := &fakeStore{occurrences: []analytics.StepOccurrence{
		{UserID: "u1", SessionID: "s1", Step: "started"},
		{UserID: "u2", SessionID: "s2", Step: "started"},
		{UserID: "u1", SessionID: "s1", Step: "created"},
	}}
	r := newAnalyticsRouter(st)

	var resp struct {
		DropOffs []analytics.DropOff `json:"drop_offs"`
	}
	w := getJSON(t, r, "/analytics/dropoff?kind=onboarding", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.DropOffs, 2)
	assert.Equal(t, "created", resp.DropOffs[0].From)
	assert.Equal(t, 100.0, resp.DropOffs[0].DropRate)
}

func TestRetentionEndpoint(t *testing.T) {
	st := &fakeStore{activity: []analytics.ActivityDay{
		{UserID: "u1", Day: queryNow.AddDate(0, 0, -5)},
		{UserID: "u1", Day: queryNow.AddDate(0, 0, -4)},
		{UserID: "u2", Day: queryNow.AddDate(0, 0, -5)},
	}}
	r := newAnalyticsRouter(st)

	var resp struct {
		Retention analytics.RetentionReport `json:"retention"`
	}
	w := getJSON(t, r, "/analytics/retention?granularity=daily&days=30", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Retention.Cohorts, 1)
	assert.Equal(t, 2, resp.Retention.Cohorts[0].CohortSize)
	require.NotNil(t, resp.Retention.Cohorts[0].Day1)
	assert.Equal(t, 50.0, *resp.Retention.Cohorts[0].Day1)
	assert.Nil(t, resp.Retention.Cohorts[0].Day30, "unreachable horizon serialized as null")
}

func TestRetentionEndpointRejectsBadGranularity(t *testing.T) {
	r := newAnalyticsRouter(&fakeStore{})
	w := getJSON(t, r, "/analytics/retention?granularity=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrendingEndpointClampsWindowToTTL(t *testing.T) {
	st := &fakeStore{plays: []models.PlayEvent{{
		ContentType:       models.ContentBook,
		ContentID:         "b1",
		PlayedAt:          queryNow.Add(-time.Hour),
		CompletionPercent: 100,
	}}}
	r := newAnalyticsRouter(st)

	var resp struct {
		RequestedDays int                       `json:"requested_days"`
		EffectiveDays int                       `json:"effective_days"`
		Trending      []analytics.TrendingEntry `json:"trending"`
	}
	w := getJSON(t, r, "/analytics/trending?days=90", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 90, resp.RequestedDays)
	assert.Equal(t, analytics.PlayEventRetentionDays, resp.EffectiveDays, "over-TTL window clamps silently and reports the effective range")
	require.Len(t, resp.Trending, 1)
	assert.Equal(t, "b1", resp.Trending[0].ContentID)

	// The store was actually asked for the clamped window, not the requested one.
	assert.Equal(t, queryNow.AddDate(0, 0, -analytics.PlayEventRetentionDays), st.playFrom)
}

func TestTrendingPlaylistRollUpIgnoresDisplayLimit(t *testing.T) {
	idx0, idx1 := 0, 1
	st := &fakeStore{plays: []models.PlayEvent{
		{ContentType: models.ContentEpisode, ContentID: "e1", PlaylistID: "pl1", ItemIndex: &idx0,
			PlayedAt: queryNow.Add(-time.Hour), CompletionPercent: 100},
		{ContentType: models.ContentEpisode, ContentID: "e2", PlaylistID: "pl1", ItemIndex: &idx1,
			PlayedAt: queryNow.Add(-time.Hour), CompletionPercent: 100},
	}}
	r := newAnalyticsRouter(st)

	var resp struct {
		Trending  []analytics.TrendingEntry `json:"trending"`
		Playlists []analytics.TrendingEntry `json:"playlists"`
	}
	w := getJSON(t, r, "/analytics/trending?limit=1", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Trending, 1, "display list honors the limit")

	// The parent playlist still sums both episodes, including the one the
	// display limit cut from the ranking.
	require.Len(t, resp.Playlists, 1)
	assert.Equal(t, "pl1", resp.Playlists[0].ContentID)
	assert.Equal(t, 2, resp.Playlists[0].Plays)
	assert.InDelta(t, 1.943, resp.Playlists[0].Score, 0.001)
}

func TestNPSEndpoint(t *testing.T) {
	nine, three := 9, 3
	st := &fakeStore{responses: []models.SurveyResponse{
		{UserID: "u1", SurveyType: models.SurveyNPS, NPSScore: &nine, SubmittedAt: queryNow.Add(-time.Hour)},
		{UserID: "u2", SurveyType: models.SurveyNPS, NPSScore: &three, SubmittedAt: queryNow.Add(-2 * time.Hour)},
	}}
	r := newAnalyticsRouter(st)

	var resp struct {
		NPS analytics.NPSReport `json:"nps"`
	}
	w := getJSON(t, r, "/analytics/nps", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resp.NPS.Promoters)
	assert.Equal(t, 1, resp.NPS.Detractors)
	assert.Equal(t, 0, resp.NPS.NPS)
}

func TestOverviewEndpointAssemblesAllAggregates(t *testing.T) {
	score := 10
	st := &fakeStore{
		occurrences: []analytics.StepOccurrence{{UserID: "u1", SessionID: "s1", Step: "started"}},
		activity:    []analytics.ActivityDay{{UserID: "u1", Day: queryNow.AddDate(0, 0, -3)}},
		plays: []models.PlayEvent{{
			ContentType: models.ContentBook, ContentID: "b1",
			PlayedAt: queryNow.Add(-time.Hour), CompletionPercent: 80,
		}},
		responses: []models.SurveyResponse{{
			UserID: "u1", SurveyType: models.SurveyNPS, NPSScore: &score, SubmittedAt: queryNow.Add(-time.Hour),
		}},
	}
	r := newAnalyticsRouter(st)

	var resp map[string]json.RawMessage
	w := getJSON(t, r, "/analytics/overview?days=7", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	for _, key := range []string{"onboarding_funnel", "tutorial_funnel", "retention", "trending", "nps"} {
		assert.Contains(t, resp, key)
	}
}

func TestAnalyticsEmptyStoreReturnsZeroedPayloads(t *testing.T) {
	// An empty window is a valid, meaningful result, never an error.
	r := newAnalyticsRouter(&fakeStore{})

	var funnelResp struct {
		Funnel []analytics.FunnelStep `json:"funnel"`
	}
	w := getJSON(t, r, "/analytics/funnel", &funnelResp)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, funnelResp.Funnel, 3)
	assert.Equal(t, 0, funnelResp.Funnel[0].Count)

	var npsResp struct {
		NPS analytics.NPSReport `json:"nps"`
	}
	w = getJSON(t, r, "/analytics/nps", &npsResp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, npsResp.NPS.NPS)

	w = getJSON(t, r, "/analytics/overview", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
