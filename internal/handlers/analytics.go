package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/godlykids/engagement-analytics/internal/analytics"
	"github.com/godlykids/engagement-analytics/internal/cache"
	"github.com/godlykids/engagement-analytics/internal/logger"
	"github.com/godlykids/engagement-analytics/internal/metrics"
	"github.com/godlykids/engagement-analytics/internal/models"
)

// AnalyticsOptions carries the tuning the query façade needs.
type AnalyticsOptions struct {
	OnboardingSteps       []string
	TutorialSteps         []string
	TrendingHalfLifeHours float64
	DropOffLimit          int
	OverviewCacheTTL      time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (o AnalyticsOptions) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o AnalyticsOptions) stepsFor(kind models.EventKind) []string {
	if kind == models.KindTutorial {
		return o.TutorialSteps
	}
	return o.OnboardingSteps
}

// maxQueryDays bounds step-event and survey lookbacks. Play-event lookbacks
// are bounded tighter by the retention TTL.
const maxQueryDays = 365

// AnalyticsHandler is the query façade: it assembles funnel, drop-off,
// retention, trending, and NPS payloads for the dashboard over a bounded
// date window. Every read is a pure function of stored events, so
// overlapping concurrent queries need no coordination.
type AnalyticsHandler struct {
	log   *logger.Logger
	store AnalyticsStore
	cache *cache.Cache
	opts  AnalyticsOptions
}

// NewAnalyticsHandler builds the façade.
func NewAnalyticsHandler(log *logger.Logger, st AnalyticsStore, ca *cache.Cache, opts AnalyticsOptions) *AnalyticsHandler {
	if len(opts.OnboardingSteps) == 0 {
		opts.OnboardingSteps = []string{"started"}
	}
	if len(opts.TutorialSteps) == 0 {
		opts.TutorialSteps = []string{"started"}
	}
	return &AnalyticsHandler{
		log:   log.With("handler", "analytics"),
		store: st,
		cache: ca,
		opts:  opts,
	}
}

// RegisterAnalyticsRoutes registers the read API.
//
//	GET /analytics/funnel?kind=onboarding&days=30
//	GET /analytics/dropoff?kind=onboarding&days=30&limit=5
//	GET /analytics/retention?granularity=daily&days=30
//	GET /analytics/trending?days=7&limit=20
//	GET /analytics/nps?days=30
//	GET /analytics/overview?days=30
func (h *AnalyticsHandler) RegisterAnalyticsRoutes(r gin.IRoutes) {
	r.GET("/analytics/funnel", h.Funnel)
	r.GET("/analytics/dropoff", h.DropOff)
	r.GET("/analytics/retention", h.Retention)
	r.GET("/analytics/trending", h.Trending)
	r.GET("/analytics/nps", h.NPS)
	r.GET("/analytics/overview", h.Overview)
}

// Funnel serves per-step distinct-session reach and conversion rates.
func (h *AnalyticsHandler) Funnel(c *gin.Context) {
	kind, ok := queryKind(c)
	if !ok {
		return
	}
	days, ok := queryDays(c, 30, maxQueryDays)
	if !ok {
		return
	}
	metrics.QueriesServed.WithLabelValues("funnel").Inc()

	funnel, err := h.funnel(c, kind, days)
	if err != nil {
		h.fail(c, "funnel", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "days": days, "funnel": funnel})
}

// DropOff serves the worst adjacent-step losses of a funnel.
func (h *AnalyticsHandler) DropOff(c *gin.Context) {
	kind, ok := queryKind(c)
	if !ok {
		return
	}
	days, ok := queryDays(c, 30, maxQueryDays)
	if !ok {
		return
	}
	limit, ok := queryLimit(c, h.opts.DropOffLimit)
	if !ok {
		return
	}
	metrics.QueriesServed.WithLabelValues("dropoff").Inc()

	funnel, err := h.funnel(c, kind, days)
	if err != nil {
		h.fail(c, "dropoff", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":      kind,
		"days":      days,
		"drop_offs": analytics.TopDropOffs(funnel, limit),
	})
}

// Retention serves the cohort table plus the cross-cohort summary.
func (h *AnalyticsHandler) Retention(c *gin.Context) {
	granularity := analytics.CohortGranularity(c.DefaultQuery("granularity", string(analytics.CohortDaily)))
	if !granularity.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "granularity must be daily or weekly"})
		return
	}
	days, ok := queryDays(c, 30, maxQueryDays)
	if !ok {
		return
	}
	metrics.QueriesServed.WithLabelValues("retention").Inc()

	report, err := h.retention(c, granularity, days)
	if err != nil {
		h.fail(c, "retention", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "retention": report})
}

// Trending serves recency-weighted content rankings. A window beyond the
// play-event TTL is clamped silently; the response reports the effective
// window used.
func (h *AnalyticsHandler) Trending(c *gin.Context) {
	requested, ok := queryDays(c, 7, maxQueryDays)
	if !ok {
		return
	}
	limit, ok := queryLimit(c, analytics.DefaultTrendingLimit)
	if !ok {
		return
	}
	metrics.QueriesServed.WithLabelValues("trending").Inc()

	payload, err := h.trending(c, requested, limit)
	if err != nil {
		h.fail(c, "trending", err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// NPS serves the survey aggregate.
func (h *AnalyticsHandler) NPS(c *gin.Context) {
	days, ok := queryDays(c, 30, maxQueryDays)
	if !ok {
		return
	}
	metrics.QueriesServed.WithLabelValues("nps").Inc()

	report, err := h.nps(c, days)
	if err != nil {
		h.fail(c, "nps", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "nps": report})
}

// Overview assembles every aggregate into one dashboard payload. The
// assembled JSON is served from the read cache when Redis is configured.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	days, ok := queryDays(c, 30, maxQueryDays)
	if !ok {
		return
	}
	metrics.QueriesServed.WithLabelValues("overview").Inc()

	cacheKey := fmt.Sprintf("overview:%d", days)
	if payload, hit := h.cache.Get(c.Request.Context(), cacheKey); hit {
		metrics.CacheHits.Inc()
		c.Data(http.StatusOK, "application/json", payload)
		return
	}

	onboarding, err := h.funnel(c, models.KindOnboarding, days)
	if err != nil {
		h.fail(c, "overview", err)
		return
	}
	tutorial, err := h.funnel(c, models.KindTutorial, days)
	if err != nil {
		h.fail(c, "overview", err)
		return
	}
	retention, err := h.retention(c, analytics.CohortDaily, days)
	if err != nil {
		h.fail(c, "overview", err)
		return
	}
	trending, err := h.trending(c, days, analytics.DefaultTrendingLimit)
	if err != nil {
		h.fail(c, "overview", err)
		return
	}
	nps, err := h.nps(c, days)
	if err != nil {
		h.fail(c, "overview", err)
		return
	}

	payload := gin.H{
		"days": days,
		"onboarding_funnel": gin.H{
			"funnel":    onboarding,
			"drop_offs": analytics.TopDropOffs(onboarding, h.opts.DropOffLimit),
		},
		"tutorial_funnel": gin.H{
			"funnel":    tutorial,
			"drop_offs": analytics.TopDropOffs(tutorial, h.opts.DropOffLimit),
		},
		"retention": retention,
		"trending":  trending,
		"nps":       nps,
	}

	if h.cache.Enabled() && h.opts.OverviewCacheTTL > 0 {
		if raw, err := json.Marshal(payload); err == nil {
			h.cache.Set(c.Request.Context(), cacheKey, raw, h.opts.OverviewCacheTTL)
		}
	}
	c.JSON(http.StatusOK, payload)
}

func (h *AnalyticsHandler) funnel(c *gin.Context, kind models.EventKind, days int) ([]analytics.FunnelStep, error) {
	w := analytics.WindowEndingNow(h.opts.now(), days)
	events, err := h.store.StepOccurrences(c.Request.Context(), kind, w.From, w.To)
	if err != nil {
		return nil, err
	}
	return analytics.BuildFunnel(h.opts.stepsFor(kind), events), nil
}

func (h *AnalyticsHandler) retention(c *gin.Context, granularity analytics.CohortGranularity, days int) (analytics.RetentionReport, error) {
	w := analytics.WindowEndingNow(h.opts.now(), days)
	rows, err := h.store.ActivityDays(c.Request.Context(), w.From, w.To)
	if err != nil {
		return analytics.RetentionReport{}, err
	}
	return analytics.BuildRetention(rows, granularity, h.opts.now()), nil
}

func (h *AnalyticsHandler) trending(c *gin.Context, requestedDays, limit int) (gin.H, error) {
	effective := analytics.ClampDays(requestedDays, analytics.PlayEventRetentionDays)
	w := analytics.WindowEndingNow(h.opts.now(), effective)
	events, err := h.store.PlayEvents(c.Request.Context(), w.From, w.To)
	if err != nil {
		return nil, err
	}
	// Roll up over every scored bucket before truncating: a display limit
	// must not change what a playlist sums over.
	scored := analytics.ScoreTrending(events, h.opts.now(), h.opts.TrendingHalfLifeHours)
	playlists := analytics.RollUpPlaylists(scored)
	ranked := scored
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return gin.H{
		"requested_days":  requestedDays,
		"effective_days":  effective,
		"half_life_hours": h.opts.TrendingHalfLifeHours,
		"trending":        ranked,
		"playlists":       playlists,
	}, nil
}

func (h *AnalyticsHandler) nps(c *gin.Context, days int) (analytics.NPSReport, error) {
	w := analytics.WindowEndingNow(h.opts.now(), days)
	responses, err := h.store.SurveyResponses(c.Request.Context(), w.From, w.To)
	if err != nil {
		return analytics.NPSReport{}, err
	}
	return analytics.AggregateNPS(responses), nil
}

// fail logs and serves a 500. Nothing here is fatal to the dashboard;
// degraded data is always preferable to a hard failure.
func (h *AnalyticsHandler) fail(c *gin.Context, endpoint string, err error) {
	h.log.Error("analytics query failed", "endpoint", endpoint, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
}

func queryKind(c *gin.Context) (models.EventKind, bool) {
	kind := models.EventKind(c.DefaultQuery("kind", string(models.KindOnboarding)))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be onboarding or tutorial"})
		return "", false
	}
	return kind, true
}

func queryDays(c *gin.Context, fallback, max int) (int, bool) {
	raw := c.DefaultQuery("days", strconv.Itoa(fallback))
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return 0, false
	}
	if days > max {
		days = max
	}
	return days, true
}

func queryLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.DefaultQuery("limit", strconv.Itoa(fallback))
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}
