package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default funnel step sequences. Producers may be reconfigured without a
// deploy via ONBOARDING_STEPS / TUTORIAL_STEPS.
var (
	DefaultOnboardingSteps = []string{
		"started", "welcome_viewed", "profile_created", "account_created",
		"voice_selected", "paywall_shown", "subscribed", "completed",
	}
	DefaultTutorialSteps = []string{
		"started", "create_story", "play_story", "coins_earned", "completed",
	}
)

// Config contains runtime configuration required by the service.
type Config struct {
	Port     string
	DBURL    string
	RedisURL string
	LogMode  string

	// APIKeys maps apiKey -> producer name (onboarding flow, player, ...).
	APIKeys map[string]string

	OnboardingSteps []string
	TutorialSteps   []string

	TrendingHalfLifeHours float64
	DropOffLimit          int
	OverviewCacheTTL      time.Duration
}

// Load reads required values from environment variables. A local .env file
// is applied first when present so `go run ./cmd/api` works out of the box.
//
// API_KEYS format: "producer1:key1,producer2:key2"
func Load() (Config, error) {
	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	apiKeys, err := parseAPIKeys(os.Getenv("API_KEYS"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:                  envOr("PORT", "8080"),
		DBURL:                 dbURL,
		RedisURL:              strings.TrimSpace(os.Getenv("REDIS_URL")),
		LogMode:               envOr("LOG_MODE", "dev"),
		APIKeys:               apiKeys,
		OnboardingSteps:       stepsOr("ONBOARDING_STEPS", DefaultOnboardingSteps),
		TutorialSteps:         stepsOr("TUTORIAL_STEPS", DefaultTutorialSteps),
		TrendingHalfLifeHours: 24,
		DropOffLimit:          5,
		OverviewCacheTTL:      time.Minute,
	}

	if v := strings.TrimSpace(os.Getenv("TRENDING_HALF_LIFE_HOURS")); v != "" {
		hl, err := strconv.ParseFloat(v, 64)
		if err != nil || hl <= 0 {
			return Config{}, errors.New("TRENDING_HALF_LIFE_HOURS must be a positive number")
		}
		cfg.TrendingHalfLifeHours = hl
	}
	if v := strings.TrimSpace(os.Getenv("DROPOFF_LIMIT")); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k < 1 {
			return Config{}, errors.New("DROPOFF_LIMIT must be a positive integer")
		}
		cfg.DropOffLimit = k
	}
	if v := strings.TrimSpace(os.Getenv("OVERVIEW_CACHE_TTL_SECONDS")); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return Config{}, errors.New("OVERVIEW_CACHE_TTL_SECONDS must be a non-negative integer")
		}
		cfg.OverviewCacheTTL = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

func parseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}
	raw = strings.TrimSpace(raw)

	if raw != "" {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			parts := strings.SplitN(p, ":", 2)
			if len(parts) != 2 {
				return nil, errors.New(`API_KEYS must be "producer:key,producer:key"`)
			}
			producer := strings.TrimSpace(parts[0])
			key := strings.TrimSpace(parts[1])
			if producer == "" || key == "" {
				return nil, errors.New(`API_KEYS must be "producer:key,producer:key"`)
			}
			apiKeys[key] = producer
		}
	}

	// Local dev fallback so the service runs out-of-the-box.
	if len(apiKeys) == 0 {
		apiKeys["dev-key-123"] = "dev"
	}
	return apiKeys, nil
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func stepsOr(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	var steps []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return fallback
	}
	return steps
}
