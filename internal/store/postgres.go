package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godlykids/engagement-analytics/internal/analytics"
	"github.com/godlykids/engagement-analytics/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable, append-only persistence layer for events.
// Stored records are immutable; the only delete path is the play-event TTL
// purge.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertStepEvent appends one onboarding/tutorial step event.
func (p *PostgresStore) InsertStepEvent(ctx context.Context, e models.StepEvent) error {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO step_events(id, user_id, session_id, kind, step, metadata, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.UserID, e.SessionID, string(e.Kind), e.Step, metaJSON, e.OccurredAt)
	return err
}

// InsertPlayEvent appends one content-play record.
func (p *PostgresStore) InsertPlayEvent(ctx context.Context, e models.PlayEvent) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO play_events(
			id, user_id, content_type, content_id, playlist_id, item_index,
			played_at, duration_seconds, total_duration_seconds,
			pages_viewed, total_pages, completion_percent, is_engagement_update)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, e.ID, e.UserID, string(e.ContentType), e.ContentID, e.PlaylistID, e.ItemIndex,
		e.PlayedAt, e.DurationSeconds, e.TotalDurationSeconds,
		e.PagesViewed, e.TotalPages, e.CompletionPercent, e.IsEngagementUpdate)
	return err
}

// InsertSurveyResponse appends one survey submission.
func (p *PostgresStore) InsertSurveyResponse(ctx context.Context, r models.SurveyResponse) error {
	metaJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO survey_responses(id, user_id, email, survey_type, nps_score, custom_feedback, metadata, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, r.ID, r.UserID, r.Email, string(r.SurveyType), r.NPSScore, r.CustomFeedback, metaJSON, r.SubmittedAt)
	return err
}

// StepOccurrences returns the distinct (user, session, step) triples of one
// event kind in the half-open window [from,to). Distinctness here is what
// keeps a retried client emission from inflating a funnel step.
func (p *PostgresStore) StepOccurrences(ctx context.Context, kind models.EventKind, from, to time.Time) ([]analytics.StepOccurrence, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT user_id, session_id, step
		FROM step_events
		WHERE kind = $1
		  AND occurred_at >= $2
		  AND occurred_at <  $3
	`, string(kind), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.StepOccurrence
	for rows.Next() {
		var occ analytics.StepOccurrence
		if err := rows.Scan(&occ.UserID, &occ.SessionID, &occ.Step); err != nil {
			return nil, err
		}
		out = append(out, occ)
	}
	return out, rows.Err()
}

// ActivityDays returns one (user, calendar day) row per day a user produced
// any qualifying event, for users whose first-ever qualifying event falls in
// [from,to). Qualifying events are step events and attributed plays;
// anonymous plays carry no user and cannot qualify.
func (p *PostgresStore) ActivityDays(ctx context.Context, from, to time.Time) ([]analytics.ActivityDay, error) {
	rows, err := p.pool.Query(ctx, `
		WITH activity AS (
			SELECT user_id, date_trunc('day', occurred_at AT TIME ZONE 'UTC') AS day
			FROM step_events
			UNION
			SELECT user_id, date_trunc('day', played_at AT TIME ZONE 'UTC') AS day
			FROM play_events
			WHERE user_id <> ''
		)
		SELECT a.user_id, a.day
		FROM activity a
		JOIN (
			SELECT user_id, MIN(day) AS first_day
			FROM activity
			GROUP BY user_id
		) f USING (user_id)
		WHERE f.first_day >= $1
		  AND f.first_day <  $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.ActivityDay
	for rows.Next() {
		var row analytics.ActivityDay
		if err := rows.Scan(&row.UserID, &row.Day); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PlayEvents returns the play events in [from,to). Callers are responsible
// for never asking beyond the retention TTL.
func (p *PostgresStore) PlayEvents(ctx context.Context, from, to time.Time) ([]models.PlayEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, content_type, content_id, playlist_id, item_index,
		       played_at, duration_seconds, total_duration_seconds,
		       pages_viewed, total_pages, completion_percent, is_engagement_update
		FROM play_events
		WHERE played_at >= $1
		  AND played_at <  $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PlayEvent
	for rows.Next() {
		var e models.PlayEvent
		var contentType string
		if err := rows.Scan(&e.ID, &e.UserID, &contentType, &e.ContentID, &e.PlaylistID, &e.ItemIndex,
			&e.PlayedAt, &e.DurationSeconds, &e.TotalDurationSeconds,
			&e.PagesViewed, &e.TotalPages, &e.CompletionPercent, &e.IsEngagementUpdate); err != nil {
			return nil, err
		}
		e.ContentType = models.ContentType(contentType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SurveyResponses returns the survey submissions in [from,to).
func (p *PostgresStore) SurveyResponses(ctx context.Context, from, to time.Time) ([]models.SurveyResponse, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, email, survey_type, nps_score, custom_feedback, metadata, submitted_at
		FROM survey_responses
		WHERE submitted_at >= $1
		  AND submitted_at <  $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SurveyResponse
	for rows.Next() {
		var r models.SurveyResponse
		var surveyType string
		var metaJSON []byte
		if err := rows.Scan(&r.ID, &r.UserID, &r.Email, &surveyType, &r.NPSScore, &r.CustomFeedback, &metaJSON, &r.SubmittedAt); err != nil {
			return nil, err
		}
		r.SurveyType = models.SurveyType(surveyType)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PurgeExpiredPlayEvents hard-deletes play events older than cutoff and
// returns the number removed. The purge is the one delete path in the store.
func (p *PostgresStore) PurgeExpiredPlayEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM play_events
		WHERE played_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
