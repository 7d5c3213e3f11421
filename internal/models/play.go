package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentType is the kind of content a play event refers to.
type ContentType string

const (
	ContentBook     ContentType = "book"
	ContentEpisode  ContentType = "episode"
	ContentPlaylist ContentType = "playlist"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	return t == ContentBook || t == ContentEpisode || t == ContentPlaylist
}

// PlayEvent records one content-play start or a later progress update for the
// same play session. Both exist as separate rows; consumers must partition by
// a session key explicitly if they need at-most-one-per-play semantics.
//
// Rows are hard-deleted 30 days after PlayedAt (retention TTL), so any
// consumer may only ever look back 30 days.
type PlayEvent struct {
	ID                   uuid.UUID   `json:"id"`
	UserID               string      `json:"user_id,omitempty"` // empty for anonymous plays
	ContentType          ContentType `json:"content_type"`
	ContentID            string      `json:"content_id"`
	PlaylistID           string      `json:"playlist_id,omitempty"`
	ItemIndex            *int        `json:"item_index,omitempty"`
	PlayedAt             time.Time   `json:"played_at"`
	DurationSeconds      float64     `json:"duration_seconds"`
	TotalDurationSeconds float64     `json:"total_duration_seconds"`
	PagesViewed          int         `json:"pages_viewed"`
	TotalPages           int         `json:"total_pages"`
	CompletionPercent    float64     `json:"completion_percent"`
	IsEngagementUpdate   bool        `json:"is_engagement_update"`
}

// PlayEventIngestRequest is the POST /events/play payload.
type PlayEventIngestRequest struct {
	UserID               string  `json:"user_id,omitempty"`
	ContentType          string  `json:"content_type"`
	ContentID            string  `json:"content_id"`
	PlaylistID           string  `json:"playlist_id,omitempty"`
	ItemIndex            *int    `json:"item_index,omitempty"`
	PlayedAt             string  `json:"played_at,omitempty"`
	DurationSeconds      float64 `json:"duration_seconds,omitempty"`
	TotalDurationSeconds float64 `json:"total_duration_seconds,omitempty"`
	PagesViewed          int     `json:"pages_viewed,omitempty"`
	TotalPages           int     `json:"total_pages,omitempty"`
	CompletionPercent    float64 `json:"completion_percent,omitempty"`
	IsEngagementUpdate   bool    `json:"is_engagement_update,omitempty"`
}
