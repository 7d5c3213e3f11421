package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/godlykids/engagement-analytics/internal/models"
)

const (
	// DefaultHalfLifeHours halves a play's contribution every 24h.
	DefaultHalfLifeHours = 24.0

	// DefaultTrendingLimit caps a trending report unless the caller asks
	// for more.
	DefaultTrendingLimit = 20

	// impressionWeight is the completion weight of a play with no recorded
	// completion: opened-but-abandoned content still registers, but cannot
	// rival consumed content.
	impressionWeight = 0.05
)

// TrendingEntry is one ranked piece of content.
type TrendingEntry struct {
	ContentType models.ContentType `json:"content_type"`
	ContentID   string             `json:"content_id"`
	PlaylistID  string             `json:"playlist_id,omitempty"`
	ItemIndex   *int               `json:"item_index,omitempty"`
	Score       float64            `json:"score"`
	Plays       int                `json:"plays"`
}

// contentKey identifies a scoring bucket. Episodes are keyed by their
// playlist position as well, so two episodes of the same playlist never
// merge, and an episode never merges with its parent playlist.
type contentKey struct {
	contentType models.ContentType
	contentID   string
	playlistID  string
	itemIndex   int
}

// PlayScore is a single event's contribution to its content's trending
// score: completion weight times exponential recency decay.
func PlayScore(e models.PlayEvent, now time.Time, halfLifeHours float64) float64 {
	if halfLifeHours <= 0 {
		halfLifeHours = DefaultHalfLifeHours
	}
	completion := e.CompletionPercent
	if completion < 0 {
		completion = 0
	} else if completion > 100 {
		completion = 100
	}
	weight := completion / 100
	if weight == 0 {
		weight = impressionWeight
	}
	ageHours := now.Sub(e.PlayedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return weight * math.Pow(0.5, ageHours/halfLifeHours)
}

// ScoreTrending scores play events grouped by content identity and returns
// every bucket, highest score first, ties broken by raw play count. Older
// activity decays naturally; the 30-day TTL on stored play events is the
// only hard cutoff. Callers that need a top-N list truncate afterwards, so
// a display limit never changes what a roll-up sums over.
func ScoreTrending(events []models.PlayEvent, now time.Time, halfLifeHours float64) []TrendingEntry {
	now = now.UTC()

	buckets := make(map[contentKey]*TrendingEntry)
	for _, e := range events {
		key := contentKey{contentType: e.ContentType, contentID: e.ContentID}
		if e.ContentType == models.ContentEpisode {
			key.playlistID = e.PlaylistID
			if e.ItemIndex != nil {
				key.itemIndex = *e.ItemIndex
			}
		}
		entry, ok := buckets[key]
		if !ok {
			entry = &TrendingEntry{
				ContentType: e.ContentType,
				ContentID:   e.ContentID,
			}
			if e.ContentType == models.ContentEpisode {
				entry.PlaylistID = key.playlistID
				entry.ItemIndex = intPtr(key.itemIndex)
			}
			buckets[key] = entry
		}
		entry.Score += PlayScore(e, now, halfLifeHours)
		entry.Plays++
	}

	out := make([]TrendingEntry, 0, len(buckets))
	for _, entry := range buckets {
		out = append(out, *entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Plays > out[j].Plays
	})
	return out
}

// RankTrending returns the top limit entries of ScoreTrending
// (DefaultTrendingLimit when limit <= 0).
func RankTrending(events []models.PlayEvent, now time.Time, halfLifeHours float64, limit int) []TrendingEntry {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	out := ScoreTrending(events, now, halfLifeHours)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RollUpPlaylists sums episode scores into their parent playlists. This is a
// separate pass on purpose: the scorer never implicitly merges episode and
// playlist identities.
func RollUpPlaylists(entries []TrendingEntry) []TrendingEntry {
	totals := make(map[string]*TrendingEntry)
	order := make([]string, 0)
	for _, e := range entries {
		if e.ContentType != models.ContentEpisode || e.PlaylistID == "" {
			continue
		}
		agg, ok := totals[e.PlaylistID]
		if !ok {
			agg = &TrendingEntry{ContentType: models.ContentPlaylist, ContentID: e.PlaylistID}
			totals[e.PlaylistID] = agg
			order = append(order, e.PlaylistID)
		}
		agg.Score += e.Score
		agg.Plays += e.Plays
	}

	out := make([]TrendingEntry, 0, len(order))
	for _, id := range order {
		out = append(out, *totals[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Plays > out[j].Plays
	})
	return out
}

func intPtr(v int) *int { return &v }
