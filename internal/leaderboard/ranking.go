package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"leaderbot/internal/models"
)

// candidateLimit bounds the rows considered for a snapshot. The durable
// ordering is only a pre-filter; open-session time can reorder the top.
const candidateLimit = 100

// ActivityStore is the slice of the activity store the ranker reads from.
type ActivityStore interface {
	TopByMessages(guildID string, limit int) ([]models.UserActivity, error)
	TopByVoice(guildID string, limit int) ([]models.UserActivity, error)
}

// SessionSource exposes currently open voice sessions.
type SessionSource interface {
	Start(guildID, userID string) (time.Time, bool)
}

// Ranker computes ranking snapshots, merging durable counters with any
// in-flight open voice session.
type Ranker struct {
	store    ActivityStore
	sessions SessionSource
	clock    clockwork.Clock
}

// NewRanker creates a new ranker
func NewRanker(store ActivityStore, sessions SessionSource, clock clockwork.Clock) *Ranker {
	return &Ranker{store: store, sessions: sessions, clock: clock}
}

// Snapshot returns the ranked entries for a (guild, kind), descending by the
// effective metric, ties broken by user id ascending. At most candidateLimit
// entries are returned; callers truncate further.
func (r *Ranker) Snapshot(guildID string, kind models.Kind) ([]models.RankingEntry, error) {
	var entries []models.RankingEntry

	switch kind {
	case models.KindMessage:
		rows, err := r.store.TopByMessages(guildID, candidateLimit)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			entries = append(entries, models.RankingEntry{
				UserID:   row.UserID,
				Username: row.Username,
				Value:    row.Messages,
			})
		}

	case models.KindVoice:
		rows, err := r.store.TopByVoice(guildID, candidateLimit)
		if err != nil {
			return nil, err
		}
		now := r.clock.Now()
		for _, row := range rows {
			total := row.VoiceSeconds
			if start, ok := r.sessions.Start(guildID, row.UserID); ok {
				total += elapsedSeconds(start, now)
			} else if row.VoiceJoin != nil {
				// Reconciliation path: the store still records an open
				// session the tracker does not know about.
				total += elapsedSeconds(*row.VoiceJoin, now)
			}
			entries = append(entries, models.RankingEntry{
				UserID:   row.UserID,
				Username: row.Username,
				Value:    total,
			})
		}

	default:
		return nil, fmt.Errorf("unknown leaderboard kind %q", kind)
	}

	// The durable order is only a candidate pre-filter; re-sort by the
	// effective metric with a deterministic tie-break.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].UserID < entries[j].UserID
	})

	return entries, nil
}

func elapsedSeconds(start, now time.Time) int64 {
	secs := int64(now.Sub(start).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
