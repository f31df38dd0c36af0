package models

import "time"

// Kind selects which metric a leaderboard ranks.
type Kind string

const (
	KindMessage Kind = "message"
	KindVoice   Kind = "voice"
)

// Valid reports whether k is a known leaderboard kind.
func (k Kind) Valid() bool {
	return k == KindMessage || k == KindVoice
}

// UserActivity represents a user's activity counters in a guild.
type UserActivity struct {
	GuildID      string
	UserID       string
	Username     string
	Messages     int64
	VoiceSeconds int64
	// VoiceJoin is the persisted start of an open voice session, nil when
	// the user is not connected. It shadows the in-memory tracker so open
	// sessions survive a restart.
	VoiceJoin *time.Time
}

// LeaderboardConfig represents a published leaderboard in a guild.
type LeaderboardConfig struct {
	GuildID   string
	Kind      Kind
	ChannelID string
	// MessageID is the live leaderboard message, empty until first publish.
	MessageID string
	// TimerMessageID is the standalone countdown announcement, empty if
	// none was published.
	TimerMessageID string
	StartAt        time.Time
	EndAt          time.Time
	// WinnersText is the rendered top-3 block of the last finished cycle.
	// It persists until the next finalize overwrites it.
	WinnersText string
	Active      bool
}

// RankingEntry is one row of a computed ranking snapshot.
type RankingEntry struct {
	UserID   string
	Username string
	Value    int64
}
