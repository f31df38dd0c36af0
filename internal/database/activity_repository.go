package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"leaderbot/internal/models"
)

// ActivityRepository handles per-user activity counters.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// RecordMessage upserts the user's identity and increments their message count.
func (r *ActivityRepository) RecordMessage(guildID, userID, username string) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO users (guild_id, user_id, username, messages)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET messages = users.messages + 1, username = EXCLUDED.username`,
		guildID, userID, username)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

// AddVoiceSeconds adds a closed voice span to the user's accumulated total.
func (r *ActivityRepository) AddVoiceSeconds(guildID, userID, username string, seconds int64) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO users (guild_id, user_id, username, voice_seconds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET voice_seconds = users.voice_seconds + EXCLUDED.voice_seconds, username = EXCLUDED.username`,
		guildID, userID, username, seconds)
	if err != nil {
		return fmt.Errorf("failed to add voice seconds: %w", err)
	}
	return nil
}

// SetVoiceJoin persists the start of the user's open voice session, or clears
// it when joinedAt is nil. This is the crash-recovery shadow of the in-memory
// tracker and is written on every session transition.
func (r *ActivityRepository) SetVoiceJoin(guildID, userID, username string, joinedAt *time.Time) error {
	var join sql.NullInt64
	if joinedAt != nil {
		join = sql.NullInt64{Int64: joinedAt.UnixMilli(), Valid: true}
	}

	_, err := r.db.conn.Exec(`
		INSERT INTO users (guild_id, user_id, username, voice_join)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET voice_join = EXCLUDED.voice_join, username = EXCLUDED.username`,
		guildID, userID, username, join)
	if err != nil {
		return fmt.Errorf("failed to set voice join: %w", err)
	}
	return nil
}

// VoiceJoin returns the persisted open-session start for a user, or nil if
// no session is recorded.
func (r *ActivityRepository) VoiceJoin(guildID, userID string) (*time.Time, error) {
	var join sql.NullInt64
	err := r.db.conn.QueryRow(
		"SELECT voice_join FROM users WHERE guild_id = $1 AND user_id = $2",
		guildID, userID).Scan(&join)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voice join: %w", err)
	}
	if !join.Valid {
		return nil, nil
	}
	t := time.UnixMilli(join.Int64)
	return &t, nil
}

// ResetMessages zeroes the message count for every user in the guild.
func (r *ActivityRepository) ResetMessages(guildID string) error {
	_, err := r.db.conn.Exec("UPDATE users SET messages = 0 WHERE guild_id = $1", guildID)
	if err != nil {
		return fmt.Errorf("failed to reset messages: %w", err)
	}
	return nil
}

// ResetVoice zeroes the accumulated voice seconds and clears the open-session
// shadow for every user in the guild. Open in-memory sessions are re-anchored
// separately by the tracker.
func (r *ActivityRepository) ResetVoice(guildID string) error {
	_, err := r.db.conn.Exec("UPDATE users SET voice_seconds = 0, voice_join = NULL WHERE guild_id = $1", guildID)
	if err != nil {
		return fmt.Errorf("failed to reset voice: %w", err)
	}
	return nil
}

// TopByMessages returns candidate rows ordered by message count descending.
func (r *ActivityRepository) TopByMessages(guildID string, limit int) ([]models.UserActivity, error) {
	rows, err := r.db.conn.Query(`
		SELECT user_id, username, messages, voice_seconds, voice_join
		FROM users WHERE guild_id = $1 AND messages > 0
		ORDER BY messages DESC LIMIT $2`,
		guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top by messages: %w", err)
	}
	defer rows.Close()

	return scanActivityRows(rows, guildID)
}

// TopByVoice returns candidate rows ordered by accumulated voice seconds
// descending. Rows with an open session but no accumulated time are included
// so in-flight time can still rank.
func (r *ActivityRepository) TopByVoice(guildID string, limit int) ([]models.UserActivity, error) {
	rows, err := r.db.conn.Query(`
		SELECT user_id, username, messages, voice_seconds, voice_join
		FROM users WHERE guild_id = $1 AND (voice_seconds > 0 OR voice_join IS NOT NULL)
		ORDER BY voice_seconds DESC LIMIT $2`,
		guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top by voice: %w", err)
	}
	defer rows.Close()

	return scanActivityRows(rows, guildID)
}

func scanActivityRows(rows *sql.Rows, guildID string) ([]models.UserActivity, error) {
	var users []models.UserActivity
	for rows.Next() {
		var u models.UserActivity
		var join sql.NullInt64
		if err := rows.Scan(&u.UserID, &u.Username, &u.Messages, &u.VoiceSeconds, &join); err != nil {
			log.Error("failed to scan activity row", "guild", guildID, "err", err)
			continue
		}
		u.GuildID = guildID
		if join.Valid {
			t := time.UnixMilli(join.Int64)
			u.VoiceJoin = &t
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity rows: %w", err)
	}
	return users, nil
}
