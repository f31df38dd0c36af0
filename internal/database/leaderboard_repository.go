package database

import (
	"database/sql"
	"fmt"
	"time"

	"leaderbot/internal/models"
)

// LeaderboardRepository handles leaderboard configuration records.
type LeaderboardRepository struct {
	db *DB
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(db *DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Get returns the config for a (guild, kind), or nil if none exists.
func (r *LeaderboardRepository) Get(guildID string, kind models.Kind) (*models.LeaderboardConfig, error) {
	row := r.db.conn.QueryRow(`
		SELECT guild_id, kind, channel_id, message_id, timer_message_id,
		       start_at, end_at, winners_text, active
		FROM leaderboards WHERE guild_id = $1 AND kind = $2`,
		guildID, string(kind))

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard config: %w", err)
	}
	return cfg, nil
}

// Upsert inserts or fully replaces the config for its (guild, kind).
func (r *LeaderboardRepository) Upsert(cfg *models.LeaderboardConfig) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO leaderboards (guild_id, kind, channel_id, message_id, timer_message_id,
		                          start_at, end_at, winners_text, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (guild_id, kind) DO UPDATE
		SET channel_id = EXCLUDED.channel_id,
		    message_id = EXCLUDED.message_id,
		    timer_message_id = EXCLUDED.timer_message_id,
		    start_at = EXCLUDED.start_at,
		    end_at = EXCLUDED.end_at,
		    winners_text = EXCLUDED.winners_text,
		    active = EXCLUDED.active`,
		cfg.GuildID, string(cfg.Kind), cfg.ChannelID, cfg.MessageID, cfg.TimerMessageID,
		epochMilli(cfg.StartAt), epochMilli(cfg.EndAt), cfg.WinnersText, cfg.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert leaderboard config: %w", err)
	}
	return nil
}

// ListActive returns every active config across all guilds.
func (r *LeaderboardRepository) ListActive() ([]models.LeaderboardConfig, error) {
	rows, err := r.db.conn.Query(`
		SELECT guild_id, kind, channel_id, message_id, timer_message_id,
		       start_at, end_at, winners_text, active
		FROM leaderboards WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active leaderboards: %w", err)
	}
	defer rows.Close()

	var configs []models.LeaderboardConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard rows: %w", err)
	}
	return configs, nil
}

// SetMessageID persists the id of the live leaderboard message.
func (r *LeaderboardRepository) SetMessageID(guildID string, kind models.Kind, messageID string) error {
	_, err := r.db.conn.Exec(
		"UPDATE leaderboards SET message_id = $3 WHERE guild_id = $1 AND kind = $2",
		guildID, string(kind), messageID)
	if err != nil {
		return fmt.Errorf("failed to set message id: %w", err)
	}
	return nil
}

// SetWinnersText persists the rendered top-3 block of a finished cycle.
func (r *LeaderboardRepository) SetWinnersText(guildID string, kind models.Kind, text string) error {
	_, err := r.db.conn.Exec(
		"UPDATE leaderboards SET winners_text = $3 WHERE guild_id = $1 AND kind = $2",
		guildID, string(kind), text)
	if err != nil {
		return fmt.Errorf("failed to set winners text: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*models.LeaderboardConfig, error) {
	var cfg models.LeaderboardConfig
	var kind string
	var startAt, endAt int64
	if err := row.Scan(&cfg.GuildID, &kind, &cfg.ChannelID, &cfg.MessageID,
		&cfg.TimerMessageID, &startAt, &endAt, &cfg.WinnersText, &cfg.Active); err != nil {
		return nil, err
	}
	cfg.Kind = models.Kind(kind)
	if startAt > 0 {
		cfg.StartAt = time.UnixMilli(startAt)
	}
	if endAt > 0 {
		cfg.EndAt = time.UnixMilli(endAt)
	}
	return &cfg, nil
}

func epochMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
