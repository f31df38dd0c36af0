package leaderboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"leaderbot/internal/metrics"
	"leaderbot/internal/models"
	"leaderbot/pkg/utils"
)

// ActivityResetter zeroes durable counters at cycle finalize.
type ActivityResetter interface {
	ResetMessages(guildID string) error
	ResetVoice(guildID string) error
}

// SessionResetter re-anchors open in-memory voice sessions at cycle finalize.
type SessionResetter interface {
	ResetAll(guildID string, now time.Time)
}

// CycleEngine periodically sweeps active configs and finalizes any whose
// cycle has expired: snapshot the winners, publish a final view, reset the
// counters and start the next cycle.
type CycleEngine struct {
	boards    BoardStore
	activity  ActivityResetter
	sessions  SessionResetter
	ranker    *Ranker
	renderer  *Renderer
	publisher *Publisher
	scheduler *Scheduler
	api       ChannelAPI
	clock     clockwork.Clock

	period        time.Duration
	sweepInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCycleEngine creates a new cycle engine
func NewCycleEngine(boards BoardStore, activity ActivityResetter, sessions SessionResetter,
	ranker *Ranker, renderer *Renderer, publisher *Publisher, scheduler *Scheduler,
	api ChannelAPI, clock clockwork.Clock, period, sweepInterval time.Duration) *CycleEngine {
	return &CycleEngine{
		boards:        boards,
		activity:      activity,
		sessions:      sessions,
		ranker:        ranker,
		renderer:      renderer,
		publisher:     publisher,
		scheduler:     scheduler,
		api:           api,
		clock:         clock,
		period:        period,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start runs the finalize sweep until Stop is called.
func (e *CycleEngine) Start() {
	go func() {
		ticker := e.clock.NewTicker(e.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				e.sweep()
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop stops the finalize sweep.
func (e *CycleEngine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// sweep finalizes every active config whose end has passed. endAt is the
// sole authority for expiry; configs without a cycle are left alone.
func (e *CycleEngine) sweep() {
	configs, err := e.boards.ListActive()
	if err != nil {
		log.Error("failed to list active leaderboards", "err", err)
		return
	}

	now := e.clock.Now()
	for i := range configs {
		cfg := configs[i]
		if cfg.EndAt.IsZero() || now.Before(cfg.EndAt) {
			continue
		}
		if err := e.finalize(&cfg); err != nil {
			log.Error("cycle finalize failed", "guild", cfg.GuildID, "kind", cfg.Kind, "err", err)
		}
	}
}

// finalize snapshots the winners, publishes the closing view, resets the
// counters and opens the next cycle window.
func (e *CycleEngine) finalize(cfg *models.LeaderboardConfig) error {
	now := e.clock.Now()
	log.Info("finalizing cycle", "guild", cfg.GuildID, "kind", cfg.Kind, "end", cfg.EndAt)

	entries, err := e.ranker.Snapshot(cfg.GuildID, cfg.Kind)
	if err != nil {
		return fmt.Errorf("failed to rank expiring cycle: %w", err)
	}

	winners := e.renderer.WinnersText(cfg.Kind, entries)
	if err := e.boards.SetWinnersText(cfg.GuildID, cfg.Kind, winners); err != nil {
		return fmt.Errorf("failed to persist winners: %w", err)
	}
	cfg.WinnersText = winners

	// Closing publish: final standings plus the fresh winners block.
	embed := e.renderer.Compact(cfg.Kind, entries, cfg, now)
	if _, id := e.publisher.Publish(cfg, embed); id != "" {
		cfg.MessageID = id
	}

	switch cfg.Kind {
	case models.KindMessage:
		if err := e.activity.ResetMessages(cfg.GuildID); err != nil {
			return fmt.Errorf("failed to reset message counters: %w", err)
		}
	case models.KindVoice:
		if err := e.activity.ResetVoice(cfg.GuildID); err != nil {
			return fmt.Errorf("failed to reset voice counters: %w", err)
		}
		// Open sessions keep running but must not carry pre-reset time
		// into the new cycle.
		e.sessions.ResetAll(cfg.GuildID, now)
	}

	cfg.StartAt = now
	cfg.EndAt = now.Add(e.period)
	if err := e.boards.Upsert(cfg); err != nil {
		return fmt.Errorf("failed to start new cycle: %w", err)
	}

	// The countdown announcement is never auto-updated, except exactly
	// here: its target is moved to the new end.
	if cfg.TimerMessageID != "" {
		if _, err := e.api.ChannelMessageEdit(cfg.ChannelID, cfg.TimerMessageID, CountdownContent(cfg.Kind, cfg.EndAt)); err != nil {
			log.Warn("failed to update countdown message",
				"guild", cfg.GuildID, "kind", cfg.Kind, "err", err)
		}
	}

	e.scheduler.Trigger(cfg.GuildID, cfg.Kind)

	metrics.FinalizesTotal.WithLabelValues(string(cfg.Kind)).Inc()
	log.Info("cycle finalized", "guild", cfg.GuildID, "kind", cfg.Kind,
		"winners", len(entries), "next_end", cfg.EndAt)
	return nil
}

// CountdownContent renders the standalone countdown announcement for a cycle.
func CountdownContent(kind models.Kind, end time.Time) string {
	return fmt.Sprintf("⏳ %s resets %s", Title(kind), utils.FormatRelativeTimestamp(end.Unix()))
}
