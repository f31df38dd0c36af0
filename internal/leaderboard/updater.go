package leaderboard

import (
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"leaderbot/internal/models"
)

// Updater performs a full refresh: rank, render the compact view, publish.
type Updater struct {
	ranker    *Ranker
	renderer  *Renderer
	publisher *Publisher
	boards    BoardStore
	clock     clockwork.Clock
}

// NewUpdater creates a new updater
func NewUpdater(ranker *Ranker, renderer *Renderer, publisher *Publisher, boards BoardStore, clock clockwork.Clock) *Updater {
	return &Updater{
		ranker:    ranker,
		renderer:  renderer,
		publisher: publisher,
		boards:    boards,
		clock:     clock,
	}
}

// Refresh re-renders and publishes the live view for a (guild, kind).
// Missing or inactive configs are skipped. Failures are logged; the next
// scheduled refresh self-corrects.
func (u *Updater) Refresh(guildID string, kind models.Kind) {
	cfg, err := u.boards.Get(guildID, kind)
	if err != nil {
		log.Error("failed to load leaderboard config", "guild", guildID, "kind", kind, "err", err)
		return
	}
	if cfg == nil || !cfg.Active {
		return
	}

	entries, err := u.ranker.Snapshot(guildID, kind)
	if err != nil {
		log.Error("failed to compute ranking", "guild", guildID, "kind", kind, "err", err)
		return
	}

	embed := u.renderer.Compact(kind, entries, cfg, u.clock.Now())
	u.publisher.Publish(cfg, embed)
}
