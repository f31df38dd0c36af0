package leaderboard

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"leaderbot/internal/models"
)

// Scheduler coalesces refresh requests per (guild, kind): each trigger
// cancels the pending timer for that key and arms a fresh one, so bursts of
// activity collapse into a single publish. A background sweep additionally
// force-refreshes every active config on a fixed interval so the countdown
// footer advances even without activity.
type Scheduler struct {
	refresh         func(guildID string, kind models.Kind)
	boards          BoardStore
	clock           clockwork.Clock
	delay           time.Duration
	refreshInterval time.Duration

	mu      sync.Mutex
	pending map[string]clockwork.Timer

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler driving the given refresh action.
func NewScheduler(refresh func(guildID string, kind models.Kind), boards BoardStore, clock clockwork.Clock, delay, refreshInterval time.Duration) *Scheduler {
	return &Scheduler{
		refresh:         refresh,
		boards:          boards,
		clock:           clock,
		delay:           delay,
		refreshInterval: refreshInterval,
		pending:         make(map[string]clockwork.Timer),
		stopCh:          make(chan struct{}),
	}
}

// Trigger schedules a debounced refresh for a (guild, kind), replacing any
// pending one for the same key.
func (s *Scheduler) Trigger(guildID string, kind models.Kind) {
	s.schedule(guildID, kind, s.delay)
}

// TriggerNow refreshes with no debounce delay, dropping any pending timer
// for the key so the same publish does not run twice.
func (s *Scheduler) TriggerNow(guildID string, kind models.Kind) {
	key := guildID + ":" + string(kind)

	s.mu.Lock()
	if timer, ok := s.pending[key]; ok {
		timer.Stop()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.refresh(guildID, kind)
}

func (s *Scheduler) schedule(guildID string, kind models.Kind, delay time.Duration) {
	key := guildID + ":" + string(kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[key]; ok {
		timer.Stop()
	}

	var timer clockwork.Timer
	timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		// A stopped timer can still fire if it was already in flight; only
		// the current owner of the key may clear it.
		if s.pending[key] == timer {
			delete(s.pending, key)
		}
		s.mu.Unlock()

		s.refresh(guildID, kind)
	})
	s.pending[key] = timer
}

// Start runs the periodic force-refresh sweep until Stop is called.
func (s *Scheduler) Start() {
	go func() {
		ticker := s.clock.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				s.refreshAll()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop stops the refresh sweep and drops all pending debounce timers.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.pending {
		timer.Stop()
		delete(s.pending, key)
	}
}

func (s *Scheduler) refreshAll() {
	configs, err := s.boards.ListActive()
	if err != nil {
		log.Error("failed to list active leaderboards", "err", err)
		return
	}
	for _, cfg := range configs {
		s.TriggerNow(cfg.GuildID, cfg.Kind)
	}
}
