// Package tracker owns the in-memory map of currently open voice sessions.
// The durable voice_join column is a recovery shadow of this map, written
// synchronously on every transition so open sessions survive a restart.
package tracker

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

// Store is the slice of the activity store the tracker writes through to.
type Store interface {
	AddVoiceSeconds(guildID, userID, username string, seconds int64) error
	SetVoiceJoin(guildID, userID, username string, joinedAt *time.Time) error
	VoiceJoin(guildID, userID string) (*time.Time, error)
}

type session struct {
	start    time.Time
	username string
}

// Tracker tracks open voice sessions per (guild, user).
type Tracker struct {
	store Store
	clock clockwork.Clock

	mu       sync.Mutex
	sessions map[string]session // guildID:userID -> open session
}

// New creates a new tracker
func New(store Store, clock clockwork.Clock) *Tracker {
	return &Tracker{
		store:    store,
		clock:    clock,
		sessions: make(map[string]session),
	}
}

func sessionKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// Join opens a session for a user who entered a voice channel. A join for an
// already-open session is ignored.
func (t *Tracker) Join(guildID, userID, username string) {
	now := t.clock.Now()

	t.mu.Lock()
	key := sessionKey(guildID, userID)
	if _, ok := t.sessions[key]; ok {
		t.mu.Unlock()
		return
	}
	t.sessions[key] = session{start: now, username: username}
	t.mu.Unlock()

	if err := t.store.SetVoiceJoin(guildID, userID, username, &now); err != nil {
		log.Error("failed to persist voice join", "guild", guildID, "user", userID, "err", err)
	}
}

// Move handles a channel-to-channel transition: the elapsed span is flushed
// and the session re-anchored to now. A move without an open session is
// treated as a join.
func (t *Tracker) Move(guildID, userID, username string) {
	now := t.clock.Now()

	t.mu.Lock()
	key := sessionKey(guildID, userID)
	prev, ok := t.sessions[key]
	t.sessions[key] = session{start: now, username: username}
	t.mu.Unlock()

	if ok {
		t.flush(guildID, userID, username, prev.start, now)
	}
	if err := t.store.SetVoiceJoin(guildID, userID, username, &now); err != nil {
		log.Error("failed to persist voice join", "guild", guildID, "user", userID, "err", err)
	}
}

// Leave closes a session: the elapsed span is flushed and the persisted
// shadow cleared. A leave without an open session is ignored.
func (t *Tracker) Leave(guildID, userID, username string) {
	now := t.clock.Now()

	t.mu.Lock()
	key := sessionKey(guildID, userID)
	prev, ok := t.sessions[key]
	delete(t.sessions, key)
	t.mu.Unlock()

	if !ok {
		return
	}

	t.flush(guildID, userID, username, prev.start, now)
	if err := t.store.SetVoiceJoin(guildID, userID, username, nil); err != nil {
		log.Error("failed to clear voice join", "guild", guildID, "user", userID, "err", err)
	}
}

// Recover re-opens a session for a user found connected at startup. If a
// persisted shadow exists it is trusted as the session start, so time
// accumulated before a restart is not lost; otherwise the session starts now
// and that start is persisted.
func (t *Tracker) Recover(guildID, userID, username string) {
	start, err := t.store.VoiceJoin(guildID, userID)
	if err != nil {
		log.Error("failed to read persisted voice join", "guild", guildID, "user", userID, "err", err)
		start = nil
	}

	if start == nil {
		now := t.clock.Now()
		start = &now
		if err := t.store.SetVoiceJoin(guildID, userID, username, start); err != nil {
			log.Error("failed to persist recovered voice join", "guild", guildID, "user", userID, "err", err)
		}
	}

	t.mu.Lock()
	t.sessions[sessionKey(guildID, userID)] = session{start: *start, username: username}
	t.mu.Unlock()

	log.Info("recovered open voice session", "guild", guildID, "user", userID, "start", start)
}

// Start returns the start time of the user's open session, if any.
func (t *Tracker) Start(guildID, userID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionKey(guildID, userID)]
	return s.start, ok
}

// ResetAll re-anchors every open session in the guild to now and persists the
// new shadows. Used by cycle finalize so open sessions neither carry
// pre-reset time into the new cycle nor lose their open state.
func (t *Tracker) ResetAll(guildID string, now time.Time) {
	prefix := guildID + ":"

	t.mu.Lock()
	var reanchored []struct {
		userID   string
		username string
	}
	for key, s := range t.sessions {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		t.sessions[key] = session{start: now, username: s.username}
		reanchored = append(reanchored, struct {
			userID   string
			username string
		}{key[len(prefix):], s.username})
	}
	t.mu.Unlock()

	for _, s := range reanchored {
		if err := t.store.SetVoiceJoin(guildID, s.userID, s.username, &now); err != nil {
			log.Error("failed to re-anchor voice join", "guild", guildID, "user", s.userID, "err", err)
		}
	}
}

func (t *Tracker) flush(guildID, userID, username string, start, end time.Time) {
	seconds := int64(end.Sub(start).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	if err := t.store.AddVoiceSeconds(guildID, userID, username, seconds); err != nil {
		log.Error("failed to flush voice seconds", "guild", guildID, "user", userID, "err", err)
	}
}
