package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	flushed map[string][]int64    // guild:user -> flushed spans
	shadows map[string]*time.Time // guild:user -> persisted voice_join
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		flushed: make(map[string][]int64),
		shadows: make(map[string]*time.Time),
	}
}

func (f *fakeStore) AddVoiceSeconds(guildID, userID, username string, seconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed[guildID+":"+userID] = append(f.flushed[guildID+":"+userID], seconds)
	return nil
}

func (f *fakeStore) SetVoiceJoin(guildID, userID, username string, joinedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if joinedAt == nil {
		f.shadows[guildID+":"+userID] = nil
		return nil
	}
	t := *joinedAt
	f.shadows[guildID+":"+userID] = &t
	return nil
}

func (f *fakeStore) VoiceJoin(guildID, userID string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shadows[guildID+":"+userID], nil
}

func (f *fakeStore) total(guildID, userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, s := range f.flushed[guildID+":"+userID] {
		sum += s
	}
	return sum
}

func TestJoinLeaveFlushesElapsed(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	trk := New(store, clock)

	trk.Join("g1", "u1", "alice")

	shadow := store.shadows["g1:u1"]
	require.NotNil(t, shadow, "join must persist the recovery shadow")
	assert.Equal(t, clock.Now(), *shadow)

	clock.Advance(30 * time.Second)
	trk.Leave("g1", "u1", "alice")

	assert.Equal(t, int64(30), store.total("g1", "u1"))
	assert.Nil(t, store.shadows["g1:u1"], "leave must clear the shadow")

	_, open := trk.Start("g1", "u1")
	assert.False(t, open)
}

func TestMovePartitionsSpansWithoutGapOrOverlap(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	trk := New(store, clock)

	trk.Join("g1", "u1", "alice")
	clock.Advance(10 * time.Second)
	trk.Move("g1", "u1", "alice")
	clock.Advance(20 * time.Second)
	trk.Leave("g1", "u1", "alice")

	require.Len(t, store.flushed["g1:u1"], 2)
	assert.Equal(t, []int64{10, 20}, store.flushed["g1:u1"])
	assert.Equal(t, int64(30), store.total("g1", "u1"))
}

func TestDuplicateJoinIgnored(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	trk := New(store, clock)

	trk.Join("g1", "u1", "alice")
	start, _ := trk.Start("g1", "u1")

	clock.Advance(5 * time.Second)
	trk.Join("g1", "u1", "alice")

	again, open := trk.Start("g1", "u1")
	require.True(t, open)
	assert.Equal(t, start, again, "second join must not re-anchor the session")
}

func TestLeaveWithoutSessionIsNoop(t *testing.T) {
	store := newFakeStore()
	trk := New(store, clockwork.NewFakeClock())

	trk.Leave("g1", "u1", "alice")

	assert.Empty(t, store.flushed["g1:u1"])
}

func TestRecoverTrustsPersistedShadow(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()

	// The user joined 30s before the process restarted.
	joined := clock.Now()
	store.shadows["g1:u1"] = &joined
	clock.Advance(30 * time.Second)

	trk := New(store, clock)
	trk.Recover("g1", "u1", "alice")

	start, open := trk.Start("g1", "u1")
	require.True(t, open)
	assert.Equal(t, joined, start, "recovered start must be the original join time")

	clock.Advance(60 * time.Second)
	trk.Leave("g1", "u1", "alice")
	assert.Equal(t, int64(90), store.total("g1", "u1"), "pre-restart time must be included")
}

func TestRecoverWithoutShadowStartsFresh(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	trk := New(store, clock)

	trk.Recover("g1", "u1", "alice")

	start, open := trk.Start("g1", "u1")
	require.True(t, open)
	assert.Equal(t, clock.Now(), start)

	shadow := store.shadows["g1:u1"]
	require.NotNil(t, shadow, "fresh recovery must persist a new shadow")
	assert.Equal(t, clock.Now(), *shadow)
}

func TestResetAllReanchorsOpenSessions(t *testing.T) {
	store := newFakeStore()
	clock := clockwork.NewFakeClock()
	trk := New(store, clock)

	trk.Join("g1", "u1", "alice")
	trk.Join("g1", "u2", "bob")
	trk.Join("g2", "u3", "carol")

	clock.Advance(100 * time.Second)
	now := clock.Now()
	trk.ResetAll("g1", now)

	start, open := trk.Start("g1", "u1")
	require.True(t, open)
	assert.Equal(t, now, start)

	shadow := store.shadows["g1:u2"]
	require.NotNil(t, shadow)
	assert.Equal(t, now, *shadow, "re-anchor must persist the new shadow")

	// Sessions in other guilds are untouched.
	otherStart, open := trk.Start("g2", "u3")
	require.True(t, open)
	assert.Equal(t, now.Add(-100*time.Second), otherStart)

	// Only post-reset time counts from here on.
	clock.Advance(40 * time.Second)
	trk.Leave("g1", "u1", "alice")
	assert.Equal(t, int64(40), store.total("g1", "u1"))
}
