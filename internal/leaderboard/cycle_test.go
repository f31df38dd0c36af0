package leaderboard

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaderbot/internal/models"
)

type cycleFixture struct {
	clock     *clockwork.FakeClock
	activity  *fakeActivity
	sessions  *fakeSessions
	boards    *fakeBoards
	api       *fakeChannelAPI
	rec       *refreshRecorder
	scheduler *Scheduler
	engine    *CycleEngine
}

func newCycleFixture(t *testing.T, period time.Duration) *cycleFixture {
	t.Helper()

	f := &cycleFixture{
		clock:    clockwork.NewFakeClock(),
		activity: newFakeActivity(),
		sessions: newFakeSessions(),
		boards:   newFakeBoards(),
		api:      newFakeChannelAPI(),
		rec:      &refreshRecorder{},
	}

	ranker := NewRanker(f.activity, f.sessions, f.clock)
	renderer := NewRenderer(10)
	publisher := NewPublisher(f.api, f.boards)
	f.scheduler = NewScheduler(f.rec.refresh, f.boards, f.clock, 2*time.Second, 30*time.Second)
	t.Cleanup(f.scheduler.Stop)

	f.engine = NewCycleEngine(f.boards, f.activity, f.sessions, ranker, renderer,
		publisher, f.scheduler, f.api, f.clock, period, 15*time.Second)
	return f
}

func TestSweepLeavesUnexpiredCyclesAlone(t *testing.T) {
	f := newCycleFixture(t, time.Hour)
	end := f.clock.Now().Add(4 * time.Minute)
	require.NoError(t, f.boards.Upsert(&models.LeaderboardConfig{
		GuildID: "g1", Kind: models.KindMessage, ChannelID: "c1",
		StartAt: f.clock.Now(), EndAt: end, Active: true,
	}))

	f.clock.Advance(4*time.Minute - time.Millisecond)
	f.engine.sweep()

	cfg, err := f.boards.Get("g1", models.KindMessage)
	require.NoError(t, err)
	assert.Equal(t, end, cfg.EndAt, "an unexpired cycle must not be finalized")
	assert.Empty(t, cfg.WinnersText)
	assert.Empty(t, f.activity.reset.messages)
}

func TestFinalizeMessageCycle(t *testing.T) {
	f := newCycleFixture(t, time.Hour)

	f.activity.put(models.UserActivity{GuildID: "g1", UserID: "a", Messages: 1500})
	f.activity.put(models.UserActivity{GuildID: "g1", UserID: "b", Messages: 3})
	f.activity.put(models.UserActivity{GuildID: "g1", UserID: "c", Messages: 2})
	f.activity.put(models.UserActivity{GuildID: "g1", UserID: "d", Messages: 1})

	start := f.clock.Now()
	require.NoError(t, f.boards.Upsert(&models.LeaderboardConfig{
		GuildID: "g1", Kind: models.KindMessage, ChannelID: "c1",
		MessageID: "live", TimerMessageID: "timer",
		StartAt: start, EndAt: start.Add(4 * time.Minute), Active: true,
	}))

	f.clock.Advance(4*time.Minute + time.Millisecond)
	now := f.clock.Now()
	f.engine.sweep()

	cfg, err := f.boards.Get("g1", models.KindMessage)
	require.NoError(t, err)

	// Winners snapshot: at most three entries, formatted metric included.
	assert.Contains(t, cfg.WinnersText, "🥇 <@a> — 1,500")
	assert.Contains(t, cfg.WinnersText, "🥈 <@b>")
	assert.Contains(t, cfg.WinnersText, "🥉 <@c>")
	assert.NotContains(t, cfg.WinnersText, "<@d>")

	// Closing publish edited the live message and already shows the winners.
	closing := f.api.edits["live"]
	require.NotNil(t, closing)
	assert.Contains(t, closing.Description, "Last cycle's winners")

	// Counters were reset and the new window opened.
	assert.Equal(t, []string{"g1"}, f.activity.reset.messages)
	assert.Equal(t, now, cfg.StartAt)
	assert.Equal(t, now.Add(time.Hour), cfg.EndAt)
	assert.Equal(t, "live", cfg.MessageID, "message ids are preserved across cycles")

	// The countdown announcement points at the new end.
	assert.Contains(t, f.api.contents["timer"], "<t:")

	// A near-immediate re-render was scheduled.
	f.clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return f.rec.count() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestFinalizeVoiceCycleReanchorsOpenSessions(t *testing.T) {
	f := newCycleFixture(t, time.Hour)

	joined := f.clock.Now()
	f.activity.put(models.UserActivity{GuildID: "g1", UserID: "a", VoiceSeconds: 500})
	f.activity.put(models.UserActivity{GuildID: "g1", UserID: "live",
		VoiceJoin: &joined})
	f.sessions.open("g1", "live", joined)

	require.NoError(t, f.boards.Upsert(&models.LeaderboardConfig{
		GuildID: "g1", Kind: models.KindVoice, ChannelID: "c1", MessageID: "live-msg",
		StartAt: joined, EndAt: joined.Add(4 * time.Minute), Active: true,
	}))

	f.clock.Advance(5 * time.Minute)
	now := f.clock.Now()
	f.engine.sweep()

	assert.Equal(t, []string{"g1"}, f.activity.reset.voice)

	// Open sessions survive the reset but contribute no pre-reset time.
	require.Len(t, f.sessions.resets, 1)
	assert.Equal(t, now, f.sessions.resets[0])
	reanchored, open := f.sessions.Start("g1", "live")
	require.True(t, open)
	assert.Equal(t, now, reanchored)
}

func TestFinalizeSkipsConfigsWithoutCycle(t *testing.T) {
	f := newCycleFixture(t, time.Hour)
	require.NoError(t, f.boards.Upsert(&models.LeaderboardConfig{
		GuildID: "g1", Kind: models.KindMessage, ChannelID: "c1", Active: true,
	}))

	f.clock.Advance(time.Hour)
	f.engine.sweep()

	cfg, err := f.boards.Get("g1", models.KindMessage)
	require.NoError(t, err)
	assert.True(t, cfg.EndAt.IsZero(), "a config with no cycle bounds is left alone")
}
