package leaderboard

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"leaderbot/internal/models"
)

// fakeActivity is an in-memory activity store.
type fakeActivity struct {
	mu    sync.Mutex
	rows  map[string]*models.UserActivity // guild:user
	seq   int
	reset struct {
		messages []string
		voice    []string
	}
}

func newFakeActivity() *fakeActivity {
	return &fakeActivity{rows: make(map[string]*models.UserActivity)}
}

func (f *fakeActivity) put(row models.UserActivity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := row
	f.rows[row.GuildID+":"+row.UserID] = &copied
}

func (f *fakeActivity) top(guildID string, metric func(models.UserActivity) int64, includeOpen bool, limit int) []models.UserActivity {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserActivity
	for _, row := range f.rows {
		if row.GuildID != guildID {
			continue
		}
		if metric(*row) <= 0 && !(includeOpen && row.VoiceJoin != nil) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return metric(out[i]) > metric(out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeActivity) TopByMessages(guildID string, limit int) ([]models.UserActivity, error) {
	return f.top(guildID, func(u models.UserActivity) int64 { return u.Messages }, false, limit), nil
}

func (f *fakeActivity) TopByVoice(guildID string, limit int) ([]models.UserActivity, error) {
	return f.top(guildID, func(u models.UserActivity) int64 { return u.VoiceSeconds }, true, limit), nil
}

func (f *fakeActivity) ResetMessages(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset.messages = append(f.reset.messages, guildID)
	for _, row := range f.rows {
		if row.GuildID == guildID {
			row.Messages = 0
		}
	}
	return nil
}

func (f *fakeActivity) ResetVoice(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset.voice = append(f.reset.voice, guildID)
	for _, row := range f.rows {
		if row.GuildID == guildID {
			row.VoiceSeconds = 0
			row.VoiceJoin = nil
		}
	}
	return nil
}

// fakeSessions is an in-memory open-session source.
type fakeSessions struct {
	mu     sync.Mutex
	starts map[string]time.Time // guild:user
	resets []time.Time
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{starts: make(map[string]time.Time)}
}

func (f *fakeSessions) open(guildID, userID string, start time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts[guildID+":"+userID] = start
}

func (f *fakeSessions) Start(guildID, userID string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start, ok := f.starts[guildID+":"+userID]
	return start, ok
}

func (f *fakeSessions) ResetAll(guildID string, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, now)
	prefix := guildID + ":"
	for key := range f.starts {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			f.starts[key] = now
		}
	}
}

// fakeBoards is an in-memory leaderboard config store.
type fakeBoards struct {
	mu      sync.Mutex
	configs map[string]*models.LeaderboardConfig // guild:kind
}

func newFakeBoards() *fakeBoards {
	return &fakeBoards{configs: make(map[string]*models.LeaderboardConfig)}
}

func (f *fakeBoards) key(guildID string, kind models.Kind) string {
	return guildID + ":" + string(kind)
}

func (f *fakeBoards) Get(guildID string, kind models.Kind) (*models.LeaderboardConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[f.key(guildID, kind)]
	if !ok {
		return nil, nil
	}
	copied := *cfg
	return &copied, nil
}

func (f *fakeBoards) Upsert(cfg *models.LeaderboardConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *cfg
	f.configs[f.key(cfg.GuildID, cfg.Kind)] = &copied
	return nil
}

func (f *fakeBoards) ListActive() ([]models.LeaderboardConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LeaderboardConfig
	for _, cfg := range f.configs {
		if cfg.Active {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (f *fakeBoards) SetMessageID(guildID string, kind models.Kind, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.configs[f.key(guildID, kind)]; ok {
		cfg.MessageID = messageID
	}
	return nil
}

func (f *fakeBoards) SetWinnersText(guildID string, kind models.Kind, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.configs[f.key(guildID, kind)]; ok {
		cfg.WinnersText = text
	}
	return nil
}

// fakeChannelAPI records sends and edits.
type fakeChannelAPI struct {
	mu        sync.Mutex
	seq       int
	sent      []*discordgo.MessageEmbed
	edits     map[string]*discordgo.MessageEmbed  // messageID -> last embed edit
	contents  map[string]string                   // messageID -> last content edit
	failEdit  bool
	failSend  bool
}

func newFakeChannelAPI() *fakeChannelAPI {
	return &fakeChannelAPI{
		edits:    make(map[string]*discordgo.MessageEmbed),
		contents: make(map[string]string),
	}
}

func (f *fakeChannelAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return nil, errors.New("send failed")
	}
	f.seq++
	f.sent = append(f.sent, embed)
	return &discordgo.Message{ID: msgID(f.seq), ChannelID: channelID}, nil
}

func (f *fakeChannelAPI) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit {
		return nil, errors.New("edit failed")
	}
	f.edits[messageID] = embed
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeChannelAPI) ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit {
		return nil, errors.New("edit failed")
	}
	f.contents[messageID] = content
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func msgID(seq int) string {
	return "msg-" + strconv.Itoa(seq)
}
