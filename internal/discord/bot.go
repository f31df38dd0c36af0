package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"leaderbot/internal/config"
	"leaderbot/internal/database"
	"leaderbot/internal/leaderboard"
	"leaderbot/internal/metrics"
	"leaderbot/internal/models"
	"leaderbot/internal/tracker"
)

// Bot represents the Discord bot
type Bot struct {
	session   *discordgo.Session
	cfg       *config.Config
	activity  *database.ActivityRepository
	boards    *database.LeaderboardRepository
	tracker   *tracker.Tracker
	scheduler *leaderboard.Scheduler
	ranker    *leaderboard.Ranker
	renderer  *leaderboard.Renderer
	updater   *leaderboard.Updater
	clock     clockwork.Clock
}

// New wires the bot onto an existing Discord session. The session is created
// by the caller so the publish path can share it.
func New(session *discordgo.Session, cfg *config.Config, activity *database.ActivityRepository,
	boards *database.LeaderboardRepository, trk *tracker.Tracker, scheduler *leaderboard.Scheduler,
	ranker *leaderboard.Ranker, renderer *leaderboard.Renderer, updater *leaderboard.Updater,
	clock clockwork.Clock) *Bot {
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates

	bot := &Bot{
		session:   session,
		cfg:       cfg,
		activity:  activity,
		boards:    boards,
		tracker:   trk,
		scheduler: scheduler,
		ranker:    ranker,
		renderer:  renderer,
		updater:   updater,
		clock:     clock,
	}

	session.AddHandler(bot.ready)
	session.AddHandler(bot.guildCreate)
	session.AddHandler(bot.messageCreate)
	session.AddHandler(bot.voiceStateUpdate)
	session.AddHandler(bot.interactionCreate)

	return bot
}

// Start starts the bot
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	log.Info("bot is running", "user", b.session.State.User.Username)
	return nil
}

// Stop stops the bot
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) ready(s *discordgo.Session, r *discordgo.Ready) {
	if err := b.registerCommands(s); err != nil {
		log.Error("failed to register commands", "err", err)
	}
}

// guildCreate reconciles the session tracker with members already connected
// to voice when the guild becomes available (startup and reconnects).
func (b *Bot) guildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == "" {
			continue
		}
		username := ""
		if member, err := s.State.Member(g.ID, vs.UserID); err == nil && member.User != nil {
			if member.User.Bot {
				continue
			}
			username = member.User.Username
		}
		if _, open := b.tracker.Start(g.ID, vs.UserID); open {
			continue
		}
		b.tracker.Recover(g.ID, vs.UserID, username)
	}
}

// messageCreate counts qualifying messages and schedules a debounced
// re-render. Bots and messages outside a guild are excluded.
func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	metrics.EventsTotal.WithLabelValues("message").Inc()

	if err := b.activity.RecordMessage(m.GuildID, m.Author.ID, m.Author.Username); err != nil {
		// No retry: message events are frequent and self-correcting.
		metrics.StoreErrorsTotal.Inc()
		log.Error("failed to record message", "guild", m.GuildID, "user", m.Author.ID, "err", err)
		return
	}

	b.scheduler.Trigger(m.GuildID, models.KindMessage)
}

// voiceStateUpdate drives the session state machine: join, channel move or
// leave, each followed by a debounced re-render of the voice leaderboard.
func (b *Bot) voiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	username := ""
	if vs.Member != nil && vs.Member.User != nil {
		if vs.Member.User.Bot {
			return
		}
		username = vs.Member.User.Username
	}
	metrics.EventsTotal.WithLabelValues("voice_state").Inc()

	oldChannel := ""
	if vs.BeforeUpdate != nil {
		oldChannel = vs.BeforeUpdate.ChannelID
	}
	newChannel := vs.ChannelID

	switch {
	case oldChannel == "" && newChannel != "":
		b.tracker.Join(vs.GuildID, vs.UserID, username)
	case oldChannel != "" && newChannel != "" && oldChannel != newChannel:
		b.tracker.Move(vs.GuildID, vs.UserID, username)
	case oldChannel != "" && newChannel == "":
		b.tracker.Leave(vs.GuildID, vs.UserID, username)
	default:
		// Mute/deafen toggles inside the same channel are not transitions.
		return
	}

	b.scheduler.Trigger(vs.GuildID, models.KindVoice)
}
