package leaderboard

import (
	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"leaderbot/internal/metrics"
	"leaderbot/internal/models"
)

// PublishOutcome reports how a publish attempt concluded.
type PublishOutcome int

const (
	PublishFailed PublishOutcome = iota
	PublishEdited
	PublishSentNew
)

// String returns the metric label for an outcome.
func (o PublishOutcome) String() string {
	switch o {
	case PublishEdited:
		return "edited"
	case PublishSentNew:
		return "sent"
	default:
		return "failed"
	}
}

// ChannelAPI is the slice of the Discord session the publisher needs.
type ChannelAPI interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// BoardStore is the slice of the leaderboard repository the engines write to.
type BoardStore interface {
	Get(guildID string, kind models.Kind) (*models.LeaderboardConfig, error)
	Upsert(cfg *models.LeaderboardConfig) error
	ListActive() ([]models.LeaderboardConfig, error)
	SetMessageID(guildID string, kind models.Kind, messageID string) error
	SetWinnersText(guildID string, kind models.Kind, text string) error
}

// Publisher delivers rendered leaderboards with an edit-or-send rule.
type Publisher struct {
	api    ChannelAPI
	boards BoardStore
}

// NewPublisher creates a new publisher
func NewPublisher(api ChannelAPI, boards BoardStore) *Publisher {
	return &Publisher{api: api, boards: boards}
}

// Publish edits the config's live message in place when one exists, falling
// back to sending a new message when the edit fails (deleted message, lost
// permissions) or no message id is recorded. A newly sent message id is
// persisted. Returns the outcome and the id of the live message.
func (p *Publisher) Publish(cfg *models.LeaderboardConfig, embed *discordgo.MessageEmbed) (PublishOutcome, string) {
	if cfg.MessageID != "" {
		if _, err := p.api.ChannelMessageEditEmbed(cfg.ChannelID, cfg.MessageID, embed); err == nil {
			metrics.PublishesTotal.WithLabelValues(PublishEdited.String()).Inc()
			return PublishEdited, cfg.MessageID
		} else {
			log.Warn("leaderboard edit failed, sending new message",
				"guild", cfg.GuildID, "kind", cfg.Kind, "message", cfg.MessageID, "err", err)
		}
	}

	msg, err := p.api.ChannelMessageSendEmbed(cfg.ChannelID, embed)
	if err != nil {
		log.Error("leaderboard send failed", "guild", cfg.GuildID, "kind", cfg.Kind, "err", err)
		metrics.PublishesTotal.WithLabelValues(PublishFailed.String()).Inc()
		return PublishFailed, cfg.MessageID
	}

	if err := p.boards.SetMessageID(cfg.GuildID, cfg.Kind, msg.ID); err != nil {
		log.Error("failed to persist leaderboard message id",
			"guild", cfg.GuildID, "kind", cfg.Kind, "err", err)
	}
	metrics.PublishesTotal.WithLabelValues(PublishSentNew.String()).Inc()
	return PublishSentNew, msg.ID
}
