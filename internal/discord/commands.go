package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"leaderbot/internal/leaderboard"
	"leaderbot/internal/metrics"
	"leaderbot/internal/models"
	"leaderbot/pkg/utils"
)

var kindChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Messages", Value: string(models.KindMessage)},
	{Name: "Voice", Value: string(models.KindVoice)},
}

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "leaderboard",
		Description: "Show the current leaderboard",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "kind",
				Description: "Which leaderboard to show",
				Required:    true,
				Choices:     kindChoices,
			},
		},
	},
	{
		Name:        "leaderboard-setup",
		Description: "Set up a live leaderboard in a channel (operators only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "kind",
				Description: "Which leaderboard to publish",
				Required:    true,
				Choices:     kindChoices,
			},
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "Channel to publish the leaderboard in",
				Required:    true,
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildText,
				},
			},
		},
	},
	{
		Name:        "bot-name",
		Description: "Rename the bot (operators only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "New bot username",
				Required:    true,
			},
		},
	},
	{
		Name:        "bot-avatar",
		Description: "Change the bot avatar (operators only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "url",
				Description: "Image URL for the new avatar",
				Required:    true,
			},
		},
	},
	{
		Name:        "bot-presence",
		Description: "Change the bot presence text (operators only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "Game text to display",
				Required:    true,
			},
		},
	},
	{
		Name:        "bot-status",
		Description: "Change the bot online status (operators only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "status",
				Description: "Online status",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Online", Value: "online"},
					{Name: "Idle", Value: "idle"},
					{Name: "Do Not Disturb", Value: "dnd"},
					{Name: "Invisible", Value: "invisible"},
				},
			},
		},
	},
}

func (b *Bot) registerCommands(s *discordgo.Session) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", commands)
	if err != nil {
		return fmt.Errorf("failed to overwrite application commands: %w", err)
	}
	log.Info("registered application commands", "count", len(commands))
	return nil
}

// interactionCreate routes slash commands and button presses. Handler errors
// are caught here and answered with a generic ephemeral failure if nothing
// was sent yet.
func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var err error

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		metrics.CommandsTotal.WithLabelValues(data.Name).Inc()
		switch data.Name {
		case "leaderboard":
			err = b.handleLeaderboardQuery(s, i)
		case "leaderboard-setup":
			err = b.handleSetup(s, i)
		case "bot-name", "bot-avatar", "bot-presence", "bot-status":
			err = b.handleProfileCommand(s, i, data.Name)
		}

	case discordgo.InteractionMessageComponent:
		err = b.handlePageButton(s, i)

	default:
		return
	}

	if err != nil {
		log.Error("interaction failed", "type", i.Type, "err", err)
		b.respondEphemeral(s, i, "❌ Something went wrong handling that command.")
	}
}

// handleLeaderboardQuery answers /leaderboard with page 1 of the paginated
// view plus prev/next buttons.
func (b *Bot) handleLeaderboardQuery(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	kind := models.Kind(i.ApplicationCommandData().Options[0].StringValue())
	if !kind.Valid() {
		return fmt.Errorf("unknown leaderboard kind %q", kind)
	}

	embed, components, err := b.pageView(i.GuildID, kind, 1)
	if err != nil {
		return err
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

// handlePageButton drives pagination from a button press. The custom id
// encodes direction, kind and the page currently shown, so navigation does
// not re-invoke the original command.
func (b *Bot) handlePageButton(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) != 4 || parts[0] != "lb" {
		return nil
	}

	kind := models.Kind(parts[2])
	if !kind.Valid() {
		return nil
	}
	current, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil
	}

	page := current + 1
	if parts[1] == "prev" {
		page = current - 1
	}

	embed, components, err := b.pageView(i.GuildID, kind, page)
	if err != nil {
		return err
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

func (b *Bot) pageView(guildID string, kind models.Kind, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent, error) {
	entries, err := b.ranker.Snapshot(guildID, kind)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute ranking: %w", err)
	}

	embed, page, pageCount := b.renderer.Page(kind, entries, page)

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "◀",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("lb:prev:%s:%d", kind, page),
					Disabled: page <= 1,
				},
				discordgo.Button{
					Label:    "▶",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("lb:next:%s:%d", kind, page),
					Disabled: page >= pageCount,
				},
			},
		},
	}

	return embed, components, nil
}

// handleSetup starts a fresh test-length cycle in the chosen channel,
// publishes the standalone countdown announcement and the initial view.
func (b *Bot) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !b.cfg.IsOperator(interactionUserID(i)) {
		b.respondEphemeral(s, i, "⛔ You are not allowed to use this command.")
		return nil
	}

	data := i.ApplicationCommandData()
	kind := models.Kind(data.Options[0].StringValue())
	if !kind.Valid() {
		return fmt.Errorf("unknown leaderboard kind %q", kind)
	}
	channel := data.Options[1].ChannelValue(s)
	if channel == nil {
		return fmt.Errorf("setup channel not resolvable")
	}

	now := b.clock.Now()
	cfg := &models.LeaderboardConfig{
		GuildID:   i.GuildID,
		Kind:      kind,
		ChannelID: channel.ID,
		StartAt:   now,
		EndAt:     now.Add(b.cfg.SetupPeriod),
		Active:    true,
	}

	// Countdown announcement first so its id lands in the same upsert.
	timerMsg, err := s.ChannelMessageSend(channel.ID, leaderboard.CountdownContent(kind, cfg.EndAt))
	if err != nil {
		log.Warn("failed to send countdown message", "guild", i.GuildID, "kind", kind, "err", err)
	} else {
		cfg.TimerMessageID = timerMsg.ID
	}

	if err := b.boards.Upsert(cfg); err != nil {
		return fmt.Errorf("failed to store leaderboard config: %w", err)
	}

	// Initial publish sends the live message and persists its id.
	b.updater.Refresh(i.GuildID, kind)

	b.respondEphemeral(s, i, fmt.Sprintf("✅ %s set up in %s, first cycle ends %s.",
		leaderboard.Title(kind), utils.FormatChannelMention(channel.ID),
		utils.FormatRelativeTimestamp(cfg.EndAt.Unix())))
	return nil
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error("failed to respond to interaction", "err", err)
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
