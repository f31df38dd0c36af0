package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"leaderbot/internal/models"
	"leaderbot/pkg/utils"
)

// compactSize is the number of entries shown in the live compact view.
const compactSize = 10

// palette is the rotating color tag applied to entries by rank index.
var palette = []string{"🔵", "🟣", "🟢", "🟡", "🟠"}

// maxDescription keeps embed descriptions under Discord's 4096-char limit.
const maxDescription = 4000

const embedColor = 0x5865F2

// Renderer turns ranking snapshots into Discord embed payloads.
type Renderer struct {
	pageSize int
}

// NewRenderer creates a new renderer
func NewRenderer(pageSize int) *Renderer {
	return &Renderer{pageSize: pageSize}
}

// Title returns the embed title for a kind.
func Title(kind models.Kind) string {
	switch kind {
	case models.KindVoice:
		return "🔊 Voice Leaderboard"
	default:
		return "💬 Message Leaderboard"
	}
}

// FormatValue formats a metric value for display: grouped integers for
// message counts, a d/h/m/s breakdown for voice seconds.
func FormatValue(kind models.Kind, value int64) string {
	if kind == models.KindVoice {
		return utils.FormatDuration(value)
	}
	return utils.FormatCount(value)
}

// Compact renders the live top-10 view. The footer shows the time remaining
// in the cycle, and the last cycle's winners block is appended when present.
func (r *Renderer) Compact(kind models.Kind, entries []models.RankingEntry, cfg *models.LeaderboardConfig, now time.Time) *discordgo.MessageEmbed {
	if len(entries) > compactSize {
		entries = entries[:compactSize]
	}

	description := renderEntries(kind, entries, 0)
	if cfg != nil && cfg.WinnersText != "" {
		description += "\n\n🏆 **Last cycle's winners**\n" + cfg.WinnersText
	}

	footer := "Cycle not started"
	if cfg != nil && !cfg.EndAt.IsZero() {
		footer = "Resets in " + utils.FormatTimeLeft(cfg.EndAt.Sub(now))
	}

	return &discordgo.MessageEmbed{
		Title:       Title(kind),
		Description: utils.TruncateString(description, maxDescription),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}
}

// Page renders one page of the paginated view. The requested page is clamped
// into [1, pageCount]; the clamped page and the page count are returned so
// navigation buttons can encode them.
func (r *Renderer) Page(kind models.Kind, entries []models.RankingEntry, page int) (*discordgo.MessageEmbed, int, int) {
	pageCount := (len(entries) + r.pageSize - 1) / r.pageSize
	if pageCount < 1 {
		pageCount = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}

	start := (page - 1) * r.pageSize
	end := start + r.pageSize
	if start > len(entries) {
		start = len(entries)
	}
	if end > len(entries) {
		end = len(entries)
	}

	embed := &discordgo.MessageEmbed{
		Title:       Title(kind),
		Description: utils.TruncateString(renderEntries(kind, entries[start:end], start), maxDescription),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d/%d", page, pageCount)},
	}
	return embed, page, pageCount
}

// WinnersText renders the finalize snapshot: a rank-marked list of the top
// entries, at most three.
func (r *Renderer) WinnersText(kind models.Kind, entries []models.RankingEntry) string {
	if len(entries) > 3 {
		entries = entries[:3]
	}

	var lines []string
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s — %s",
			utils.RankMark(i+1), utils.FormatUserMention(e.UserID), FormatValue(kind, e.Value)))
	}
	return strings.Join(lines, "\n")
}

// renderEntries renders ranking lines starting at the given zero-based offset.
func renderEntries(kind models.Kind, entries []models.RankingEntry, offset int) string {
	if len(entries) == 0 {
		return "No activity recorded yet."
	}

	var lines []string
	for i, e := range entries {
		rank := offset + i + 1
		tag := palette[(rank-1)%len(palette)]
		lines = append(lines, fmt.Sprintf("%s %s %s — %s",
			utils.RankMark(rank), tag, utils.FormatUserMention(e.UserID), FormatValue(kind, e.Value)))
	}
	return strings.Join(lines, "\n")
}
