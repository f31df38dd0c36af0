package utils

import "fmt"

// FormatUserMention formats a user ID as a Discord mention
func FormatUserMention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// FormatChannelMention formats a channel ID as a Discord channel mention
func FormatChannelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

// FormatRelativeTimestamp formats a unix timestamp as a Discord relative
// timestamp, rendered by clients as e.g. "in 4 minutes".
func FormatRelativeTimestamp(unix int64) string {
	return fmt.Sprintf("<t:%d:R>", unix)
}

// RankMark returns the marker for a 1-based rank: medals for the podium,
// "N." otherwise.
func RankMark(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

// TruncateString truncates a string to max length and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
