package discord

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// maxAvatarBytes caps avatar downloads; Discord rejects larger images anyway.
const maxAvatarBytes = 8 << 20

// handleProfileCommand handles the cosmetic operator commands. They are pure
// pass-throughs to Discord's account management API and carry no state.
func (b *Bot) handleProfileCommand(s *discordgo.Session, i *discordgo.InteractionCreate, name string) error {
	if !b.cfg.IsOperator(interactionUserID(i)) {
		b.respondEphemeral(s, i, "⛔ You are not allowed to use this command.")
		return nil
	}

	value := i.ApplicationCommandData().Options[0].StringValue()

	switch name {
	case "bot-name":
		if _, err := s.UserUpdate(value, "", ""); err != nil {
			return fmt.Errorf("failed to rename bot: %w", err)
		}
		b.respondEphemeral(s, i, fmt.Sprintf("✅ Bot renamed to **%s**.", value))

	case "bot-avatar":
		avatar, err := fetchAvatarDataURI(value)
		if err != nil {
			return fmt.Errorf("failed to fetch avatar: %w", err)
		}
		if _, err := s.UserUpdate("", avatar, ""); err != nil {
			return fmt.Errorf("failed to update avatar: %w", err)
		}
		b.respondEphemeral(s, i, "✅ Avatar updated.")

	case "bot-presence":
		if err := s.UpdateGameStatus(0, value); err != nil {
			return fmt.Errorf("failed to update presence: %w", err)
		}
		b.respondEphemeral(s, i, fmt.Sprintf("✅ Presence set to **%s**.", value))

	case "bot-status":
		err := s.UpdateStatusComplex(discordgo.UpdateStatusData{Status: value})
		if err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		b.respondEphemeral(s, i, fmt.Sprintf("✅ Status set to **%s**.", value))
	}

	return nil
}

// fetchAvatarDataURI downloads an image and encodes it as the data URI the
// Discord user-update endpoint expects.
func fetchAvatarDataURI(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(body)), nil
}
