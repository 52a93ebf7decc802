package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// StayCommand toggles 24/7 mode, which keeps the bot in the voice channel
// even when idle
func StayCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	settings, err := store.Get(m.GuildID)
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load server settings.", 0xff0000)
		return
	}

	target := !settings.Stay247
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "enable":
			target = true
		case "off", "disable":
			target = false
		default:
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!247 [on|off]`", 0xff0000)
			return
		}
	}

	if err := store.SetStay247(m.GuildID, target); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not save the setting.", 0xff0000)
		return
	}
	if p, ok := manager.Player(m.GuildID); ok {
		p.SetStay247(target)
	}

	if target {
		sendEmbedMessage(s, m.ChannelID, "📌 24/7 On", "The bot will stay in the voice channel.", 0x00ff00)
	} else {
		sendEmbedMessage(s, m.ChannelID, "📌 24/7 Off", "The bot will leave when idle.", 0x00ff00)
	}
}

// AutoplayCommand toggles autoplay, which keeps playing related tracks
// when the queue runs dry
func AutoplayCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	p, ok := manager.Player(m.GuildID)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "🔇 Not Connected", "No active music session.", 0x808080)
		return
	}

	target := !p.Autoplay()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "enable":
			target = true
		case "off", "disable":
			target = false
		default:
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!autoplay [on|off]`", 0xff0000)
			return
		}
	}

	p.SetAutoplay(target)
	if target {
		sendEmbedMessage(s, m.ChannelID, "♾️ Autoplay On", "Related tracks will keep playing when the queue is empty.", 0x00ff00)
	} else {
		sendEmbedMessage(s, m.ChannelID, "♾️ Autoplay Off", "Playback stops when the queue is empty.", 0x00ff00)
	}
}

// DJCommand sets or clears the DJ role restriction
func DJCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil || perms&discordgo.PermissionAdministrator == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Not Allowed", "Changing the DJ role requires the Administrator permission.", 0xff0000)
		return
	}

	if len(args) == 0 {
		settings, err := store.Get(m.GuildID)
		if err != nil || settings.DJRoleID == "" {
			sendEmbedMessage(s, m.ChannelID, "🎧 DJ Role", "No DJ role is set. Everyone can control playback.", 0x7289da)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🎧 DJ Role",
			fmt.Sprintf("Playback control is restricted to <@&%s>.", settings.DJRoleID), 0x7289da)
		return
	}

	if strings.ToLower(args[0]) == "clear" || strings.ToLower(args[0]) == "off" {
		if err := store.SetDJRole(m.GuildID, ""); err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not save the setting.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🎧 DJ Role Cleared", "Everyone can control playback again.", 0x00ff00)
		return
	}

	roleID := strings.Trim(args[0], "<@&>")
	if _, err := s.State.Role(m.GuildID, roleID); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "That does not look like a role in this server.", 0xff0000)
		return
	}

	if err := store.SetDJRole(m.GuildID, roleID); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not save the setting.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "🎧 DJ Role Set",
		fmt.Sprintf("Playback control is now restricted to <@&%s>.", roleID), 0x00ff00)
}

// DefaultVolumeCommand stores the starting volume for new sessions
func DefaultVolumeCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil || perms&discordgo.PermissionAdministrator == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Not Allowed", "Changing the default volume requires the Administrator permission.", 0xff0000)
		return
	}
	if len(args) == 0 {
		settings, err := store.Get(m.GuildID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load server settings.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔊 Default Volume",
			fmt.Sprintf("New sessions start at **%d%%**.", settings.DefaultVolume), 0x7289da)
		return
	}

	var volume int
	if _, err := fmt.Sscanf(args[0], "%d", &volume); err != nil || volume < 0 || volume > 100 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!defaultvolume [0-100]`", 0xff0000)
		return
	}

	if err := store.SetDefaultVolume(m.GuildID, volume); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not save the setting.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "🔊 Default Volume",
		fmt.Sprintf("New sessions will start at **%d%%**.", volume), 0x00ff00)
}
