package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/pkg/cron"
	"github.com/latoulicious/Eniwa/pkg/database"
	"github.com/latoulicious/Eniwa/pkg/lavalink"
	"github.com/latoulicious/Eniwa/pkg/player"
)

var (
	// Shared service handles, wired once at startup before the gateway opens
	manager   *player.Manager
	pool      *lavalink.Pool
	store     *database.Store
	healthMgr *cron.HealthManager
)

// Setup wires the command layer to the running services. Call before the
// Discord session opens.
func Setup(m *player.Manager, p *lavalink.Pool, s *database.Store, h *cron.HealthManager) {
	manager = m
	pool = p
	store = s
	healthMgr = h
}

// sendEmbedMessage sends a simple titled embed to a channel
func sendEmbedMessage(s *discordgo.Session, channelID, title, description string, color int) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	s.ChannelMessageSendEmbed(channelID, embed)
}

// findVoiceChannel returns the voice channel the user is currently in
func findVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// allowedToControl checks the guild's DJ role restriction. With no DJ role
// configured everyone may control playback; otherwise the user needs the
// role or a server admin permission.
func allowedToControl(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	settings, err := store.Get(m.GuildID)
	if err != nil || settings.DJRoleID == "" {
		return true
	}

	if m.Member != nil {
		for _, role := range m.Member.Roles {
			if role == settings.DJRoleID {
				return true
			}
		}
	}

	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err == nil && perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return false
}

// denyControl posts the standard DJ-role refusal
func denyControl(s *discordgo.Session, channelID string) {
	sendEmbedMessage(s, channelID, "❌ Not Allowed", "You need the DJ role to control playback in this server.", 0xff0000)
}

// formatDuration renders a track length in m:ss or h:mm:ss
func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// trackLine renders a one-line track description for queue listings
func trackLine(t lavalink.Track) string {
	if t.Info.IsStream {
		return fmt.Sprintf("**%s** (live)", t.Info.Title)
	}
	return fmt.Sprintf("**%s** (%s)", t.Info.Title, formatDuration(t.Info.Length))
}
