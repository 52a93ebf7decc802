package commands

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ShowHelpCommand displays all available commands with their descriptions using embeds
func ShowHelpCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	embed := &discordgo.MessageEmbed{
		Title:       "Eniwa",
		Description: "Here are all the available commands for the bot:",
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Eniwa | Created by latoulicious | 2025",
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Music Commands",
				Value: strings.Join([]string{
					"• `!play <url>` / `!p <keywords>` - Play a track by URL or search",
					"• `!nowplaying` / `!np` - Show the currently playing track",
					"• `!queue` / `!q` - List the current queue",
					"• `!remove <index>` - Remove a track from the queue",
					"• `!clear` - Clear the entire queue",
					"• `!shuffle` - Shuffle the queue",
					"• `!history` - Show recently played tracks",
					"• `!loop [off|track|queue]` - Set the loop mode",
					"• `!pause` / `!resume` - Pause or resume playback",
					"• `!skip` - Skip the currently playing track",
					"• `!stop` - Stop playback and clear the queue",
					"• `!seek <mm:ss|forward|back>` - Seek within the track",
					"• `!volume [0-100|up|down]` - Show or set the volume",
					"• `!filter [name]` - List or apply audio filters",
					"• `!autoplay [on|off]` - Keep playing related tracks when the queue ends",
					"• `!leave` - Disconnect from the voice channel",
				}, "\n"),
				Inline: false,
			},
			{
				Name: "Library",
				Value: strings.Join([]string{
					"• `!like` / `!unlike` - Save or drop the current track",
					"• `!liked [list|play|clear]` - Manage your liked tracks",
					"• `!playlist create <name>` - Create a playlist",
					"• `!playlist add <name>` - Add the current track to a playlist",
					"• `!playlist view <name>` / `!playlist list` - Inspect playlists",
					"• `!playlist play <name>` - Queue a whole playlist",
					"• `!playlist save <name>` - Save the current queue as a playlist",
					"• `!playlist remove <name> <position>` / `!playlist delete <name>`",
				}, "\n"),
				Inline: false,
			},
			{
				Name: "Server Settings",
				Value: strings.Join([]string{
					"• `!247 [on|off]` - Keep the bot in voice around the clock",
					"• `!dj [@role|clear]` - Restrict playback control to a role (admin)",
					"• `!defaultvolume [0-100]` - Starting volume for new sessions (admin)",
					"• `!restrict <channel|list|clear|command>` - Limit commands to channels (admin)",
					"• `!unrestrict <channel|command>` - Lift a restriction (admin)",
				}, "\n"),
				Inline: false,
			},
			{
				Name: "Nodes",
				Value: strings.Join([]string{
					"• `!node` - Show audio node status",
					"• `!node switch <identifier>` - Move this server to another node (admin)",
				}, "\n"),
				Inline: false,
			},
			{
				Name:   "Information",
				Value:  "• `!help` / `!h` - Show this help message",
				Inline: false,
			},
		},
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}
