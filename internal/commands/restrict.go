package commands

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ChannelAllowed decides whether a command may run in a channel, per the
// guild's stored restrictions. The restrict and help commands themselves
// always pass so an admin can inspect and undo a bad configuration. On a
// storage error the command is allowed; restrictions fail open.
func ChannelAllowed(guildID, channelID, command string) bool {
	switch command {
	case "restrict", "unrestrict", "help":
		return true
	}

	ok, err := store.CommandAllowed(guildID, channelID, command)
	if err != nil {
		log.Printf("[Commands] Restriction check failed | guild=%s command=%s err=%v", guildID, command, err)
		return true
	}
	return ok
}

func isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	return err == nil && perms&discordgo.PermissionAdministrator != 0
}

// RestrictCommand manages where commands may be used: a channel whitelist
// for all commands plus per-command channel pins. Admin only.
func RestrictCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !isAdmin(s, m) {
		sendEmbedMessage(s, m.ChannelID, "❌ Not Allowed", "Managing restrictions requires the Administrator permission.", 0xff0000)
		return
	}
	if len(args) == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			"Usage: `!restrict <channel|list|clear|command> [args]`", 0xff0000)
		return
	}

	switch strings.ToLower(args[0]) {
	case "channel":
		channelID := m.ChannelID
		if len(args) > 1 {
			channelID = strings.Trim(args[1], "<#>")
		}
		if err := store.AllowChannel(m.GuildID, channelID); err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not save the restriction.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔒 Channel Allowed",
			fmt.Sprintf("Commands now work in <#%s>. With a whitelist set, other channels are blocked.", channelID), 0x00ff00)

	case "list":
		channels, err := store.AllowedChannels(m.GuildID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load the restrictions.", 0xff0000)
			return
		}
		restrictions, err := store.CommandRestrictions(m.GuildID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load the restrictions.", 0xff0000)
			return
		}

		var b strings.Builder
		if len(channels) == 0 {
			b.WriteString("**Allowed channels:** all (no whitelist set)\n")
		} else {
			b.WriteString("**Allowed channels:** ")
			for i, id := range channels {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "<#%s>", id)
			}
			b.WriteString("\n")
		}
		if len(restrictions) > 0 {
			b.WriteString("**Command pins:**\n")
			for _, r := range restrictions {
				fmt.Fprintf(&b, "`%s` → <#%s>\n", r.Command, r.ChannelID)
			}
		}
		sendEmbedMessage(s, m.ChannelID, "🔒 Restrictions", b.String(), 0x7289da)

	case "clear":
		if err := store.ClearAllowedChannels(m.GuildID); err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not clear the restrictions.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔓 Whitelist Cleared", "Commands work in every channel again.", 0x00ff00)

	case "command":
		if len(args) < 2 {
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!restrict command <command> [#channel]`", 0xff0000)
			return
		}
		command := strings.ToLower(strings.TrimPrefix(args[1], prefixHint))
		channelID := m.ChannelID
		if len(args) > 2 {
			channelID = strings.Trim(args[2], "<#>")
		}
		if err := store.RestrictCommand(m.GuildID, command, channelID); err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not save the restriction.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔒 Command Pinned",
			fmt.Sprintf("`%s` now only works in <#%s>.", command, channelID), 0x00ff00)

	default:
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			"Usage: `!restrict <channel|list|clear|command> [args]`", 0xff0000)
	}
}

// UnrestrictCommand lifts channel or command restrictions. Admin only.
func UnrestrictCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !isAdmin(s, m) {
		sendEmbedMessage(s, m.ChannelID, "❌ Not Allowed", "Managing restrictions requires the Administrator permission.", 0xff0000)
		return
	}
	if len(args) == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			"Usage: `!unrestrict <channel [#channel]|command <command>>`", 0xff0000)
		return
	}

	switch strings.ToLower(args[0]) {
	case "channel":
		channelID := m.ChannelID
		if len(args) > 1 {
			channelID = strings.Trim(args[1], "<#>")
		}
		removed, err := store.DisallowChannel(m.GuildID, channelID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not update the restrictions.", 0xff0000)
			return
		}
		if !removed {
			sendEmbedMessage(s, m.ChannelID, "🔓 Not Listed", fmt.Sprintf("<#%s> was not on the whitelist.", channelID), 0x808080)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔓 Channel Removed",
			fmt.Sprintf("<#%s> was removed from the whitelist.", channelID), 0x00ff00)

	case "command":
		if len(args) < 2 {
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!unrestrict command <command>`", 0xff0000)
			return
		}
		command := strings.ToLower(strings.TrimPrefix(args[1], prefixHint))
		removed, err := store.UnrestrictCommand(m.GuildID, command)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not update the restrictions.", 0xff0000)
			return
		}
		if !removed {
			sendEmbedMessage(s, m.ChannelID, "🔓 Not Pinned", fmt.Sprintf("`%s` has no channel pin.", command), 0x808080)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔓 Command Unpinned",
			fmt.Sprintf("`%s` works everywhere the whitelist allows again.", command), 0x00ff00)

	default:
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			"Usage: `!unrestrict <channel [#channel]|command <command>>`", 0xff0000)
	}
}

// prefixHint strips a leading command prefix when users type the prefixed
// form, e.g. `!restrict command !play`.
const prefixHint = "!"
