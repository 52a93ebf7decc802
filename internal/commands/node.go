package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// NodeCommand inspects and controls the audio node fleet
func NodeCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		listNodes(s, m)
		return
	}

	switch strings.ToLower(args[0]) {
	case "list", "status":
		listNodes(s, m)
	case "switch":
		if len(args) < 2 {
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!node switch <identifier>`", 0xff0000)
			return
		}
		switchNode(s, m, args[1])
	default:
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!node [list|switch <identifier>]`", 0xff0000)
	}
}

func listNodes(s *discordgo.Session, m *discordgo.MessageCreate) {
	var lines []string
	for _, node := range pool.Nodes() {
		marker := "🔴"
		if node.Connected() {
			marker = "🟢"
		}
		line := fmt.Sprintf("%s `%s` - %s, %d players", marker, node.Identifier(), node.Status(), node.Players())
		if p, ok := manager.Player(m.GuildID); ok && p.Node().Identifier() == node.Identifier() {
			line += " ← this server"
		}
		lines = append(lines, line)
	}

	fleet := "running on fallback nodes"
	if manager.UsingPrimary() {
		fleet = "running on the primary node"
	}

	nextCheck := "disabled"
	if healthMgr != nil && !healthMgr.GetNextRun().IsZero() {
		nextCheck = healthMgr.GetNextRun().Format("15:04:05")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🖥️ Audio Nodes",
		Description: strings.Join(lines, "\n"),
		Color:       0x7289da,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Fleet %s | next health check %s", fleet, nextCheck),
		},
	}
	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}

func switchNode(s *discordgo.Session, m *discordgo.MessageCreate, target string) {
	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil || perms&discordgo.PermissionAdministrator == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Not Allowed", "Switching nodes requires the Administrator permission.", 0xff0000)
		return
	}

	if err := manager.SwitchNode(context.Background(), m.GuildID, target); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Switch Failed", err.Error(), 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "🔄 Node Switched",
		fmt.Sprintf("This server's session now runs on `%s`.", target), 0x00ff00)
}
