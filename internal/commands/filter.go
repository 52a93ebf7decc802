package commands

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/pkg/player"
)

// FilterCommand applies a named audio filter preset
func FilterCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		listFilters(s, m)
		return
	}

	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	name := strings.ToLower(args[0])
	if _, ok := player.LookupPreset(name); !ok {
		sendEmbedMessage(s, m.ChannelID, "❌ Unknown Filter",
			fmt.Sprintf("No filter named `%s`. Available: %s", name, strings.Join(player.PresetNames(), ", ")), 0xff0000)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		return p.ApplyPreset(context.Background(), name)
	})
	if err != nil {
		handlePlaybackError(s, m, err)
		return
	}

	if err := store.SetFilterPreset(m.GuildID, name); err != nil {
		log.Printf("[Commands] Preset not persisted | guild=%s err=%v", m.GuildID, err)
	}

	if name == "off" {
		sendEmbedMessage(s, m.ChannelID, "🎛️ Filters Off", "All filters disabled.", 0x00ff00)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "🎛️ Filter Applied",
		fmt.Sprintf("Applied the **%s** filter.", name), 0x00ff00)
}

func listFilters(s *discordgo.Session, m *discordgo.MessageCreate) {
	var lines []string
	for _, name := range player.PresetNames() {
		preset, _ := player.LookupPreset(name)
		lines = append(lines, fmt.Sprintf("• `%s` - %s", preset.Name, preset.Description))
	}

	active := "off"
	if p, ok := manager.Player(m.GuildID); ok {
		active = p.Preset()
	}

	sendEmbedMessage(s, m.ChannelID, "🎛️ Filters",
		fmt.Sprintf("Active: **%s**\n\n%s", active, strings.Join(lines, "\n")), 0x7289da)
}
