package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/pkg/player"
)

// QueueCommand shows or edits the pending queue
func QueueCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		showQueue(s, m)
		return
	}

	switch strings.ToLower(args[0]) {
	case "list":
		showQueue(s, m)
	case "clear":
		ClearCommand(s, m)
	default:
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!queue [list|clear]`", 0xff0000)
	}
}

func showQueue(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := manager.Player(m.GuildID)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "📭 Empty Queue", "No active music session.", 0x808080)
		return
	}

	items := p.Queue().Items()
	current := p.Current()
	if current == nil && len(items) == 0 {
		sendEmbedMessage(s, m.ChannelID, "📭 Empty Queue", "The queue is empty.", 0x808080)
		return
	}

	var lines []string
	if current != nil {
		lines = append(lines, fmt.Sprintf("▶️ %s", trackLine(*current)))
	}
	for i, track := range items {
		if i >= 10 {
			lines = append(lines, fmt.Sprintf("... and %d more", len(items)-i))
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, trackLine(track)))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎶 Queue",
		Description: strings.Join(lines, "\n"),
		Color:       0x7289da,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d queued | loop: %s", len(items), p.Queue().Mode()),
		},
	}
	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}

// ShuffleCommand randomizes the pending queue
func ShuffleCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	p, ok := manager.Player(m.GuildID)
	if !ok || p.Queue().Len() == 0 {
		sendEmbedMessage(s, m.ChannelID, "📭 Empty Queue", "There is nothing to shuffle.", 0x808080)
		return
	}

	p.Queue().Shuffle()
	sendEmbedMessage(s, m.ChannelID, "🔀 Shuffled",
		fmt.Sprintf("Shuffled **%d** tracks.", p.Queue().Len()), 0x00ff00)
}

// ClearCommand empties the pending queue without touching playback
func ClearCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	p, ok := manager.Player(m.GuildID)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "📭 Empty Queue", "No active music session.", 0x808080)
		return
	}
	if p.Queue().Len() == 0 {
		sendEmbedMessage(s, m.ChannelID, "📭 Queue Already Empty", "The queue is already empty.", 0x808080)
		return
	}

	p.Queue().Clear()
	sendEmbedMessage(s, m.ChannelID, "🗑️ Cleared", "Queue cleared.", 0x00ff00)
}

// LoopCommand cycles or sets the loop mode
func LoopCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	p, ok := manager.Player(m.GuildID)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "🔇 Not Connected", "No active music session.", 0x808080)
		return
	}

	var mode player.QueueMode
	if len(args) == 0 {
		// cycle off -> track -> queue -> off
		switch p.Queue().Mode() {
		case player.ModeOff:
			mode = player.ModeLoopTrack
		case player.ModeLoopTrack:
			mode = player.ModeLoopAll
		default:
			mode = player.ModeOff
		}
	} else {
		switch strings.ToLower(args[0]) {
		case "off", "none":
			mode = player.ModeOff
		case "track", "one", "single":
			mode = player.ModeLoopTrack
		case "queue", "all":
			mode = player.ModeLoopAll
		default:
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!loop [off|track|queue]`", 0xff0000)
			return
		}
	}

	p.Queue().SetMode(mode)
	sendEmbedMessage(s, m.ChannelID, "🔁 Loop",
		fmt.Sprintf("Loop mode set to **%s**.", mode), 0x00ff00)
}

// HistoryCommand lists recently played tracks
func HistoryCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := manager.Player(m.GuildID)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "📭 No History", "No active music session.", 0x808080)
		return
	}

	history := p.Queue().History()
	if len(history) == 0 {
		sendEmbedMessage(s, m.ChannelID, "📭 No History", "Nothing has been played yet.", 0x808080)
		return
	}

	// newest first, capped at ten
	var lines []string
	for i := len(history) - 1; i >= 0 && len(lines) < 10; i-- {
		lines = append(lines, fmt.Sprintf("%d. %s", len(lines)+1, trackLine(history[i])))
	}
	sendEmbedMessage(s, m.ChannelID, "🕘 Recently Played", strings.Join(lines, "\n"), 0x7289da)
}

// RemoveCommand drops one pending track by its queue position
func RemoveCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}
	if len(args) == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!remove <position>`", 0xff0000)
		return
	}

	index, err := strconv.Atoi(args[0])
	if err != nil || index < 1 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Position must be a number from the queue listing.", 0xff0000)
		return
	}

	p, ok := manager.Player(m.GuildID)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "📭 Empty Queue", "No active music session.", 0x808080)
		return
	}

	removed, ok := p.Queue().Remove(index - 1)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "No track at that position.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "🗑️ Removed",
		fmt.Sprintf("Removed %s from the queue.", trackLine(removed)), 0x00ff00)
}
