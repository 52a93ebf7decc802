package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/pkg/player"
)

// volumeStep is the increment for `!volume up` / `!volume down`
const volumeStep = 5

// VolumeCommand shows or sets the session volume (0 to 100)
func VolumeCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		p, ok := manager.Player(m.GuildID)
		if !ok {
			sendEmbedMessage(s, m.ChannelID, "🔇 Not Connected", "No active music session.", 0x808080)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔊 Volume",
			fmt.Sprintf("Current volume: **%d%%**", p.Volume()), 0x7289da)
		return
	}

	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		target := p.Volume()
		switch strings.ToLower(args[0]) {
		case "up", "+":
			target += volumeStep
		case "down", "-":
			target -= volumeStep
		default:
			parsed, err := strconv.Atoi(args[0])
			if err != nil {
				sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!volume [0-100|up|down]`", 0xff0000)
				return nil
			}
			target = parsed
		}

		if err := p.SetVolume(context.Background(), target); err != nil {
			return err
		}
		sendEmbedMessage(s, m.ChannelID, "🔊 Volume",
			fmt.Sprintf("Volume set to **%d%%**", p.Volume()), 0x00ff00)
		return nil
	})
	if err != nil {
		handlePlaybackError(s, m, err)
	}
}

// SeekCommand moves playback within the current track. Accepts an absolute
// position (mm:ss or seconds) or forward/back jumps of ten seconds.
func SeekCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}
	if len(args) == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!seek <mm:ss|seconds|forward|back>`", 0xff0000)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		current := p.Current()
		if current == nil {
			sendEmbedMessage(s, m.ChannelID, "🔇 Nothing Playing", "There is nothing to seek in.", 0x808080)
			return nil
		}
		if !current.Info.IsSeekable {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "This track cannot be seeked.", 0xff0000)
			return nil
		}

		var target int64
		switch strings.ToLower(args[0]) {
		case "forward", "fwd":
			target = p.Position() + 10_000
		case "back", "rewind":
			target = p.Position() - 10_000
		default:
			parsed, ok := parseTimestamp(args[0])
			if !ok {
				sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Could not parse that position. Use `mm:ss` or seconds.", 0xff0000)
				return nil
			}
			target = parsed
		}

		if target > current.Info.Length {
			target = current.Info.Length
		}
		if err := p.Seek(context.Background(), target); err != nil {
			return err
		}
		sendEmbedMessage(s, m.ChannelID, "⏩ Seeked",
			fmt.Sprintf("Moved to **%s**", formatDuration(p.Position())), 0x00ff00)
		return nil
	})
	if err != nil {
		handlePlaybackError(s, m, err)
	}
}

// parseTimestamp reads "mm:ss", "h:mm:ss", or plain seconds into
// milliseconds
func parseTimestamp(input string) (int64, bool) {
	parts := strings.Split(input, ":")
	if len(parts) > 3 {
		return 0, false
	}

	var total int64
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + int64(n)
	}
	return total * 1000, true
}
