package commands

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
	"github.com/latoulicious/Eniwa/pkg/player"
)

// PlayCommand resolves a URL or search query and queues the result,
// starting playback when the session is idle
func PlayCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Please provide a URL or search query.", 0xff0000)
		return
	}

	voiceChannelID := findVoiceChannel(s, m.GuildID, m.Author.ID)
	if voiceChannelID == "" {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Join a voice channel first.", 0xff0000)
		return
	}

	p, err := manager.GetOrCreatePlayer(context.Background(), m.GuildID, voiceChannelID, m.ChannelID)
	if err != nil {
		log.Printf("[Commands] Session create failed | guild=%s err=%v", m.GuildID, err)
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not connect to a music node. Try again shortly.", 0xff0000)
		return
	}

	identifier := args[0]
	if !isURL(identifier) {
		identifier = "ytsearch:" + strings.Join(args, " ")
	}

	tracks, err := p.Node().LoadTracks(context.Background(), identifier)
	if err != nil {
		log.Printf("[Commands] Track load failed | guild=%s err=%v", m.GuildID, err)
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Failed to load that track. Check the URL or try different keywords.", 0xff0000)
		return
	}
	if len(tracks) == 0 {
		sendEmbedMessage(s, m.ChannelID, "🔍 No Results", "Nothing found for your query.", 0x808080)
		return
	}

	// A search yields many candidates but queues only the best match; a
	// playlist URL queues everything.
	queued := tracks
	if strings.HasPrefix(identifier, "ytsearch:") {
		queued = tracks[:1]
	}

	err = manager.WithGuild(m.GuildID, func(p *player.Player) error {
		p.Queue().Add(queued...)
		if p.Current() == nil {
			next, ok := p.Queue().Pop()
			if !ok {
				return nil
			}
			return p.Play(context.Background(), next)
		}
		return nil
	})
	if err != nil {
		handlePlaybackError(s, m, err)
		return
	}

	if len(queued) == 1 {
		sendEmbedMessage(s, m.ChannelID, "🎵 Song Added",
			fmt.Sprintf("✅ Added %s to the queue", trackLine(queued[0])), 0x00ff00)
	} else {
		sendEmbedMessage(s, m.ChannelID, "🎵 Playlist Added",
			fmt.Sprintf("✅ Added **%d** tracks to the queue", len(queued)), 0x00ff00)
	}
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// handlePlaybackError reports a failed node operation. On a timeout the
// session state is unknown, so the session is rebuilt before replying.
func handlePlaybackError(s *discordgo.Session, m *discordgo.MessageCreate, err error) {
	if errors.Is(err, lavalink.ErrRequestTimeout) || errors.Is(err, lavalink.ErrRequestRejected) {
		log.Printf("[Commands] Node call failed, rebuilding session | guild=%s err=%v", m.GuildID, err)
		if rebuildErr := manager.RebuildPlayer(context.Background(), m.GuildID); rebuildErr != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Lost the music session. Use play to start over.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "🔄 Recovered", "The music session hiccuped and was rebuilt. Try that again.", 0xffa500)
		return
	}
	log.Printf("[Commands] Playback operation failed | guild=%s err=%v", m.GuildID, err)
	sendEmbedMessage(s, m.ChannelID, "❌ Error", "That didn't work. Try again.", 0xff0000)
}
