package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/pkg/player"
)

// PauseCommand pauses the current track
func PauseCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		if p.Current() == nil {
			sendEmbedMessage(s, m.ChannelID, "🔇 Nothing Playing", "There is nothing to pause.", 0x808080)
			return nil
		}
		if p.Paused() {
			sendEmbedMessage(s, m.ChannelID, "⏸️ Already Paused", "Playback is already paused.", 0x808080)
			return nil
		}
		if err := p.Pause(context.Background()); err != nil {
			return err
		}
		sendEmbedMessage(s, m.ChannelID, "⏸️ Paused", "Playback paused.", 0x00ff00)
		return nil
	})
	if err != nil {
		handlePlaybackError(s, m, err)
	}
}

// ResumeCommand resumes paused playback
func ResumeCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		if !p.Paused() {
			sendEmbedMessage(s, m.ChannelID, "▶️ Not Paused", "Playback is not paused.", 0x808080)
			return nil
		}
		if err := p.Resume(context.Background()); err != nil {
			return err
		}
		sendEmbedMessage(s, m.ChannelID, "▶️ Resumed", "Playback resumed.", 0x00ff00)
		return nil
	})
	if err != nil {
		handlePlaybackError(s, m, err)
	}
}

// SkipCommand skips to the next track in the queue
func SkipCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		if p.Current() == nil {
			sendEmbedMessage(s, m.ChannelID, "🔇 Nothing Playing", "There is nothing to skip.", 0x808080)
			return nil
		}
		next, err := p.Skip(context.Background())
		if err != nil {
			return err
		}
		if next == nil {
			sendEmbedMessage(s, m.ChannelID, "⏭️ Skipped", "Skipped. The queue is empty now.", 0x00ff00)
			return nil
		}
		sendEmbedMessage(s, m.ChannelID, "⏭️ Skipped",
			fmt.Sprintf("Now playing %s", trackLine(*next)), 0x00ff00)
		return nil
	})
	if err != nil {
		handlePlaybackError(s, m, err)
	}
}

// StopCommand stops playback and clears the queue, keeping the session
func StopCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		p.Queue().Clear()
		if err := p.Stop(context.Background()); err != nil {
			return err
		}
		sendEmbedMessage(s, m.ChannelID, "⏹️ Stopped", "Playback stopped and queue cleared.", 0x00ff00)
		return nil
	})
	if err != nil {
		handlePlaybackError(s, m, err)
	}
}

// LeaveCommand disconnects the bot from the voice channel entirely
func LeaveCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !allowedToControl(s, m) {
		denyControl(s, m.ChannelID)
		return
	}

	if _, ok := manager.Player(m.GuildID); !ok {
		sendEmbedMessage(s, m.ChannelID, "🔇 Not Connected", "The bot is not in a voice channel.", 0x808080)
		return
	}

	if err := manager.Leave(context.Background(), m.GuildID); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Failed to leave cleanly, state was reset anyway.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "👋 Disconnected", "Left the voice channel.", 0x00ff00)
}
