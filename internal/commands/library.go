package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"github.com/latoulicious/Eniwa/pkg/database"
	"github.com/latoulicious/Eniwa/pkg/lavalink"
	"github.com/latoulicious/Eniwa/pkg/player"
)

// LikeCommand saves the currently playing track to the caller's liked list
func LikeCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := manager.Player(m.GuildID)
	if !ok || p.Current() == nil {
		sendEmbedMessage(s, m.ChannelID, "🔇 Nothing Playing", "Play something first, then like it.", 0x808080)
		return
	}

	track := *p.Current()
	if err := store.LikeTrack(m.GuildID, m.Author.ID, track); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not save that track.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "💖 Liked",
		fmt.Sprintf("Added %s to your liked tracks.", trackLine(track)), 0x00ff00)
}

// UnlikeCommand removes the currently playing track from the liked list
func UnlikeCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := manager.Player(m.GuildID)
	if !ok || p.Current() == nil {
		sendEmbedMessage(s, m.ChannelID, "🔇 Nothing Playing", "Play the track you want to unlike.", 0x808080)
		return
	}

	track := *p.Current()
	removed, err := store.UnlikeTrack(m.GuildID, m.Author.ID, track.Info.Identifier)
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not update your liked tracks.", 0xff0000)
		return
	}
	if !removed {
		sendEmbedMessage(s, m.ChannelID, "💔 Not Liked", "That track is not in your liked list.", 0x808080)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "💔 Unliked",
		fmt.Sprintf("Removed %s from your liked tracks.", trackLine(track)), 0x00ff00)
}

// LikedCommand lists, plays, or clears the caller's liked tracks
func LikedCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	action := "list"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	switch action {
	case "list":
		liked, err := store.LikedTracks(m.GuildID, m.Author.ID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load your liked tracks.", 0xff0000)
			return
		}
		if len(liked) == 0 {
			sendEmbedMessage(s, m.ChannelID, "💖 Liked Tracks", "You have no liked tracks yet. Use `!like` while a song plays.", 0x7289da)
			return
		}

		var b strings.Builder
		shown := len(liked)
		if shown > 10 {
			shown = 10
		}
		for i := 0; i < shown; i++ {
			fmt.Fprintf(&b, "`%d.` %s\n", i+1, trackLine(liked[i].Track))
		}
		if len(liked) > shown {
			fmt.Fprintf(&b, "…and **%d** more", len(liked)-shown)
		}
		sendEmbedMessage(s, m.ChannelID, fmt.Sprintf("💖 Liked Tracks (%d)", len(liked)), b.String(), 0x7289da)

	case "play":
		liked, err := store.LikedTracks(m.GuildID, m.Author.ID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load your liked tracks.", 0xff0000)
			return
		}
		if len(liked) == 0 {
			sendEmbedMessage(s, m.ChannelID, "💖 Liked Tracks", "You have no liked tracks to play.", 0x808080)
			return
		}
		tracks := make([]lavalink.Track, 0, len(liked))
		for _, entry := range liked {
			tracks = append(tracks, entry.Track)
		}
		queueStoredTracks(s, m, tracks, "liked tracks")

	case "clear":
		cleared, err := store.ClearLiked(m.GuildID, m.Author.ID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not clear your liked tracks.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "💖 Liked Tracks Cleared",
			fmt.Sprintf("Removed **%d** tracks.", cleared), 0x00ff00)

	default:
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!liked [list|play|clear]`", 0xff0000)
	}
}

// PlaylistCommand manages the caller's named playlists
func PlaylistCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			"Usage: `!playlist <create|delete|list|view|add|remove|play|save> [name] [args]`", 0xff0000)
		return
	}
	action := strings.ToLower(args[0])
	args = args[1:]

	if action == "list" {
		lists, err := store.Playlists(m.GuildID, m.Author.ID)
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load your playlists.", 0xff0000)
			return
		}
		if len(lists) == 0 {
			sendEmbedMessage(s, m.ChannelID, "📂 Playlists", "You have no playlists yet. Use `!playlist create <name>`.", 0x7289da)
			return
		}
		var b strings.Builder
		for _, pl := range lists {
			fmt.Fprintf(&b, "**%s** — %d tracks\n", pl.Name, pl.ItemCount)
		}
		sendEmbedMessage(s, m.ChannelID, fmt.Sprintf("📂 Playlists (%d)", len(lists)), b.String(), 0x7289da)
		return
	}

	if len(args) == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			fmt.Sprintf("Usage: `!playlist %s <name>`", action), 0xff0000)
		return
	}
	name := args[0]

	switch action {
	case "create":
		err := store.CreatePlaylist(m.GuildID, m.Author.ID, name)
		if errors.Is(err, database.ErrPlaylistExists) {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", fmt.Sprintf("You already have a playlist named **%s**.", name), 0xff0000)
			return
		}
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not create the playlist.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "📂 Playlist Created",
			fmt.Sprintf("Created **%s**. Add tracks with `!playlist add %s` while a song plays.", name, name), 0x00ff00)

	case "delete":
		err := store.DeletePlaylist(m.GuildID, m.Author.ID, name)
		if errors.Is(err, database.ErrPlaylistNotFound) {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", fmt.Sprintf("You have no playlist named **%s**.", name), 0xff0000)
			return
		}
		if err != nil {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not delete the playlist.", 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "📂 Playlist Deleted", fmt.Sprintf("Deleted **%s**.", name), 0x00ff00)

	case "view":
		tracks, err := loadPlaylistTracks(s, m, name)
		if err != nil {
			return
		}
		if len(tracks) == 0 {
			sendEmbedMessage(s, m.ChannelID, fmt.Sprintf("📂 %s", name), "This playlist is empty.", 0x7289da)
			return
		}
		var b strings.Builder
		shown := len(tracks)
		if shown > 10 {
			shown = 10
		}
		for i := 0; i < shown; i++ {
			fmt.Fprintf(&b, "`%d.` %s\n", i+1, trackLine(tracks[i]))
		}
		if len(tracks) > shown {
			fmt.Fprintf(&b, "…and **%d** more", len(tracks)-shown)
		}
		sendEmbedMessage(s, m.ChannelID, fmt.Sprintf("📂 %s (%d)", name, len(tracks)), b.String(), 0x7289da)

	case "add":
		p, ok := manager.Player(m.GuildID)
		if !ok || p.Current() == nil {
			sendEmbedMessage(s, m.ChannelID, "🔇 Nothing Playing", "Play the track you want to add first.", 0x808080)
			return
		}
		track := *p.Current()
		added, err := store.AddPlaylistTrack(m.GuildID, m.Author.ID, name, track)
		if err != nil {
			reportPlaylistError(s, m, name, err)
			return
		}
		if added == 0 {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", fmt.Sprintf("**%s** is full.", name), 0xff0000)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "📂 Track Added",
			fmt.Sprintf("Added %s to **%s**.", trackLine(track), name), 0x00ff00)

	case "remove":
		if len(args) < 2 {
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Usage: `!playlist remove <name> <position>`", 0xff0000)
			return
		}
		position, err := strconv.Atoi(args[1])
		if err != nil || position < 1 {
			sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "The position must be a number from the playlist view.", 0xff0000)
			return
		}
		if err := store.RemovePlaylistTrack(m.GuildID, m.Author.ID, name, position); err != nil {
			reportPlaylistError(s, m, name, err)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "📂 Track Removed",
			fmt.Sprintf("Removed track %d from **%s**.", position, name), 0x00ff00)

	case "play":
		tracks, err := loadPlaylistTracks(s, m, name)
		if err != nil {
			return
		}
		if len(tracks) == 0 {
			sendEmbedMessage(s, m.ChannelID, "📂 Empty Playlist", fmt.Sprintf("**%s** has no tracks.", name), 0x808080)
			return
		}
		queueStoredTracks(s, m, tracks, fmt.Sprintf("playlist **%s**", name))

	case "save":
		p, ok := manager.Player(m.GuildID)
		if !ok {
			sendEmbedMessage(s, m.ChannelID, "🔇 Not Connected", "No active music session to save.", 0x808080)
			return
		}
		tracks := p.Queue().Items()
		if current := p.Current(); current != nil {
			tracks = append([]lavalink.Track{*current}, tracks...)
		}
		if len(tracks) == 0 {
			sendEmbedMessage(s, m.ChannelID, "📭 Queue Empty", "Nothing to save.", 0x808080)
			return
		}
		if err := store.CreatePlaylist(m.GuildID, m.Author.ID, name); err != nil && !errors.Is(err, database.ErrPlaylistExists) {
			sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not create the playlist.", 0xff0000)
			return
		}
		added, err := store.AddPlaylistTrack(m.GuildID, m.Author.ID, name, tracks...)
		if err != nil {
			reportPlaylistError(s, m, name, err)
			return
		}
		sendEmbedMessage(s, m.ChannelID, "📂 Queue Saved",
			fmt.Sprintf("Saved **%d** tracks to **%s**.", added, name), 0x00ff00)

	default:
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			"Usage: `!playlist <create|delete|list|view|add|remove|play|save> [name] [args]`", 0xff0000)
	}
}

// loadPlaylistTracks fetches a playlist's tracks, reporting lookup failures
// to the channel itself. A nil error means the slice is usable.
func loadPlaylistTracks(s *discordgo.Session, m *discordgo.MessageCreate, name string) ([]lavalink.Track, error) {
	tracks, err := store.PlaylistTracks(m.GuildID, m.Author.ID, name)
	if errors.Is(err, database.ErrPlaylistNotFound) {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", fmt.Sprintf("You have no playlist named **%s**.", name), 0xff0000)
		return nil, err
	}
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load the playlist.", 0xff0000)
		return nil, err
	}
	return tracks, nil
}

func reportPlaylistError(s *discordgo.Session, m *discordgo.MessageCreate, name string, err error) {
	switch {
	case errors.Is(err, database.ErrPlaylistNotFound):
		sendEmbedMessage(s, m.ChannelID, "❌ Error", fmt.Sprintf("You have no playlist named **%s**.", name), 0xff0000)
	case errors.Is(err, database.ErrPlaylistFull):
		sendEmbedMessage(s, m.ChannelID, "❌ Error", fmt.Sprintf("**%s** is full.", name), 0xff0000)
	default:
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not update the playlist.", 0xff0000)
	}
}

// queueStoredTracks queues stored tracks into the caller's session, creating
// one if needed, and starts playback when idle
func queueStoredTracks(s *discordgo.Session, m *discordgo.MessageCreate, tracks []lavalink.Track, what string) {
	voiceChannelID := findVoiceChannel(s, m.GuildID, m.Author.ID)
	if voiceChannelID == "" {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Join a voice channel first.", 0xff0000)
		return
	}

	if _, err := manager.GetOrCreatePlayer(context.Background(), m.GuildID, voiceChannelID, m.ChannelID); err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not connect to a music node. Try again shortly.", 0xff0000)
		return
	}

	err := manager.WithGuild(m.GuildID, func(p *player.Player) error {
		p.Queue().Add(tracks...)
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
	sendEmbedMessage(s, m.ChannelID, "🎵 Queued",
		fmt.Sprintf("✅ Added **%d** tracks from %s to the queue.", len(tracks), what), 0x00ff00)
}
