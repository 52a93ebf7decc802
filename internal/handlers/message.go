package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/internal/commands"
)

var prefix = "!"

// SetPrefix sets the command prefix before the gateway opens.
func SetPrefix(p string) {
	if p != "" {
		prefix = p
	}
}

// MessageHandler routes prefixed messages to their commands.
func MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore all messages created by the bot itself
	if m.Author.ID == s.State.User.ID {
		return
	}
	if m.GuildID == "" || !strings.HasPrefix(m.Content, prefix) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(m.Content, prefix))
	if len(args) == 0 {
		return
	}
	command := strings.ToLower(args[0])
	args = args[1:]

	// Channel restrictions silently swallow blocked commands, so a
	// whitelisted server's other channels stay clean. Aliases resolve to
	// their canonical name first so a pin on "play" also covers "p".
	if !commands.ChannelAllowed(m.GuildID, m.ChannelID, canonicalCommand(command)) {
		return
	}

	switch command {
	case "play", "p":
		commands.PlayCommand(s, m, args)
	case "pause":
		commands.PauseCommand(s, m)
	case "resume", "unpause":
		commands.ResumeCommand(s, m)
	case "skip", "next":
		commands.SkipCommand(s, m)
	case "stop":
		commands.StopCommand(s, m)
	case "leave", "disconnect", "dc":
		commands.LeaveCommand(s, m)
	case "queue", "q":
		commands.QueueCommand(s, m, args)
	case "remove", "rm":
		commands.RemoveCommand(s, m, args)
	case "clear":
		commands.ClearCommand(s, m)
	case "shuffle":
		commands.ShuffleCommand(s, m)
	case "history":
		commands.HistoryCommand(s, m)
	case "loop", "repeat":
		commands.LoopCommand(s, m, args)
	case "nowplaying", "np":
		commands.NowPlayingCommand(s, m)
	case "volume", "vol":
		commands.VolumeCommand(s, m, args)
	case "seek":
		commands.SeekCommand(s, m, args)
	case "filter", "filters":
		commands.FilterCommand(s, m, args)
	case "node", "nodes":
		commands.NodeCommand(s, m, args)
	case "autoplay", "ap":
		commands.AutoplayCommand(s, m, args)
	case "247", "stay":
		commands.StayCommand(s, m, args)
	case "dj":
		commands.DJCommand(s, m, args)
	case "defaultvolume", "defaultvol":
		commands.DefaultVolumeCommand(s, m, args)
	case "like":
		commands.LikeCommand(s, m)
	case "unlike", "dislike":
		commands.UnlikeCommand(s, m)
	case "liked", "showliked":
		commands.LikedCommand(s, m, args)
	case "playlist", "pl":
		commands.PlaylistCommand(s, m, args)
	case "restrict":
		commands.RestrictCommand(s, m, args)
	case "unrestrict":
		commands.UnrestrictCommand(s, m, args)
	case "help", "h":
		commands.ShowHelpCommand(s, m)
	}
}

// canonicalCommand maps command aliases to the name restrictions are
// stored under.
func canonicalCommand(command string) string {
	switch command {
	case "p":
		return "play"
	case "unpause":
		return "resume"
	case "next":
		return "skip"
	case "disconnect", "dc":
		return "leave"
	case "q":
		return "queue"
	case "rm":
		return "remove"
	case "repeat":
		return "loop"
	case "np":
		return "nowplaying"
	case "vol":
		return "volume"
	case "filters":
		return "filter"
	case "nodes":
		return "node"
	case "ap":
		return "autoplay"
	case "stay":
		return "247"
	case "defaultvol":
		return "defaultvolume"
	case "dislike":
		return "unlike"
	case "showliked":
		return "liked"
	case "pl":
		return "playlist"
	case "h":
		return "help"
	default:
		return command
	}
}
