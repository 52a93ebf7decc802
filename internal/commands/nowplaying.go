package commands

import (
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/pkg/player"
)

// NowPlayingCommand shows the current track with position and session info
func NowPlayingCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	p, ok := manager.Player(m.GuildID)
	if !ok || p.Current() == nil {
		sendNothingPlayingEmbed(s, m.ChannelID)
		return
	}

	current := p.Current()
	position := "live"
	if !current.Info.IsStream {
		position = fmt.Sprintf("%s / %s", formatDuration(p.Position()), formatDuration(current.Info.Length))
	}

	state := "▶️ Playing"
	if p.Paused() {
		state = "⏸️ Paused"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎵 Now Playing",
		Description: fmt.Sprintf("**%s**\nby %s", current.Info.Title, current.Info.Author),
		URL:         current.Info.URI,
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Position", Value: position, Inline: true},
			{Name: "State", Value: state, Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", p.Volume()), Inline: true},
			{Name: "Node", Value: p.Node().Identifier(), Inline: true},
			{Name: "Loop", Value: p.Queue().Mode().String(), Inline: true},
			{Name: "Queued", Value: fmt.Sprintf("%d", p.Queue().Len()), Inline: true},
		},
	}
	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}

func sendNothingPlayingEmbed(s *discordgo.Session, channelID string) {
	embed := &discordgo.MessageEmbed{
		Title:       "🎵 Now Playing",
		Description: "Nothing is currently playing",
		Color:       0x808080,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Use !play to start playing music",
		},
	}
	s.ChannelMessageSendEmbed(channelID, embed)
}

// Notifier posts recovery notices into each guild's last command channel.
// It satisfies the manager's notification contract; posting happens on its
// own goroutine so failover paths never wait on Discord.
type Notifier struct {
	session *discordgo.Session
}

// NewNotifier builds a notifier over the gateway session.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{session: session}
}

func (n *Notifier) channelFor(guildID string) string {
	if p, ok := manager.Player(guildID); ok {
		return p.TextChannelID
	}
	return ""
}

// NotifyMigrated announces that the session moved to another node.
func (n *Notifier) NotifyMigrated(guildID, fromNode, toNode string) {
	channelID := n.channelFor(guildID)
	if channelID == "" {
		return
	}
	go sendEmbedMessage(n.session, channelID, "🔄 Node Switched",
		fmt.Sprintf("Playback moved from `%s` to `%s`. Your music keeps going.", fromNode, toNode), 0xffa500)
}

// NotifyDegraded announces that the session is stuck on a failing node.
func (n *Notifier) NotifyDegraded(guildID, nodeID string) {
	channelID := n.channelFor(guildID)
	if channelID == "" {
		return
	}
	go sendEmbedMessage(n.session, channelID, "⚠️ Degraded",
		fmt.Sprintf("Node `%s` is having trouble and no backup is available. Playback may be unstable.", nodeID), 0xff0000)
}

// NotifyRecoveryFailed announces that the session could not be restored.
func (n *Notifier) NotifyRecoveryFailed(guildID string, err error) {
	log.Printf("[Commands] Recovery failed | guild=%s err=%v", guildID, err)
	channelID := n.channelFor(guildID)
	if channelID == "" {
		return
	}
	go sendEmbedMessage(n.session, channelID, "❌ Session Lost",
		"The music session could not be recovered. Use `!play` to start again.", 0xff0000)
}

var _ player.NotificationSink = (*Notifier)(nil)
