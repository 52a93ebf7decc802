package presence

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/pkg/player"
)

var (
	currentPresence string
	presenceMutex   sync.RWMutex
)

// PresenceManager manages the bot's presence
type PresenceManager struct {
	session *discordgo.Session
	players *player.Manager
}

// NewPresenceManager creates a new presence manager
func NewPresenceManager(session *discordgo.Session, players *player.Manager) *PresenceManager {
	return &PresenceManager{
		session: session,
		players: players,
	}
}

// UpdateDefaultPresence updates the bot's presence with server statistics
func (pm *PresenceManager) UpdateDefaultPresence() {
	guilds := pm.session.State.Guilds
	if len(guilds) == 0 {
		return
	}

	activeSessions := len(pm.players.GuildIDs())

	presence := &discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  "music in " + strconv.Itoa(activeSessions) + " servers",
				Type:  discordgo.ActivityTypeListening,
				State: "in " + strconv.Itoa(len(guilds)) + " servers total",
			},
		},
	}

	if err := pm.session.UpdateStatusComplex(*presence); err != nil {
		log.Printf("Failed to update bot presence: %v", err)
	}

	presenceMutex.Lock()
	currentPresence = "default"
	presenceMutex.Unlock()
}

// UpdateMusicPresence updates the bot's presence to show currently playing music
func (pm *PresenceManager) UpdateMusicPresence(songTitle string) {
	presence := &discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  "to",
				Type:  discordgo.ActivityTypeListening,
				State: songTitle,
			},
		},
	}

	if err := pm.session.UpdateStatusComplex(*presence); err != nil {
		log.Printf("Failed to update music presence: %v", err)
	}

	presenceMutex.Lock()
	currentPresence = "music"
	presenceMutex.Unlock()
}

// ClearMusicPresence clears the music presence and returns to default
func (pm *PresenceManager) ClearMusicPresence() {
	pm.UpdateDefaultPresence()
}

// GetCurrentPresence returns the current presence type
func (pm *PresenceManager) GetCurrentPresence() string {
	presenceMutex.RLock()
	defer presenceMutex.RUnlock()
	return currentPresence
}

// StartPeriodicUpdates starts a goroutine that updates the default presence periodically
func (pm *PresenceManager) StartPeriodicUpdates() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			// Only update if we're not showing music
			if pm.GetCurrentPresence() != "music" {
				pm.UpdateDefaultPresence()
			}
		}
	}()
}
