package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Eniwa/internal/commands"
	"github.com/latoulicious/Eniwa/internal/config"
	"github.com/latoulicious/Eniwa/internal/handlers"
	"github.com/latoulicious/Eniwa/internal/presence"
	"github.com/latoulicious/Eniwa/pkg/cron"
	"github.com/latoulicious/Eniwa/pkg/database"
	"github.com/latoulicious/Eniwa/pkg/lavalink"
	"github.com/latoulicious/Eniwa/pkg/metrics"
	"github.com/latoulicious/Eniwa/pkg/player"
)

// settingsAdapter bridges the SQLite store to the player manager's
// settings contract.
type settingsAdapter struct {
	store *database.Store
}

func (a settingsAdapter) Get(guildID string) (player.GuildSettings, error) {
	settings, err := a.store.Get(guildID)
	if err != nil {
		return player.GuildSettings{}, err
	}
	return player.GuildSettings{
		DefaultVolume: settings.DefaultVolume,
		DJRoleID:      settings.DJRoleID,
		Stay247:       settings.Stay247,
		FilterPreset:  settings.FilterPreset,
	}, nil
}

func main() {
	// Load configuration (reads .env when present)
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Create a new Discord session using the provided token
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	// Open the settings database
	store, err := database.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open settings database: %v", err)
	}
	defer store.Close()

	// Node pool and session manager
	pool := lavalink.NewPool(lavalink.PoolConfig{
		ClientName:     "Eniwa/1.0",
		ConnectRetries: cfg.NodeRetries,
	})

	voice := player.NewGatewayVoice(dg)
	manager := player.NewManager(player.Config{
		PrimaryID:      config.PrimaryIdentifier,
		DefaultVolume:  cfg.DefaultVolume,
		ErrorThreshold: cfg.ErrorThreshold,
		ErrorWindow:    cfg.ErrorWindow,
		IdleTimeout:    cfg.IdleTimeout,
	}, player.NewPoolDirectory(pool), voice)
	manager.SetSettingsProvider(settingsAdapter{store: store})
	manager.SetNotificationSink(commands.NewNotifier(dg))

	pool.AddHandlers(manager.Handlers())

	// Periodic primary health check
	healthMgr := cron.NewHealthManager(manager.HealthCheck, cfg.PrimaryHealthInterval)

	// Wire the command layer
	commands.Setup(manager, pool, store, healthMgr)
	handlers.SetPrefix(cfg.Prefix)

	// Presence manager
	presenceManager := presence.NewPresenceManager(dg, manager)

	// Register the message handler
	dg.AddHandler(handlers.MessageHandler)

	// Tear the guild's session down when the bot is removed from a guild
	dg.AddHandler(func(s *discordgo.Session, e *discordgo.GuildDelete) {
		if e.Guild != nil && !e.Unavailable {
			manager.RemoveGuild(e.ID)
		}
	})

	// Open a websocket connection to Discord and begin listening.
	if err := dg.Open(); err != nil {
		log.Fatalf("Failed to open Discord session: %v", err)
	}

	// Connect the node fleet now that the bot's user ID is known. Nodes
	// report ready asynchronously, so allow a short settling delay before
	// judging the fleet.
	pool.SetUserID(dg.State.User.ID)
	pool.Connect(context.Background(), cfg.Nodes)
	time.Sleep(time.Second)
	connected := pool.ConnectedIdentifiers()
	if len(connected) == 0 {
		dg.Close()
		log.Fatalf("No audio node reachable at startup, cannot serve playback")
	}
	log.Printf("[Main] Connected audio nodes: %v", connected)

	// Prometheus endpoint, optional
	if cfg.MetricsAddr != "" {
		go metrics.StartServer(cfg.MetricsAddr)
	}

	// Set initial presence and start periodic updates
	presenceManager.UpdateDefaultPresence()
	presenceManager.StartPeriodicUpdates()

	log.Println("Bot is running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Orderly shutdown: stop the health check so no migration races the
	// teardown, close every session, then the node pool, then Discord.
	healthMgr.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	manager.Shutdown(ctx)
	cancel()
	pool.Close()
	dg.Close()
}
