package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Node fleet metrics
	NodesConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eniwa_nodes_connected",
		Help: "The current number of connected audio nodes.",
	})
	NodePlaybackErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eniwa_node_playback_errors_total",
		Help: "The total number of playback errors reported per node.",
	}, []string{"node"})

	// Session metrics
	ActivePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eniwa_players_active",
		Help: "The current number of active playback sessions.",
	})
	SessionMigrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eniwa_session_migrations_total",
		Help: "The total number of sessions migrated between nodes.",
	}, []string{"trigger"})
	SessionRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eniwa_session_rebuilds_total",
		Help: "The total number of session rebuilds, by outcome.",
	}, []string{"outcome"})
)

// StartServer starts the HTTP server exposing Prometheus metrics. It blocks,
// so callers run it in a goroutine.
func StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	log.Printf("Starting metrics server on %s/metrics", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}
