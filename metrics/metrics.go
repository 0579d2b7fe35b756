package metrics

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/VictoriaMetrics/metrics"
)

// Config controls the scrape endpoint. It comes from environment
// variables rather than kolekta.yml so that metrics can be toggled per
// deployment without touching the bot config.
type Config struct {
	Enabled bool
	Port    int
	Path    string
}

var config Config

// Init loads the metrics configuration and, when enabled, starts the
// scrape endpoint in the background. Counters in this package work
// either way; with metrics disabled they just never get served.
func Init() error {
	config = loadConfig()

	if !config.Enabled {
		log.Printf("[METRICS] Collection disabled via METRICS_ENABLED")
		return nil
	}

	go serveScrapeEndpoint()

	log.Printf("[METRICS] Collection enabled, endpoint on port %d", config.Port)
	return nil
}

// IsEnabled reports whether the scrape endpoint is being served.
func IsEnabled() bool {
	return config.Enabled
}

func loadConfig() Config {
	return Config{
		Enabled: envBool("METRICS_ENABLED", true),
		Port:    envInt("METRICS_PORT", 8081),
		Path:    envString("METRICS_PATH", "/metrics"),
	}
}

// Binds to loopback only; expose through a reverse proxy if the
// scraper runs on another host.
func serveScrapeEndpoint() {
	mux := http.NewServeMux()

	mux.HandleFunc(config.Path, func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("127.0.0.1:%d", config.Port)
	log.Printf("[METRICS] Serving %s on %s", config.Path, addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[METRICS] Scrape endpoint failed: %v", err)
	}
}

func envBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[METRICS] Ignoring %s=%q: %v", key, value, err)
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[METRICS] Ignoring %s=%q: %v", key, value, err)
		return fallback
	}
	return parsed
}

func envString(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
