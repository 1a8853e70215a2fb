package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"solarscout/internal/models"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	ListenAddr   string // Address for the status server (e.g., ":8080")
	LogLevel     string

	// Schedule is a cron expression for the posting job. An empty value
	// disables the internal scheduler (one-shot mode only).
	Schedule string
	// MinRunSpacing is the minimum time between two posting runs,
	// enforced against the run journal.
	MinRunSpacing time.Duration

	// PublishTimeout bounds the whole publish step of one run.
	PublishTimeout time.Duration
	// RetryBackoff is the fixed delay before the single post retry.
	RetryBackoff time.Duration

	BlueskyEnabled     bool
	BlueskyIdentifier  string // Bluesky handle or email
	BlueskyAppPassword string

	MastodonEnabled     bool
	MastodonServer      string // e.g., "https://mastodon.social"
	MastodonAccessToken string

	IncludeHashtags bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load() // Ignore error if .env file doesn't exist

	return &Config{
		DatabasePath:        getEnv("DATABASE_PATH", "solarscout.db"),
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Schedule:            getEnv("POSTING_SCHEDULE", "@every 90m"),
		MinRunSpacing:       getDuration("MIN_RUN_SPACING", 60*time.Minute),
		PublishTimeout:      getDuration("PUBLISH_TIMEOUT", 5*time.Minute),
		RetryBackoff:        getDuration("RETRY_BACKOFF", 10*time.Second),
		BlueskyEnabled:      getBool("BLUESKY_ENABLED", false),
		BlueskyIdentifier:   getEnv("BLUESKY_HANDLE", ""),
		BlueskyAppPassword:  getEnv("BLUESKY_APP_PASSWORD", ""),
		MastodonEnabled:     getBool("MASTODON_ENABLED", false),
		MastodonServer:      getEnv("MASTODON_API_BASE_URL", ""),
		MastodonAccessToken: getEnv("MASTODON_ACCESS_TOKEN", ""),
		IncludeHashtags:     getBool("INCLUDE_HASHTAGS", true),
	}
}

// Targets builds the platform target list from the configuration.
// Targets with incomplete credentials are returned disabled so a
// misconfigured platform never aborts the others.
func (c *Config) Targets() []models.PlatformTarget {
	bluesky := models.PlatformTarget{
		Kind:      models.PlatformBluesky,
		Enabled:   c.BlueskyEnabled,
		CharLimit: models.BlueskyCharLimit,
		Credentials: models.Credentials{
			Identifier:  c.BlueskyIdentifier,
			AppPassword: c.BlueskyAppPassword,
		},
	}
	if c.BlueskyEnabled && (c.BlueskyIdentifier == "" || c.BlueskyAppPassword == "") {
		log.Printf("Bluesky enabled but BLUESKY_HANDLE/BLUESKY_APP_PASSWORD missing, disabling target")
		bluesky.Enabled = false
	}

	mastodon := models.PlatformTarget{
		Kind:      models.PlatformMastodon,
		Enabled:   c.MastodonEnabled,
		CharLimit: models.MastodonCharLimit,
		Credentials: models.Credentials{
			Server:      c.MastodonServer,
			AccessToken: c.MastodonAccessToken,
		},
	}
	if c.MastodonEnabled && (c.MastodonServer == "" || c.MastodonAccessToken == "") {
		log.Printf("Mastodon enabled but MASTODON_API_BASE_URL/MASTODON_ACCESS_TOKEN missing, disabling target")
		mastodon.Enabled = false
	}

	return []models.PlatformTarget{bluesky, mastodon}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getBool parses a boolean environment variable.
func getBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Invalid %s value '%s', using default %v: %v", key, raw, fallback, err)
		return fallback
	}
	return value
}

// getDuration parses a duration environment variable ("90s", "5m", "1.5h").
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid %s value '%s', using default %s: %v", key, raw, fallback, err)
		return fallback
	}
	return value
}
