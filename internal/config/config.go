// Package config loads the daemon's configuration from the environment,
// with an optional .env file and an optional TOML policy file for the agent
// allowlist and posting policies.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	BotUsername string // RELAY_BOT_USERNAME (required; deep links open this bot)
	BoardChatID string // RELAY_BOARD_CHAT_ID (required; the public posting surface)
	HTTPAddr    string // RELAY_HTTP_ADDR (default ":8080")
	NATSURL     string // RELAY_NATS_URL (optional, empty = no bus)
	DatabaseURL string // RELAY_DATABASE_URL (optional, empty = log deliverer)
	RequestSeed uint64 // RELAY_REQUEST_SEED (highest previously issued id number)

	SessionTTL          time.Duration // RELAY_SESSION_TTL (default 1h)
	LivenessAge         time.Duration // RELAY_LIVENESS_AGE (default 48h)
	LivenessInterval    time.Duration // RELAY_LIVENESS_INTERVAL (default 48h)
	MaintenanceInterval time.Duration // RELAY_MAINTENANCE_INTERVAL (default 90s)

	BroadcastOffers bool     // RELAY_BROADCAST_OFFERS (default false)
	Allowlist       []string // from the policy file

	// Archive settings
	ArchiveInterval   time.Duration // RELAY_ARCHIVE_INTERVAL (0 = disabled)
	ArchiveS3Bucket   string        // RELAY_ARCHIVE_S3_BUCKET (enables S3 when set)
	ArchiveS3Endpoint string        // RELAY_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
	ArchiveS3Region   string        // RELAY_ARCHIVE_S3_REGION (default "us-east-1")
	ArchiveS3Key      string        // RELAY_ARCHIVE_S3_KEY (default "relay/requests.jsonl")
}

// Policy is the optional TOML policy file (RELAY_POLICY_FILE).
type Policy struct {
	Allowlist       []string `toml:"allowlist"`
	BroadcastOffers *bool    `toml:"broadcast_offers"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first, without overriding real environment
// variables. Missing bot or board identifiers are fatal: better to refuse to
// start than to fail on the first publication.
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		BotUsername:       os.Getenv("RELAY_BOT_USERNAME"),
		BoardChatID:       os.Getenv("RELAY_BOARD_CHAT_ID"),
		HTTPAddr:          envOrDefault("RELAY_HTTP_ADDR", ":8080"),
		NATSURL:           os.Getenv("RELAY_NATS_URL"),
		DatabaseURL:       os.Getenv("RELAY_DATABASE_URL"),
		ArchiveS3Bucket:   os.Getenv("RELAY_ARCHIVE_S3_BUCKET"),
		ArchiveS3Endpoint: os.Getenv("RELAY_ARCHIVE_S3_ENDPOINT"),
		ArchiveS3Region:   envOrDefault("RELAY_ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Key:      envOrDefault("RELAY_ARCHIVE_S3_KEY", "relay/requests.jsonl"),
	}
	if c.BotUsername == "" {
		return nil, fmt.Errorf("RELAY_BOT_USERNAME is required")
	}
	if c.BoardChatID == "" {
		return nil, fmt.Errorf("RELAY_BOARD_CHAT_ID is required")
	}

	var err error
	if c.SessionTTL, err = durationEnv("RELAY_SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}
	if c.LivenessAge, err = durationEnv("RELAY_LIVENESS_AGE", 48*time.Hour); err != nil {
		return nil, err
	}
	if c.LivenessInterval, err = durationEnv("RELAY_LIVENESS_INTERVAL", 48*time.Hour); err != nil {
		return nil, err
	}
	if c.MaintenanceInterval, err = durationEnv("RELAY_MAINTENANCE_INTERVAL", 90*time.Second); err != nil {
		return nil, err
	}
	if c.ArchiveInterval, err = durationEnv("RELAY_ARCHIVE_INTERVAL", 0); err != nil {
		return nil, err
	}

	if seed := os.Getenv("RELAY_REQUEST_SEED"); seed != "" {
		if _, err := fmt.Sscanf(seed, "%d", &c.RequestSeed); err != nil {
			return nil, fmt.Errorf("RELAY_REQUEST_SEED: %w", err)
		}
	}

	c.BroadcastOffers = os.Getenv("RELAY_BROADCAST_OFFERS") == "true"

	if path := os.Getenv("RELAY_POLICY_FILE"); path != "" {
		if err := c.applyPolicyFile(path); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Config) applyPolicyFile(path string) error {
	var p Policy
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return fmt.Errorf("policy file %s: %w", path, err)
	}
	c.Allowlist = p.Allowlist
	if p.BroadcastOffers != nil {
		c.BroadcastOffers = *p.BroadcastOffers
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
