// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Missing optional variables disable features (e.g., the Twitch live watcher).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Discord
	DiscordToken     string
	DiscordPublicKey string
	GuildID          string
	VerifiedRoleID   string
	LiveAlertChannel string

	// Twitch
	TwitchClientID     string
	TwitchClientSecret string
	TwitchChannel      string

	// Timers
	LivePollInterval time.Duration
	TicketCloseDelay time.Duration
	// ChallengeMaxAge bounds how long an unanswered challenge is kept.
	// Zero disables the sweep; challenges then live until answered.
	ChallengeMaxAge time.Duration

	// HTTP
	HTTPAddr          string
	GatewayForwardKey string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch
// creds are missing; absence of them disables the live watcher (see WatcherEnabled).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	cfg.DiscordPublicKey = os.Getenv("DISCORD_PUBLIC_KEY")
	cfg.GuildID = os.Getenv("DISCORD_GUILD_ID")
	cfg.VerifiedRoleID = os.Getenv("VERIFIED_ROLE_ID")
	cfg.LiveAlertChannel = os.Getenv("LIVE_ALERT_CHANNEL")

	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	// Twitch logins are case-insensitive; Helix expects lowercase.
	cfg.TwitchChannel = strings.ToLower(os.Getenv("TWITCH_CHANNEL_NAME"))

	cfg.LivePollInterval = 20 * time.Second
	if v := os.Getenv("LIVE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid LIVE_POLL_INTERVAL: %q", v)
		}
		cfg.LivePollInterval = d
	}

	cfg.TicketCloseDelay = 3 * time.Second
	if v := os.Getenv("TICKET_CLOSE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid TICKET_CLOSE_DELAY: %q", v)
		}
		cfg.TicketCloseDelay = d
	}

	if v := os.Getenv("CHALLENGE_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid CHALLENGE_MAX_AGE: %q", v)
		}
		cfg.ChallengeMaxAge = d
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	cfg.GatewayForwardKey = os.Getenv("GATEWAY_FORWARD_KEY")

	return cfg, nil
}

// WatcherEnabled reports whether the Twitch live watcher has everything it needs.
// Missing values disable the watcher without affecting the rest of the bot.
func (c *Config) WatcherEnabled() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != "" && c.TwitchChannel != ""
}

// ValidateDiscordReady checks required fields for talking to the Discord API.
func (c *Config) ValidateDiscordReady() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("missing discord env: require DISCORD_TOKEN")
	}
	return nil
}
