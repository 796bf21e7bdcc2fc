package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LivePollInterval != 20*time.Second {
		t.Errorf("LivePollInterval = %v, want 20s", cfg.LivePollInterval)
	}
	if cfg.TicketCloseDelay != 3*time.Second {
		t.Errorf("TicketCloseDelay = %v, want 3s", cfg.TicketCloseDelay)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.ChallengeMaxAge != 0 {
		t.Errorf("ChallengeMaxAge = %v, want 0 (sweep disabled)", cfg.ChallengeMaxAge)
	}
}

func TestLoadChallengeMaxAge(t *testing.T) {
	t.Setenv("CHALLENGE_MAX_AGE", "30m")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChallengeMaxAge != 30*time.Minute {
		t.Errorf("ChallengeMaxAge = %v, want 30m", cfg.ChallengeMaxAge)
	}

	t.Setenv("CHALLENGE_MAX_AGE", "0")
	if _, err := Load(); err == nil {
		t.Error("Load() with zero CHALLENGE_MAX_AGE should error")
	}
}

func TestLoadTwitchChannelLowercased(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL_NAME", "MostWantedRP")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TwitchChannel != "mostwantedrp" {
		t.Errorf("TwitchChannel = %q, want mostwantedrp", cfg.TwitchChannel)
	}
}

func TestLoadInvalidDurations(t *testing.T) {
	t.Setenv("LIVE_POLL_INTERVAL", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Error("Load() with invalid LIVE_POLL_INTERVAL should error")
	}
	t.Setenv("LIVE_POLL_INTERVAL", "20s")
	t.Setenv("TICKET_CLOSE_DELAY", "-3s")
	if _, err := Load(); err == nil {
		t.Error("Load() with negative TICKET_CLOSE_DELAY should error")
	}
}

func TestWatcherEnabled(t *testing.T) {
	cfg := &Config{}
	if cfg.WatcherEnabled() {
		t.Error("WatcherEnabled() = true with no twitch config")
	}
	cfg.TwitchClientID = "id"
	cfg.TwitchClientSecret = "secret"
	if cfg.WatcherEnabled() {
		t.Error("WatcherEnabled() = true without a channel")
	}
	cfg.TwitchChannel = "somechannel"
	if !cfg.WatcherEnabled() {
		t.Error("WatcherEnabled() = false with full twitch config")
	}
}

func TestValidateDiscordReady(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateDiscordReady(); err == nil {
		t.Error("ValidateDiscordReady() should fail without DISCORD_TOKEN")
	}
	cfg.DiscordToken = "tok"
	if err := cfg.ValidateDiscordReady(); err != nil {
		t.Errorf("ValidateDiscordReady() error = %v", err)
	}
}
