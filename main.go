// Command guardbot is the main entrypoint for the community gatekeeper bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Wires the challenge store, ticket manager, and event dispatcher.
//   - Starts the Twitch live watcher when Twitch credentials are configured.
//   - Exposes an HTTP server with the Discord interactions webhook,
//     forwarded gateway events, /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mostwantedrp/guardbot/bot"
	"github.com/mostwantedrp/guardbot/config"
	"github.com/mostwantedrp/guardbot/discordapi"
	"github.com/mostwantedrp/guardbot/server"
	"github.com/mostwantedrp/guardbot/telemetry"
	"github.com/mostwantedrp/guardbot/ticket"
	"github.com/mostwantedrp/guardbot/twitchapi"
	"github.com/mostwantedrp/guardbot/verify"
	"github.com/mostwantedrp/guardbot/watch"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateDiscordReady(); err != nil {
		slog.Error("discord config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("guardbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	discord := &discordapi.Client{Token: cfg.DiscordToken}

	challenges := verify.NewStore()
	if cfg.ChallengeMaxAge > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ChallengeMaxAge)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := challenges.Sweep(cfg.ChallengeMaxAge); n > 0 {
						telemetry.SetGauge(telemetry.PendingChallengesGauge, float64(challenges.Pending()))
						slog.Info("stale challenges swept", slog.Int("count", n))
					}
				}
			}
		}()
		slog.Info("challenge janitor started", slog.Duration("max_age", cfg.ChallengeMaxAge))
	}
	tickets := ticket.NewManager(&bot.TicketChannels{Discord: discord, GuildID: cfg.GuildID}, cfg.TicketCloseDelay)
	dispatcher := &bot.Dispatcher{
		Challenges:     challenges,
		Tickets:        tickets,
		Platform:       discord,
		VerifiedRoleID: cfg.VerifiedRoleID,
	}

	var watcher *watch.Watcher
	if cfg.WatcherEnabled() {
		helix := &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}
		// Best-effort token warmup so the first poll does not pay the
		// client-credentials round trip.
		warmupCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if tok, err := helix.AppTokenSource.Get(warmupCtx); err != nil {
			slog.Warn("twitch app token fetch failed", slog.Any("err", err))
		} else if len(tok) > 6 {
			slog.Info("twitch app token acquired", slog.String("tail", "***"+tok[len(tok)-6:]))
		}
		cancel()

		watcher = &watch.Watcher{
			Streams:  helix,
			Announce: bot.LiveAnnouncer(discord, cfg.LiveAlertChannel, cfg.TwitchChannel),
			Channel:  cfg.TwitchChannel,
			Interval: cfg.LivePollInterval,
		}
		go watcher.Start(ctx)
	} else {
		slog.Info("live watcher disabled: twitch credentials or channel missing")
	}

	var publicKey ed25519.PublicKey
	if cfg.DiscordPublicKey != "" {
		raw, err := hex.DecodeString(cfg.DiscordPublicKey)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			slog.Error("invalid DISCORD_PUBLIC_KEY", slog.Any("err", err))
			os.Exit(1)
		}
		publicKey = ed25519.PublicKey(raw)
	} else {
		slog.Warn("DISCORD_PUBLIC_KEY not set; /interactions will answer 503")
	}

	deps := server.Deps{
		Dispatcher: dispatcher,
		Tickets:    tickets,
		Challenges: challenges,
		Watcher:    watcher,
		PublicKey:  publicKey,
		ForwardKey: cfg.GatewayForwardKey,
	}
	slog.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
	if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
		slog.Error("http server exited", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
