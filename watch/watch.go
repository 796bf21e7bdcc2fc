// Package watch polls Twitch stream status for one channel and converts the
// level-triggered live signal into a single became-live event per
// offline→online edge. Repeated live reads, repeated offline reads, and
// failed polls never announce.
package watch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mostwantedrp/guardbot/telemetry"
	"github.com/mostwantedrp/guardbot/twitchapi"
)

// StreamsAPI is the external status signal (Helix in production).
type StreamsAPI interface {
	GetStreams(ctx context.Context, login string) ([]twitchapi.Stream, error)
}

// AnnounceFunc fires the became-live side effect.
type AnnounceFunc func(ctx context.Context, stream twitchapi.Stream) error

// Watcher is the two-state live/offline machine. Initial state is offline.
type Watcher struct {
	Streams  StreamsAPI
	Announce AnnounceFunc
	Channel  string
	Interval time.Duration

	live atomic.Bool
}

// Live returns the last edge-detected status.
func (w *Watcher) Live() bool {
	return w.live.Load()
}

// Start runs the poll loop until ctx is cancelled. Ticks run on one
// goroutine and each completes (including its I/O) before the next is
// scheduled, so two ticks can never race on the same transition.
func (w *Watcher) Start(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("live watcher started", slog.String("channel", w.Channel), slog.Duration("interval", interval))
	for {
		w.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick performs one poll. Errors leave the state untouched: an inconclusive
// read must not flip the machine or announce, and a stale credential is
// simply retried on the next tick.
func (w *Watcher) tick(ctx context.Context) {
	streams, err := w.Streams.GetStreams(ctx, w.Channel)
	if err != nil {
		telemetry.Inc(telemetry.LivePollErrors)
		slog.Debug("live poll inconclusive", slog.String("channel", w.Channel), slog.Any("err", err))
		return
	}
	currentlyLive := len(streams) > 0

	switch {
	case currentlyLive && !w.live.Load():
		if err := w.Announce(ctx, streams[0]); err != nil {
			slog.Warn("live announcement failed", slog.String("channel", w.Channel), slog.Any("err", err))
		} else {
			telemetry.Inc(telemetry.LiveAnnouncements)
		}
		w.live.Store(true)
		slog.Info("stream went live", slog.String("channel", w.Channel), slog.String("title", streams[0].Title))
	case !currentlyLive && w.live.Load():
		w.live.Store(false)
		slog.Info("stream went offline", slog.String("channel", w.Channel))
	}
	telemetry.UpdateLiveGauge(w.live.Load())
}
