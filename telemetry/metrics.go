// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ChallengesIssued    prometheus.Counter
	ChallengesCorrect   prometheus.Counter
	ChallengesIncorrect prometheus.Counter
	ChallengesNotFound  prometheus.Counter
	TicketsOpened       prometheus.Counter
	TicketsRejected     prometheus.Counter
	TicketsClosed       prometheus.Counter
	LiveAnnouncements   prometheus.Counter
	LivePollErrors      prometheus.Counter
	DMFailures          prometheus.Counter
	BroadcastsSent      prometheus.Counter
	BroadcastsDenied    prometheus.Counter

	// Gauges
	OpenTicketsGauge       prometheus.Gauge
	PendingChallengesGauge prometheus.Gauge
	StreamLiveGauge        prometheus.Gauge // 1=live,0=offline
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChallengesIssued = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_challenges_issued_total", Help: "Number of verification challenges issued"})
		ChallengesCorrect = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_challenges_correct_total", Help: "Number of challenges answered correctly"})
		ChallengesIncorrect = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_challenges_incorrect_total", Help: "Number of challenges answered incorrectly"})
		ChallengesNotFound = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_challenges_not_found_total", Help: "Number of challenge answers with an unknown or already-used token"})
		TicketsOpened = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_tickets_opened_total", Help: "Number of support tickets opened"})
		TicketsRejected = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_tickets_rejected_total", Help: "Number of ticket opens rejected because one already existed"})
		TicketsClosed = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_tickets_closed_total", Help: "Number of support tickets torn down"})
		LiveAnnouncements = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_live_announcements_total", Help: "Number of became-live announcements sent"})
		LivePollErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_live_poll_errors_total", Help: "Number of inconclusive live status polls"})
		DMFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_dm_failures_total", Help: "Number of undeliverable welcome direct messages"})
		BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_broadcasts_sent_total", Help: "Number of admin broadcast messages sent"})
		BroadcastsDenied = promauto.NewCounter(prometheus.CounterOpts{Name: "guardbot_broadcasts_denied_total", Help: "Number of broadcast attempts rejected for missing permission"})
		OpenTicketsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "guardbot_open_tickets", Help: "Current number of active tickets"})
		PendingChallengesGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "guardbot_pending_challenges", Help: "Current number of unanswered challenges"})
		StreamLiveGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "guardbot_stream_live", Help: "Tracked stream live=1 offline=0"})
	})
}

// Inc increments a counter if registered (Init may be skipped in tests).
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetGauge sets a gauge if registered.
func SetGauge(g prometheus.Gauge, v float64) {
	if g != nil {
		g.Set(v)
	}
}

// UpdateLiveGauge sets the stream gauge to 1 if live else 0.
func UpdateLiveGauge(live bool) {
	if StreamLiveGauge != nil {
		if live {
			StreamLiveGauge.Set(1)
		} else {
			StreamLiveGauge.Set(0)
		}
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
