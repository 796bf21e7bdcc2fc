// Package server exposes the HTTP surface: health, status, metrics, the
// Discord interactions webhook, and the internal endpoints a gateway
// forwarder uses for events Discord only delivers over the gateway
// (member joins and prefix-command messages). It injects correlation IDs
// into request contexts for consistent logging.
package server

import (
	"context"
	"crypto/ed25519"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mostwantedrp/guardbot/bot"
	"github.com/mostwantedrp/guardbot/telemetry"
	"github.com/mostwantedrp/guardbot/ticket"
	"github.com/mostwantedrp/guardbot/verify"
	"github.com/mostwantedrp/guardbot/watch"
)

// Deps wires the HTTP layer to the rest of the bot.
type Deps struct {
	Dispatcher *bot.Dispatcher
	Tickets    *ticket.Manager
	Challenges *verify.Store
	Watcher    *watch.Watcher // nil when the live watcher is disabled

	// PublicKey verifies interaction signatures; when empty the
	// /interactions route answers 503.
	PublicKey ed25519.PublicKey
	// ForwardKey authenticates the gateway forwarder; when empty the
	// /events routes answer 503.
	ForwardKey string
}

// NewMux returns the HTTP handler with all routes.
func NewMux(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/status", deps.handleStatus)
	mux.HandleFunc("/interactions", deps.handleInteractions)
	mux.HandleFunc("/events/member-join", deps.withForwardAuth(deps.handleMemberJoin))
	mux.HandleFunc("/events/message", deps.withForwardAuth(deps.handleMessage))

	// Wrap with correlation ID injector and tracing middleware.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		mux.ServeHTTP(wrapped, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, wrapped.statusCode)
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// withForwardAuth guards the internal event routes with the shared forwarder
// key. An unset key disables the routes entirely.
func (d Deps) withForwardAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ForwardKey == "" {
			http.Error(w, "event forwarding disabled", http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("X-Forward-Key") != d.ForwardKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, deps Deps, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
