// Package ticket manages support tickets: one active ticket per user, each
// backed by a dedicated channel, torn down a few seconds after a close
// request. All state is in memory; a teardown scheduled right before process
// exit is lost, which is accepted for this design.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mostwantedrp/guardbot/telemetry"
)

// Category of a support ticket. The set is fixed; ids double as the select
// menu option values.
type Category struct {
	ID          string
	Label       string
	Description string
	Emoji       string
}

// Categories lists the selectable ticket categories, in menu order.
var Categories = []Category{
	{ID: "geral", Label: "Assuntos Gerais", Description: "Dúvidas gerais", Emoji: "📋"},
	{ID: "bug", Label: "Reportar BUG", Description: "Bugs e problemas", Emoji: "🔧"},
	{ID: "jogador", Label: "Reportar Jogador", Description: "Denúncia de jogador", Emoji: "🚫"},
	{ID: "orgilegal", Label: "Organização Ilegal", Description: "Assuntos ilegais", Emoji: "💀"},
	{ID: "orglegal", Label: "Organização Legal", Description: "Assuntos legais", Emoji: "📂"},
}

// CategoryByID resolves a select menu value to its category.
func CategoryByID(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// State of a ticket while it is actively tracked.
type State int

const (
	Open State = iota
	ClosePending
)

// Ticket is one active support request.
type Ticket struct {
	OwnerID   string
	Category  Category
	ChannelID string
	State     State
	CreatedAt time.Time
}

// ChannelAPI is the platform collaborator that owns the actual channels.
type ChannelAPI interface {
	CreateTicketChannel(ctx context.Context, ownerID string, cat Category) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

var (
	// ErrTicketExists signals the one-ticket-per-owner invariant.
	ErrTicketExists = errors.New("ticket already open for this user")
	// ErrNoTicket means the channel is not a tracked ticket channel.
	ErrNoTicket = errors.New("no open ticket for this channel")
)

// Manager enforces the one-active-ticket-per-owner invariant and runs the
// deferred teardown.
type Manager struct {
	api        ChannelAPI
	closeDelay time.Duration

	mu        sync.Mutex
	byOwner   map[string]*Ticket
	byChannel map[string]*Ticket
}

func NewManager(api ChannelAPI, closeDelay time.Duration) *Manager {
	return &Manager{
		api:        api,
		closeDelay: closeDelay,
		byOwner:    make(map[string]*Ticket),
		byChannel:  make(map[string]*Ticket),
	}
}

// Open creates a ticket for ownerID if none is active. The owner slot is
// reserved under the lock before the channel-create call suspends, so two
// racing opens can never both succeed. A failed channel create rolls the
// reservation back so the owner can retry.
func (m *Manager) Open(ctx context.Context, ownerID string, cat Category) (Ticket, error) {
	t := &Ticket{OwnerID: ownerID, Category: cat, State: Open, CreatedAt: time.Now()}

	m.mu.Lock()
	if _, exists := m.byOwner[ownerID]; exists {
		m.mu.Unlock()
		return Ticket{}, ErrTicketExists
	}
	m.byOwner[ownerID] = t
	m.mu.Unlock()

	channelID, err := m.api.CreateTicketChannel(ctx, ownerID, cat)
	if err != nil {
		m.mu.Lock()
		delete(m.byOwner, ownerID)
		m.mu.Unlock()
		return Ticket{}, fmt.Errorf("create ticket channel: %w", err)
	}

	m.mu.Lock()
	t.ChannelID = channelID
	m.byChannel[channelID] = t
	open := len(m.byOwner)
	m.mu.Unlock()

	telemetry.SetGauge(telemetry.OpenTicketsGauge, float64(open))
	slog.Info("ticket opened", slog.String("owner", ownerID), slog.String("category", cat.ID), slog.String("channel", channelID))
	return *t, nil
}

// RequestClose marks the ticket behind channelID as close-pending and
// schedules the teardown. It returns immediately; the channel delete and the
// slot release happen after the close delay. A second close request while one
// is pending is a no-op. There is no cancel path: once requested, the
// teardown always fires (unless the process exits first).
func (m *Manager) RequestClose(ctx context.Context, channelID string) error {
	m.mu.Lock()
	t, ok := m.byChannel[channelID]
	if !ok {
		m.mu.Unlock()
		return ErrNoTicket
	}
	if t.State == ClosePending {
		m.mu.Unlock()
		return nil
	}
	t.State = ClosePending
	ownerID := t.OwnerID
	m.mu.Unlock()

	// The triggering interaction's context dies as soon as its handler
	// returns, well before the close delay elapses. The teardown must
	// outlive it, so it runs on a detached context.
	go m.teardown(context.WithoutCancel(ctx), ownerID, channelID)
	return nil
}

func (m *Manager) teardown(ctx context.Context, ownerID, channelID string) {
	time.Sleep(m.closeDelay)

	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.api.DeleteChannel(dctx, channelID); err != nil {
		slog.Warn("ticket channel delete failed", slog.String("channel", channelID), slog.Any("err", err))
	}

	m.mu.Lock()
	delete(m.byChannel, channelID)
	delete(m.byOwner, ownerID)
	open := len(m.byOwner)
	m.mu.Unlock()

	telemetry.Inc(telemetry.TicketsClosed)
	telemetry.SetGauge(telemetry.OpenTicketsGauge, float64(open))
	slog.Info("ticket closed", slog.String("owner", ownerID), slog.String("channel", channelID))
}

// CloseDelay returns the delay between a close request and the teardown.
func (m *Manager) CloseDelay() time.Duration {
	return m.closeDelay
}

// Count returns the number of active tickets (including close-pending ones).
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOwner)
}
