package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mostwantedrp/guardbot/discordapi"
	"github.com/mostwantedrp/guardbot/telemetry"
	"github.com/mostwantedrp/guardbot/ticket"
	"github.com/mostwantedrp/guardbot/verify"
)

// Platform is the outbound side of the messaging collaborator, satisfied by
// *discordapi.Client.
type Platform interface {
	SendMessage(ctx context.Context, channelID string, msg discordapi.Message) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
}

// Dispatcher maps each inbound event kind to exactly one handler.
type Dispatcher struct {
	Challenges     *verify.Store
	Tickets        *ticket.Manager
	Platform       Platform
	VerifiedRoleID string
}

// HandleCommand serves the two slash commands: `ticket` presents the category
// menu, `verify` issues a challenge and asks for the answer modal.
func (d *Dispatcher) HandleCommand(ctx context.Context, ev SlashCommand) Reply {
	switch ev.Name {
	case "ticket":
		return Reply{Text: "Escolha a categoria abaixo:", CategoryMenu: true}
	case "verify":
		ch := d.Challenges.Issue(ev.UserID, ev.GuildID)
		telemetry.Inc(telemetry.ChallengesIssued)
		telemetry.SetGauge(telemetry.PendingChallengesGauge, float64(d.Challenges.Pending()))
		slog.Info("challenge issued", slog.String("user", ev.UserID), slog.String("question", ch.Question))
		return Reply{Modal: &ChallengePrompt{Token: ch.Token, Question: ch.Question}}
	default:
		slog.Debug("unknown command", slog.String("name", ev.Name))
		return Reply{}
	}
}

// HandleSelect opens a ticket for the selected category.
func (d *Dispatcher) HandleSelect(ctx context.Context, ev SelectSubmit) Reply {
	if ev.CustomID != CustomIDOpenTicket || len(ev.Values) == 0 {
		return Reply{}
	}
	cat, ok := ticket.CategoryByID(ev.Values[0])
	if !ok {
		return Reply{Text: "❌ Categoria inválida.", Ephemeral: true}
	}
	tk, err := d.Tickets.Open(ctx, ev.UserID, cat)
	switch {
	case errors.Is(err, ticket.ErrTicketExists):
		telemetry.Inc(telemetry.TicketsRejected)
		return Reply{Text: "⚠️ Você já possui um ticket aberto.", Ephemeral: true}
	case err != nil:
		slog.Error("ticket open failed", slog.String("user", ev.UserID), slog.Any("err", err))
		return Reply{Text: "❌ Não foi possível criar o ticket. Tente novamente.", Ephemeral: true}
	}
	telemetry.Inc(telemetry.TicketsOpened)
	return Reply{Text: fmt.Sprintf("🎟️ Ticket criado: <#%s>", tk.ChannelID), Ephemeral: true}
}

// HandleButton schedules the deferred teardown for the ticket channel the
// close button lives in.
func (d *Dispatcher) HandleButton(ctx context.Context, ev ButtonClick) Reply {
	if ev.CustomID != CustomIDCloseTicket {
		return Reply{}
	}
	if err := d.Tickets.RequestClose(ctx, ev.ChannelID); err != nil {
		// Unknown channel: the ticket predates a restart or was already
		// removed. Nothing to schedule.
		slog.Debug("close requested for untracked channel", slog.String("channel", ev.ChannelID))
		return Reply{Text: "⚠️ Este canal não é um ticket ativo.", Ephemeral: true}
	}
	secs := int((d.Tickets.CloseDelay() + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return Reply{Text: fmt.Sprintf("🔒 Fechando ticket em %d segundos...", secs), Ephemeral: true}
}

// HandleModal resolves a submitted challenge answer. A correct answer grants
// the verified role; a failed grant is reported as its own error, never
// conflated with a wrong answer. A stale or reused token gets no response;
// the modal it came from is already dangling.
func (d *Dispatcher) HandleModal(ctx context.Context, ev ModalSubmit) Reply {
	res := d.Challenges.Resolve(ev.CustomID, ev.Value)
	telemetry.SetGauge(telemetry.PendingChallengesGauge, float64(d.Challenges.Pending()))
	switch res.Outcome {
	case verify.NotFound:
		telemetry.Inc(telemetry.ChallengesNotFound)
		return Reply{}
	case verify.Incorrect:
		telemetry.Inc(telemetry.ChallengesIncorrect)
		return Reply{Text: "❌ Resposta incorreta. Use /verify novamente.", Ephemeral: true}
	}
	if err := d.Platform.AddMemberRole(ctx, res.GuildID, res.RequesterID, d.VerifiedRoleID); err != nil {
		slog.Error("role grant failed", slog.String("user", res.RequesterID), slog.Any("err", err))
		return Reply{Text: "❌ Erro ao atribuir cargo.", Ephemeral: true}
	}
	telemetry.Inc(telemetry.ChallengesCorrect)
	slog.Info("member verified", slog.String("user", res.RequesterID), slog.String("guild", res.GuildID))
	return Reply{Text: "✅ Verificado com sucesso!", Ephemeral: true}
}

// HandleMemberJoin sends the welcome DM. Delivery failure is expected for
// users with DMs closed; it is logged and never surfaced.
func (d *Dispatcher) HandleMemberJoin(ctx context.Context, ev MemberJoin) {
	content := fmt.Sprintf("Bem-vindo(a) %s!\nPara desbloquear o servidor, digite **/verify** e resolva o CAPTCHA.", ev.Username)
	if err := d.Platform.SendDirectMessage(ctx, ev.UserID, content); err != nil {
		telemetry.Inc(telemetry.DMFailures)
		slog.Info("welcome DM undeliverable", slog.String("user", ev.UserID), slog.Any("err", err))
	}
}

// HandleMessage implements the admin-only `!mensagem <texto>` broadcast.
// Non-admins get a rejection and no broadcast; an empty body gets a usage
// hint and no broadcast.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev ChatMessage) Reply {
	if !strings.HasPrefix(ev.Content, BroadcastPrefix) {
		return Reply{}
	}
	if !ev.IsAdmin {
		telemetry.Inc(telemetry.BroadcastsDenied)
		return Reply{Text: "❌ Apenas administradores podem usar este comando."}
	}
	text := strings.TrimSpace(strings.TrimPrefix(ev.Content, BroadcastPrefix))
	if text == "" {
		return Reply{Text: "⚠️ Escreve a mensagem: `!mensagem <texto>`"}
	}
	if err := d.Platform.SendMessage(ctx, ev.ChannelID, discordapi.Message{Content: text}); err != nil {
		slog.Error("broadcast send failed", slog.String("channel", ev.ChannelID), slog.Any("err", err))
		return Reply{Text: "❌ Não foi possível enviar a mensagem."}
	}
	telemetry.Inc(telemetry.BroadcastsSent)
	return Reply{}
}
