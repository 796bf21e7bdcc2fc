package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mostwantedrp/guardbot/discordapi"
	"github.com/mostwantedrp/guardbot/ticket"
)

// TicketChannels adapts the Discord client to the ticket manager's channel
// collaborator: it creates the per-user ticket channel with visibility locked
// down to the requester, drops the intro message with the close button into
// it, and deletes it on teardown.
type TicketChannels struct {
	Discord *discordapi.Client
	GuildID string
}

var _ ticket.ChannelAPI = (*TicketChannels)(nil)

func (tc *TicketChannels) CreateTicketChannel(ctx context.Context, ownerID string, cat ticket.Category) (string, error) {
	viewDeny := strconv.Itoa(discordapi.PermissionViewChannel)
	viewSendAllow := strconv.Itoa(discordapi.PermissionViewChannel | discordapi.PermissionSendMessages)

	channelID, err := tc.Discord.CreateGuildChannel(ctx, tc.GuildID, discordapi.ChannelCreate{
		Name: "ticket-" + ownerID,
		Type: discordapi.ChannelTypeGuildText,
		PermissionOverwrites: []discordapi.PermissionOverwrite{
			// @everyone (the guild id) loses visibility; the requester gets
			// view + send.
			{ID: tc.GuildID, Type: discordapi.OverwriteRole, Deny: viewDeny},
			{ID: ownerID, Type: discordapi.OverwriteMember, Allow: viewSendAllow},
		},
	})
	if err != nil {
		return "", err
	}

	intro := discordapi.Message{
		Content: fmt.Sprintf("<@%s>", ownerID),
		Embeds: []discordapi.Embed{{
			Title:       fmt.Sprintf("🎫 Ticket - %s", cat.Label),
			Description: fmt.Sprintf("Olá <@%s>, explique seu problema:", ownerID),
			Color:       0x2f3136,
		}},
		Components: []discordapi.Component{{
			Type: discordapi.ComponentActionRow,
			Components: []discordapi.Component{{
				Type:     discordapi.ComponentButton,
				Style:    discordapi.ButtonStyleDanger,
				Label:    "Fechar Ticket",
				CustomID: CustomIDCloseTicket,
			}},
		}},
	}
	// The channel exists either way; a lost intro message shouldn't fail the
	// ticket.
	if err := tc.Discord.SendMessage(ctx, channelID, intro); err != nil {
		slog.Warn("ticket intro message failed", slog.String("channel", channelID), slog.Any("err", err))
	}
	return channelID, nil
}

func (tc *TicketChannels) DeleteChannel(ctx context.Context, channelID string) error {
	return tc.Discord.DeleteChannel(ctx, channelID)
}
