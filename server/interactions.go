package server

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/mostwantedrp/guardbot/bot"
	"github.com/mostwantedrp/guardbot/discordapi"
	"github.com/mostwantedrp/guardbot/telemetry"
	"github.com/mostwantedrp/guardbot/ticket"
)

// Interaction request and response types (Discord API values).
const (
	interactionPing             = 1
	interactionCommand          = 2
	interactionMessageComponent = 3
	interactionModalSubmit      = 5

	responsePong           = 1
	responseChannelMessage = 4
	responseDeferredUpdate = 6
	responseModal          = 9
)

// flagEphemeral marks a response visible only to the invoking user.
const flagEphemeral = 64

// textInputShort is the single-line text input component (type 4, style 1).
const (
	componentTextInput  = 4
	textInputStyleShort = 1
)

const answerInputID = "captcha_answer"

type interactionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type interactionMember struct {
	User interactionUser `json:"user"`
}

type interactionData struct {
	Name          string                 `json:"name"`
	CustomID      string                 `json:"custom_id"`
	ComponentType int                    `json:"component_type"`
	Values        []string               `json:"values"`
	Components    []interactionComponent `json:"components"`
}

type interactionComponent struct {
	CustomID   string                 `json:"custom_id"`
	Value      string                 `json:"value"`
	Components []interactionComponent `json:"components"`
}

type interaction struct {
	Type      int                `json:"type"`
	GuildID   string             `json:"guild_id"`
	ChannelID string             `json:"channel_id"`
	Member    *interactionMember `json:"member"`
	User      *interactionUser   `json:"user"`
	Data      interactionData    `json:"data"`
}

// userID works for both guild interactions (member.user) and DM
// interactions (user).
func (in interaction) userID() string {
	if in.Member != nil {
		return in.Member.User.ID
	}
	if in.User != nil {
		return in.User.ID
	}
	return ""
}

type interactionResponse struct {
	Type int                      `json:"type"`
	Data *interactionResponseData `json:"data,omitempty"`
}

type interactionResponseData struct {
	Content    string              `json:"content,omitempty"`
	Flags      int                 `json:"flags,omitempty"`
	CustomID   string              `json:"custom_id,omitempty"`
	Title      string              `json:"title,omitempty"`
	Components []responseComponent `json:"components,omitempty"`
}

// responseComponent extends the outbound component shape with the text input
// fields modals need.
type responseComponent struct {
	Type        int                       `json:"type"`
	Style       int                       `json:"style,omitempty"`
	Label       string                    `json:"label,omitempty"`
	CustomID    string                    `json:"custom_id,omitempty"`
	Placeholder string                    `json:"placeholder,omitempty"`
	Required    bool                      `json:"required,omitempty"`
	Options     []discordapi.SelectOption `json:"options,omitempty"`
	Components  []responseComponent       `json:"components,omitempty"`
}

// handleInteractions is the Discord interactions webhook endpoint. Every
// request carries an ed25519 signature over timestamp+body which must verify
// against the application public key before anything is parsed.
func (d Deps) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(d.PublicKey) == 0 {
		http.Error(w, "interactions not configured", http.StatusServiceUnavailable)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !verifySignature(d.PublicKey, r.Header, body) {
		http.Error(w, "invalid request signature", http.StatusUnauthorized)
		return
	}

	var in interaction
	if err := json.Unmarshal(body, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if in.Type == interactionPing {
		writeJSON(w, interactionResponse{Type: responsePong})
		return
	}

	ctx := r.Context()
	var reply bot.Reply
	switch in.Type {
	case interactionCommand:
		reply = d.Dispatcher.HandleCommand(ctx, bot.SlashCommand{
			Name:      in.Data.Name,
			UserID:    in.userID(),
			GuildID:   in.GuildID,
			ChannelID: in.ChannelID,
		})
	case interactionMessageComponent:
		if in.Data.ComponentType == discordapi.ComponentStringSelect {
			reply = d.Dispatcher.HandleSelect(ctx, bot.SelectSubmit{
				CustomID:  in.Data.CustomID,
				UserID:    in.userID(),
				GuildID:   in.GuildID,
				ChannelID: in.ChannelID,
				Values:    in.Data.Values,
			})
		} else {
			reply = d.Dispatcher.HandleButton(ctx, bot.ButtonClick{
				CustomID:  in.Data.CustomID,
				UserID:    in.userID(),
				ChannelID: in.ChannelID,
			})
		}
	case interactionModalSubmit:
		reply = d.Dispatcher.HandleModal(ctx, bot.ModalSubmit{
			CustomID:  in.Data.CustomID,
			UserID:    in.userID(),
			GuildID:   in.GuildID,
			ChannelID: in.ChannelID,
			Value:     modalValue(in.Data.Components),
		})
	default:
		telemetry.LoggerWithCorr(ctx).Debug("unhandled interaction type", slog.Int("type", in.Type))
		writeJSON(w, interactionResponse{Type: responseDeferredUpdate})
		return
	}

	writeJSON(w, renderReply(reply))
}

func verifySignature(key ed25519.PublicKey, h http.Header, body []byte) bool {
	sig, err := hex.DecodeString(h.Get("X-Signature-Ed25519"))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	ts := h.Get("X-Signature-Timestamp")
	if ts == "" {
		return false
	}
	return ed25519.Verify(key, append([]byte(ts), body...), sig)
}

// modalValue digs the first text input value out of the modal's action rows.
func modalValue(rows []interactionComponent) string {
	for _, row := range rows {
		for _, c := range row.Components {
			if c.Value != "" {
				return c.Value
			}
		}
		if row.Value != "" {
			return row.Value
		}
	}
	return ""
}

// renderReply maps the dispatcher's reply onto the interaction response wire
// format. A zero reply becomes a silent ack.
func renderReply(reply bot.Reply) interactionResponse {
	switch {
	case reply.Modal != nil:
		return interactionResponse{
			Type: responseModal,
			Data: &interactionResponseData{
				CustomID: reply.Modal.Token,
				Title:    "Resolva: " + reply.Modal.Question,
				Components: []responseComponent{{
					Type: discordapi.ComponentActionRow,
					Components: []responseComponent{{
						Type:        componentTextInput,
						Style:       textInputStyleShort,
						CustomID:    answerInputID,
						Label:       "Qual o resultado?",
						Placeholder: "Ex: 10",
						Required:    true,
					}},
				}},
			},
		}
	case reply.CategoryMenu:
		options := make([]discordapi.SelectOption, 0, len(ticket.Categories))
		for _, cat := range ticket.Categories {
			options = append(options, discordapi.SelectOption{
				Label:       cat.Emoji + " " + cat.Label,
				Value:       cat.ID,
				Description: cat.Description,
			})
		}
		return interactionResponse{
			Type: responseChannelMessage,
			Data: &interactionResponseData{
				Content: reply.Text,
				Flags:   flagEphemeral,
				Components: []responseComponent{{
					Type: discordapi.ComponentActionRow,
					Components: []responseComponent{{
						Type:        discordapi.ComponentStringSelect,
						CustomID:    bot.CustomIDOpenTicket,
						Placeholder: "Selecione a categoria",
						Options:     options,
					}},
				}},
			},
		}
	case reply.Text != "":
		data := &interactionResponseData{Content: reply.Text}
		if reply.Ephemeral {
			data.Flags = flagEphemeral
		}
		return interactionResponse{Type: responseChannelMessage, Data: data}
	default:
		return interactionResponse{Type: responseDeferredUpdate}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", slog.Any("err", err))
	}
}

func memberJoinToBot(ev memberJoinEvent) bot.MemberJoin {
	return bot.MemberJoin{UserID: ev.UserID, Username: ev.Username, GuildID: ev.GuildID}
}

func messageToBot(ev messageEvent) bot.ChatMessage {
	return bot.ChatMessage{UserID: ev.UserID, ChannelID: ev.ChannelID, Content: ev.Content, IsAdmin: ev.IsAdmin}
}
