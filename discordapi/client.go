// Package discordapi is a minimal Discord REST client covering the calls the
// bot makes: ticket channel create/delete, message and embed sends, welcome
// DMs, and the verified role grant. Inbound event delivery (the gateway) is
// not handled here; see the bot and server packages.
package discordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const defaultBaseURL = "https://discord.com/api/v10"

// Discord permission bits used for ticket channel overwrites.
const (
	PermissionViewChannel  = 1 << 10
	PermissionSendMessages = 1 << 11
)

// Overwrite target types.
const (
	OverwriteRole   = 0
	OverwriteMember = 1
)

// ChannelTypeGuildText is the only channel type the bot creates.
const ChannelTypeGuildText = 0

// PermissionOverwrite restricts or grants channel visibility per role/member.
// Allow and Deny are stringified permission bitfields, as the API requires.
type PermissionOverwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"`
	Allow string `json:"allow,omitempty"`
	Deny  string `json:"deny,omitempty"`
}

// ChannelCreate is the request body for guild channel creation.
type ChannelCreate struct {
	Name                 string                `json:"name"`
	Type                 int                   `json:"type"`
	PermissionOverwrites []PermissionOverwrite `json:"permission_overwrites,omitempty"`
}

// Embed is the subset of the embed object the bot renders.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
}

// SelectOption is one entry of a string select menu.
type SelectOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Component is a message component (action row, button, or select menu).
// Fields not relevant to the component type are left zero.
type Component struct {
	Type        int            `json:"type"`
	Style       int            `json:"style,omitempty"`
	Label       string         `json:"label,omitempty"`
	CustomID    string         `json:"custom_id,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
	Components  []Component    `json:"components,omitempty"`
}

// Component type and button style constants (Discord API values).
const (
	ComponentActionRow    = 1
	ComponentButton       = 2
	ComponentStringSelect = 3

	ButtonStyleDanger = 4
)

// Message is an outbound channel message.
type Message struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []Component `json:"components,omitempty"`
}

// Client talks to the Discord REST API with a bot token.
type Client struct {
	Token      string
	HTTPClient *http.Client
	BaseURL    string // override for tests
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord %s %s failed: %s: %s", method, path, resp.Status, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

// CreateGuildChannel creates a channel in a guild and returns its id.
func (c *Client) CreateGuildChannel(ctx context.Context, guildID string, ch ChannelCreate) (string, error) {
	if guildID == "" {
		return "", fmt.Errorf("guildID empty")
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/guilds/"+guildID+"/channels", ch, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("discord channel create returned no id")
	}
	return created.ID, nil
}

// DeleteChannel removes a channel.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("channelID empty")
	}
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID, nil, nil)
}

// SendMessage posts a message to a channel.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg Message) error {
	if channelID == "" {
		return fmt.Errorf("channelID empty")
	}
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", msg, nil)
}

// SendDirectMessage opens (or reuses) the DM channel with a user and sends
// content there. Users with DMs disabled make this fail; callers treat that
// as a delivery failure, not a fault.
func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) error {
	if userID == "" {
		return fmt.Errorf("userID empty")
	}
	var dm struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", map[string]string{"recipient_id": userID}, &dm); err != nil {
		return err
	}
	return c.SendMessage(ctx, dm.ID, Message{Content: content})
}

// AddMemberRole grants a role to a guild member.
func (c *Client) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	if guildID == "" || userID == "" || roleID == "" {
		return fmt.Errorf("guildID, userID and roleID required")
	}
	return c.do(ctx, http.MethodPut, "/guilds/"+guildID+"/members/"+userID+"/roles/"+roleID, nil, nil)
}
