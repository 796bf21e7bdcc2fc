// Package bot routes inbound platform events to the challenge store, ticket
// manager, and outbound Discord calls. The dispatcher is stateless; all
// decisions live in the components it calls. How events are delivered
// (gateway or interactions webhook) and how replies are rendered is the
// caller's concern.
package bot

// Component custom ids, shared with the renderer.
const (
	CustomIDOpenTicket  = "abrir_ticket"
	CustomIDCloseTicket = "fechar"
)

// BroadcastPrefix is the admin-only text command.
const BroadcastPrefix = "!mensagem"

// SlashCommand is a chat input command invocation.
type SlashCommand struct {
	Name      string
	UserID    string
	GuildID   string
	ChannelID string
}

// SelectSubmit is a string select menu submission.
type SelectSubmit struct {
	CustomID  string
	UserID    string
	GuildID   string
	ChannelID string
	Values    []string
}

// ButtonClick is a button press.
type ButtonClick struct {
	CustomID  string
	UserID    string
	ChannelID string
}

// ModalSubmit carries a free-text answer; CustomID correlates it to the
// issued challenge token.
type ModalSubmit struct {
	CustomID  string
	UserID    string
	GuildID   string
	ChannelID string
	Value     string
}

// MemberJoin is a new member arriving in the guild.
type MemberJoin struct {
	UserID   string
	Username string
	GuildID  string
}

// ChatMessage is a plain text message, used only for the broadcast prefix
// command. IsAdmin is the administrative-permission predicate, evaluated by
// the event source which has the member's permission bits.
type ChatMessage struct {
	UserID    string
	ChannelID string
	Content   string
	IsAdmin   bool
}

// ChallengePrompt asks the renderer to show the answer-entry modal for a
// freshly issued challenge.
type ChallengePrompt struct {
	Token    string
	Question string
}

// Reply tells the presentation layer what to render in response to an
// interaction. The zero value means "no visible response".
type Reply struct {
	Text         string
	Ephemeral    bool
	CategoryMenu bool
	Modal        *ChallengePrompt
}

// IsZero reports whether the reply renders nothing.
func (r Reply) IsZero() bool {
	return r.Text == "" && !r.CategoryMenu && r.Modal == nil
}
