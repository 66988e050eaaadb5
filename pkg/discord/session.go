// Package discord owns the chat-platform connection: the session
// abstraction, its gateway implementation, and the credential-negotiation
// state machine that gates everything else on "ready".
package discord

import "github.com/vanlueckn/n8n-nodes-discord/pkg/message"

// NameValue is a display name / identifier pair, the shape the workflow UI
// expects for channel and role listings.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageEvent is a channel message as seen by trigger evaluation.
type MessageEvent struct {
	MessageID        string
	ChannelID        string
	Content          string
	AuthorID         string
	AuthorName       string
	AuthorIsBot      bool
	AuthorRoles      []string
	MentionedUserIDs []string
}

// InteractionEvent is a button click or select choice on a message.
// Value carries the button's custom id or the selected option value.
type InteractionEvent struct {
	MessageID string
	ChannelID string
	UserID    string
	UserRoles []string
	Value     string

	// ClearComponents acknowledges the interaction by stripping the
	// message's interactive components.
	ClearComponents func() error
	// ReplyEphemeral answers the interacting user privately, used for
	// authorization denials.
	ReplyEphemeral func(content string) error
}

// Session is the narrow surface of the platform connection the bridge
// uses. The gateway implementation wraps the real SDK; tests substitute
// fakes.
type Session interface {
	// Open establishes the gateway connection.
	Open() error
	// Close tears the connection down.
	Close() error
	// BotUserID returns the connected bot's own user id.
	BotUserID() string
	// TextChannels lists the text channels of the primary guild.
	TextChannels() ([]NameValue, error)
	// Roles lists the roles of the primary guild.
	Roles() ([]NameValue, error)
	// Send posts a message and returns the new message's id.
	Send(channelID string, out message.Outgoing) (string, error)
	// Edit rewrites an existing message. Content, embeds and components
	// are all replaced by what out carries; an empty Components clears.
	Edit(channelID, messageID string, out message.Outgoing) error
	// OnMessage registers the handler for incoming channel messages.
	OnMessage(fn func(MessageEvent))
	// OnInteraction registers the handler for component interactions.
	OnInteraction(fn func(InteractionEvent))
}

// Factory builds a Session for a bot token. The manager calls it on every
// successful credential negotiation.
type Factory func(token string) (Session, error)
