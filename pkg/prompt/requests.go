// Package prompt sends interactive prompts and rich messages, waits for
// interaction resolutions, and runs the placeholder-substitution protocol.
package prompt

import (
	"github.com/vanlueckn/n8n-nodes-discord/pkg/message"
)

// Request is the send:prompt payload from a workflow process. Buttons and
// Select are mutually exclusive; whichever is non-empty selects the
// component variant.
type Request struct {
	Content     string `json:"content"`
	ChannelID   string `json:"channelId"`
	ExecutionID string `json:"executionId"`
	// Timeout is the wait bound in seconds. Zero waits indefinitely.
	Timeout int `json:"timeout"`

	MentionRoles             []string `json:"mentionRoles"`
	RestrictToRoles          bool     `json:"restrictToRoles"`
	RestrictToTriggeringUser bool     `json:"restrictToTriggeringUser"`

	// TriggerChannel and TriggerPlaceholder derive the target channel from
	// the execution context; TriggerPlaceholder additionally replaces the
	// execution's placeholder message instead of sending a new one.
	TriggerChannel     bool `json:"triggerChannel"`
	TriggerPlaceholder bool `json:"triggerPlaceholder"`

	// Placeholder, when set, posts a fresh loading message after the
	// prompt resolves, for the remainder of the workflow run.
	Placeholder string `json:"placeholder"`
	APIKey      string `json:"apiKey"`
	BaseURL     string `json:"baseUrl"`

	Buttons []message.Button       `json:"buttons,omitempty"`
	Select  []message.SelectOption `json:"select,omitempty"`
}

// components builds the tagged component variant for the request.
func (r *Request) components() message.Components {
	if len(r.Buttons) > 0 {
		return message.Components{Kind: message.KindButtons, Buttons: r.Buttons}
	}
	return message.Components{Kind: message.KindSelect, Options: r.Select}
}

// Result is the resolved outcome of a prompt, reported back to the caller.
// Value stays empty when the wait timed out.
type Result struct {
	Value     string `json:"value"`
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

// MessageRequest is the send:message payload: plain content plus a
// declarative embed and attachments.
type MessageRequest struct {
	Content     string `json:"content"`
	ChannelID   string `json:"channelId"`
	ExecutionID string `json:"executionId"`

	MentionRoles       []string `json:"mentionRoles"`
	TriggerChannel     bool     `json:"triggerChannel"`
	TriggerPlaceholder bool     `json:"triggerPlaceholder"`

	Embed         bool                 `json:"embed"`
	Title         string               `json:"title"`
	URL           string               `json:"url"`
	Description   string               `json:"description"`
	Color         string               `json:"color"`
	Timestamp     string               `json:"timestamp"`
	FooterText    string               `json:"footerText"`
	FooterIconURL string               `json:"footerIconUrl"`
	ImageURL      string               `json:"imageUrl"`
	ThumbnailURL  string               `json:"thumbnailUrl"`
	AuthorName    string               `json:"authorName"`
	AuthorIconURL string               `json:"authorIconUrl"`
	AuthorURL     string               `json:"authorUrl"`
	Fields        []message.EmbedField `json:"fields,omitempty"`
	Files         []string             `json:"files,omitempty"`
}

// MessageResult acknowledges a delivered message.
type MessageResult struct {
	ChannelID string `json:"channelId"`
}
