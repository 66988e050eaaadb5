// Package message defines the platform-neutral shape of everything the
// bridge sends to a chat channel. The Discord adapter translates these into
// native payloads; no other package imports the platform SDK for output.
package message

import (
	"fmt"
	"strings"
)

// ComponentKind tags the interactive component variant of a prompt.
type ComponentKind int

const (
	// KindNone means the message carries no interactive components.
	KindNone ComponentKind = iota
	// KindButtons renders a row of buttons.
	KindButtons
	// KindSelect renders a single-select menu.
	KindSelect
)

// Button is one clickable prompt option.
type Button struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Style int    `json:"style"`
}

// SelectOption is one entry of a single-select menu.
type SelectOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
}

// Components is the tagged interactive-component variant. Exactly one of
// Buttons or Options is consulted, selected by Kind.
type Components struct {
	Kind    ComponentKind
	Buttons []Button
	Options []SelectOption
}

// LabelFor returns the display label of the option matching value.
func (c Components) LabelFor(value string) (string, bool) {
	switch c.Kind {
	case KindButtons:
		for _, b := range c.Buttons {
			if b.Value == value {
				return b.Label, true
			}
		}
	case KindSelect:
		for _, o := range c.Options {
			if o.Value == value {
				return o.Label, true
			}
		}
	}
	return "", false
}

// Embed is the declarative rich-content block of an outgoing message.
type Embed struct {
	Title         string       `json:"title,omitempty"`
	URL           string       `json:"url,omitempty"`
	Description   string       `json:"description,omitempty"`
	Color         int          `json:"color,omitempty"`
	Timestamp     string       `json:"timestamp,omitempty"`
	FooterText    string       `json:"footerText,omitempty"`
	FooterIconURL string       `json:"footerIconUrl,omitempty"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	ThumbnailURL  string       `json:"thumbnailUrl,omitempty"`
	AuthorName    string       `json:"authorName,omitempty"`
	AuthorIconURL string       `json:"authorIconUrl,omitempty"`
	AuthorURL     string       `json:"authorUrl,omitempty"`
	Fields        []EmbedField `json:"fields,omitempty"`
}

// EmbedField is one name/value block of an embed. Empty name and value
// render as a spacer field.
type EmbedField struct {
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
	Inline bool   `json:"inline,omitempty"`
}

// Outgoing is a complete outbound message: plain content plus optional
// embed, components and file attachments (by URL).
type Outgoing struct {
	Content    string
	Embed      *Embed
	Components Components
	FileURLs   []string
}

// WithRoleMentions appends role mention markup for each role id to content
// and returns the combined string.
func WithRoleMentions(content string, roleIDs []string) string {
	var b strings.Builder
	b.WriteString(content)
	for _, id := range roleIDs {
		fmt.Fprintf(&b, " <@&%s>", id)
	}
	return b.String()
}

// UserMention returns mention markup for a user id.
func UserMention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
