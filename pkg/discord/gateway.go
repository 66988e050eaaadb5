package discord

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/message"
)

// Gateway is the discordgo-backed Session implementation.
type Gateway struct {
	session       *discordgo.Session
	onMessage     func(MessageEvent)
	onInteraction func(InteractionEvent)
}

var _ Session = (*Gateway)(nil)

// NewGateway creates a Session for a bot token. It satisfies Factory.
func NewGateway(token string) (Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	g := &Gateway{session: s}

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.InfoCF("gateway", "Logged in", map[string]interface{}{
			"user": r.User.Username,
		})
	})
	s.AddHandler(g.handleMessageCreate)
	s.AddHandler(g.handleInteractionCreate)

	return g, nil
}

// Open establishes the gateway connection.
func (g *Gateway) Open() error { return g.session.Open() }

// Close tears the connection down.
func (g *Gateway) Close() error { return g.session.Close() }

// BotUserID returns the connected bot's own user id.
func (g *Gateway) BotUserID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

// guildID returns the primary (first) guild the bot is connected to.
func (g *Gateway) guildID() (string, error) {
	if g.session.State == nil || len(g.session.State.Guilds) == 0 {
		return "", fmt.Errorf("no guild available")
	}
	return g.session.State.Guilds[0].ID, nil
}

// TextChannels lists the text channels of the primary guild.
func (g *Gateway) TextChannels() ([]NameValue, error) {
	guildID, err := g.guildID()
	if err != nil {
		return nil, err
	}
	channels, err := g.session.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	list := make([]NameValue, 0, len(channels))
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		list = append(list, NameValue{Name: ch.Name, Value: ch.ID})
	}
	return list, nil
}

// Roles lists the roles of the primary guild.
func (g *Gateway) Roles() ([]NameValue, error) {
	guildID, err := g.guildID()
	if err != nil {
		return nil, err
	}
	roles, err := g.session.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	list := make([]NameValue, 0, len(roles))
	for _, role := range roles {
		list = append(list, NameValue{Name: role.Name, Value: role.ID})
	}
	return list, nil
}

// Send posts a message and returns the new message's id.
func (g *Gateway) Send(channelID string, out message.Outgoing) (string, error) {
	send := &discordgo.MessageSend{Content: out.Content}
	if out.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{toEmbed(out.Embed)}
	}
	if row := toComponentRow(out.Components); row != nil {
		send.Components = []discordgo.MessageComponent{row}
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, url := range out.FileURLs {
		resp, err := http.Get(url)
		if err != nil {
			logger.WarnCF("gateway", "Attachment fetch failed", map[string]interface{}{
				"url": url, "error": err.Error(),
			})
			continue
		}
		closers = append(closers, resp.Body)
		send.Files = append(send.Files, &discordgo.File{
			Name:   path.Base(url),
			Reader: resp.Body,
		})
	}

	msg, err := g.session.ChannelMessageSendComplex(channelID, send)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return msg.ID, nil
}

// Edit rewrites an existing message, replacing content, embeds and
// components with what out carries.
func (g *Gateway) Edit(channelID, messageID string, out message.Outgoing) error {
	content := out.Content
	embeds := []*discordgo.MessageEmbed{}
	if out.Embed != nil {
		embeds = append(embeds, toEmbed(out.Embed))
	}
	components := []discordgo.MessageComponent{}
	if row := toComponentRow(out.Components); row != nil {
		components = append(components, row)
	}

	_, err := g.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// OnMessage registers the handler for incoming channel messages.
func (g *Gateway) OnMessage(fn func(MessageEvent)) { g.onMessage = fn }

// OnInteraction registers the handler for component interactions.
func (g *Gateway) OnInteraction(fn func(InteractionEvent)) { g.onInteraction = fn }

func (g *Gateway) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if g.onMessage == nil || m.Author == nil {
		return
	}
	ev := MessageEvent{
		MessageID:   m.ID,
		ChannelID:   m.ChannelID,
		Content:     m.Content,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		AuthorIsBot: m.Author.Bot,
	}
	if m.Member != nil {
		ev.AuthorRoles = m.Member.Roles
	}
	for _, u := range m.Mentions {
		ev.MentionedUserIDs = append(ev.MentionedUserIDs, u.ID)
	}
	g.onMessage(ev)
}

func (g *Gateway) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if g.onInteraction == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}
	data := i.MessageComponentData()

	value := data.CustomID
	if data.ComponentType == discordgo.SelectMenuComponent && len(data.Values) > 0 {
		value = data.Values[0]
	}

	ev := InteractionEvent{
		ChannelID: i.ChannelID,
		Value:     value,
	}
	if i.Message != nil {
		ev.MessageID = i.Message.ID
	}
	if i.Member != nil {
		ev.UserRoles = i.Member.Roles
		if i.Member.User != nil {
			ev.UserID = i.Member.User.ID
		}
	} else if i.User != nil {
		ev.UserID = i.User.ID
	}

	interaction := i.Interaction
	ev.ClearComponents = func() error {
		return s.InteractionRespond(interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Components: []discordgo.MessageComponent{},
			},
		})
	}
	ev.ReplyEphemeral = func(content string) error {
		return s.InteractionRespond(interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
	}

	g.onInteraction(ev)
}

// --- payload translation ---

func toComponentRow(c message.Components) discordgo.MessageComponent {
	switch c.Kind {
	case message.KindButtons:
		row := discordgo.ActionsRow{}
		for _, b := range c.Buttons {
			style := discordgo.ButtonStyle(b.Style)
			if b.Style == 0 {
				style = discordgo.PrimaryButton
			}
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    style,
				CustomID: b.Value,
			})
		}
		return row
	case message.KindSelect:
		options := make([]discordgo.SelectMenuOption, 0, len(c.Options))
		for _, o := range c.Options {
			options = append(options, discordgo.SelectMenuOption{
				Label:       o.Label,
				Description: o.Description,
				Value:       o.Value,
			})
		}
		return discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    "select",
					Placeholder: "Nothing selected",
					Options:     options,
				},
			},
		}
	default:
		return nil
	}
}

func toEmbed(e *message.Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			embed.Timestamp = ts.Format(time.RFC3339)
		}
	}
	if e.FooterText != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    e.FooterText,
			IconURL: e.FooterIconURL,
		}
	}
	if e.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if e.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	if e.AuthorName != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    e.AuthorName,
			IconURL: e.AuthorIconURL,
			URL:     e.AuthorURL,
		}
	}
	for _, f := range e.Fields {
		field := &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		}
		if field.Name == "" && field.Value == "" {
			// zero-width space renders an empty spacer field
			field.Name = "​"
			field.Value = "​"
		}
		embed.Fields = append(embed.Fields, field)
	}
	return embed
}
