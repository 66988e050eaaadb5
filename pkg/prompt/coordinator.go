package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/discord"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/execution"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/message"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/store"
)

const deniedReply = "You are not allowed to do this"

// SessionProvider yields the current platform session when connected.
// *discord.Manager satisfies it.
type SessionProvider interface {
	Session() (discord.Session, bool)
}

// PromptError is a prompt-delivery failure reported back over the protocol.
type PromptError string

func (e PromptError) Error() string { return string(e) }

const (
	errNotReady         PromptError = "connection not ready"
	errNoChannel        PromptError = "no target channel"
	errNoExecutionMatch PromptError = "no execution context for request"
)

// Coordinator sends prompts and messages and owns their lifecycle.
type Coordinator struct {
	provider     SessionProvider
	prompts      *store.PromptStore
	executions   *store.ExecutionStore
	placeholders *store.PlaceholderStore
	tracker      *execution.Tracker
	loader       *Loader

	// ReplaceInterval and ReplaceAttempts bound the wait for a placeholder
	// that is still being animated before editing over it.
	ReplaceInterval time.Duration
	ReplaceAttempts int
	// RestoreDelay lets the acknowledgement render before the prompt body
	// is rewritten.
	RestoreDelay time.Duration
}

// NewCoordinator wires a coordinator over the shared stores.
func NewCoordinator(
	provider SessionProvider,
	prompts *store.PromptStore,
	executions *store.ExecutionStore,
	placeholders *store.PlaceholderStore,
	tracker *execution.Tracker,
) *Coordinator {
	return &Coordinator{
		provider:        provider,
		prompts:         prompts,
		executions:      executions,
		placeholders:    placeholders,
		tracker:         tracker,
		loader:          NewLoader(placeholders),
		ReplaceInterval: 300 * time.Millisecond,
		ReplaceAttempts: 10,
		RestoreDelay:    time.Second,
	}
}

// resolveChannel picks the target channel: explicit, or derived from the
// execution context when the request says to follow the trigger.
func (c *Coordinator) resolveChannel(channelID, executionID string, fromContext bool) (string, *store.ExecutionContext, error) {
	ctx, _ := c.executions.Get(executionID)
	if fromContext {
		if ctx == nil || ctx.ChannelID == "" {
			return "", nil, errNoExecutionMatch
		}
		return ctx.ChannelID, ctx, nil
	}
	if channelID == "" {
		return "", nil, errNoChannel
	}
	return channelID, ctx, nil
}

// deliver sends out to the channel, or edits the execution's placeholder
// message instead when the request targets it. It returns the id of the
// message now carrying the content.
func (c *Coordinator) deliver(session discord.Session, channelID string, ctx *store.ExecutionContext, usePlaceholder bool, out message.Outgoing) (string, error) {
	if ctx != nil && ctx.PlaceholderID != "" {
		if usePlaceholder {
			if messageID, ok := c.placeholders.Message(ctx.PlaceholderID); ok {
				c.placeholders.Unbind(ctx.PlaceholderID)
				c.awaitPlaceholderSettled(ctx.PlaceholderID)
				if err := session.Edit(channelID, messageID, out); err != nil {
					logger.ErrorCF("prompt", "Placeholder edit failed", map[string]interface{}{
						"messageId": messageID, "error": err.Error(),
					})
					return "", err
				}
				return messageID, nil
			}
		}
		c.placeholders.Unbind(ctx.PlaceholderID)
	}
	return session.Send(channelID, out)
}

// awaitPlaceholderSettled polls the waiting flag at a fixed interval for a
// bounded number of attempts, then proceeds regardless. Best effort, not a
// guarantee.
func (c *Coordinator) awaitPlaceholderSettled(placeholderID string) {
	for attempt := 0; attempt < c.ReplaceAttempts; attempt++ {
		if !c.placeholders.Waiting(placeholderID) {
			return
		}
		time.Sleep(c.ReplaceInterval)
	}
}

// SendPrompt posts an interactive prompt and blocks until it resolves or
// the timeout elapses. The returned result carries an empty value on
// timeout.
func (c *Coordinator) SendPrompt(req *Request) (*Result, error) {
	session, ok := c.provider.Session()
	if !ok {
		return nil, errNotReady
	}

	channelID, ctx, err := c.resolveChannel(req.ChannelID, req.ExecutionID, req.TriggerPlaceholder || req.TriggerChannel)
	if err != nil {
		return nil, err
	}

	content := message.WithRoleMentions(req.Content, req.MentionRoles)
	annotated := content
	if req.Timeout > 0 {
		annotated = fmt.Sprintf("%s (%ds)", content, req.Timeout)
	}
	out := message.Outgoing{Content: annotated, Components: req.components()}

	messageID, err := c.deliver(session, channelID, ctx, req.TriggerPlaceholder, out)
	if err != nil {
		return nil, err
	}
	logger.InfoCF("prompt", "Prompt sent", map[string]interface{}{
		"channelId": channelID, "messageId": messageID,
	})

	pd := &store.PromptData{
		Content:                  req.Content,
		ExecutionID:              req.ExecutionID,
		MentionRoles:             req.MentionRoles,
		RestrictToRoles:          req.RestrictToRoles,
		RestrictToTriggeringUser: req.RestrictToTriggeringUser,
		Components:               req.components(),
	}
	c.prompts.Put(messageID, pd)

	c.await(pd, req.Timeout)

	resolved, ok := c.prompts.Take(messageID)
	if !ok {
		// Cleanup already happened on the other path.
		return &Result{Content: req.Content}, nil
	}
	if !resolved.Resolved() {
		// Timed out: put the prompt body back without components.
		if err := session.Edit(channelID, messageID, message.Outgoing{Content: req.Content}); err != nil {
			logger.WarnCF("prompt", "Timeout restore failed", map[string]interface{}{
				"messageId": messageID, "error": err.Error(),
			})
		}
	}

	if req.Placeholder != "" {
		go c.placeholderFollowUp(session, channelID, req)
	}

	return &Result{
		Value:     resolved.Value,
		UserID:    resolved.UserID,
		ChannelID: resolved.ChannelID,
		Content:   resolved.Content,
	}, nil
}

func (c *Coordinator) await(pd *store.PromptData, timeoutSeconds int) {
	if timeoutSeconds <= 0 {
		<-pd.Done()
		return
	}
	timer := time.NewTimer(time.Duration(timeoutSeconds) * time.Second)
	defer timer.Stop()
	select {
	case <-pd.Done():
	case <-timer.C:
	}
}

// placeholderFollowUp posts a fresh loading message for the remainder of
// the workflow run and re-registers the execution against it.
func (c *Coordinator) placeholderFollowUp(session discord.Session, channelID string, req *Request) {
	messageID, err := session.Send(channelID, message.Outgoing{Content: req.Placeholder})
	if err != nil {
		logger.ErrorCF("prompt", "Placeholder send failed", map[string]interface{}{
			"channelId": channelID, "error": err.Error(),
		})
		return
	}
	c.tracker.Register(req.ExecutionID, channelID, "", messageID, req.APIKey, req.BaseURL)
	c.loader.Run(session, channelID, messageID, messageID, req.Placeholder)
}

// HandleInteraction is the resolution path for incoming component
// interactions. Unknown messages are ignored; unauthorized users get an
// ephemeral denial; the first valid interaction wins.
func (c *Coordinator) HandleInteraction(ev discord.InteractionEvent) {
	pd, ok := c.prompts.Get(ev.MessageID)
	if !ok {
		return
	}

	if pd.RestrictToRoles && !hasAnyRole(ev.UserRoles, pd.MentionRoles) {
		c.deny(ev)
		return
	}
	if pd.RestrictToTriggeringUser {
		if ctx, ok := c.executions.Get(pd.ExecutionID); ok && ctx.UserID != "" && ctx.UserID != ev.UserID {
			c.deny(ev)
			return
		}
	}

	resolved, ok := c.prompts.Resolve(ev.MessageID, ev.Value, ev.UserID, ev.ChannelID)
	if !ok {
		// Already resolved by an earlier interaction.
		return
	}

	label, _ := resolved.Components.LabelFor(ev.Value)
	logger.InfoCF("prompt", "Prompt resolved", map[string]interface{}{
		"messageId": ev.MessageID, "label": label,
	})

	if ev.ClearComponents != nil {
		if err := ev.ClearComponents(); err != nil {
			logger.WarnCF("prompt", "Component clear failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	session, ok := c.provider.Session()
	if !ok {
		return
	}
	ack := message.UserMention(ev.UserID) + ": " + label
	if _, err := session.Send(ev.ChannelID, message.Outgoing{Content: ack}); err != nil {
		logger.WarnCF("prompt", "Acknowledgement send failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	content := resolved.Content
	messageID := ev.MessageID
	channelID := ev.ChannelID
	time.AfterFunc(c.RestoreDelay, func() {
		if err := session.Edit(channelID, messageID, message.Outgoing{Content: content}); err != nil {
			logger.WarnCF("prompt", "Prompt restore failed", map[string]interface{}{
				"messageId": messageID, "error": err.Error(),
			})
		}
	})
}

func (c *Coordinator) deny(ev discord.InteractionEvent) {
	if ev.ReplyEphemeral == nil {
		return
	}
	if err := ev.ReplyEphemeral(deniedReply); err != nil {
		logger.WarnCF("prompt", "Denial reply failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func hasAnyRole(userRoles, wanted []string) bool {
	for _, w := range wanted {
		for _, r := range userRoles {
			if r == w {
				return true
			}
		}
	}
	return false
}

// SendMessage delivers a non-interactive message, honoring the same
// channel derivation and placeholder replacement as prompts.
func (c *Coordinator) SendMessage(req *MessageRequest) (*MessageResult, error) {
	session, ok := c.provider.Session()
	if !ok {
		return nil, errNotReady
	}

	channelID, ctx, err := c.resolveChannel(req.ChannelID, req.ExecutionID, req.TriggerPlaceholder || req.TriggerChannel)
	if err != nil {
		return nil, err
	}

	out := message.Outgoing{
		Content:  message.WithRoleMentions(req.Content, req.MentionRoles),
		FileURLs: req.Files,
	}
	if req.Embed {
		out.Embed = buildEmbed(req)
	}

	if _, err := c.deliver(session, channelID, ctx, req.TriggerPlaceholder, out); err != nil {
		return nil, err
	}
	logger.InfoCF("prompt", "Message sent", map[string]interface{}{
		"channelId": channelID,
	})
	return &MessageResult{ChannelID: channelID}, nil
}

func buildEmbed(req *MessageRequest) *message.Embed {
	return &message.Embed{
		Title:         req.Title,
		URL:           req.URL,
		Description:   req.Description,
		Color:         parseColor(req.Color),
		Timestamp:     req.Timestamp,
		FooterText:    req.FooterText,
		FooterIconURL: req.FooterIconURL,
		ImageURL:      req.ImageURL,
		ThumbnailURL:  req.ThumbnailURL,
		AuthorName:    req.AuthorName,
		AuthorIconURL: req.AuthorIconURL,
		AuthorURL:     req.AuthorURL,
		Fields:        req.Fields,
	}
}

// parseColor accepts "#RRGGBB", "RRGGBB" or a decimal string.
func parseColor(color string) int {
	if color == "" {
		return 0
	}
	if strings.HasPrefix(color, "#") {
		if v, err := strconv.ParseInt(color[1:], 16, 32); err == nil {
			return int(v)
		}
		return 0
	}
	if v, err := strconv.Atoi(color); err == nil {
		return v
	}
	if v, err := strconv.ParseInt(color, 16, 32); err == nil {
		return int(v)
	}
	return 0
}
