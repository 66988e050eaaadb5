// Package bridge composes the bridge process: it wires platform events to
// trigger evaluation and exposes the protocol operations that workflow
// processes call.
package bridge

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/discord"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/execution"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/ipc"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/message"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/prompt"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/store"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/trigger"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/workflow"
)

// Protocol operation names.
const (
	OpCredentials  = "credentials"
	OpTrigger      = "trigger"
	OpListChannels = "list:channels"
	OpListRoles    = "list:roles"
	OpSendPrompt   = "send:prompt"
	OpSendMessage  = "send:message"
	OpExecution    = "execution"
)

// Bridge owns the wiring between the protocol server, the platform
// connection and the component stack.
type Bridge struct {
	registry    *trigger.Registry
	manager     *discord.Manager
	coordinator *prompt.Coordinator
	tracker     *execution.Tracker
	notifier    *workflow.Notifier

	prompts      *store.PromptStore
	executions   *store.ExecutionStore
	placeholders *store.PlaceholderStore
	loader       *prompt.Loader
}

// New builds a fully wired bridge around a session factory. The factory is
// the only platform-specific input; tests pass fakes.
func New(factory discord.Factory) *Bridge {
	prompts := store.NewPromptStore()
	executions := store.NewExecutionStore()
	placeholders := store.NewPlaceholderStore()

	manager := discord.NewManager(factory)
	tracker := execution.NewTracker(executions, placeholders)
	coordinator := prompt.NewCoordinator(manager, prompts, executions, placeholders, tracker)

	b := &Bridge{
		registry:     trigger.NewRegistry(),
		manager:      manager,
		coordinator:  coordinator,
		tracker:      tracker,
		notifier:     workflow.NewNotifier(),
		prompts:      prompts,
		executions:   executions,
		placeholders: placeholders,
		loader:       prompt.NewLoader(placeholders),
	}

	manager.HandleMessages(b.HandleMessage)
	manager.HandleInteractions(coordinator.HandleInteraction)
	return b
}

// Manager exposes the connection manager (used by cmd for shutdown).
func (b *Bridge) Manager() *discord.Manager { return b.manager }

// Coordinator exposes the prompt coordinator.
func (b *Bridge) Coordinator() *prompt.Coordinator { return b.coordinator }

// Tracker exposes the execution tracker.
func (b *Bridge) Tracker() *execution.Tracker { return b.tracker }

// Registry exposes the trigger registry.
func (b *Bridge) Registry() *trigger.Registry { return b.registry }

// HandleMessage consults the trigger registry for every incoming channel
// message and notifies matching workflows. Each matching trigger runs its
// side effects independently; overlap across triggers is expected.
func (b *Bridge) HandleMessage(ev discord.MessageEvent) {
	if ev.AuthorIsBot {
		return
	}

	triggers := b.registry.Lookup(ev.ChannelID)
	if len(triggers) == 0 {
		return
	}

	normalized := trigger.Normalize(ev.Content)

	botMention := false
	if session, ok := b.manager.Session(); ok {
		botID := session.BotUserID()
		for _, id := range ev.MentionedUserIDs {
			if id == botID && botID != "" {
				botMention = true
				break
			}
		}
	}

	for _, t := range triggers {
		if t.Type != "" && t.Type != "message" {
			continue
		}
		if len(t.RoleIDs) > 0 && !hasAnyRole(ev.AuthorRoles, t.RoleIDs) {
			continue
		}
		if t.BotMention && !botMention {
			continue
		}
		if !t.Matches(normalized) {
			continue
		}

		logger.InfoCF("bridge", "Trigger matched", map[string]interface{}{
			"webhookId": t.WebhookID, "channelId": ev.ChannelID,
		})

		placeholderID := ""
		if t.Placeholder != "" {
			placeholderID = uuid.NewString()
		}
		go b.fireTrigger(t, ev, normalized, placeholderID)
	}
}

// fireTrigger notifies the workflow and, when accepted, posts the
// trigger's placeholder message.
func (b *Bridge) fireTrigger(t *trigger.Compiled, ev discord.MessageEvent, normalized, placeholderID string) {
	baseURL := t.BaseURL
	if baseURL == "" {
		baseURL = b.registry.BaseURL()
	}
	enabled, err := b.notifier.Notify(baseURL, t.WebhookID, workflow.TriggerPayload{
		Content:       normalized,
		ChannelID:     ev.ChannelID,
		UserID:        ev.AuthorID,
		UserName:      ev.AuthorName,
		UserRoles:     ev.AuthorRoles,
		MessageID:     ev.MessageID,
		PlaceholderID: placeholderID,
	})
	if err != nil {
		logger.ErrorCF("bridge", "Workflow notification failed", map[string]interface{}{
			"webhookId": t.WebhookID, "error": err.Error(),
		})
		return
	}
	if !enabled || t.Placeholder == "" {
		return
	}

	session, ok := b.manager.Session()
	if !ok {
		return
	}
	messageID, err := session.Send(ev.ChannelID, message.Outgoing{Content: t.Placeholder})
	if err != nil {
		logger.ErrorCF("bridge", "Placeholder send failed", map[string]interface{}{
			"channelId": ev.ChannelID, "error": err.Error(),
		})
		return
	}
	b.loader.Run(session, ev.ChannelID, messageID, placeholderID, t.Placeholder)
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

// --- protocol operations ---

type credentialsRequest struct {
	Token    string `json:"token"`
	ClientID string `json:"clientId"`
}

type executionRequest struct {
	ExecutionID   string `json:"executionId"`
	ChannelID     string `json:"channelId"`
	UserID        string `json:"userId"`
	PlaceholderID string `json:"placeholderId"`
	APIKey        string `json:"apiKey"`
	BaseURL       string `json:"baseUrl"`
}

// Register attaches every protocol operation to the server.
func (b *Bridge) Register(server *ipc.Server) {
	server.Handle(OpCredentials, b.handleCredentials)
	server.Handle(OpTrigger, b.handleTrigger)
	server.Handle(OpListChannels, b.handleListChannels)
	server.Handle(OpListRoles, b.handleListRoles)
	server.Handle(OpSendPrompt, b.handleSendPrompt)
	server.Handle(OpSendMessage, b.handleSendMessage)
	server.Handle(OpExecution, b.handleExecution)
}

func (b *Bridge) handleCredentials(conn *ipc.Conn, data json.RawMessage) {
	var req credentialsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.Emit(OpCredentials, discord.StatusError)
		return
	}
	// Login blocks on the gateway; answer off the dispatch path.
	go func() {
		status := b.manager.Negotiate(req.Token, req.ClientID)
		conn.Emit(OpCredentials, status)
	}()
}

func (b *Bridge) handleTrigger(_ *ipc.Conn, data json.RawMessage) {
	var t trigger.Trigger
	if err := json.Unmarshal(data, &t); err != nil {
		logger.WarnCF("bridge", "Discarding malformed trigger update", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.InfoCF("bridge", "Trigger update", map[string]interface{}{
		"webhookId": t.WebhookID, "active": t.Active,
	})
	b.registry.Upsert(&t)
}

func (b *Bridge) handleListChannels(conn *ipc.Conn, _ json.RawMessage) {
	list := []discord.NameValue{}
	if session, ok := b.manager.Session(); ok {
		channels, err := session.TextChannels()
		if err != nil {
			logger.ErrorCF("bridge", "Channel listing failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			list = channels
		}
	}
	conn.Emit(OpListChannels, list)
}

func (b *Bridge) handleListRoles(conn *ipc.Conn, _ json.RawMessage) {
	list := []discord.NameValue{}
	if session, ok := b.manager.Session(); ok {
		roles, err := session.Roles()
		if err != nil {
			logger.ErrorCF("bridge", "Role listing failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			list = roles
		}
	}
	conn.Emit(OpListRoles, list)
}

func (b *Bridge) handleSendPrompt(conn *ipc.Conn, data json.RawMessage) {
	var req prompt.Request
	if err := json.Unmarshal(data, &req); err != nil {
		conn.Emit(OpSendPrompt, false)
		return
	}
	// The prompt blocks until resolution or timeout; never on the
	// dispatch path.
	go func() {
		result, err := b.coordinator.SendPrompt(&req)
		if err != nil {
			logger.ErrorCF("bridge", "send:prompt failed", map[string]interface{}{
				"error": err.Error(),
			})
			conn.Emit(OpSendPrompt, false)
			return
		}
		conn.Emit(OpSendPrompt, result)
	}()
}

func (b *Bridge) handleSendMessage(conn *ipc.Conn, data json.RawMessage) {
	var req prompt.MessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.Emit(OpSendMessage, false)
		return
	}
	go func() {
		result, err := b.coordinator.SendMessage(&req)
		if err != nil {
			logger.ErrorCF("bridge", "send:message failed", map[string]interface{}{
				"error": err.Error(),
			})
			conn.Emit(OpSendMessage, false)
			return
		}
		conn.Emit(OpSendMessage, result)
	}()
}

func (b *Bridge) handleExecution(conn *ipc.Conn, data json.RawMessage) {
	// Acknowledge first; registration cannot fail in a way the caller
	// could act on.
	conn.Emit(OpExecution, true)

	var req executionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logger.WarnCF("bridge", "Discarding malformed execution registration", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	b.tracker.Register(req.ExecutionID, req.ChannelID, req.UserID, req.PlaceholderID, req.APIKey, req.BaseURL)
}
