package trigger

import (
	"regexp"
	"sync"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
)

// Compiled pairs a trigger with its precompiled evaluation regexp.
// re is nil when the trigger's regex failed to compile; such a trigger is
// inert and never matches.
type Compiled struct {
	*Trigger
	re *regexp.Regexp
}

// Matches reports whether the normalized text satisfies this trigger.
func (c *Compiled) Matches(text string) bool {
	if c.re == nil {
		logger.WarnCF("trigger", "Skipping trigger with invalid regex", map[string]interface{}{
			"webhookId": c.WebhookID,
		})
		return false
	}
	return c.re.MatchString(text)
}

// Registry holds the current trigger set and its derived channel index.
// The index is recomputed from scratch on every update; correctness over
// incremental-update cleverness.
type Registry struct {
	mu       sync.RWMutex
	triggers map[string]*Compiled
	order    []string
	channels map[string][]*Compiled
	baseURL  string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		triggers: make(map[string]*Compiled),
		channels: make(map[string][]*Compiled),
	}
}

// Upsert replaces the entry for the trigger's webhook id and rebuilds the
// whole channel index. Triggers keep their original registration order
// across replacements.
func (r *Registry) Upsert(t *Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	re, err := Compile(t.Pattern, t.Value, t.CaseSensitive)
	if err != nil {
		logger.ErrorCF("trigger", "Trigger regex failed to compile", map[string]interface{}{
			"webhookId": t.WebhookID,
			"error":     err.Error(),
		})
		re = nil
	}

	if _, known := r.triggers[t.WebhookID]; !known {
		r.order = append(r.order, t.WebhookID)
	}
	r.triggers[t.WebhookID] = &Compiled{Trigger: t, re: re}
	if t.BaseURL != "" {
		r.baseURL = t.BaseURL
	}

	r.channels = make(map[string][]*Compiled)
	for _, id := range r.order {
		ct := r.triggers[id]
		if !ct.Active {
			continue
		}
		for _, channelID := range ct.ChannelIDs {
			r.channels[channelID] = append(r.channels[channelID], ct)
		}
	}
}

// Lookup returns the active triggers indexed for a channel, in registration
// order. The returned slice must not be mutated.
func (r *Registry) Lookup(channelID string) []*Compiled {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[channelID]
}

// BaseURL returns the workflow-engine base URL carried by the most recent
// trigger update.
func (r *Registry) BaseURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseURL
}

// Len returns the number of registered triggers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.triggers)
}
