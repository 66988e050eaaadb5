// Package workflow is the bridge's client side of the workflow engine's
// HTTP surface: webhook notification on trigger match.
package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
)

// TriggerPayload is the message context delivered to a trigger's webhook.
// PlaceholderID is echoed back by the workflow when it registers its
// execution, linking the execution to the loading message.
type TriggerPayload struct {
	Content       string   `json:"content"`
	ChannelID     string   `json:"channelId"`
	UserID        string   `json:"userId"`
	UserName      string   `json:"userName"`
	UserRoles     []string `json:"userRoles,omitempty"`
	MessageID     string   `json:"messageId"`
	PlaceholderID string   `json:"placeholderId,omitempty"`
}

// Notifier posts trigger notifications to the workflow engine.
type Notifier struct {
	client *http.Client
}

// NewNotifier creates a notifier with a bounded request timeout.
func NewNotifier() *Notifier {
	return &Notifier{client: &http.Client{Timeout: 10 * time.Second}}
}

// Notify delivers a trigger payload to {baseURL}/webhook/{webhookID}.
// It returns true when the workflow accepted the notification, meaning the
// trigger workflow is enabled and a placeholder may be posted.
func (n *Notifier) Notify(baseURL, webhookID string, payload TriggerPayload) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/webhook/%s", baseURL, webhookID)
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WarnCF("workflow", "Webhook rejected", map[string]interface{}{
			"webhookId": webhookID,
			"status":    resp.StatusCode,
		})
		return false, nil
	}
	return true, nil
}
