// Package execution tracks running workflow executions and garbage-collects
// their placeholder bindings by polling the engine's execution-status API.
package execution

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/store"
)

const defaultPollInterval = 3 * time.Second

// Tracker registers execution contexts and runs the status-poll loops that
// clean them up.
type Tracker struct {
	executions   *store.ExecutionStore
	placeholders *store.PlaceholderStore

	// PollInterval is the delay between status queries. Tests shorten it.
	PollInterval time.Duration
	// Client performs the status queries.
	Client *http.Client
}

// NewTracker creates a tracker over the given stores.
func NewTracker(executions *store.ExecutionStore, placeholders *store.PlaceholderStore) *Tracker {
	return &Tracker{
		executions:   executions,
		placeholders: placeholders,
		PollInterval: defaultPollInterval,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Register records the conversational context of an execution. When a
// placeholder link and API credentials are supplied it also starts the
// background status poll that removes the placeholder binding and the
// context once the execution is observed finished.
func (t *Tracker) Register(executionID, channelID, userID, placeholderID, apiKey, baseURL string) {
	if executionID == "" || channelID == "" {
		return
	}
	ctx := &store.ExecutionContext{ChannelID: channelID, UserID: userID}
	if placeholderID != "" && apiKey != "" && baseURL != "" {
		ctx.PlaceholderID = placeholderID
	}
	t.executions.Put(executionID, ctx)

	if ctx.PlaceholderID != "" {
		go t.poll(executionID, placeholderID, apiKey, baseURL)
	}
}

// poll queries the status API until the execution stops running, then
// removes the placeholder binding and the execution context. Deleting the
// binding externally stops the loop without cleanup, matching the engine's
// own cancellation path. A failed query counts as finished rather than
// retrying forever.
func (t *Tracker) poll(executionID, placeholderID, apiKey, baseURL string) {
	for {
		if t.stillRunning(executionID, apiKey, baseURL) {
			time.Sleep(t.PollInterval)
			if !t.placeholders.Bound(placeholderID) {
				return
			}
			continue
		}

		t.placeholders.Unbind(placeholderID)
		t.executions.Remove(executionID)
		logger.DebugCF("execution", "Execution finished, context released", map[string]interface{}{
			"executionId": executionID,
		})
		return
	}
}

func (t *Tracker) stillRunning(executionID, apiKey, baseURL string) bool {
	url := fmt.Sprintf("%s/executions/%s", baseURL, executionID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-N8N-API-KEY", apiKey)

	resp, err := t.Client.Do(req)
	if err != nil {
		logger.WarnCF("execution", "Status query failed, treating as finished", map[string]interface{}{
			"executionId": executionID,
			"error":       err.Error(),
		})
		return false
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return false
	}

	finished := gjson.GetBytes(body, "finished")
	stoppedAt := gjson.GetBytes(body, "stoppedAt")
	// stoppedAt must be present and explicitly null; a document without the
	// field counts as finished.
	return finished.Exists() && !finished.Bool() &&
		stoppedAt.Exists() && stoppedAt.Type == gjson.Null
}
