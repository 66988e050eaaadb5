package bridge

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/discord"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/ipc"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/message"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/trigger"
)

// fakeSession is a connected platform stub for bridge tests.
type fakeSession struct {
	mu   sync.Mutex
	seq  int
	sent []string
}

func (f *fakeSession) Open() error { return nil }

func (f *fakeSession) Close() error { return nil }

func (f *fakeSession) BotUserID() string { return "bot" }

func (f *fakeSession) TextChannels() ([]discord.NameValue, error) {
	return []discord.NameValue{{Name: "general", Value: "c1"}}, nil
}

func (f *fakeSession) Roles() ([]discord.NameValue, error) {
	return []discord.NameValue{{Name: "admin", Value: "r1"}}, nil
}

func (f *fakeSession) Send(channelID string, out message.Outgoing) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.sent = append(f.sent, out.Content)
	return "m1", nil
}

func (f *fakeSession) Edit(string, string, message.Outgoing) error { return nil }

func (f *fakeSession) OnMessage(func(discord.MessageEvent)) {}

func (f *fakeSession) OnInteraction(func(discord.InteractionEvent)) {}

func newConnectedBridge(t *testing.T) *Bridge {
	t.Helper()
	b := New(func(string) (discord.Session, error) { return &fakeSession{}, nil })
	if got := b.Manager().Negotiate("tok", "client"); got != discord.StatusReady {
		t.Fatalf("negotiate = %v", got)
	}
	return b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func messageEvent(channelID, content string) discord.MessageEvent {
	return discord.MessageEvent{
		MessageID:  "msg1",
		ChannelID:  channelID,
		Content:    content,
		AuthorID:   "u1",
		AuthorName: "alice",
	}
}

func TestHandleMessageNotifiesWorkflow(t *testing.T) {
	hits := make(chan []byte, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hits <- body
	}))
	defer ts.Close()

	b := newConnectedBridge(t)
	b.Registry().Upsert(&trigger.Trigger{
		WebhookID:  "wh1",
		ChannelIDs: []string{"c1"},
		Active:     true,
		Pattern:    trigger.PatternContain,
		Value:      "deploy",
		BaseURL:    ts.URL,
	})

	b.HandleMessage(messageEvent("c1", "please DEPLOY now"))

	select {
	case body := <-hits:
		payload := gjson.ParseBytes(body)
		if payload.Get("content").String() != "please deploy now" {
			t.Fatalf("content = %q", payload.Get("content").String())
		}
		if payload.Get("userName").String() != "alice" {
			t.Fatalf("userName = %q", payload.Get("userName").String())
		}
		if payload.Get("placeholderId").String() != "" {
			t.Fatal("no placeholder requested, id must be empty")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("workflow was never notified")
	}
}

func TestHandleMessagePlaceholderFlow(t *testing.T) {
	hits := make(chan []byte, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hits <- body
	}))
	defer ts.Close()

	b := newConnectedBridge(t)
	b.Registry().Upsert(&trigger.Trigger{
		WebhookID:   "wh1",
		ChannelIDs:  []string{"c1"},
		Active:      true,
		Pattern:     trigger.PatternStart,
		Value:       "deploy",
		Placeholder: "Working on it",
		BaseURL:     ts.URL,
	})

	b.HandleMessage(messageEvent("c1", "deploy the api"))

	var placeholderID string
	select {
	case body := <-hits:
		placeholderID = gjson.GetBytes(body, "placeholderId").String()
		if placeholderID == "" {
			t.Fatal("placeholder trigger must announce a placeholder id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("workflow was never notified")
	}

	// The accepted notification posts the placeholder and binds it.
	waitFor(t, "placeholder binding", func() bool {
		return b.placeholders.Bound(placeholderID)
	})
}

func TestHandleMessageFilters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no notification expected")
	}))
	defer ts.Close()

	b := newConnectedBridge(t)
	b.Registry().Upsert(&trigger.Trigger{
		WebhookID:  "wh1",
		ChannelIDs: []string{"c1"},
		Active:     true,
		Pattern:    trigger.PatternEqual,
		Value:      "deploy",
		RoleIDs:    []string{"ops"},
		BaseURL:    ts.URL,
	})

	// Wrong channel.
	b.HandleMessage(messageEvent("c2", "deploy"))
	// Author lacks the required role.
	b.HandleMessage(messageEvent("c1", "deploy"))
	// Bot authors never trigger.
	ev := messageEvent("c1", "deploy")
	ev.AuthorIsBot = true
	ev.AuthorRoles = []string{"ops"}
	b.HandleMessage(ev)

	time.Sleep(50 * time.Millisecond)
}

func TestHandleMessageBotMentionGate(t *testing.T) {
	hits := make(chan struct{}, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
	}))
	defer ts.Close()

	b := newConnectedBridge(t)
	b.Registry().Upsert(&trigger.Trigger{
		WebhookID:  "wh1",
		ChannelIDs: []string{"c1"},
		Active:     true,
		Pattern:    trigger.PatternContain,
		Value:      "status",
		BotMention: true,
		BaseURL:    ts.URL,
	})

	// No mention of the bot: gated out.
	b.HandleMessage(messageEvent("c1", "status please"))
	time.Sleep(50 * time.Millisecond)
	if len(hits) != 0 {
		t.Fatal("unmentioned message must not notify")
	}

	ev := messageEvent("c1", "<@bot> status please")
	ev.MentionedUserIDs = []string{"bot"}
	b.HandleMessage(ev)
	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatal("mentioned message must notify")
	}
}

func startBridgeServer(t *testing.T, b *Bridge) *ipc.Server {
	t.Helper()
	s := ipc.NewServer()
	b.Register(s)
	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestCredentialsOperation(t *testing.T) {
	b := New(func(string) (discord.Session, error) { return &fakeSession{}, nil })
	s := startBridgeServer(t, b)

	c, err := ipc.Dial(s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.Request(OpCredentials, map[string]string{
		"token": "tok", "clientId": "client",
	}, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	var status string
	json.Unmarshal(reply, &status)
	if status != string(discord.StatusReady) {
		t.Fatalf("status = %q, want ready", status)
	}

	// Missing credentials are reported, not swallowed.
	reply, err = c.Request(OpCredentials, map[string]string{"token": "", "clientId": ""}, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	json.Unmarshal(reply, &status)
	if status != string(discord.StatusMissing) {
		t.Fatalf("status = %q, want missing", status)
	}
}

func TestListOperations(t *testing.T) {
	b := New(func(string) (discord.Session, error) { return &fakeSession{}, nil })
	s := startBridgeServer(t, b)

	c, err := ipc.Dial(s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	// Before login both listings answer with an empty list.
	reply, err := c.Request(OpListChannels, nil, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(reply) != "[]" {
		t.Fatalf("channels before login = %s, want []", reply)
	}

	if got := b.Manager().Negotiate("tok", "client"); got != discord.StatusReady {
		t.Fatalf("negotiate = %v", got)
	}

	reply, err = c.Request(OpListChannels, nil, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	channels := gjson.ParseBytes(reply).Array()
	if len(channels) != 1 || channels[0].Get("value").String() != "c1" {
		t.Fatalf("channels = %s", reply)
	}

	reply, err = c.Request(OpListRoles, nil, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	roles := gjson.ParseBytes(reply).Array()
	if len(roles) != 1 || roles[0].Get("name").String() != "admin" {
		t.Fatalf("roles = %s", reply)
	}
}

func TestTriggerOperation(t *testing.T) {
	b := New(func(string) (discord.Session, error) { return &fakeSession{}, nil })
	s := startBridgeServer(t, b)

	c, err := ipc.Dial(s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	err = c.Emit(OpTrigger, trigger.Trigger{
		WebhookID:  "wh1",
		ChannelIDs: []string{"c1"},
		Active:     true,
		Pattern:    trigger.PatternContain,
		Value:      "x",
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	waitFor(t, "trigger registration", func() bool {
		return len(b.Registry().Lookup("c1")) == 1
	})
}

func TestExecutionOperation(t *testing.T) {
	b := New(func(string) (discord.Session, error) { return &fakeSession{}, nil })
	s := startBridgeServer(t, b)

	c, err := ipc.Dial(s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.Request(OpExecution, map[string]string{
		"executionId": "e1", "channelId": "c1", "userId": "u1",
	}, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(reply) != "true" {
		t.Fatalf("ack = %s, want true", reply)
	}

	waitFor(t, "execution context", func() bool {
		ctx, ok := b.executions.Get("e1")
		return ok && ctx.ChannelID == "c1"
	})
}

func TestSendMessageOperation(t *testing.T) {
	b := newConnectedBridge(t)
	s := startBridgeServer(t, b)

	c, err := ipc.Dial(s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.Request(OpSendMessage, map[string]interface{}{
		"content": "hello", "channelId": "c1",
	}, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if gjson.GetBytes(reply, "channelId").String() != "c1" {
		t.Fatalf("reply = %s", reply)
	}
}

func TestSendMessageOperationNotReady(t *testing.T) {
	b := New(func(string) (discord.Session, error) { return &fakeSession{}, nil })
	s := startBridgeServer(t, b)

	c, err := ipc.Dial(s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	reply, err := c.Request(OpSendMessage, map[string]interface{}{
		"content": "hello", "channelId": "c1",
	}, 2*time.Second)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if string(reply) != "false" {
		t.Fatalf("reply = %s, want false", reply)
	}
}
