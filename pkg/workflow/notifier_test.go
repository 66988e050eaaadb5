package workflow

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestNotifyAccepted(t *testing.T) {
	var gotPath string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer ts.Close()

	n := NewNotifier()
	accepted, err := n.Notify(ts.URL, "wh1", TriggerPayload{
		Content:   "deploy now",
		ChannelID: "c1",
		UserID:    "u1",
		UserName:  "alice",
		MessageID: "m1",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !accepted {
		t.Fatal("2xx response must count as accepted")
	}
	if gotPath != "/webhook/wh1" {
		t.Fatalf("path = %q", gotPath)
	}
	payload := gjson.ParseBytes(gotBody)
	if payload.Get("content").String() != "deploy now" || payload.Get("channelId").String() != "c1" {
		t.Fatalf("payload = %s", gotBody)
	}
}

func TestNotifyRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	n := NewNotifier()
	accepted, err := n.Notify(ts.URL, "wh1", TriggerPayload{Content: "x"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if accepted {
		t.Fatal("non-2xx response must not count as accepted")
	}
}

func TestNotifyUnreachable(t *testing.T) {
	n := NewNotifier()
	if _, err := n.Notify("http://127.0.0.1:1", "wh1", TriggerPayload{}); err == nil {
		t.Fatal("unreachable engine must surface an error")
	}
}
