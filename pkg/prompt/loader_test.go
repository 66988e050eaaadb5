package prompt

import (
	"testing"
	"time"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/store"
)

func TestLoaderAnimatesAllFrames(t *testing.T) {
	session := &recordingSession{}
	placeholders := store.NewPlaceholderStore()
	l := NewLoader(placeholders)
	l.FrameDelay = time.Millisecond

	l.Run(session, "c1", "m1", "p1", "Working")

	if got := session.editCount(); got != 3 {
		t.Fatalf("edits = %d, want one per frame", got)
	}
	if got := session.edit(2).out.Content; got != "Working . . ." {
		t.Fatalf("last frame = %q", got)
	}
	if placeholders.Waiting("p1") {
		t.Fatal("waiting flag must clear when the animation ends")
	}
	if !placeholders.Bound("p1") {
		t.Fatal("binding must outlive the animation for the replacement edit")
	}
}

func TestLoaderStopsWhenUnbound(t *testing.T) {
	session := &recordingSession{}
	placeholders := store.NewPlaceholderStore()
	l := NewLoader(placeholders)
	l.FrameDelay = 20 * time.Millisecond

	done := make(chan struct{})
	go func() {
		l.Run(session, "c1", "m1", "p1", "Working")
		close(done)
	}()

	waitFor(t, "binding", func() bool { return placeholders.Bound("p1") })
	placeholders.Unbind("p1")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("animation must stop once the binding is gone")
	}
	if placeholders.Waiting("p1") {
		t.Fatal("waiting flag must clear on early stop")
	}
}
