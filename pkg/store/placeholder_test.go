package store

import "testing"

func TestPlaceholderBindings(t *testing.T) {
	s := NewPlaceholderStore()

	s.Bind("p1", "m1")
	if id, ok := s.Message("p1"); !ok || id != "m1" {
		t.Fatalf("Message(p1) = %q, %v", id, ok)
	}
	if !s.Bound("p1") {
		t.Fatal("p1 must be bound")
	}

	s.Unbind("p1")
	if s.Bound("p1") {
		t.Fatal("p1 must be unbound")
	}
	if _, ok := s.Message("p1"); ok {
		t.Fatal("unbound placeholder must have no message")
	}
}

func TestPlaceholderWaitingSurvivesUnbind(t *testing.T) {
	s := NewPlaceholderStore()
	s.Bind("p1", "m1")
	s.SetWaiting("p1", true)

	// Replacement deletes the binding first; the animation still owns the
	// waiting flag until its last edit lands.
	s.Unbind("p1")
	if !s.Waiting("p1") {
		t.Fatal("waiting flag must survive unbind")
	}

	s.SetWaiting("p1", false)
	if s.Waiting("p1") {
		t.Fatal("waiting flag must clear")
	}
}

func TestExecutionStore(t *testing.T) {
	s := NewExecutionStore()
	s.Put("e1", &ExecutionContext{ChannelID: "c1", UserID: "u1"})

	ctx, ok := s.Get("e1")
	if !ok || ctx.ChannelID != "c1" || ctx.UserID != "u1" {
		t.Fatalf("Get(e1) = %+v, %v", ctx, ok)
	}

	s.Remove("e1")
	if _, ok := s.Get("e1"); ok {
		t.Fatal("removed context must be gone")
	}
}
