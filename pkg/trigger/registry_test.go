package trigger

import "testing"

func activeTrigger(id string, channels ...string) *Trigger {
	return &Trigger{
		WebhookID:  id,
		ChannelIDs: channels,
		Active:     true,
		Pattern:    PatternContain,
		Value:      "x",
	}
}

func lookupIDs(r *Registry, channelID string) []string {
	var ids []string
	for _, t := range r.Lookup(channelID) {
		ids = append(ids, t.WebhookID)
	}
	return ids
}

func TestRegistryIndexConsistency(t *testing.T) {
	r := NewRegistry()

	r.Upsert(activeTrigger("a", "c1", "c2"))
	r.Upsert(activeTrigger("b", "c1"))

	if got := lookupIDs(r, "c1"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("c1 index = %v, want [a b]", got)
	}
	if got := lookupIDs(r, "c2"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("c2 index = %v, want [a]", got)
	}
	if got := r.Lookup("c3"); len(got) != 0 {
		t.Fatalf("c3 index = %v, want empty", got)
	}
}

func TestRegistryDeactivation(t *testing.T) {
	r := NewRegistry()
	r.Upsert(activeTrigger("a", "c1"))
	r.Upsert(activeTrigger("b", "c1"))

	deactivated := activeTrigger("a", "c1")
	deactivated.Active = false
	r.Upsert(deactivated)

	if got := lookupIDs(r, "c1"); len(got) != 1 || got[0] != "b" {
		t.Fatalf("after deactivation c1 = %v, want [b]", got)
	}

	// Reactivation restores the original registration order.
	reactivated := activeTrigger("a", "c1")
	r.Upsert(reactivated)
	if got := lookupIDs(r, "c1"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("after reactivation c1 = %v, want [a b]", got)
	}
}

func TestRegistryWholesaleReplacement(t *testing.T) {
	r := NewRegistry()
	r.Upsert(activeTrigger("a", "c1"))

	moved := activeTrigger("a", "c2")
	r.Upsert(moved)

	if got := r.Lookup("c1"); len(got) != 0 {
		t.Fatalf("c1 still indexed after channel move: %v", got)
	}
	if got := lookupIDs(r, "c2"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("c2 index = %v, want [a]", got)
	}
	if r.Len() != 1 {
		t.Fatalf("trigger count = %d, want 1", r.Len())
	}
}

func TestRegistryInvalidRegexTriggerIsInert(t *testing.T) {
	r := NewRegistry()
	r.Upsert(&Trigger{
		WebhookID:  "bad",
		ChannelIDs: []string{"c1"},
		Active:     true,
		Pattern:    PatternRegex,
		Value:      "([",
	})

	triggers := r.Lookup("c1")
	if len(triggers) != 1 {
		t.Fatalf("invalid-regex trigger must stay indexed, got %d", len(triggers))
	}
	if triggers[0].Matches("([") {
		t.Fatal("invalid-regex trigger must never match")
	}
}

func TestRegistryBaseURL(t *testing.T) {
	r := NewRegistry()
	trig := activeTrigger("a", "c1")
	trig.BaseURL = "http://localhost:5678"
	r.Upsert(trig)

	if got := r.BaseURL(); got != "http://localhost:5678" {
		t.Fatalf("BaseURL = %q", got)
	}
}
