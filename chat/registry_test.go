package chat

import (
	"testing"
	"time"
)

func TestRegistryGet(t *testing.T) {
	r := NewRegistry("", 0)

	c, created := r.Get("")
	if !created || c.ID == "" {
		t.Fatalf("Get(\"\"): created=%v id=%q", created, c.ID)
	}
	again, created := r.Get(c.ID)
	if created || again != c {
		t.Error("Get with a known id should return the same conversation")
	}
	other, created := r.Get("unknown")
	if !created || other.ID == c.ID {
		t.Error("unknown id should start a new conversation")
	}
	if r.Len() != 2 {
		t.Errorf("Len: got %d, want 2", r.Len())
	}

	r.Delete(c.ID)
	if r.Len() != 1 {
		t.Errorf("Len after Delete: got %d, want 1", r.Len())
	}
}

func TestRegistryPrune(t *testing.T) {
	r := NewRegistry("", time.Minute)
	r.Get("")
	r.Get("")

	if n := r.Prune(time.Now()); n != 0 {
		t.Errorf("Prune(now): removed %d, want 0", n)
	}
	if n := r.Prune(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Errorf("Prune(later): removed %d, want 2", n)
	}
}

func TestConversationReset(t *testing.T) {
	c := NewConversation("custom")
	c.Append(Message{Role: RoleUser, Content: "a"})
	c.Append(Message{Role: RoleAssistant, Content: "b"})
	c.Reset()

	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleSystem || msgs[0].Content != "custom" {
		t.Errorf("after Reset: %+v", msgs)
	}
	if len(c.Visible()) != 0 {
		t.Error("Visible should be empty after Reset")
	}
}
