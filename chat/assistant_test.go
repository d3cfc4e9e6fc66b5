package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"llamarural/utils"
)

// scriptedCompleter answers the router, the location check and the final
// call from fixed strings and records every call.
type scriptedCompleter struct {
	mu       sync.Mutex
	route    string
	location string
	answer   string
	fail     bool
	calls    []string
	last     []Message
}

func (s *scriptedCompleter) Complete(_ context.Context, model string, msgs []Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, model)

	instr := msgs[len(msgs)-1].Content
	switch {
	case instr == routerPrompt:
		return s.route, nil
	case instr == locationPrompt:
		return s.location, nil
	}
	s.last = msgs
	if s.fail {
		return "", errors.New("quota exceeded")
	}
	return s.answer, nil
}

func newAssistant(c Completer) *Assistant {
	return NewAssistant(c, "small", "large", utils.Discard())
}

func TestAssistantRoutesToLargeModel(t *testing.T) {
	sc := &scriptedCompleter{route: "Meta-Llama-3.1-405B", location: "No", answer: "done"}
	conv := NewConversation("")

	r := newAssistant(sc).Reply(context.Background(), conv, "prove Fermat", nil)
	if r.Model != "large" {
		t.Errorf("Model: got %q, want large", r.Model)
	}
	if r.Text != "done" || r.Failed {
		t.Errorf("reply: %+v", r)
	}
	if sc.calls[0] != "small" || sc.calls[1] != "small" || sc.calls[2] != "large" {
		t.Errorf("calls: got %v", sc.calls)
	}

	visible := conv.Visible()
	if len(visible) != 2 || visible[0].Role != RoleUser || visible[1].Content != "done" {
		t.Errorf("visible log: %+v", visible)
	}
}

func TestAssistantInjectsLocation(t *testing.T) {
	sc := &scriptedCompleter{route: "Llama-3.2-3B", location: "Yes.", answer: "use ENTEL"}
	conv := NewConversation("")

	r := newAssistant(sc).Reply(context.Background(), conv, "which operator works here?", func() (string, bool) {
		return `[{"locality": "IMPERIAL"}]`, true
	})
	if !r.UsedLocation || r.Model != "small" {
		t.Errorf("reply: %+v", r)
	}

	var found bool
	for _, m := range sc.last {
		if m.Role == RoleSystem && strings.HasPrefix(m.Content, "Location data: \n ") && strings.Contains(m.Content, "IMPERIAL") {
			found = true
		}
	}
	if !found {
		t.Errorf("location context not sent: %+v", sc.last)
	}
}

func TestAssistantSkipsAbsentLocation(t *testing.T) {
	sc := &scriptedCompleter{route: "x", location: "yes", answer: "ok"}
	conv := NewConversation("")

	r := newAssistant(sc).Reply(context.Background(), conv, "near me?", func() (string, bool) { return "", false })
	if r.UsedLocation {
		t.Error("UsedLocation should be false without cached results")
	}
	if conv.Len() != 3 {
		t.Errorf("Len: got %d, want 3", conv.Len())
	}
}

func TestAssistantFailureYieldsFallback(t *testing.T) {
	sc := &scriptedCompleter{route: "x", location: "no", fail: true}
	conv := NewConversation("")

	r := newAssistant(sc).Reply(context.Background(), conv, "hi", nil)
	if !r.Failed || r.Text != FallbackReply {
		t.Errorf("reply: %+v", r)
	}
	if len(sc.calls) != 3 {
		t.Errorf("calls: got %d, want 3 (no retry)", len(sc.calls))
	}

	r = newAssistant(sc).WithFallback("Error: sin tokens").Reply(context.Background(), conv, "hola", nil)
	if r.Text != "Error: sin tokens" {
		t.Errorf("localised fallback: got %q", r.Text)
	}
}

type brokenCompleter struct{}

func (brokenCompleter) Complete(context.Context, string, []Message) (string, error) {
	return "", errors.New("down")
}

func TestAssistantClassifierFailureFallsBackToSmall(t *testing.T) {
	r := newAssistant(brokenCompleter{}).Reply(context.Background(), NewConversation(""), "hi", func() (string, bool) {
		t.Error("location context should not be read")
		return "", false
	})
	if r.Model != "small" || r.UsedLocation || !r.Failed {
		t.Errorf("reply: %+v", r)
	}
}
