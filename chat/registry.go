package chat

import (
	"sync"
	"time"
)

// Registry keeps one conversation per browser session, keyed by the
// conversation id.
type Registry struct {
	mu     sync.Mutex
	convs  map[string]*Conversation
	prompt string
	maxAge time.Duration
}

// NewRegistry creates a registry. Conversations idle for longer than maxAge
// are dropped by Prune; zero keeps them forever.
func NewRegistry(systemPrompt string, maxAge time.Duration) *Registry {
	return &Registry{
		convs:  make(map[string]*Conversation),
		prompt: systemPrompt,
		maxAge: maxAge,
	}
}

// Get returns the conversation for id, creating a new one when id is unknown
// or empty. The second result reports whether a new conversation was made.
func (r *Registry) Get(id string) (*Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.convs[id]; ok && id != "" {
		return c, false
	}
	c := NewConversation(r.prompt)
	r.convs[c.ID] = c
	return c, true
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

// Prune drops idle conversations and returns how many were removed.
func (r *Registry) Prune(now time.Time) int {
	if r.maxAge <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.convs {
		if now.Sub(c.LastActive()) > r.maxAge {
			delete(r.convs, id)
			removed++
		}
	}
	return removed
}
