package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message roles understood by the chat completion endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSystemPrompt seeds every new conversation.
const DefaultSystemPrompt = "You are a helpful assistant"

// Message is one entry of a conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Model is the model that produced an assistant message. It is not sent
	// to the endpoint.
	Model string `json:"-"`
}

// Conversation is an ordered message log owned by one user. It is safe for
// concurrent use.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	prompt   string
	messages []Message
	touched  time.Time
}

// NewConversation starts a log seeded with systemPrompt, or
// DefaultSystemPrompt when empty.
func NewConversation(systemPrompt string) *Conversation {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	now := time.Now()
	c := &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		prompt:    systemPrompt,
		touched:   now,
	}
	c.messages = []Message{{Role: RoleSystem, Content: systemPrompt}}
	return c
}

func (c *Conversation) Append(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	c.touched = time.Now()
}

// Messages returns a copy of the full log, system messages included.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Visible returns the user and assistant messages, the part shown to a user.
func (c *Conversation) Visible() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of messages, system messages included.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Reset drops everything but the seed system prompt.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = []Message{{Role: RoleSystem, Content: c.prompt}}
	c.touched = time.Now()
}

// LastActive is the time of the last change to the log.
func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}
