package chat

import (
	"context"
	"strings"

	"llamarural/utils"
)

// FallbackReply is shown when the answering model fails.
const FallbackReply = "Error: There are not enough tokens to complete it"

const (
	routerPrompt = "Based on the user's last message, determine whether to use 'Llama-3.2-3B' for general responses " +
		"or 'Meta-Llama-3.1-405B' for complex tasks. Please respond with only 'Llama-3.2-3B' or 'Meta-Llama-3.1-405B'."
	locationPrompt = "Analyzes the messages and determines if it requires location data. The question is considered " +
		"connectivity-relevant if it mentions connection issues or if the user is looking for assistance finding a " +
		"nearby location. Answer 'Yes' if the question requires location data and 'No' if it does not."
)

// Reply is the outcome of one assistant turn.
type Reply struct {
	Text         string `json:"reply"`
	Model        string `json:"model"`
	UsedLocation bool   `json:"used_location"`
	Failed       bool   `json:"failed"`
}

// Assistant answers user messages, routing between a small and a large model
// and injecting the last search results when the question needs them.
type Assistant struct {
	completer  Completer
	smallModel string
	largeModel string
	fallback   string
	logger     *utils.Logger
}

func NewAssistant(c Completer, smallModel, largeModel string, logger *utils.Logger) *Assistant {
	return &Assistant{
		completer:  c,
		smallModel: smallModel,
		largeModel: largeModel,
		fallback:   FallbackReply,
		logger:     logger,
	}
}

// WithFallback returns a copy of a that replies with text on model failure.
func (a *Assistant) WithFallback(text string) *Assistant {
	cp := *a
	cp.fallback = text
	return &cp
}

// Reply runs one turn: append userText, pick a model, optionally add the
// location context as a system message, and ask the chosen model. A model
// failure yields the fallback text rather than an error. locationContext is
// called only when the classifier asks for location data.
func (a *Assistant) Reply(ctx context.Context, conv *Conversation, userText string, locationContext func() (string, bool)) Reply {
	conv.Append(Message{Role: RoleUser, Content: userText})

	model := a.chooseModel(ctx, conv.Messages())
	out := Reply{Model: model}

	if a.needsLocation(ctx, conv.Messages()) && locationContext != nil {
		if data, ok := locationContext(); ok {
			conv.Append(Message{Role: RoleSystem, Content: "Location data: \n " + data})
			out.UsedLocation = true
		} else {
			a.logger.Debug("[assistant] Location requested but no cached results")
		}
	}

	text, err := a.completer.Complete(ctx, model, conv.Messages())
	if err != nil {
		a.logger.Warn("[assistant] %v", err)
		text = a.fallback
		out.Failed = true
	}
	out.Text = text
	conv.Append(Message{Role: RoleAssistant, Content: text, Model: model})
	return out
}

func (a *Assistant) chooseModel(ctx context.Context, history []Message) string {
	answer, err := a.classify(ctx, history, routerPrompt)
	if err != nil {
		a.logger.Warn("[assistant] Model routing failed, using %s: %v", a.smallModel, err)
		return a.smallModel
	}
	if strings.Contains(strings.ToLower(answer), "405b") {
		return a.largeModel
	}
	return a.smallModel
}

func (a *Assistant) needsLocation(ctx context.Context, history []Message) bool {
	answer, err := a.classify(ctx, history, locationPrompt)
	if err != nil {
		a.logger.Warn("[assistant] Location check failed: %v", err)
		return false
	}
	return strings.Contains(strings.ToLower(answer), "yes")
}

func (a *Assistant) classify(ctx context.Context, history []Message, instruction string) (string, error) {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleSystem, Content: instruction})
	return a.completer.Complete(ctx, a.smallModel, msgs)
}
