package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"llamarural/utils"
)

// ErrNoChoices is returned when the endpoint answers without any choice.
var ErrNoChoices = errors.New("chat: empty completion")

// Completer sends a message list to a model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// Client talks to an OpenAI-compatible /v1/chat/completions endpoint.
// Every call is bounded by Timeout and is never retried.
type Client struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	api    *openai.Client
	logger *utils.Logger
}

// NewClient builds a client for baseURL, the endpoint root without the /v1
// suffix.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *utils.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL + "/v1"
	cfg.HTTPClient = &http.Client{}

	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: timeout,
		api:     openai.NewClientWithConfig(cfg),
		logger:  logger,
	}
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (c *Client) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAI(messages),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat: %s: HTTP %d: %s: %w", model, apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return "", fmt.Errorf("chat: %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	c.logger.Debug("[chat] %s answered in %s", model, time.Since(start).Round(time.Millisecond))
	return resp.Choices[0].Message.Content, nil
}
