// Package chat produces assistant replies through the DeepSeek
// chat-completion API, which speaks the OpenAI wire protocol.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"stockchat/pkg/logger"
	"stockchat/pkg/metrics"
	"stockchat/pkg/models"
)

// ErrCompletionUnavailable is returned for every completion failure.
// Callers surface it to the UI as-is; there is no retry and no streaming.
var ErrCompletionUnavailable = errors.New("chat completion unavailable")

// systemPrompt frames every conversation; the quote window rides in the
// first user turn.
const systemPrompt = "You are a stock market analyst. Your role is to use this data " +
	"to answer questions about the stock"

// Client is a DeepSeek chat-completion client.
type Client struct {
	client    openai.Client
	model     string
	maxTokens int
}

// Options configures a Client.
type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// New creates a chat client.
func New(opts Options) *Client {
	httpClient := &http.Client{Timeout: opts.Timeout}
	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(httpClient),
	)
	return &Client{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

// Complete returns the next assistant message for the given history, or
// ErrCompletionUnavailable. History must be non-empty and end with a user
// turn.
func (c *Client) Complete(ctx context.Context, history []models.Message) (models.Message, error) {
	start := time.Now()
	metrics.ChatCompletionCounter.Inc()

	msg, err := c.complete(ctx, history)
	metrics.ChatCompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChatCompletionErrors.Inc()
		logger.Log.Warn("chat completion failed", zap.Error(err))
		return models.Message{}, err
	}
	return msg, nil
}

func (c *Client) complete(ctx context.Context, history []models.Message) (models.Message, error) {
	if len(history) == 0 {
		return models.Message{}, fmt.Errorf("%w: empty history", ErrCompletionUnavailable)
	}
	if history[len(history)-1].Role != models.RoleUser {
		return models.Message{}, fmt.Errorf("%w: history must end with a user turn", ErrCompletionUnavailable)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, m := range history {
		param, err := toChatMessageParam(m)
		if err != nil {
			return models.Message{}, fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
		}
		messages = append(messages, param)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return models.Message{}, fmt.Errorf("%w: empty response", ErrCompletionUnavailable)
	}

	return models.AssistantMessage(resp.Choices[0].Message.Content), nil
}

func toChatMessageParam(m models.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case models.RoleSystem:
		return openai.SystemMessage(m.Content), nil
	case models.RoleUser:
		return openai.UserMessage(m.Content), nil
	case models.RoleAssistant:
		return openai.AssistantMessage(m.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unsupported role %q", m.Role)
	}
}
