package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/digkill/TwinBot/internal/config"
)

var ErrEmptyCompletion = errors.New("completion returned no choices")

// Client forwards one chat completion per turn to Groq's OpenAI-compatible API.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int64
	log         *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	api := openai.NewClient(
		option.WithAPIKey(cfg.GroqAPIKey),
		option.WithBaseURL(strings.TrimRight(cfg.GroqBaseURL, "/")+"/"),
		// A failed turn is not retried; the user simply gets no reply.
		option.WithMaxRetries(0),
	)
	return &Client{
		api:         api,
		model:       cfg.LLMModel,
		temperature: cfg.LLMTemperature,
		maxTokens:   int64(cfg.LLMMaxTokens),
		log:         log,
	}
}

// Complete asks the model for a reply in the user's own style and returns the top choice.
func (c *Client) Complete(ctx context.Context, memoryTail, userMessage string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildPrompt(memoryTail, userMessage)),
			openai.UserMessage(userMessage),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}

	start := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	if c.log != nil {
		c.log.Debug("completion finished",
			"model", c.model,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"prompt_tokens", completion.Usage.PromptTokens,
			"completion_tokens", completion.Usage.CompletionTokens,
		)
	}

	return completion.Choices[0].Message.Content, nil
}
