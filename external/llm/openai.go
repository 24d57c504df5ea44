package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/soapscribe/internal/apperror"
	"github.com/foxseedlab/soapscribe/internal/prompt"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const noteTemperature = 0.2

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type OpenAIGenerator struct {
	client openai.Client
}

func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		requestOpts = append(requestOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAIGenerator{client: openai.NewClient(requestOpts...)}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, model string, messages []prompt.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    toChatMessages(messages),
		Temperature: openai.Float(noteTemperature),
	}
	started := time.Now()
	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", toAppError(err)
	}
	if len(completion.Choices) == 0 {
		return "", apperror.Upstream(http.StatusBadGateway, "", errors.New("text generation returned no choices"))
	}
	slog.Debug("note text generated", "model", model, "elapsed_ms", time.Since(started).Milliseconds(), "completion_tokens", completion.Usage.CompletionTokens)
	return completion.Choices[0].Message.Content, nil
}

func toChatMessages(messages []prompt.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case prompt.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toAppError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apperror.Upstream(apiErr.StatusCode, apiErr.RawJSON(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Upstream(http.StatusGatewayTimeout, "", err)
	}
	return apperror.Upstream(http.StatusBadGateway, "", fmt.Errorf("text generation request: %w", err))
}
