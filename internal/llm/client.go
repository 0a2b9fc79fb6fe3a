package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/quietloop/mindiary/internal/config"
)

// ErrMissingAPIKey means no API key was configured. Analysis is disabled in
// this state; history and evaluation remain usable.
var ErrMissingAPIKey = errors.New("api key not set")

// UpstreamError wraps a failed or malformed chat-completion exchange. The
// submission that triggered it is abandoned and never retried.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Request is one chat-completion call.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client sends a rendered prompt to the model and returns the raw text of
// the first completion choice.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type OpenAIClient struct {
	api openai.Client
}

// NewOpenAIClient builds a client from explicit provider configuration.
// Retries are disabled: a transient failure surfaces immediately.
func NewOpenAIClient(cfg config.ProviderConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if url := strings.TrimSpace(cfg.BaseURL); url != "" {
		opts = append(opts, option.WithBaseURL(url))
	}

	return &OpenAIClient{api: openai.NewClient(opts...)}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		return "", &UpstreamError{Op: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Op: "chat completion", Err: errors.New("empty choices in response")}
	}
	// Returned verbatim: the run log stores this text unmodified.
	return resp.Choices[0].Message.Content, nil
}
