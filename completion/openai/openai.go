// Package openai implements completion.Client on the OpenAI Chat
// Completions API using the official SDK.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chronicler-ai/chronicler/completion"
)

// Options configure the OpenAI completion adapter. Fields mirror a
// minimal subset of Chat Completion parameters; extend via functional
// options without breaking callers.
type Options struct {
	// APIKey overrides the key from the environment when non-empty.
	APIKey              string
	Model               string
	MaxCompletionTokens int64
}

// Client wraps the OpenAI Chat Completions API behind completion.Client.
type Client struct {
	client *openai.Client
	opts   Options
}

// New creates an adapter with its own SDK client. The API key comes
// from Options.APIKey, falling back to the environment.
func New(optFns ...func(o *Options)) *Client {
	opts := defaultOptions(optFns)
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	c := openai.NewClient(reqOpts...)
	return &Client{client: &c, opts: opts}
}

// NewFromClient creates an adapter from an existing SDK client. The
// APIKey option is ignored here; the given client already carries its
// credentials.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	return &Client{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Complete implements completion.Client with a single-turn user prompt.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", completion.NewError(completion.KindInvalidResponse, "openai", "empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Provider implements completion.Client.
func (c *Client) Provider() string { return "openai" }

// classify maps SDK errors onto the completion taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return completion.NewError(completion.KindTimeout, "openai", "completion timed out: %v", err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return completion.NewError(completion.KindRateLimited, "openai", "rate limited: %v", err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return completion.NewError(completion.KindTimeout, "openai", "provider timeout: %v", err)
		}
	}
	return completion.NewError(completion.KindPermanent, "openai", "completion failed: %v", err)
}
