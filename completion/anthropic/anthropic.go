// Package anthropic implements completion.Client on the Anthropic
// Messages API using the official SDK.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chronicler-ai/chronicler/completion"
)

// Options configure the Anthropic completion adapter.
type Options struct {
	// APIKey overrides the key from the environment when non-empty.
	APIKey    string
	Model     anthropic.Model
	MaxTokens int64
}

// Client wraps the Anthropic Messages API behind completion.Client.
type Client struct {
	client *anthropic.Client
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
	c := anthropic.NewClient(reqOpts...)
	return &Client{client: &c, opts: opts}
}

// NewFromClient creates an adapter from an existing SDK client. The
// APIKey option is ignored here; the given client already carries its
// credentials.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	return &Client{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Complete implements completion.Client with a single-turn user prompt.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", completion.NewError(completion.KindInvalidResponse, "anthropic", "empty completion response")
	}
	return sb.String(), nil
}

// Provider implements completion.Client.
func (c *Client) Provider() string { return "anthropic" }

// classify maps SDK errors onto the completion taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return completion.NewError(completion.KindTimeout, "anthropic", "completion timed out: %v", err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return completion.NewError(completion.KindRateLimited, "anthropic", "rate limited: %v", err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return completion.NewError(completion.KindTimeout, "anthropic", "provider timeout: %v", err)
		}
	}
	return completion.NewError(completion.KindPermanent, "anthropic", "completion failed: %v", err)
}
