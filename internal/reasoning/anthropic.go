package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient — альтернативный провайдер вывода (Claude).
type AnthropicClient struct {
	model     string
	maxTokens int64
}

func NewAnthropicClient(model string) *AnthropicClient {
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &AnthropicClient{model: model, maxTokens: 1024}
}

func (c *AnthropicClient) Model() string { return c.model }

func (c *AnthropicClient) Generate(ctx context.Context, credential string, req Request) (string, error) {
	if credential == "" {
		return "", ErrNoCredential
	}
	prompt, err := req.Prompt()
	if err != nil {
		return "", err
	}

	client := anthropic.NewClient(option.WithAPIKey(credential))
	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusTooManyRequests:
				return "", &ThrottleError{RetryAfter: retryAfter(apiErr.Response), Cause: err}
			case http.StatusUnauthorized, http.StatusForbidden:
				return "", fmt.Errorf("anthropic messages: %w: %w", ErrCredentialRejected, err)
			}
		}
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for i := range resp.Content {
		if block := &resp.Content[i]; block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return defaultThrottleDelay
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultThrottleDelay
}
