package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

const defaultThrottleDelay = 2 * time.Second

// GeminiClient ходит в Gemini API. Клиент SDK создается на каждый запрос,
// потому что ключ приходит вместе с запросом.
type GeminiClient struct {
	model string
}

func NewGeminiClient(model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{model: model}
}

func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) Generate(ctx context.Context, credential string, req Request) (string, error) {
	if credential == "" {
		return "", ErrNoCredential
	}
	prompt, err := req.Prompt()
	if err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case http.StatusTooManyRequests:
				return "", &ThrottleError{RetryAfter: defaultThrottleDelay, Cause: err}
			case http.StatusUnauthorized, http.StatusForbidden:
				return "", fmt.Errorf("gemini generate: %w: %w", ErrCredentialRejected, err)
			}
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}
