package reasoning

import "fmt"

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// NewProviderClient возвращает клиента по имени провайдера.
// Для "none" и пустого имени — nil: агент работает только на эвристиках.
func NewProviderClient(provider, model string) (Inferencer, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(model), nil
	case ProviderAnthropic:
		return NewAnthropicClient(model), nil
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("reasoning: unknown provider %q", provider)
	}
}
