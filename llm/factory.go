// LLM Provider Factory.
//
// Providers are constructed from a normalized provider name plus explicit
// credentials; credential lookup lives in the config package so each request
// can bind its own key.

package llm

import (
	"fmt"
)

// New creates a provider by name. Supported names: anthropic, openai, deepseek.
func New(provider, apiKey, model string, maxTokens uint32, temperature float64) (Provider, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicProvider(apiKey, model, maxTokens, temperature), nil
	case "openai":
		return NewOpenAIProvider(apiKey, model, maxTokens, temperature), nil
	case "deepseek":
		return NewDeepSeekProvider(apiKey, model, maxTokens, temperature), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q", provider)
	}
}
