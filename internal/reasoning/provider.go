// ABOUTME: Builds the configured Completer from provider settings.
// ABOUTME: Supported providers: openai, venice, anthropic, scripted.

package reasoning

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderVenice    = "venice"
	ProviderAnthropic = "anthropic"
	ProviderScripted  = "scripted"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Script      string
}

// New builds a Completer for the given settings.
func New(s Settings, logger *slog.Logger) (Completer, error) {
	switch s.Provider {
	case ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:      s.APIKey,
			BaseURL:     s.BaseURL,
			Model:       s.Model,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
			Timeout:     s.Timeout,
		}, logger), nil

	case ProviderVenice:
		key := s.APIKey
		if key == "" {
			key = os.Getenv("VENICE_API_KEY")
		}
		base := s.BaseURL
		if base == "" {
			base = VeniceBaseURL
		}
		model := s.Model
		if model == "" {
			model = "venice-uncensored"
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:      key,
			BaseURL:     base,
			Model:       model,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
			Timeout:     s.Timeout,
		}, logger), nil

	case ProviderAnthropic:
		return NewAnthropic(AnthropicConfig{
			APIKey:      s.APIKey,
			BaseURL:     s.BaseURL,
			Model:       s.Model,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
			Timeout:     s.Timeout,
		}, logger), nil

	case ProviderScripted:
		if s.Script == "" {
			return NewScripted(), nil
		}
		return LoadScript(s.Script)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
}
