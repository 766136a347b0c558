package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// NewProvider creates a provider from configuration, wrapped with retry
// and logging middleware. The returned provider always supports
// streaming; providers without a native stream emit their full response
// as a single delta.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) (StreamingProvider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Middleware order: caller, then retry, then logging, then base.
	logged := WithLogging(base, logger)
	return WithRetry(logged, cfg.Retry), nil
}

// NewProviderFromEnv builds a provider from STEPWISE_ environment
// configuration. Without an explicit STEPWISE_LLM_PROVIDER it probes the
// standard API key variables instead.
func NewProviderFromEnv(ctx context.Context, logger *slog.Logger) (StreamingProvider, error) {
	if os.Getenv("STEPWISE_LLM_PROVIDER") != "" {
		cfg := ConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return NewProvider(ctx, cfg, logger)
	}
	if cfg, ok := DiscoverConfig(); ok {
		return NewProvider(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("no LLM provider configured: set STEPWISE_LLM_PROVIDER or a standard API key variable")
}
