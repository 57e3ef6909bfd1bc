package llm

import (
	"context"
	"fmt"
	"ithakabot/internal/config"
	"ithakabot/internal/metrics"
)

// New builds the configured provider behind a Guard. It returns a nil
// generator and no error when no API key is configured; callers then run
// their offline fallbacks.
func New(ctx context.Context, cfg config.AIConfig, m *metrics.Metrics) (TextGenerator, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}

	var gen TextGenerator
	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg.APIKey, cfg.Models.Extraction)
		if err != nil {
			return nil, err
		}
		gen = g
	case config.ProviderAnthropic:
		g, err := NewAnthropicGenerator(cfg.APIKey, cfg.Models.Extraction)
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}

	return NewGuard(gen, cfg.Provider, cfg.Timeout(), cfg.MaxConcurrent, m), nil
}
