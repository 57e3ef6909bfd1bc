package llm

import (
	"context"
	"ithakabot/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutKeyIsOffline(t *testing.T) {
	gen, err := New(context.Background(), *config.DefaultAIConfig(), nil)
	require.NoError(t, err)
	assert.Nil(t, gen)
}

func TestNewAnthropicIsGuarded(t *testing.T) {
	cfg := config.DefaultAIConfig()
	cfg.Provider = config.ProviderAnthropic
	cfg.APIKey = "k"

	gen, err := New(context.Background(), *cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Guard{}, gen)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.DefaultAIConfig()
	cfg.Provider = "openai"
	cfg.APIKey = "k"

	_, err := New(context.Background(), *cfg, nil)
	assert.Error(t, err)
}
