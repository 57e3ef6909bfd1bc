package config

import (
	"fmt"
	"os"
	"time"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// AIModels defines which model serves each wizard task
type AIModels struct {
	// Extraction cleans free-text answers (needs to be fast, low temperature)
	Extraction string `json:"extraction" yaml:"extraction"`

	// Evaluation grades evaluative answers against the rubric
	Evaluation string `json:"evaluation" yaml:"evaluation"`

	// Suggestions writes improvement tips for rejected answers
	Suggestions string `json:"suggestions" yaml:"suggestions"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	Provider      string   `json:"provider" yaml:"provider"`
	APIKey        string   `json:"-" yaml:"-"` // Never serialize
	Models        AIModels `json:"models" yaml:"models"`
	TimeoutMS     int      `json:"timeoutMs" yaml:"timeoutMs"`
	MaxConcurrent int64    `json:"maxConcurrent" yaml:"maxConcurrent"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	c := &AIConfig{
		Provider:      ProviderGemini,
		TimeoutMS:     10000, // 10 second default timeout
		MaxConcurrent: 8,
	}
	c.fillModels()
	return c
}

func defaultModels(provider string) AIModels {
	if provider == ProviderAnthropic {
		return AIModels{
			Extraction:  "claude-3-5-haiku-latest",
			Evaluation:  "claude-sonnet-4-5",
			Suggestions: "claude-3-5-haiku-latest",
		}
	}
	return AIModels{
		Extraction:  "gemini-2.0-flash",
		Evaluation:  "gemini-2.5-flash",
		Suggestions: "gemini-2.0-flash",
	}
}

func (c *AIConfig) fillModels() {
	d := defaultModels(c.Provider)
	if c.Models.Extraction == "" {
		c.Models.Extraction = d.Extraction
	}
	if c.Models.Evaluation == "" {
		c.Models.Evaluation = d.Evaluation
	}
	if c.Models.Suggestions == "" {
		c.Models.Suggestions = d.Suggestions
	}
}

func (c *AIConfig) applyEnv() {
	if p := os.Getenv("AI_PROVIDER"); p != "" && p != c.Provider {
		c.Provider = p
		c.Models = AIModels{}
	}
	switch c.Provider {
	case ProviderAnthropic:
		c.APIKey = getEnv("ANTHROPIC_API_KEY", c.APIKey)
	default:
		c.APIKey = getEnv("GEMINI_API_KEY", c.APIKey)
	}
	c.Models.Extraction = getEnv("AI_MODEL_EXTRACTION", c.Models.Extraction)
	c.Models.Evaluation = getEnv("AI_MODEL_EVALUATION", c.Models.Evaluation)
	c.Models.Suggestions = getEnv("AI_MODEL_SUGGESTIONS", c.Models.Suggestions)
	c.TimeoutMS = getEnvInt("AI_TIMEOUT_MS", c.TimeoutMS)
	c.MaxConcurrent = int64(getEnvInt("AI_MAX_CONCURRENT", int(c.MaxConcurrent)))
	c.fillModels()
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// Timeout bounds a single generation call
func (c *AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Validate checks provider and limits
func (c *AIConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("ai.provider %q is not supported", c.Provider)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("ai.timeoutMs must be positive")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("ai.maxConcurrent must be at least 1")
	}
	return nil
}
