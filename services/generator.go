package services

import (
	"context"
	"fmt"
	"time"

	"relay/config"
	"relay/models"
)

// Generator produces one reply from an ordered list of chat messages. An
// empty reply with a nil error means the backend answered with no usable
// content; callers substitute their fallback text.
type Generator interface {
	Generate(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// NewGenerator picks the generation backend from config.
func NewGenerator(cfg config.Config) (Generator, error) {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	switch cfg.ModelProvider {
	case "gemini":
		return NewGeminiClient(cfg.GeminiAPIBase, cfg.GeminiAPIKey, cfg.GeminiModel, timeout), nil
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
}
