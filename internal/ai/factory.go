package ai

import (
	"context"
	"fmt"

	"github.com/xelth-com/eckdocs/internal/config"
)

// NewCompleter picks the backend configured by AI_PROVIDER
func NewCompleter(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "proxy", "":
		return NewProxyClient(cfg.ProxyURL, cfg.ProxySecret, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
