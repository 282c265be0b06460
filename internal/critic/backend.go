// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package critic

import (
	"context"
	"fmt"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// NewBackend builds the backend selected by cfg. It returns an error wrapping
// ErrConfigurationMissing when the API key is empty.
func NewBackend(ctx context.Context, cfg types.CriticConfig) (Backend, error) {
	switch cfg.Backend {
	case types.BackendGemini, "":
		return NewGeminiBackend(ctx, cfg.APIKey, cfg.Model, GeminiOptions{})
	case types.BackendClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude backend: %w", ErrConfigurationMissing)
		}
		model := cfg.Model
		if model == "" || model == types.DefaultAppConfig().Critic.Model {
			model = DefaultClaudeModel
		}
		return &ClaudeBackend{APIKey: cfg.APIKey, Model: model}, nil
	}
	return nil, fmt.Errorf("unknown critic backend %q", cfg.Backend)
}
