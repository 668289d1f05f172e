// Package providers builds the configured model backend.
package providers

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/document-pipeline/internal/common"
	"github.com/joseph-ayodele/document-pipeline/internal/llm"
	"github.com/joseph-ayodele/document-pipeline/internal/llm/gemini"
	"github.com/joseph-ayodele/document-pipeline/internal/llm/openai"
)

// New returns the provider selected by cfg.Provider. Missing credentials are
// reported as a configuration error before any client is created.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case common.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, common.ConfigErrorf("OPENAI_API_KEY is required for provider %q", cfg.Provider)
		}
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		logger.Info("llm provider ready", "provider", c.Name())
		return c, nil
	case common.ProviderGemini, "":
		if cfg.ProjectID == "" {
			return nil, common.ConfigErrorf("GCP_PROJECT_ID is required for provider %q", common.ProviderGemini)
		}
		c, err := gemini.NewClient(ctx, gemini.Config{
			ProjectID:       cfg.ProjectID,
			Region:          cfg.Region,
			Model:           cfg.GeminiModel,
			Temperature:     cfg.Temperature,
			Timeout:         cfg.Timeout,
			CredentialsFile: cfg.CredentialsFile,
		}, logger)
		if err != nil {
			return nil, common.NewAppError(common.CodeGateway, "create gemini client", err)
		}
		logger.Info("llm provider ready", "provider", c.Name())
		return c, nil
	default:
		return nil, common.ConfigErrorf("unknown llm provider %q", cfg.Provider)
	}
}
