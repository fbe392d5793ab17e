// Package app builds the collaborators a coordinator needs from config
package app

import (
	"fmt"

	"github.com/lehigh-university-libraries/vibetrack/internal/catalog"
	"github.com/lehigh-university-libraries/vibetrack/internal/config"
	"github.com/lehigh-university-libraries/vibetrack/internal/coordinator"
	"github.com/lehigh-university-libraries/vibetrack/internal/enrich"
	"github.com/lehigh-university-libraries/vibetrack/internal/gemini"
	"github.com/lehigh-university-libraries/vibetrack/internal/ollama"
	"github.com/lehigh-university-libraries/vibetrack/internal/openai"
	"github.com/lehigh-university-libraries/vibetrack/internal/providers"
	"github.com/lehigh-university-libraries/vibetrack/internal/staging"
)

// Services are shared by every session
type Services struct {
	Suggester providers.Suggester
	Enricher  *enrich.Enricher
	Previews  *staging.Previews
	Provider  string
	Model     string
}

// New wires the configured provider, the catalog client and a preview registry
func New(cfg *config.Config) (*Services, error) {
	suggester, model, err := NewSuggester(cfg)
	if err != nil {
		return nil, err
	}

	client := catalog.NewClient(catalog.Options{
		BaseURL:           cfg.Catalog.BaseURL,
		Country:           cfg.Catalog.Country,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerMinute: cfg.Catalog.RequestsPerMinute,
	})

	return &Services{
		Suggester: suggester,
		Enricher:  enrich.New(client, cfg.Catalog.ArtworkSize),
		Previews:  staging.NewPreviews(),
		Provider:  cfg.Provider,
		Model:     model,
	}, nil
}

// NewCoordinator creates an idle session on the shared services
func (s *Services) NewCoordinator() *coordinator.Coordinator {
	return coordinator.New(s.Suggester, s.Enricher, s.Previews)
}

// NewSuggester returns the provider named by cfg.Provider and the model it
// will use. A missing API key is not an error here; it surfaces when an
// analysis runs.
func NewSuggester(cfg *config.Config) (providers.Suggester, string, error) {
	switch cfg.Provider {
	case "gemini":
		model := modelOr(cfg.Gemini.Model, gemini.DefaultModel)
		return gemini.New(cfg.Gemini.APIKey, providerConfig(cfg, model)), model, nil
	case "openai":
		model := modelOr(cfg.OpenAI.Model, openai.DefaultModel)
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.URL, providerConfig(cfg, model)), model, nil
	case "ollama":
		model := modelOr(cfg.Ollama.Model, ollama.DefaultModel)
		return ollama.New(cfg.Ollama.URL, providerConfig(cfg, model)), model, nil
	default:
		return nil, "", fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

func providerConfig(cfg *config.Config, model string) providers.Config {
	return providers.Config{
		Model:       model,
		Temperature: cfg.Temperature,
		Count:       cfg.Suggestions,
	}
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
