package factory

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/plea-submit/internal/config"
	pleaprovider "github.com/example/plea-submit/internal/providers/plea"
)

// Plea constructs the configured plea provider, supporting HTTP and mock backends.
func Plea(cfg *config.Config, logger zerolog.Logger) (pleaprovider.Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("factory: config is required")
	}
	backend := normalize(cfg.Provider, "http")
	switch backend {
	case "http":
		provider, err := pleaprovider.NewHTTPProvider(cfg.Service, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: http plea provider init: %w", err)
		}
		logger.Info().
			Str("backend", "http").
			Str("base_url", cfg.Service.BaseURL).
			Msg("plea provider initialised")
		return provider, nil
	case "mock":
		scenario, err := pleaprovider.ParseScenario(normalize(cfg.MockScenario, ""))
		if err != nil {
			return nil, fmt.Errorf("factory: mock plea provider init: %w", err)
		}
		provider := pleaprovider.NewMockProvider(logger, pleaprovider.WithScenario(scenario))
		logger.Info().
			Str("backend", "mock").
			Str("scenario", string(scenario)).
			Msg("plea provider initialised")
		return provider, nil
	default:
		return nil, fmt.Errorf("factory: unsupported plea provider backend %q", cfg.Provider)
	}
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
