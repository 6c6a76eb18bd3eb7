package ai

import (
	"context"
	"fmt"

	"mail-triage-backend/pkg/gemini"

	"go.uber.org/zap"
)

// Config holds AI provider configuration
type Config struct {
	Provider         ProviderType
	FallbackProvider ProviderType // optional

	// Gemini config
	GeminiAPIKey string
	GeminiModel  string

	// OpenAI config
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"

	// Bedrock config
	BedrockRegion  string
	BedrockModelID string
}

// Factory builds generators per request so a caller-supplied API key can replace the configured one.
type Factory struct {
	cfg      Config
	settings *RuntimeSettings
	logger   *zap.Logger
}

func NewFactory(cfg Config, settings *RuntimeSettings, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, settings: settings, logger: logger}
}

// Provider returns the primary provider type.
func (f *Factory) Provider() ProviderType {
	return f.cfg.Provider
}

// ResolveAPIKey picks the request key over the configured one.
// ok is false when the primary provider needs a key and none is available.
func (f *Factory) ResolveAPIKey(requestKey string) (key string, ok bool) {
	if requestKey != "" {
		return requestKey, true
	}
	key = f.configuredKey(f.cfg.Provider)
	return key, key != "" || !f.cfg.Provider.RequiresAPIKey()
}

func (f *Factory) configuredKey(p ProviderType) string {
	switch p {
	case ProviderGemini:
		return f.cfg.GeminiAPIKey
	case ProviderOpenAI:
		return f.cfg.OpenAIAPIKey
	default:
		return ""
	}
}

// NewGenerator creates the primary generator with apiKey, wrapped with the fallback provider when one is configured.
// The fallback always uses its configured key.
func (f *Factory) NewGenerator(ctx context.Context, apiKey string) (Generator, error) {
	primary, err := f.newProvider(ctx, f.cfg.Provider, apiKey, true)
	if err != nil {
		return nil, err
	}

	if f.cfg.FallbackProvider == "" || f.cfg.FallbackProvider == f.cfg.Provider {
		return primary, nil
	}

	secondary, err := f.newProvider(ctx, f.cfg.FallbackProvider, f.configuredKey(f.cfg.FallbackProvider), false)
	if err != nil {
		f.logger.Warn("Fallback AI provider unavailable",
			zap.String("provider", string(f.cfg.FallbackProvider)),
			zap.Error(err),
		)
		return primary, nil
	}
	return NewFallbackService(primary, secondary, f.logger), nil
}

func (f *Factory) newProvider(ctx context.Context, p ProviderType, apiKey string, primary bool) (Generator, error) {
	// Runtime model overrides apply to the primary provider only
	model := func(configured string) string {
		if primary && f.settings != nil {
			if m := f.settings.GetModel(); m != "" {
				return m
			}
		}
		return configured
	}

	switch p {
	case ProviderGemini:
		svc, err := gemini.NewGeminiService(ctx, apiKey, model(f.cfg.GeminiModel))
		if err != nil {
			return nil, err
		}
		return svc, nil

	case ProviderOpenAI:
		svc, err := NewOpenAIService(apiKey, model(f.cfg.OpenAIModel), f.cfg.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		return svc, nil

	case ProviderOllama:
		if f.settings == nil {
			return NewOllamaService(f.cfg.OllamaBaseURL, model(f.cfg.OllamaModel)), nil
		}
		return NewOllamaServiceWithGetters(
			func() string {
				if u := f.settings.GetOllamaBaseURL(); u != "" {
					return u
				}
				return f.cfg.OllamaBaseURL
			},
			func() string { return model(f.cfg.OllamaModel) },
		), nil

	case ProviderBedrock:
		svc, err := NewBedrockService(ctx, f.cfg.BedrockRegion, model(f.cfg.BedrockModelID))
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported AI provider %q", p)
	}
}
