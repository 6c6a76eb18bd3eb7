package ai

import "context"

// Generator sends a single prompt to a text generation model and returns its raw answer.
// Implement this interface to add new AI providers.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider in logs and metrics.
	Name() string
	Close() error
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini  ProviderType = "gemini"
	ProviderOpenAI  ProviderType = "openai"
	ProviderOllama  ProviderType = "ollama"
	ProviderBedrock ProviderType = "bedrock"
)

// RequiresAPIKey reports whether the provider cannot be called without an API key.
// Ollama runs locally and Bedrock authenticates through the AWS credential chain.
func (p ProviderType) RequiresAPIKey() bool {
	switch p {
	case ProviderGemini, ProviderOpenAI:
		return true
	default:
		return false
	}
}

func (p ProviderType) Valid() bool {
	switch p {
	case ProviderGemini, ProviderOpenAI, ProviderOllama, ProviderBedrock:
		return true
	default:
		return false
	}
}
