package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	api "mail-triage-backend/cmd/api"
	emaildomain "mail-triage-backend/internal/email/domain"
	emailUsecase "mail-triage-backend/internal/email/usecase"
	"mail-triage-backend/pkg/ai"
	"mail-triage-backend/pkg/config"
	"mail-triage-backend/pkg/gmail"
	"mail-triage-backend/pkg/imap"
	"mail-triage-backend/pkg/logger"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.Load); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(cfg.LogLevel, cfg.LogFormat)
	}); err != nil {
		return nil, err
	}

	// Register mail provider
	if err := container.Provide(NewMailProvider); err != nil {
		return nil, err
	}

	// Register model settings and generator factory
	if err := container.Provide(func(cfg *config.Config) *ai.RuntimeSettings {
		return ai.NewRuntimeSettings(ai.Settings{
			Model:         primaryModel(cfg),
			OllamaBaseURL: cfg.OllamaBaseURL,
		})
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config, settings *ai.RuntimeSettings, l *zap.Logger) *ai.Factory {
		return ai.NewFactory(aiConfig(cfg), settings, l)
	}); err != nil {
		return nil, err
	}

	// Register email usecase
	if err := container.Provide(func(cfg *config.Config) emailUsecase.Config {
		return emailUsecase.Config{
			DefaultLimit:        cfg.FetchDefaultLimit,
			MaxLimit:            cfg.FetchMaxLimit,
			FetchConcurrency:    cfg.FetchConcurrency,
			ClassifyConcurrency: cfg.ClassifyConcurrency,
			BodyLimit:           cfg.ClassifyBodyLimit,
			CallTimeout:         cfg.UpstreamTimeout,
			BatchTimeout:        cfg.BatchTimeout,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(provider emaildomain.MailProvider, factory *ai.Factory, ucCfg emailUsecase.Config, l *zap.Logger) emailUsecase.EmailUsecase {
		return emailUsecase.NewEmailUsecase(provider, factory, ucCfg, l)
	}); err != nil {
		return nil, err
	}

	// Register HTTP handler
	if err := container.Provide(func(uc emailUsecase.EmailUsecase, settings *ai.RuntimeSettings, cfg *config.Config, l *zap.Logger) *api.Handler {
		return api.NewHandler(uc, settings, ai.ProviderType(cfg.AIProvider), l)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// NewMailProvider picks the mail source named by MAIL_PROVIDER.
func NewMailProvider(cfg *config.Config, l *zap.Logger) emaildomain.MailProvider {
	if cfg.MailProvider == "imap" {
		l.Info("Using IMAP mail provider", zap.String("address", cfg.IMAPAddress))
		return imap.NewService(imap.Config{
			Address:  cfg.IMAPAddress,
			TLS:      cfg.IMAPTLS,
			Mailbox:  cfg.IMAPMailbox,
			Username: cfg.IMAPUsername,
			Password: cfg.IMAPPassword,
		}, l)
	}
	l.Info("Using Gmail mail provider")
	return gmail.NewService(cfg.GmailEndpoint, l)
}

func aiConfig(cfg *config.Config) ai.Config {
	return ai.Config{
		Provider:         ai.ProviderType(cfg.AIProvider),
		FallbackProvider: ai.ProviderType(cfg.AIFallbackProvider),
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiModel:      cfg.GeminiModel,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIModel:      cfg.OpenAIModel,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		OllamaBaseURL:    cfg.OllamaBaseURL,
		OllamaModel:      cfg.OllamaModel,
		BedrockRegion:    cfg.BedrockRegion,
		BedrockModelID:   cfg.BedrockModelID,
	}
}

func primaryModel(cfg *config.Config) string {
	switch ai.ProviderType(cfg.AIProvider) {
	case ai.ProviderGemini:
		return cfg.GeminiModel
	case ai.ProviderOpenAI:
		return cfg.OpenAIModel
	case ai.ProviderOllama:
		return cfg.OllamaModel
	case ai.ProviderBedrock:
		return cfg.BedrockModelID
	}
	return ""
}
