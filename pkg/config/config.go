package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string

	LogLevel  string
	LogFormat string

	// Mail source: "gmail" or "imap"
	MailProvider  string
	GmailEndpoint string
	IMAPAddress   string
	IMAPTLS       bool
	IMAPMailbox   string
	IMAPUsername  string
	IMAPPassword  string

	// Model provider: "gemini", "openai", "ollama" or "bedrock"
	AIProvider         string
	AIFallbackProvider string
	GeminiAPIKey       string
	GeminiModel        string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	OllamaBaseURL      string
	OllamaModel        string
	BedrockRegion      string
	BedrockModelID     string

	FetchDefaultLimit   int
	FetchMaxLimit       int
	FetchConcurrency    int
	ClassifyConcurrency int
	ClassifyBodyLimit   int

	UpstreamTimeout time.Duration
	BatchTimeout    time.Duration
}

// Load reads .env, an optional config.yaml and the environment, in increasing priority.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Port: v.GetString("port"),

		LogLevel:  v.GetString("logging.level"),
		LogFormat: v.GetString("logging.format"),

		MailProvider:  strings.ToLower(v.GetString("mail.provider")),
		GmailEndpoint: v.GetString("gmail.endpoint"),
		IMAPAddress:   v.GetString("imap.address"),
		IMAPTLS:       v.GetBool("imap.tls"),
		IMAPMailbox:   v.GetString("imap.mailbox"),
		IMAPUsername:  v.GetString("imap.username"),
		IMAPPassword:  v.GetString("imap.password"),

		AIProvider:         strings.ToLower(v.GetString("ai.provider")),
		AIFallbackProvider: strings.ToLower(v.GetString("ai.fallback.provider")),
		GeminiAPIKey:       v.GetString("gemini.api.key"),
		GeminiModel:        v.GetString("gemini.model"),
		OpenAIAPIKey:       v.GetString("openai.api.key"),
		OpenAIModel:        v.GetString("openai.model"),
		OpenAIBaseURL:      v.GetString("openai.base.url"),
		OllamaBaseURL:      v.GetString("ollama.base.url"),
		OllamaModel:        v.GetString("ollama.model"),
		BedrockRegion:      v.GetString("bedrock.region"),
		BedrockModelID:     v.GetString("bedrock.model.id"),

		FetchDefaultLimit:   v.GetInt("fetch.default.limit"),
		FetchMaxLimit:       v.GetInt("fetch.max.limit"),
		FetchConcurrency:    v.GetInt("fetch.concurrency"),
		ClassifyConcurrency: v.GetInt("classify.concurrency"),
		ClassifyBodyLimit:   v.GetInt("classify.body.limit"),

		UpstreamTimeout: v.GetDuration("upstream.timeout"),
		BatchTimeout:    v.GetDuration("batch.timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("mail.provider", "gmail")
	v.SetDefault("gmail.endpoint", "")
	v.SetDefault("imap.address", "imap.gmail.com:993")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.fallback.provider", "")
	v.SetDefault("gemini.api.key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("openai.api.key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base.url", "")
	v.SetDefault("ollama.base.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model.id", "anthropic.claude-3-haiku-20240307-v1:0")

	v.SetDefault("fetch.default.limit", 15)
	v.SetDefault("fetch.max.limit", 100)
	v.SetDefault("fetch.concurrency", 10)
	v.SetDefault("classify.concurrency", 0)
	v.SetDefault("classify.body.limit", 1000)

	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("batch.timeout", 60*time.Second)
}

// Validate rejects values the rest of the service cannot work with.
func (c *Config) Validate() error {
	switch c.MailProvider {
	case "gmail", "imap":
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.MailProvider)
	}
	switch c.AIProvider {
	case "gemini", "openai", "ollama", "bedrock":
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}
	if c.FetchDefaultLimit <= 0 {
		return fmt.Errorf("FETCH_DEFAULT_LIMIT must be positive, got %d", c.FetchDefaultLimit)
	}
	if c.FetchMaxLimit < c.FetchDefaultLimit {
		return fmt.Errorf("FETCH_MAX_LIMIT (%d) is below FETCH_DEFAULT_LIMIT (%d)", c.FetchMaxLimit, c.FetchDefaultLimit)
	}
	if c.ClassifyBodyLimit <= 0 {
		return fmt.Errorf("CLASSIFY_BODY_LIMIT must be positive, got %d", c.ClassifyBodyLimit)
	}
	if c.UpstreamTimeout <= 0 || c.BatchTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT and BATCH_TIMEOUT must be positive")
	}
	return nil
}
