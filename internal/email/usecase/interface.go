package usecase

import (
	"context"
	"time"

	emaildomain "mail-triage-backend/internal/email/domain"
	"mail-triage-backend/pkg/ai"
)

// EmailUsecase defines the interface for email use cases
type EmailUsecase interface {
	// FetchEmails returns up to limit recent messages, each labelled general.
	FetchEmails(ctx context.Context, credential string, limit int) ([]emaildomain.Email, error)
	// ClassifyEmails returns copies of emails in the same order, each with a label from the allowed set.
	ClassifyEmails(ctx context.Context, emails []emaildomain.Email, modelCredential string) ([]emaildomain.Email, error)
}

// GeneratorFactory builds model clients for a batch. *ai.Factory implements it.
type GeneratorFactory interface {
	ResolveAPIKey(requestKey string) (key string, ok bool)
	NewGenerator(ctx context.Context, apiKey string) (ai.Generator, error)
}

// Config holds the limits and timeouts of the email use cases.
type Config struct {
	DefaultLimit        int
	MaxLimit            int
	FetchConcurrency    int
	ClassifyConcurrency int // 0 means unbounded
	BodyLimit           int
	CallTimeout         time.Duration
	BatchTimeout        time.Duration
}
