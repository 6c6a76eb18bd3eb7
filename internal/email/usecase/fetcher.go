package usecase

import (
	"context"
	"time"

	emaildomain "mail-triage-backend/internal/email/domain"
	"mail-triage-backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher lists recent messages from a mail provider and turns them into Emails.
type Fetcher struct {
	provider     emaildomain.MailProvider
	defaultLimit int
	maxLimit     int
	concurrency  int
	callTimeout  time.Duration
	logger       *zap.Logger
}

func NewFetcher(provider emaildomain.MailProvider, cfg Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		provider:     provider,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		concurrency:  cfg.FetchConcurrency,
		callTimeout:  cfg.CallTimeout,
		logger:       logger,
	}
}

// NormalizeLimit applies the default to non-positive limits and caps the rest.
func (f *Fetcher) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return f.defaultLimit
	}
	if f.maxLimit > 0 && limit > f.maxLimit {
		return f.maxLimit
	}
	return limit
}

func (f *Fetcher) withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.callTimeout)
}

// Fetch opens a session for credential, lists up to limit messages and retrieves
// them concurrently. Messages that fail individually are replaced by placeholders;
// only failures that affect the whole batch are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, credential string, limit int) ([]emaildomain.Email, error) {
	if credential == "" {
		return nil, emaildomain.ErrNoCredential
	}
	limit = f.NormalizeLimit(limit)
	log := logger.FromContext(ctx, f.logger).With(zap.String("provider", f.provider.Name()))

	openCtx, cancel := f.withCallTimeout(ctx)
	session, err := f.provider.Open(openCtx, credential)
	cancel()
	if err != nil {
		log.Warn("Mailbox access check failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Debug("Failed to close mail session", zap.Error(err))
		}
	}()

	listCtx, cancel := f.withCallTimeout(ctx)
	ids, err := session.ListMessageIDs(listCtx, limit)
	cancel()
	if err != nil {
		log.Warn("Failed to list messages", zap.Error(err))
		return nil, err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	emails := make([]emaildomain.Email, len(ids))
	if len(ids) == 0 {
		return emails, nil
	}

	var g errgroup.Group
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			getCtx, cancel := f.withCallTimeout(ctx)
			defer cancel()

			msg, err := session.GetMessage(getCtx, id)
			if err != nil {
				log.Warn("Failed to load message", zap.String("message_id", id), zap.Error(err))
				emails[i] = emaildomain.PlaceholderEmail(id)
				return nil
			}
			email := msg.ToEmail()
			if email.ID == "" {
				email.ID = id
			}
			emails[i] = email
			return nil
		})
	}
	_ = g.Wait()

	log.Info("Fetched emails", zap.Int("requested", limit), zap.Int("count", len(emails)))
	return emails, nil
}
