package usecase

import (
	"context"

	emaildomain "mail-triage-backend/internal/email/domain"
	"mail-triage-backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// emailUsecase implements EmailUsecase interface
type emailUsecase struct {
	fetcher    *Fetcher
	classifier *Classifier
	factory    GeneratorFactory
	cfg        Config
	logger     *zap.Logger
}

// NewEmailUsecase wires the fetcher and classifier around a mail provider and a model factory.
func NewEmailUsecase(provider emaildomain.MailProvider, factory GeneratorFactory, cfg Config, logger *zap.Logger) EmailUsecase {
	return &emailUsecase{
		fetcher:    NewFetcher(provider, cfg, logger),
		classifier: NewClassifier(factory, cfg, logger),
		factory:    factory,
		cfg:        cfg,
		logger:     logger,
	}
}

func (u *emailUsecase) withBatchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.cfg.BatchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.cfg.BatchTimeout)
}

func (u *emailUsecase) FetchEmails(ctx context.Context, credential string, limit int) ([]emaildomain.Email, error) {
	ctx, cancel := u.withBatchTimeout(ctx)
	defer cancel()
	return u.fetcher.Fetch(ctx, credential, limit)
}

func (u *emailUsecase) ClassifyEmails(ctx context.Context, emails []emaildomain.Email, modelCredential string) ([]emaildomain.Email, error) {
	if len(emails) == 0 {
		return nil, &emaildomain.ValidationError{Message: "No emails provided for classification"}
	}

	key, ok := u.factory.ResolveAPIKey(modelCredential)
	if !ok {
		return nil, &emaildomain.ConfigError{Message: "Model API key not configured"}
	}

	ctx, cancel := u.withBatchTimeout(ctx)
	defer cancel()
	log := logger.FromContext(ctx, u.logger)

	gen, err := u.factory.NewGenerator(ctx, key)
	if err != nil {
		return nil, &emaildomain.ConfigError{Message: "Failed to initialize model client", Err: err}
	}
	defer func() {
		if err := gen.Close(); err != nil {
			log.Debug("Failed to close model client", zap.Error(err))
		}
	}()

	classified := make([]emaildomain.Email, len(emails))
	outcomes := make([]emaildomain.Outcome, len(emails))

	var g errgroup.Group
	if u.cfg.ClassifyConcurrency > 0 {
		g.SetLimit(u.cfg.ClassifyConcurrency)
	}
	for i, email := range emails {
		g.Go(func() error {
			result := u.classifier.ClassifyWith(ctx, gen, email.Subject, email.Body)
			classified[i] = email.WithLabel(result.Label)
			outcomes[i] = result.Outcome
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[emaildomain.Outcome]int)
	for _, o := range outcomes {
		counts[o]++
	}
	log.Info("Classified emails",
		zap.String("provider", gen.Name()),
		zap.Int("count", len(classified)),
		zap.Int("accepted", counts[emaildomain.OutcomeAccepted]),
		zap.Int("rejected", counts[emaildomain.OutcomeRejected]),
		zap.Int("failed", counts[emaildomain.OutcomeFailed]),
	)

	return classified, nil
}
