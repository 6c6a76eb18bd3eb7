package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	emaildomain "mail-triage-backend/internal/email/domain"
	"mail-triage-backend/pkg/ai"
	"mail-triage-backend/pkg/logger"
	"mail-triage-backend/pkg/metrics"

	"go.uber.org/zap"
)

const truncationMarker = "..."

var labelDefinitions = map[emaildomain.Label]string{
	emaildomain.LabelImportant: "Emails that are personal or work-related and require immediate attention",
	emaildomain.LabelPromotion: "Emails related to sales, discounts, and marketing campaigns",
	emaildomain.LabelSocial:    "Emails from social networks, friends, and family",
	emaildomain.LabelMarketing: "Emails related to marketing, newsletters, and notifications",
	emaildomain.LabelSpam:      "Unwanted or unsolicited emails",
	emaildomain.LabelGeneral:   "If none of the above are matched, use General",
}

// TruncateBody cuts body to limit characters and appends a marker when anything was cut.
func TruncateBody(body string, limit int) string {
	runes := []rune(body)
	if limit <= 0 || len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + truncationMarker
}

// BuildPrompt renders the classification prompt for one email.
func BuildPrompt(subject, body string, bodyLimit int) string {
	labels := emaildomain.Labels()

	var sb strings.Builder
	sb.WriteString("Please classify this email based on its content:\n\n")
	fmt.Fprintf(&sb, "Subject: %s\n\n", subject)
	fmt.Fprintf(&sb, "Body: %s\n\n", TruncateBody(body, bodyLimit))
	sb.WriteString("Choose one from the following categories:\n")
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		fmt.Fprintf(&sb, "- %q: %s\n", l.String(), labelDefinitions[l])
		names = append(names, l.String())
	}
	fmt.Fprintf(&sb, "\nJust give one word from the classification provided which is (%s, or %s) in lowercase, no * or anything else",
		strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
	return sb.String()
}

// ParseLabel trims and lowercases a model answer and checks it against the allowed labels.
func ParseLabel(answer string) (emaildomain.Label, bool) {
	label := emaildomain.Label(strings.ToLower(strings.TrimSpace(answer)))
	if !label.IsValid() {
		return emaildomain.LabelGeneral, false
	}
	return label, true
}

// Classifier labels a single email. It never fails: every problem resolves to general.
type Classifier struct {
	factory     GeneratorFactory
	bodyLimit   int
	callTimeout time.Duration
	logger      *zap.Logger
}

func NewClassifier(factory GeneratorFactory, cfg Config, logger *zap.Logger) *Classifier {
	return &Classifier{
		factory:     factory,
		bodyLimit:   cfg.BodyLimit,
		callTimeout: cfg.CallTimeout,
		logger:      logger,
	}
}

// Classify labels one email using modelCredential, or the configured key when it is empty.
func (c *Classifier) Classify(ctx context.Context, subject, body, modelCredential string) emaildomain.Label {
	key, ok := c.factory.ResolveAPIKey(modelCredential)
	if !ok {
		return c.ClassifyWith(ctx, nil, subject, body).Label
	}

	gen, err := c.factory.NewGenerator(ctx, key)
	if err != nil {
		logger.FromContext(ctx, c.logger).Warn("Failed to create model client", zap.Error(err))
		result := emaildomain.Classification{Label: emaildomain.LabelGeneral, Outcome: emaildomain.OutcomeFailed}
		metrics.RecordClassification(string(result.Outcome), result.Label.String())
		return result.Label
	}
	defer gen.Close()

	return c.ClassifyWith(ctx, gen, subject, body).Label
}

// ClassifyWith labels one email with an existing generator and reports how the label was reached.
// A nil generator means no credential was available.
func (c *Classifier) ClassifyWith(ctx context.Context, gen ai.Generator, subject, body string) emaildomain.Classification {
	result := c.classify(ctx, gen, subject, body)
	metrics.RecordClassification(string(result.Outcome), result.Label.String())
	return result
}

func (c *Classifier) classify(ctx context.Context, gen ai.Generator, subject, body string) emaildomain.Classification {
	if gen == nil {
		return emaildomain.Classification{Label: emaildomain.LabelGeneral, Outcome: emaildomain.OutcomeSkipped}
	}

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	log := logger.FromContext(ctx, c.logger)
	start := time.Now()
	answer, err := gen.Generate(ctx, BuildPrompt(subject, body, c.bodyLimit))
	metrics.RecordLLMCall(gen.Name(), err, time.Since(start))
	if err != nil {
		log.Warn("Model call failed, using general", zap.String("provider", gen.Name()), zap.Error(err))
		return emaildomain.Classification{Label: emaildomain.LabelGeneral, Outcome: emaildomain.OutcomeFailed}
	}

	label, ok := ParseLabel(answer)
	if !ok {
		log.Debug("Model answer outside allowed labels, using general", zap.String("answer", answer))
		return emaildomain.Classification{Label: emaildomain.LabelGeneral, Outcome: emaildomain.OutcomeRejected, Raw: answer}
	}
	return emaildomain.Classification{Label: label, Outcome: emaildomain.OutcomeAccepted, Raw: answer}
}
