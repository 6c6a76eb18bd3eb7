package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	emaildomain "mail-triage-backend/internal/email/domain"

	"github.com/nalgeon/be"
	"go.uber.org/zap"
)

func TestClassifyEmailsKeepsOrderWithMixedFailures(t *testing.T) {
	gen := &scriptedGenerator{answers: map[string]string{
		"50% off!":      "promotion",
		"Team meeting":  "important",
		"You won $$$":   "Spam!!",
		"Party Friday?": "social",
	}}
	f := &fakeFactory{gen: gen, defaultKey: "k", needsKey: true}
	u := NewEmailUsecase(newProviderWith(0), f, testConfig(), zap.NewNop())

	input := []emaildomain.Email{
		{ID: "a", Subject: "50% off!", Body: "Buy now", Classification: emaildomain.LabelGeneral},
		{ID: "b", Subject: "Team meeting", Body: "Tomorrow 9am"},
		{ID: "c", Subject: "You won $$$", Body: "claim"},
		{ID: "d", Subject: "unreachable", Body: ""},
		{ID: "e", Subject: "Party Friday?", Body: "bring snacks"},
	}
	out, err := u.ClassifyEmails(context.Background(), input, "")
	be.Err(t, err, nil)
	be.Equal(t, len(out), len(input))

	want := []emaildomain.Label{
		emaildomain.LabelPromotion,
		emaildomain.LabelImportant,
		emaildomain.LabelGeneral,
		emaildomain.LabelGeneral,
		emaildomain.LabelSocial,
	}
	for i := range input {
		be.Equal(t, out[i].ID, input[i].ID)
		be.Equal(t, out[i].Subject, input[i].Subject)
		be.Equal(t, out[i].Body, input[i].Body)
		be.Equal(t, out[i].Classification, want[i])
	}

	// input is not mutated
	be.Equal(t, input[0].Classification, emaildomain.LabelGeneral)
	be.Equal(t, input[1].Classification, emaildomain.Label(""))
	be.True(t, gen.closed.Load())
}

func TestClassifyEmailsLargeBatch(t *testing.T) {
	answers := map[string]string{}
	input := make([]emaildomain.Email, 0, 60)
	for i := 0; i < 60; i++ {
		subject := fmt.Sprintf("s%d", i)
		if i%3 == 0 {
			answers[subject] = "spam"
		}
		input = append(input, emaildomain.Email{ID: subject, Subject: subject})
	}
	cfg := testConfig()
	cfg.ClassifyConcurrency = 4
	f := &fakeFactory{gen: &scriptedGenerator{answers: answers}, defaultKey: "k"}

	out, err := NewEmailUsecase(newProviderWith(0), f, cfg, zap.NewNop()).ClassifyEmails(context.Background(), input, "")
	be.Err(t, err, nil)
	for i, e := range out {
		be.Equal(t, e.ID, input[i].ID)
		if i%3 == 0 {
			be.Equal(t, e.Classification, emaildomain.LabelSpam)
		} else {
			be.Equal(t, e.Classification, emaildomain.LabelGeneral)
		}
	}
}

func TestClassifyEmailsValidation(t *testing.T) {
	f := &fakeFactory{gen: &scriptedGenerator{}, defaultKey: "k"}
	u := NewEmailUsecase(newProviderWith(0), f, testConfig(), zap.NewNop())

	for _, input := range [][]emaildomain.Email{nil, {}} {
		_, err := u.ClassifyEmails(context.Background(), input, "")
		var vErr *emaildomain.ValidationError
		be.True(t, errors.As(err, &vErr))
	}
	be.Equal(t, f.gen.calls.Load(), int32(0))
}

func TestClassifyEmailsCredential(t *testing.T) {
	emails := []emaildomain.Email{{ID: "a", Subject: "hi"}}

	t.Run("none resolvable", func(t *testing.T) {
		f := &fakeFactory{gen: &scriptedGenerator{}, needsKey: true}
		_, err := NewEmailUsecase(newProviderWith(0), f, testConfig(), zap.NewNop()).ClassifyEmails(context.Background(), emails, "")
		var cErr *emaildomain.ConfigError
		be.True(t, errors.As(err, &cErr))
		be.Equal(t, cErr.Message, "Model API key not configured")
	})
	t.Run("request overrides configured", func(t *testing.T) {
		f := &fakeFactory{gen: &scriptedGenerator{}, defaultKey: "env-key", needsKey: true}
		_, err := NewEmailUsecase(newProviderWith(0), f, testConfig(), zap.NewNop()).ClassifyEmails(context.Background(), emails, "req-key")
		be.Err(t, err, nil)
		be.Equal(t, f.usedKey, "req-key")
	})
	t.Run("client creation fails", func(t *testing.T) {
		f := &fakeFactory{defaultKey: "k", newErr: errors.New("invalid key")}
		_, err := NewEmailUsecase(newProviderWith(0), f, testConfig(), zap.NewNop()).ClassifyEmails(context.Background(), emails, "")
		be.Err(t, err, "invalid key")
	})
}

func TestClassifyEmailsBatchTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.CallTimeout = time.Minute
	cfg.BatchTimeout = 30 * time.Millisecond
	gen := &scriptedGenerator{answers: map[string]string{"a": "spam"}, delay: time.Second}
	f := &fakeFactory{gen: gen, defaultKey: "k"}

	start := time.Now()
	out, err := NewEmailUsecase(newProviderWith(0), f, cfg, zap.NewNop()).ClassifyEmails(
		context.Background(), []emaildomain.Email{{ID: "1", Subject: "a"}, {ID: "2", Subject: "a"}}, "")
	be.Err(t, err, nil)
	be.True(t, time.Since(start) < 500*time.Millisecond)
	for _, e := range out {
		be.Equal(t, e.Classification, emaildomain.LabelGeneral)
	}
}

func TestFetchEmailsDelegates(t *testing.T) {
	u := NewEmailUsecase(newProviderWith(20), &fakeFactory{}, testConfig(), zap.NewNop())

	emails, err := u.FetchEmails(context.Background(), "tok", 5)
	be.Err(t, err, nil)
	be.Equal(t, len(emails), 5)

	_, err = u.FetchEmails(context.Background(), "", 5)
	be.Err(t, err, emaildomain.ErrNoCredential)
}
