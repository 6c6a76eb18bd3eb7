package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	emaildomain "mail-triage-backend/internal/email/domain"
	"mail-triage-backend/pkg/ai"
)

type fakeProvider struct {
	openErr  error
	listErr  error
	ids      []string
	messages map[string]*emaildomain.RawMessage
	getErr   map[string]error

	mu        sync.Mutex
	listLimit int
	closed    bool
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Open(_ context.Context, credential string) (emaildomain.MailSession, error) {
	if credential == "" {
		return nil, emaildomain.ErrNoCredential
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p, nil
}

func (p *fakeProvider) ListMessageIDs(_ context.Context, limit int) ([]string, error) {
	p.mu.Lock()
	p.listLimit = limit
	p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	if len(p.ids) > limit {
		return p.ids[:limit], nil
	}
	return p.ids, nil
}

func (p *fakeProvider) GetMessage(_ context.Context, id string) (*emaildomain.RawMessage, error) {
	if err := p.getErr[id]; err != nil {
		return nil, err
	}
	msg, ok := p.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return msg, nil
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// scriptedGenerator answers by subject; subjects missing from answers fail.
type scriptedGenerator struct {
	answers map[string]string
	delay   time.Duration
	calls   atomic.Int32
	closed  atomic.Bool
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	for subject, answer := range g.answers {
		if strings.Contains(prompt, "Subject: "+subject+"\n") {
			return answer, nil
		}
	}
	return "", errors.New("model unreachable")
}

func (g *scriptedGenerator) Name() string { return "scripted" }
func (g *scriptedGenerator) Close() error {
	g.closed.Store(true)
	return nil
}

type fakeFactory struct {
	gen        *scriptedGenerator
	defaultKey string
	needsKey   bool
	newErr     error
	usedKey    string
}

func (f *fakeFactory) ResolveAPIKey(requestKey string) (string, bool) {
	if requestKey != "" {
		return requestKey, true
	}
	return f.defaultKey, f.defaultKey != "" || !f.needsKey
}

func (f *fakeFactory) NewGenerator(_ context.Context, apiKey string) (ai.Generator, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	f.usedKey = apiKey
	return f.gen, nil
}

func testConfig() Config {
	return Config{
		DefaultLimit:     15,
		MaxLimit:         100,
		FetchConcurrency: 10,
		BodyLimit:        1000,
		CallTimeout:      time.Second,
		BatchTimeout:     5 * time.Second,
	}
}
