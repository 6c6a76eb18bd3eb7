package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/nalgeon/be"
	"go.uber.org/zap"
)

type stubGenerator struct {
	name   string
	answer string
	err    error
	calls  int
}

func (s *stubGenerator) Generate(context.Context, string) (string, error) {
	s.calls++
	return s.answer, s.err
}

func (s *stubGenerator) Name() string { return s.name }
func (s *stubGenerator) Close() error { return nil }

func TestOllamaGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		be.Equal(t, r.URL.Path, "/api/generate")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response":" spam\n","done":true}`))
	}))
	defer srv.Close()

	svc := NewOllamaService(srv.URL, "mistral")
	answer, err := svc.Generate(context.Background(), "classify me")
	be.Err(t, err, nil)
	be.Equal(t, answer, " spam\n")
	be.Equal(t, got["model"], any("mistral"))
	be.Equal(t, got["prompt"], any("classify me"))
	be.Equal(t, got["stream"], any(false))
}

func TestOllamaGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaService(srv.URL, "").Generate(context.Background(), "x")
	be.Err(t, err, "ollama API error (404)")
}

func TestOllamaUsesDynamicSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"social"}`))
	}))
	defer srv.Close()

	settings := NewRuntimeSettings(Settings{OllamaBaseURL: "http://127.0.0.1:1"})
	f := NewFactory(Config{Provider: ProviderOllama}, settings, zap.NewNop())

	settings.Update(Settings{OllamaBaseURL: srv.URL})
	gen, err := f.NewGenerator(context.Background(), "")
	be.Err(t, err, nil)

	answer, err := gen.Generate(context.Background(), "x")
	be.Err(t, err, nil)
	be.Equal(t, answer, "social")
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		be.Equal(t, r.URL.Path, "/v1/chat/completions")
		be.Equal(t, r.Header.Get("Authorization"), "Bearer sk-test")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "promotion"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	svc, err := NewOpenAIService("sk-test", "gpt-4o-mini", srv.URL+"/v1")
	be.Err(t, err, nil)

	answer, err := svc.Generate(context.Background(), "x")
	be.Err(t, err, nil)
	be.Equal(t, answer, "promotion")
}

func TestOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAIService("", "gpt-4o-mini", "")
	be.Err(t, err)
}

type fakeInvoker struct {
	body  []byte
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockGenerate(t *testing.T) {
	inv := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":"important"}]}`)}
	svc := NewBedrockServiceWithClient(inv, "anthropic.claude-3-haiku-20240307-v1:0")

	answer, err := svc.Generate(context.Background(), "x")
	be.Err(t, err, nil)
	be.Equal(t, answer, "important")
	be.Equal(t, *inv.input.ModelId, "anthropic.claude-3-haiku-20240307-v1:0")

	var req map[string]any
	be.Err(t, json.Unmarshal(inv.input.Body, &req), nil)
	be.Equal(t, req["anthropic_version"], any("bedrock-2023-05-31"))
}

func TestBedrockResponseText(t *testing.T) {
	got, err := bedrockResponseText("amazon.titan-text-express-v1", []byte(`{"results":[{"outputText":"spam"}]}`))
	be.Err(t, err, nil)
	be.Equal(t, got, "spam")

	got, err = bedrockResponseText("meta.llama3-8b-instruct-v1:0", []byte(`{"generation":"social"}`))
	be.Err(t, err, nil)
	be.Equal(t, got, "social")

	_, err = bedrockResponseText("anthropic.claude-v2", []byte(`{"content":[]}`))
	be.Err(t, err)

	_, err = bedrockResponseText("amazon.titan-text-express-v1", []byte(`not json`))
	be.Err(t, err)
}

func TestFallbackService(t *testing.T) {
	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubGenerator{name: "gemini", answer: "spam"}
		secondary := &stubGenerator{name: "ollama", answer: "general"}
		f := NewFallbackService(primary, secondary, zap.NewNop())

		answer, err := f.Generate(context.Background(), "x")
		be.Err(t, err, nil)
		be.Equal(t, answer, "spam")
		be.Equal(t, secondary.calls, 0)
	})
	t.Run("primary quota exhausted", func(t *testing.T) {
		primary := &stubGenerator{name: "gemini", err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")}
		secondary := &stubGenerator{name: "ollama", answer: "social"}
		f := NewFallbackService(primary, secondary, zap.NewNop())

		answer, err := f.Generate(context.Background(), "x")
		be.Err(t, err, nil)
		be.Equal(t, answer, "social")
		be.Equal(t, f.Name(), "gemini+ollama")
	})
	t.Run("both fail", func(t *testing.T) {
		primary := &stubGenerator{name: "gemini", err: errors.New("boom")}
		secondary := &stubGenerator{name: "ollama", err: errors.New("dial tcp: connection refused")}
		f := NewFallbackService(primary, secondary, zap.NewNop())

		_, err := f.Generate(context.Background(), "x")
		be.Err(t, err, "connection refused")
	})
	t.Run("cancelled context is not retried", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		primary := &stubGenerator{name: "gemini", err: context.Canceled}
		secondary := &stubGenerator{name: "ollama", answer: "spam"}

		_, err := NewFallbackService(primary, secondary, zap.NewNop()).Generate(ctx, "x")
		be.Err(t, err, context.Canceled)
		be.Equal(t, secondary.calls, 0)
	})
}

func TestFailureReason(t *testing.T) {
	be.Equal(t, failureReason(errors.New("Too Many Requests")), "quota")
	be.Equal(t, failureReason(errors.New("dial tcp 127.0.0.1:1: connection refused")), "connection")
	be.Equal(t, failureReason(errors.New("invalid json")), "error")
}

func TestFactoryResolveAPIKey(t *testing.T) {
	f := NewFactory(Config{Provider: ProviderGemini, GeminiAPIKey: "configured"}, nil, zap.NewNop())

	key, ok := f.ResolveAPIKey("from-request")
	be.True(t, ok)
	be.Equal(t, key, "from-request")

	key, ok = f.ResolveAPIKey("")
	be.True(t, ok)
	be.Equal(t, key, "configured")

	f = NewFactory(Config{Provider: ProviderOpenAI}, nil, zap.NewNop())
	_, ok = f.ResolveAPIKey("")
	be.True(t, !ok)

	f = NewFactory(Config{Provider: ProviderOllama}, nil, zap.NewNop())
	_, ok = f.ResolveAPIKey("")
	be.True(t, ok)
}

func TestFactoryFallbackWrapping(t *testing.T) {
	f := NewFactory(Config{
		Provider:         ProviderOpenAI,
		FallbackProvider: ProviderOllama,
		OpenAIModel:      "gpt-4o-mini",
	}, NewRuntimeSettings(Settings{}), zap.NewNop())

	gen, err := f.NewGenerator(context.Background(), "sk-test")
	be.Err(t, err, nil)
	be.Equal(t, gen.Name(), "openai+ollama")

	_, err = NewFactory(Config{Provider: "claude"}, nil, zap.NewNop()).NewGenerator(context.Background(), "k")
	be.Err(t, err, "unsupported")
}

func TestRuntimeSettingsUpdate(t *testing.T) {
	s := NewRuntimeSettings(Settings{Model: "llama3", OllamaBaseURL: "http://a"})
	got := s.Update(Settings{Model: "mistral"})
	be.Equal(t, got, Settings{Model: "mistral", OllamaBaseURL: "http://a"})
	be.Equal(t, s.GetOllamaBaseURL(), "http://a")
}

func TestProviderType(t *testing.T) {
	be.True(t, ProviderGemini.RequiresAPIKey())
	be.True(t, ProviderOpenAI.RequiresAPIKey())
	be.True(t, !ProviderOllama.RequiresAPIKey())
	be.True(t, !ProviderBedrock.RequiresAPIKey())
	be.True(t, ProviderBedrock.Valid())
	be.True(t, !ProviderType("auto").Valid())
}
