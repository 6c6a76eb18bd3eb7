package ai

import "sync"

// Settings are the model settings that can be changed while the server runs.
type Settings struct {
	Model         string `json:"model"`
	OllamaBaseURL string `json:"ollama_base_url"`
}

// RuntimeSettings guards Settings for concurrent readers and the settings API.
type RuntimeSettings struct {
	mu       sync.RWMutex
	settings Settings
}

func NewRuntimeSettings(initial Settings) *RuntimeSettings {
	return &RuntimeSettings{settings: initial}
}

func (r *RuntimeSettings) Get() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Update applies the non-empty fields of s and returns the result.
func (r *RuntimeSettings) Update(s Settings) Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Model != "" {
		r.settings.Model = s.Model
	}
	if s.OllamaBaseURL != "" {
		r.settings.OllamaBaseURL = s.OllamaBaseURL
	}
	return r.settings
}

// GetModel returns the current model name
func (r *RuntimeSettings) GetModel() string {
	return r.Get().Model
}

// GetOllamaBaseURL returns the current Ollama base URL
func (r *RuntimeSettings) GetOllamaBaseURL() string {
	return r.Get().OllamaBaseURL
}
