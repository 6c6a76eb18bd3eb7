package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mail-triage-backend/pkg/ai"

	"github.com/gin-gonic/gin"
)

const ollamaProbeTimeout = 5 * time.Second

// SettingsHandler exposes the model settings that can change without a restart.
type SettingsHandler struct {
	settings *ai.RuntimeSettings
	provider ai.ProviderType
	client   *http.Client
}

func NewSettingsHandler(settings *ai.RuntimeSettings, provider ai.ProviderType) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		provider: provider,
		client:   &http.Client{Timeout: ollamaProbeTimeout},
	}
}

// UpdateModelSettingsRequest represents the request body for updating model settings
type UpdateModelSettingsRequest struct {
	Model         string `json:"model"`
	OllamaBaseURL string `json:"ollama_base_url"`
}

// GetModelSettings returns current model configuration
// GET /api/settings/model
func (h *SettingsHandler) GetModelSettings(c *gin.Context) {
	s := h.settings.Get()
	c.JSON(http.StatusOK, gin.H{
		"provider":        h.provider,
		"model":           s.Model,
		"ollama_base_url": s.OllamaBaseURL,
	})
}

// UpdateModelSettings updates model configuration at runtime
// PUT /api/settings/model
func (h *SettingsHandler) UpdateModelSettings(c *gin.Context) {
	var req UpdateModelSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid settings", "error": err.Error()})
		return
	}
	req.Model = strings.TrimSpace(req.Model)
	req.OllamaBaseURL = strings.TrimRight(strings.TrimSpace(req.OllamaBaseURL), "/")
	if req.Model == "" && req.OllamaBaseURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Nothing to update - provide model or ollama_base_url"})
		return
	}

	s := h.settings.Update(ai.Settings{Model: req.Model, OllamaBaseURL: req.OllamaBaseURL})
	c.JSON(http.StatusOK, gin.H{
		"message":         "Model settings updated successfully",
		"provider":        h.provider,
		"model":           s.Model,
		"ollama_base_url": s.OllamaBaseURL,
	})
}

// TestOllamaConnection tests if the Ollama server is reachable
// POST /api/settings/ollama/test
func (h *SettingsHandler) TestOllamaConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	// If no body provided, use current config
	_ = c.ShouldBindJSON(&req)
	if req.OllamaBaseURL == "" {
		req.OllamaBaseURL = h.settings.GetOllamaBaseURL()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ollamaProbeTimeout)
	defer cancel()

	// Test connection by calling Ollama's /api/tags endpoint
	probe, err := http.NewRequestWithContext(ctx, http.MethodGet, req.OllamaBaseURL+"/api/tags", nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"connected": false, "error": err.Error()})
		return
	}
	resp, err := h.client.Do(probe)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected":   false,
			"status_code": resp.StatusCode,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": req.OllamaBaseURL,
	})
}
