package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackService tries the primary provider and, when it fails, the secondary one.
type FallbackService struct {
	primary   Generator
	secondary Generator
	logger    *zap.Logger
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(primary, secondary Generator, logger *zap.Logger) *FallbackService {
	return &FallbackService{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (f *FallbackService) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *FallbackService) Close() error {
	return errors.Join(f.primary.Close(), f.secondary.Close())
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

func failureReason(err error) string {
	switch {
	case isQuotaError(err):
		return "quota"
	case isConnectionError(err):
		return "connection"
	default:
		return "error"
	}
}

// Generate tries the primary provider first and falls back to the secondary on any error.
// A cancelled or expired context is returned as is.
func (f *FallbackService) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := f.primary.Generate(ctx, prompt)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	f.logger.Warn("[AI] Primary provider failed, falling back",
		zap.String("primary", f.primary.Name()),
		zap.String("secondary", f.secondary.Name()),
		zap.String("reason", failureReason(err)),
		zap.Error(err),
	)

	result, fallbackErr := f.secondary.Generate(ctx, prompt)
	if fallbackErr != nil {
		return "", fmt.Errorf("%s failed: %w; %s failed: %w", f.primary.Name(), err, f.secondary.Name(), fallbackErr)
	}
	return result, nil
}
