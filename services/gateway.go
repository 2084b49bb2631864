package services

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// LanguageRule is sent with every request that carries no other instructions
const LanguageRule = "Answer always in the user language"

// GenerateRequest is one text generation call
type GenerateRequest struct {
	Prompt       string
	Instructions string
	Hosted       bool
}

// TextGenerator produces text for a prompt. Implementations return *ProviderError
// on any failure.
type TextGenerator interface {
	GenerateText(ctx context.Context, req GenerateRequest) (string, error)
}

// ProviderGateway dispatches generation requests to the hosted or the local provider
type ProviderGateway struct {
	hosted *ChatGPTService
	local  *LocalLLMService
}

// NewProviderGateway creates a gateway over both providers
func NewProviderGateway(hosted *ChatGPTService, local *LocalLLMService) *ProviderGateway {
	return &ProviderGateway{hosted: hosted, local: local}
}

// NewHTTPClient returns the pooled client shared by both providers. The timeout
// bounds every provider call; there are no retries.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: timeout,
	}
}

// GenerateText calls exactly one provider once
func (g *ProviderGateway) GenerateText(ctx context.Context, req GenerateRequest) (string, error) {
	instructions := req.Instructions
	if instructions == "" {
		instructions = LanguageRule
	}

	provider := localProvider
	call := g.local.GenerateResponse
	if req.Hosted {
		provider = hostedProvider
		call = g.hosted.GenerateResponse
	}

	start := time.Now()
	text, err := call(ctx, req.Prompt, instructions)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		slog.Error("provider call failed", "provider", provider, "duration", elapsed, "error", err)
	} else {
		slog.Debug("provider call completed", "provider", provider, "duration", elapsed, "chars", len(text))
	}
	providerLatency.WithLabelValues(provider, outcome).Observe(elapsed.Seconds())

	return text, err
}

// GetStatus reports the configuration of both providers
func (g *ProviderGateway) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		hostedProvider: g.hosted.GetStatus(),
		localProvider:  g.local.GetStatus(),
	}
}
