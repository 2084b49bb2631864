package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"atomrouter/models"
)

const localProvider = "local"

// LocalLLMService handles communication with the local retrieval-augmented model
// (an AnythingLLM-compatible workspace chat endpoint)
type LocalLLMService struct {
	baseURL    string
	apiKey     string
	workspace  string
	httpClient *http.Client
}

// WorkspaceChatRequest represents a request to the workspace chat endpoint
type WorkspaceChatRequest struct {
	Message string `json:"message"`
	Rules   string `json:"rules"`
}

// WorkspaceChatResponse represents a response from the workspace chat endpoint
type WorkspaceChatResponse struct {
	TextResponse string `json:"textResponse"`
	Error        string `json:"error,omitempty"`
}

// NewLocalLLMService creates a new local provider client sharing httpClient
func NewLocalLLMService(cfg models.LocalLLMConfig, httpClient *http.Client) *LocalLLMService {
	workspace := cfg.Workspace
	if workspace == "" {
		workspace = "rag"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &LocalLLMService{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		workspace:  workspace,
		httpClient: httpClient,
	}
}

// GenerateResponse sends prompt with rules to the workspace and returns the
// cleaned text response
func (l *LocalLLMService) GenerateResponse(ctx context.Context, prompt, rules string) (string, error) {
	if l.baseURL == "" {
		return "", providerErrorf(localProvider, "ANYTHING_LLM_URL not set")
	}
	if l.apiKey == "" {
		return "", providerErrorf(localProvider, "ANYTHING_LLM_API_KEY not set")
	}

	jsonData, err := json.Marshal(WorkspaceChatRequest{Message: prompt, Rules: rules})
	if err != nil {
		return "", providerErrorf(localProvider, "failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.chatURL(), bytes.NewReader(jsonData))
	if err != nil {
		return "", providerErrorf(localProvider, "failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", providerErrorf(localProvider, "failed to make request to workspace: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", providerErrorf(localProvider, "workspace API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp WorkspaceChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", providerErrorf(localProvider, "failed to decode response: %w", err)
	}
	if chatResp.Error != "" {
		return "", providerErrorf(localProvider, "workspace returned error: %s", chatResp.Error)
	}

	return cleanLocalResponse(chatResp.TextResponse), nil
}

func (l *LocalLLMService) chatURL() string {
	return fmt.Sprintf("%s/api/v1/workspace/%s/chat", l.baseURL, l.workspace)
}

// cleanLocalResponse removes markdown emphasis the workspace tends to add
func cleanLocalResponse(response string) string {
	return strings.TrimSpace(strings.ReplaceAll(response, "**", ""))
}

// IsAvailable reports whether the service is configured; it makes no network call
func (l *LocalLLMService) IsAvailable() bool {
	return l.baseURL != "" && l.apiKey != ""
}

// GetStatus returns the status of the local provider
func (l *LocalLLMService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"base_url":  l.baseURL,
		"workspace": l.workspace,
		"timeout":   l.httpClient.Timeout.String(),
	}

	if l.IsAvailable() {
		status["status"] = "configured"
		status["api_key"] = maskKey(l.apiKey)
	} else {
		status["status"] = "unavailable"
		status["error"] = "ANYTHING_LLM_URL or ANYTHING_LLM_API_KEY not set"
	}

	return status
}

// maskKey keeps only the ends of a credential for status output
func maskKey(key string) string {
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return "***"
}
