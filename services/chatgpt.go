package services

import (
	"context"
	"net/http"
	"strings"

	"atomrouter/models"

	"github.com/sashabaranov/go-openai"
)

const hostedProvider = "hosted"

// ChatGPTService handles communication with OpenAI's chat completion API
type ChatGPTService struct {
	apiKey  string
	baseURL string
	model   string
	timeout string
	client  *openai.Client
}

// NewChatGPTService creates a new hosted provider client sharing httpClient
func NewChatGPTService(cfg models.OpenAIConfig, httpClient *http.Client) *ChatGPTService {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = httpClient

	return &ChatGPTService{
		apiKey:  cfg.APIKey,
		baseURL: clientConfig.BaseURL,
		model:   model,
		timeout: httpClient.Timeout.String(),
		client:  openai.NewClientWithConfig(clientConfig),
	}
}

// GenerateResponse sends instructions as the system message and prompt as the
// user message, returning the first choice
func (c *ChatGPTService) GenerateResponse(ctx context.Context, prompt, instructions string) (string, error) {
	if c.apiKey == "" {
		return "", providerErrorf(hostedProvider, "OPENAI_API_KEY not set")
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: instructions,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", providerErrorf(hostedProvider, "error creating chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", providerErrorf(hostedProvider, "no response choices from ChatGPT")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// IsAvailable reports whether an API key is configured
func (c *ChatGPTService) IsAvailable() bool {
	return c.apiKey != ""
}

// GetModel returns the current model
func (c *ChatGPTService) GetModel() string {
	return c.model
}

// GetStatus returns the status of the ChatGPT service
func (c *ChatGPTService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"base_url": c.baseURL,
		"model":    c.model,
		"timeout":  c.timeout,
	}

	if c.IsAvailable() {
		status["status"] = "configured"
		status["api_key"] = maskKey(c.apiKey)
	} else {
		status["status"] = "unavailable"
		status["error"] = "OPENAI_API_KEY not set"
	}

	return status
}
