// Package openai provides an OpenAI-compatible implementation of the
// llm.Provider interface.
//
// The provider uses the OpenAI SDK's message parameter types for
// request construction and a direct HTTP call for the completion
// itself, which keeps compatibility with OpenAI-compatible gateways
// that deviate slightly from the SDK's expectations.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go"

	"github.com/entrhq/capture/pkg/llm"
	"github.com/entrhq/capture/pkg/usage"
)

// DefaultBaseURL is the standard OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// Provider implements llm.Provider against OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model used for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom endpoint for OpenAI-compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// NewProvider creates a provider with the given API key. An empty key
// falls back to the OPENAI_API_KEY environment variable; an unset base
// URL falls back to OPENAI_BASE_URL, then the default endpoint.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	p := &Provider{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}
	return p, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}

// completionResponse mirrors the fields of the chat completion reply we
// consume, including cached-token details when the API reports them.
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
}

// Complete sends the conversation and returns the assistant's response
// with token usage.
func (p *Provider) Complete(ctx context.Context, messages []*llm.Message) (*llm.Completion, error) {
	reqBody := map[string]interface{}{
		"model":    p.model,
		"messages": convertMessages(messages),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	cached := parsed.Usage.PromptTokensDetails.CachedTokens
	return &llm.Completion{
		Content: parsed.Choices[0].Message.Content,
		Usage: usage.TokenUsage{
			// Cached tokens are reported as part of the prompt; account
			// for them separately so pricing applies the cached rate.
			InputTokens:  parsed.Usage.PromptTokens - cached,
			OutputTokens: parsed.Usage.CompletionTokens,
			CachedTokens: cached,
		},
	}, nil
}

// convertMessages maps internal messages onto the SDK's parameter types.
func convertMessages(messages []*llm.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}
	return converted
}
