package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// anthropicDefaultTimeout bounds one completion call.
const anthropicDefaultTimeout = 120 * time.Second

// defaultAnthropicBaseURL is the Anthropic messages endpoint root.
const defaultAnthropicBaseURL = "https://api.anthropic.com/v1"

// anthropicVersion pins the API version header.
const anthropicVersion = "2023-06-01"

// anthropicMaxTokens caps the completion length.
const anthropicMaxTokens = 8192

// AnthropicOptions configures an AnthropicClient.
type AnthropicOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// anthropicRequest is the messages request payload.
type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

// anthropicResponse is the messages response payload.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient constructs an AnthropicClient.
func NewAnthropicClient(opts AnthropicOptions) (*AnthropicClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("llm: anthropic api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: anthropicDefaultTimeout}
	}
	return &AnthropicClient{apiKey: opts.APIKey, baseURL: baseURL, client: client}, nil
}

// Complete sends one message request and returns the concatenated text blocks.
func (a *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	payload := anthropicRequest{
		Model:     model,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: userPrompt}},
	}
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return "", fmt.Errorf("llm: encode anthropic request: %w", errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if errReq != nil {
		return "", fmt.Errorf("llm: build anthropic request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, errDo := a.client.Do(req)
	if errDo != nil {
		return "", fmt.Errorf("llm: anthropic request: %w", errDo)
	}
	defer resp.Body.Close()

	raw, errRead := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if errRead != nil {
		return "", fmt.Errorf("llm: read anthropic response: %w", errRead)
	}

	var parsed anthropicResponse
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return "", fmt.Errorf("llm: decode anthropic response: %w", errUnmarshal)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("llm: anthropic status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("llm: anthropic status %d", resp.StatusCode)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("llm: anthropic returned no text content")
	}
	return sb.String(), nil
}
