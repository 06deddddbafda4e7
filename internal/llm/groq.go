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

// groqDefaultTimeout bounds one completion call.
const groqDefaultTimeout = 60 * time.Second

// defaultGroqBaseURL is the Groq OpenAI-compatible endpoint.
const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqOptions configures a GroqClient.
type GroqOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// GroqClient calls the Groq chat-completion API.
type GroqClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// groqChatRequest is the chat-completion request payload.
type groqChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatMessage is one chat turn.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqChatResponse is the chat-completion response payload.
type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewGroqClient constructs a GroqClient.
func NewGroqClient(opts GroqOptions) (*GroqClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("llm: groq api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: groqDefaultTimeout}
	}
	return &GroqClient{apiKey: opts.APIKey, baseURL: baseURL, client: client}, nil
}

// Complete sends one chat completion and returns the assistant text.
func (g *GroqClient) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	payload := groqChatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return "", fmt.Errorf("llm: encode groq request: %w", errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if errReq != nil {
		return "", fmt.Errorf("llm: build groq request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, errDo := g.client.Do(req)
	if errDo != nil {
		return "", fmt.Errorf("llm: groq request: %w", errDo)
	}
	defer resp.Body.Close()

	raw, errRead := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if errRead != nil {
		return "", fmt.Errorf("llm: read groq response: %w", errRead)
	}

	var parsed groqChatResponse
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return "", fmt.Errorf("llm: decode groq response: %w", errUnmarshal)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("llm: groq status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("llm: groq status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("llm: groq returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
