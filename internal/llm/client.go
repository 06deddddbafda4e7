// Package llm provides chat-completion clients for the hosted model
// providers and a parser for extracting files from completion output.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Client completes a prompt against a hosted chat model.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
}

// ErrNoProvider indicates no client is configured for the requested model.
var ErrNoProvider = errors.New("llm: no provider configured for model")

// Router dispatches completions to the provider that serves the model.
type Router struct {
	groq      Client
	anthropic Client
}

// NewRouter constructs a Router. Either client may be nil when the provider
// is not configured.
func NewRouter(groq, anthropic Client) *Router {
	return &Router{groq: groq, anthropic: anthropic}
}

// Complete routes the completion by model identifier prefix.
func (r *Router) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	client := r.groq
	if strings.HasPrefix(strings.TrimSpace(model), "claude-") {
		client = r.anthropic
	}
	if client == nil {
		return "", ErrNoProvider
	}
	return client.Complete(ctx, systemPrompt, userPrompt, model)
}
