// Package scaffold generates site and app codebases from a prompt through
// the hosted models, charged through the usage guard.
package scaffold

import (
	"context"
	"fmt"
	"strings"

	"github.com/zapcodes-dev/zapcodes/internal/guard"
	"github.com/zapcodes-dev/zapcodes/internal/llm"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/tier"
)

// Kind selects the scaffolding template.
type Kind string

// Scaffolding kinds.
const (
	// KindSite is a static marketing or landing site.
	KindSite Kind = "site"
	// KindApp is a small interactive web app.
	KindApp Kind = "app"
)

// PromptTooLongError reports a prompt over the plan's character cap.
type PromptTooLongError struct {
	Length int        // Characters submitted.
	Max    tier.Limit // Plan cap.
}

// Error renders the rejection detail.
func (e *PromptTooLongError) Error() string {
	return fmt.Sprintf("prompt of %d characters exceeds the plan cap of %s", e.Length, e.Max)
}

// Service generates scaffolding through the LLM router.
type Service struct {
	guard *guard.Service
	llm   *llm.Router
}

// NewService constructs a scaffold Service.
func NewService(guardSvc *guard.Service, router *llm.Router) *Service {
	return &Service{guard: guardSvc, llm: router}
}

// Request describes one generation.
type Request struct {
	Prompt string `json:"prompt" binding:"required"`
	Kind   Kind   `json:"kind"`
	Model  string `json:"model"`
	PWA    bool   `json:"pwa"`
}

// Result carries the generated files.
type Result struct {
	Files   []llm.File    `json:"files"`
	Outcome guard.Outcome `json:"outcome"`
}

const siteSystemPrompt = `You build complete static websites. Return every file of the site, each
in its own fenced code block whose info string names the file path (for
example ` + "```html index.html" + `). Always include index.html. Use plain
HTML, CSS, and vanilla JavaScript. No build tooling.`

const appSystemPrompt = `You build small single-page web apps. Return every file of the app, each
in its own fenced code block whose info string names the file path (for
example ` + "```html index.html" + `). Always include index.html. Use plain
HTML, CSS, and vanilla JavaScript with no build step.`

const pwaAddendum = `

Make the result an installable PWA: include manifest.webmanifest, a
service worker sw.js with an offline cache, and register it from the page.`

// Generate produces the scaffolding files for a prompt.
//
// A PWA request is charged as a PWA build and requires the tier flag; plain
// requests are charged as generations.
func (s *Service) Generate(ctx context.Context, user *models.User, req Request) (*Result, error) {
	caps := tier.Resolve(user.Plan)
	if !user.Role.BypassesLimits() && !caps.MaxRequestChars.IsUnlimited() &&
		int64(len(req.Prompt)) > int64(caps.MaxRequestChars) {
		return nil, &PromptTooLongError{Length: len(req.Prompt), Max: caps.MaxRequestChars}
	}

	model, errModel := guard.ResolveModel(user, req.Model)
	if errModel != nil {
		return nil, errModel
	}

	action := tier.ActionGeneration
	systemPrompt := siteSystemPrompt
	if req.Kind == KindApp {
		systemPrompt = appSystemPrompt
	}
	if req.PWA {
		if errFeature := guard.RequireFeature(user, guard.FeaturePWA); errFeature != nil {
			return nil, errFeature
		}
		action = tier.ActionPWABuild
		systemPrompt += pwaAddendum
	}

	result := &Result{}
	outcome, errRun := s.guard.Run(ctx, user, action, func(ctx context.Context) error {
		completion, errComplete := s.llm.Complete(ctx, systemPrompt, req.Prompt, model)
		if errComplete != nil {
			return errComplete
		}
		files := llm.ExtractFiles(completion)
		if len(files) == 0 {
			return guard.ErrEmptyResult
		}
		if !hasIndex(files) {
			return guard.ErrEmptyResult
		}
		result.Files = files
		return nil
	})
	if errRun != nil {
		return nil, errRun
	}
	result.Outcome = outcome
	return result, nil
}

// hasIndex reports whether the file set contains an entry page.
func hasIndex(files []llm.File) bool {
	for _, file := range files {
		if strings.EqualFold(file.Path, "index.html") {
			return true
		}
	}
	return false
}
