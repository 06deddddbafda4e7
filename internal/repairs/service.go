// Package repairs implements repository scanning, LLM fix generation, and
// GitHub pushes, each charged through the usage guard.
package repairs

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/zapcodes-dev/zapcodes/internal/githubapi"
	"github.com/zapcodes-dev/zapcodes/internal/guard"
	"github.com/zapcodes-dev/zapcodes/internal/llm"
	"github.com/zapcodes-dev/zapcodes/internal/models"
	"github.com/zapcodes-dev/zapcodes/internal/settings"
	"github.com/zapcodes-dev/zapcodes/internal/tier"

	"github.com/google/uuid"
)

// maxFileBytes skips source files larger than this during a scan.
const maxFileBytes = 64 * 1024

// sourceExtensions marks files worth sending to the model.
var sourceExtensions = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".rb": true, ".php": true, ".java": true, ".c": true,
	".h": true, ".cpp": true, ".cs": true, ".rs": true, ".kt": true,
	".swift": true, ".html": true, ".css": true, ".vue": true,
	".sql": true, ".sh": true, ".yaml": true, ".yml": true, ".json": true,
}

// Service runs the repair pipeline.
type Service struct {
	guard  *guard.Service
	llm    *llm.Router
	github *githubapi.Client
}

// NewService constructs a repairs Service.
func NewService(guardSvc *guard.Service, router *llm.Router, github *githubapi.Client) *Service {
	return &Service{guard: guardSvc, llm: router, github: github}
}

// ScanRequest names the repository to scan.
type ScanRequest struct {
	Owner string `json:"owner" binding:"required"`
	Repo  string `json:"repo" binding:"required"`
	Model string `json:"model"`
}

// ScanResult carries the model's bug report and the account state after the
// charge.
type ScanResult struct {
	Report  string        `json:"report"`
	Files   []string      `json:"files"`
	Outcome guard.Outcome `json:"outcome"`
}

const scanSystemPrompt = `You are a senior code reviewer. You receive the source files of a
repository and report concrete bugs: logic errors, crashes, security issues,
broken edge cases. For each bug name the file, describe the defect, and
sketch the fix. Ignore style. If you find nothing, say so.`

// Scan fetches the repository's source files and asks the model for a bug
// report. The scan is charged as a code fix.
func (s *Service) Scan(ctx context.Context, user *models.User, req ScanRequest) (*ScanResult, error) {
	model, errModel := guard.ResolveModel(user, req.Model)
	if errModel != nil {
		return nil, errModel
	}

	result := &ScanResult{}
	outcome, errRun := s.guard.Run(ctx, user, tier.ActionCodeFix, func(ctx context.Context) error {
		files, errFetch := s.fetchSources(ctx, req.Owner, req.Repo)
		if errFetch != nil {
			return errFetch
		}
		if len(files) == 0 {
			return guard.ErrEmptyResult
		}

		report, errComplete := s.llm.Complete(ctx, scanSystemPrompt, renderSources(files), model)
		if errComplete != nil {
			return errComplete
		}
		if strings.TrimSpace(report) == "" {
			return guard.ErrEmptyResult
		}

		result.Report = report
		for _, file := range files {
			result.Files = append(result.Files, file.Path)
		}
		return nil
	})
	if errRun != nil {
		return nil, errRun
	}
	result.Outcome = outcome
	return result, nil
}

// FixRequest asks for fixed files addressing a bug report.
type FixRequest struct {
	Owner  string `json:"owner" binding:"required"`
	Repo   string `json:"repo" binding:"required"`
	Report string `json:"report" binding:"required"`
	Model  string `json:"model"`
}

// FixResult carries the rewritten files.
type FixResult struct {
	Files   []llm.File    `json:"files"`
	Outcome guard.Outcome `json:"outcome"`
}

const fixSystemPrompt = `You are a senior engineer fixing reported bugs. You receive source files
and a bug report. Return the complete corrected content of every file you
change, each in its own fenced code block whose info string names the file
path (for example ` + "```go main.go" + `). Return only changed files.`

// Fix fetches the sources again and asks the model for corrected files.
func (s *Service) Fix(ctx context.Context, user *models.User, req FixRequest) (*FixResult, error) {
	model, errModel := guard.ResolveModel(user, req.Model)
	if errModel != nil {
		return nil, errModel
	}

	result := &FixResult{}
	outcome, errRun := s.guard.Run(ctx, user, tier.ActionCodeFix, func(ctx context.Context) error {
		files, errFetch := s.fetchSources(ctx, req.Owner, req.Repo)
		if errFetch != nil {
			return errFetch
		}
		if len(files) == 0 {
			return guard.ErrEmptyResult
		}

		prompt := "Bug report:\n" + req.Report + "\n\n" + renderSources(files)
		completion, errComplete := s.llm.Complete(ctx, fixSystemPrompt, prompt, model)
		if errComplete != nil {
			return errComplete
		}

		fixed := llm.ExtractFiles(completion)
		if len(fixed) == 0 {
			return guard.ErrEmptyResult
		}
		result.Files = fixed
		return nil
	})
	if errRun != nil {
		return nil, errRun
	}
	result.Outcome = outcome
	return result, nil
}

// PushRequest carries fixed files to push as a pull request.
type PushRequest struct {
	Owner   string     `json:"owner" binding:"required"`
	Repo    string     `json:"repo" binding:"required"`
	Files   []llm.File `json:"files" binding:"required"`
	Title   string     `json:"title"`
	Summary string     `json:"summary"`
}

// PushResult reports the created branch and pull request.
type PushResult struct {
	Branch  string        `json:"branch"`
	PRURL   string        `json:"pr_url"`
	Number  int           `json:"number"`
	Outcome guard.Outcome `json:"outcome"`
}

// Push commits the fixed files on a fresh branch and opens a pull request.
func (s *Service) Push(ctx context.Context, user *models.User, req PushRequest) (*PushResult, error) {
	result := &PushResult{}
	outcome, errRun := s.guard.Run(ctx, user, tier.ActionGithubPush, func(ctx context.Context) error {
		if len(req.Files) == 0 {
			return guard.ErrEmptyResult
		}

		repo, errRepo := s.github.GetRepo(ctx, req.Owner, req.Repo)
		if errRepo != nil {
			return errRepo
		}

		branch := "zapcodes-fix-" + uuid.NewString()[:8]
		if errBranch := s.github.CreateBranch(ctx, req.Owner, req.Repo, repo.DefaultBranch, branch); errBranch != nil {
			return errBranch
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = "Automated bug fixes"
		}
		for _, file := range req.Files {
			_, sha, errGet := s.github.GetFileContent(ctx, req.Owner, req.Repo, file.Path, branch)
			if errGet != nil && !githubapi.IsNotFound(errGet) {
				return errGet
			}
			message := fmt.Sprintf("Fix %s", file.Path)
			if errPut := s.github.PutFile(ctx, req.Owner, req.Repo, file.Path, branch, message, file.Content, sha); errPut != nil {
				return errPut
			}
		}

		pr, errPR := s.github.CreatePullRequest(ctx, req.Owner, req.Repo, title, req.Summary, branch, repo.DefaultBranch)
		if errPR != nil {
			return errPR
		}
		result.Branch = branch
		result.PRURL = pr.HTMLURL
		result.Number = pr.Number
		return nil
	})
	if errRun != nil {
		return nil, errRun
	}
	result.Outcome = outcome
	return result, nil
}

// fetchSources lists the repository tree and downloads up to the configured
// number of source files.
func (s *Service) fetchSources(ctx context.Context, owner, repo string) ([]llm.File, error) {
	meta, errRepo := s.github.GetRepo(ctx, owner, repo)
	if errRepo != nil {
		return nil, errRepo
	}
	entries, errTree := s.github.ListTree(ctx, owner, repo, meta.DefaultBranch)
	if errTree != nil {
		return nil, errTree
	}

	maxFiles := settings.IntValue(settings.ScanMaxFilesKey, settings.DefaultScanMaxFiles)
	var files []llm.File
	for _, entry := range entries {
		if len(files) >= maxFiles {
			break
		}
		if entry.Type != "blob" || entry.Size > maxFileBytes {
			continue
		}
		if !sourceExtensions[strings.ToLower(path.Ext(entry.Path))] {
			continue
		}
		content, _, errContent := s.github.GetFileContent(ctx, owner, repo, entry.Path, meta.DefaultBranch)
		if errContent != nil {
			return nil, errContent
		}
		files = append(files, llm.File{Path: entry.Path, Content: content})
	}
	return files, nil
}

// renderSources formats files as one prompt section per file.
func renderSources(files []llm.File) string {
	var sb strings.Builder
	for _, file := range files {
		sb.WriteString("File: ")
		sb.WriteString(file.Path)
		sb.WriteString("\n```\n")
		sb.WriteString(file.Content)
		if !strings.HasSuffix(file.Content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n\n")
	}
	return sb.String()
}
