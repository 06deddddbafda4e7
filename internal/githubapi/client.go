// Package githubapi is a thin client for the GitHub REST endpoints the
// repair and push features consume.
package githubapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultBaseURL is the GitHub REST API root.
const defaultBaseURL = "https://api.github.com"

// defaultTimeout bounds one API call.
const defaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client calls the GitHub REST API on behalf of one token.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{token: strings.TrimSpace(opts.Token), baseURL: baseURL, client: client}
}

// Repo describes a repository.
type Repo struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
}

// TreeEntry is one entry of a repository tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// PullRequest describes a created pull request.
type PullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// APIError reports a non-success GitHub response.
type APIError struct {
	StatusCode int
	Message    string
}

// Error renders the status and message.
func (e *APIError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a GitHub 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// GetRepo fetches repository metadata.
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	var out Repo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRepo creates a repository for the authenticated user.
func (c *Client) CreateRepo(ctx context.Context, name string, private bool) (*Repo, error) {
	payload := map[string]any{"name": name, "private": private, "auto_init": true}
	var out Repo
	if err := c.do(ctx, http.MethodPost, "/user/repos", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrCreateRepo fetches the repository, creating it when missing.
func (c *Client) GetOrCreateRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	existing, errGet := c.GetRepo(ctx, owner, repo)
	if errGet == nil {
		return existing, nil
	}
	if !IsNotFound(errGet) {
		return nil, errGet
	}
	return c.CreateRepo(ctx, repo, true)
}

// ListTree lists the full repository tree at the given ref.
func (c *Client) ListTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	var out struct {
		Tree []TreeEntry `json:"tree"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, url.PathEscape(ref))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Tree, nil
}

// GetFileContent fetches a file's decoded content and blob SHA.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (content string, sha string, err error) {
	var out struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		SHA      string `json:"sha"`
	}
	reqPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))
	if ref != "" {
		reqPath += "?ref=" + url.QueryEscape(ref)
	}
	if errDo := c.do(ctx, http.MethodGet, reqPath, nil, &out); errDo != nil {
		return "", "", errDo
	}
	if out.Encoding == "base64" {
		decoded, errDecode := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
		if errDecode != nil {
			return "", "", fmt.Errorf("github: decode content: %w", errDecode)
		}
		return string(decoded), out.SHA, nil
	}
	return out.Content, out.SHA, nil
}

// PutFile creates or updates a file on a branch. The sha is required when
// updating an existing file and empty when creating one.
func (c *Client) PutFile(ctx context.Context, owner, repo, path, branch, message, content, sha string) error {
	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
	}
	if branch != "" {
		payload["branch"] = branch
	}
	if sha != "" {
		payload["sha"] = sha
	}
	reqPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, escapePath(path))
	return c.do(ctx, http.MethodPut, reqPath, payload, nil)
}

// CreateBranch creates a branch from the head of the base branch.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, base, branch string) error {
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	getPath := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, repo, url.PathEscape(base))
	if errGet := c.do(ctx, http.MethodGet, getPath, nil, &ref); errGet != nil {
		return errGet
	}
	payload := map[string]any{
		"ref": "refs/heads/" + branch,
		"sha": ref.Object.SHA,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/refs", owner, repo), payload, nil)
}

// CreatePullRequest opens a PR from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*PullRequest, error) {
	payload := map[string]any{
		"title": title,
		"body":  body,
		"head":  head,
		"base":  base,
	}
	var out PullRequest
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one API call and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, errMarshal := json.Marshal(payload)
		if errMarshal != nil {
			return fmt.Errorf("github: encode request: %w", errMarshal)
		}
		body = bytes.NewReader(raw)
	}

	req, errReq := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if errReq != nil {
		return fmt.Errorf("github: build request: %w", errReq)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, errDo := c.client.Do(req)
	if errDo != nil {
		return fmt.Errorf("github: request: %w", errDo)
	}
	defer resp.Body.Close()

	raw, errRead := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if errRead != nil {
		return fmt.Errorf("github: read response: %w", errRead)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiMsg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiMsg)
		return &APIError{StatusCode: resp.StatusCode, Message: apiMsg.Message}
	}

	if out != nil {
		if errUnmarshal := json.Unmarshal(raw, out); errUnmarshal != nil {
			return fmt.Errorf("github: decode response: %w", errUnmarshal)
		}
	}
	return nil
}

// escapePath escapes each path segment while keeping separators.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
