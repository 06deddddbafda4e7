package githubapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{Token: "test-token", BaseURL: server.URL})
}

func TestGetRepo(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octocat/hello" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Fatalf("unexpected accept header %q", got)
		}
		json.NewEncoder(w).Encode(Repo{FullName: "octocat/hello", DefaultBranch: "main"})
	}))

	repo, errGet := client.GetRepo(context.Background(), "octocat", "hello")
	if errGet != nil {
		t.Fatalf("get repo: %v", errGet)
	}
	if repo.FullName != "octocat/hello" || repo.DefaultBranch != "main" {
		t.Fatalf("unexpected repo: %+v", repo)
	}
}

func TestGetRepo_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	}))

	_, errGet := client.GetRepo(context.Background(), "octocat", "missing")
	if !IsNotFound(errGet) {
		t.Fatalf("expected a not-found error, got %v", errGet)
	}
}

func TestGetOrCreateRepo_CreatesWhenMissing(t *testing.T) {
	created := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/user/repos":
			var payload map[string]any
			if errDecode := json.NewDecoder(r.Body).Decode(&payload); errDecode != nil {
				t.Fatalf("decode payload: %v", errDecode)
			}
			if payload["name"] != "hello" || payload["auto_init"] != true {
				t.Fatalf("unexpected payload: %+v", payload)
			}
			created = true
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(Repo{FullName: "octocat/hello", DefaultBranch: "main"})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	repo, errGet := client.GetOrCreateRepo(context.Background(), "octocat", "hello")
	if errGet != nil {
		t.Fatalf("get or create: %v", errGet)
	}
	if !created || repo.FullName != "octocat/hello" {
		t.Fatalf("expected a created repo, got %+v", repo)
	}
}

func TestGetFileContent_DecodesBase64(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octocat/hello/contents/src/main.go" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ref"); got != "main" {
			t.Fatalf("unexpected ref %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"content":  base64.StdEncoding.EncodeToString([]byte("package main\n")),
			"encoding": "base64",
			"sha":      "abc123",
		})
	}))

	content, sha, errGet := client.GetFileContent(context.Background(), "octocat", "hello", "src/main.go", "main")
	if errGet != nil {
		t.Fatalf("get file content: %v", errGet)
	}
	if content != "package main\n" || sha != "abc123" {
		t.Fatalf("unexpected content %q sha %q", content, sha)
	}
}

func TestCreateBranch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octocat/hello/git/ref/heads/main":
			json.NewEncoder(w).Encode(map[string]any{"object": map[string]string{"sha": "deadbeef"}})
		case "/repos/octocat/hello/git/refs":
			var payload map[string]string
			if errDecode := json.NewDecoder(r.Body).Decode(&payload); errDecode != nil {
				t.Fatalf("decode payload: %v", errDecode)
			}
			if payload["ref"] != "refs/heads/fix-1" || payload["sha"] != "deadbeef" {
				t.Fatalf("unexpected payload: %+v", payload)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	if errCreate := client.CreateBranch(context.Background(), "octocat", "hello", "main", "fix-1"); errCreate != nil {
		t.Fatalf("create branch: %v", errCreate)
	}
}

func TestCreatePullRequest(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octocat/hello/pulls" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(PullRequest{Number: 7, HTMLURL: "https://github.com/octocat/hello/pull/7"})
	}))

	pr, errCreate := client.CreatePullRequest(context.Background(), "octocat", "hello", "Fixes", "body", "fix-1", "main")
	if errCreate != nil {
		t.Fatalf("create pull request: %v", errCreate)
	}
	if pr.Number != 7 || pr.HTMLURL == "" {
		t.Fatalf("unexpected pull request: %+v", pr)
	}
}
