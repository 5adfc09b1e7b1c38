package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrGitHubNotConfigured is returned when the CDN repository is not set up.
var ErrGitHubNotConfigured = errors.New("github cdn not configured")

var githubHTTPClient = &http.Client{Timeout: 15 * time.Second}

// GitHubCDN publishes static assets (cover images) to a GitHub repository and
// serves them through raw.githubusercontent.com.
type GitHubCDN struct {
	token  string
	owner  string
	repo   string
	branch string
	http   *http.Client
}

// NewGitHubCDN builds a client; token, owner and repo are required.
func NewGitHubCDN(token, owner, repo, branch string) (*GitHubCDN, error) {
	if token == "" || owner == "" || repo == "" {
		return nil, ErrGitHubNotConfigured
	}
	if branch == "" {
		branch = "main"
	}
	return &GitHubCDN{token: token, owner: owner, repo: repo, branch: branch, http: githubHTTPClient}, nil
}

// Upload creates or replaces path in the repository with content and returns
// the public raw URL. An existing file is overwritten by passing its sha.
func (g *GitHubCDN) Upload(ctx context.Context, path string, content []byte, message string) (string, error) {
	endpoint := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s", g.owner, g.repo, path)

	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  g.branch,
	}
	if sha, err := g.fileSHA(ctx, path); err == nil && sha != "" {
		payload["sha"] = sha
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	g.setHeaders(req)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("github upload failed: status %d: %s", resp.StatusCode, string(msg))
	}

	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", g.owner, g.repo, g.branch, path), nil
}

// fileSHA returns the blob sha of path on the configured branch, empty when absent.
func (g *GitHubCDN) fileSHA(ctx context.Context, path string) (string, error) {
	endpoint := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s?ref=%s", g.owner, g.repo, path, g.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	g.setHeaders(req)
	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	var body struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.SHA, nil
}

func (g *GitHubCDN) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "remusic-admin/1.0")
}
