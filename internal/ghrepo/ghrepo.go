// Package ghrepo commits generated resume artifacts to a GitHub repository.
package ghrepo

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// PushError represents a failed commit to the hosting provider. Local
// artifacts written before the push are left in place.
type PushError struct {
	Repo    string
	Path    string
	Message string
	Cause   error
}

func (e *PushError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("push to %s (%s) failed: %s: %v", e.Repo, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("push to %s (%s) failed: %s", e.Repo, e.Path, e.Message)
}

func (e *PushError) Unwrap() error {
	return e.Cause
}

// Client commits files to a fixed repository and branch.
type Client struct {
	gh     *github.Client
	owner  string
	repo   string
	branch string
}

// New builds a token-authenticated client for owner/repo on branch.
func New(token, owner, repo, branch string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &Client{
		gh:     github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
		branch: branch,
	}
}

// newWithClient is used by tests to point at a mock API server.
func newWithClient(httpClient *http.Client, baseURL, owner, repo, branch string) *Client {
	gh := github.NewClient(httpClient)
	if baseURL != "" {
		gh, _ = gh.WithEnterpriseURLs(baseURL, baseURL)
	}
	return &Client{gh: gh, owner: owner, repo: repo, branch: branch}
}

func (c *Client) repoName() string {
	return c.owner + "/" + c.repo
}

// CommitFile creates or updates path on the configured branch. An existing
// file is updated in place using its current blob SHA.
func (c *Client) CommitFile(ctx context.Context, path string, content []byte, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(c.branch),
	}

	existing, _, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&github.RepositoryContentGetOptions{Ref: c.branch})
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		if _, _, err := c.gh.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts); err != nil {
			return &PushError{Repo: c.repoName(), Path: path, Message: "update failed", Cause: err}
		}
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		if _, _, err := c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts); err != nil {
			return &PushError{Repo: c.repoName(), Path: path, Message: "create failed", Cause: err}
		}
	default:
		return &PushError{Repo: c.repoName(), Path: path, Message: "content lookup failed", Cause: err}
	}

	return nil
}

// CommitFiles commits each file in sequence with the same message. The first
// failure aborts; files already committed stay committed.
func (c *Client) CommitFiles(ctx context.Context, files map[string][]byte, message string) error {
	for path, content := range files {
		if err := c.CommitFile(ctx, path, content, message); err != nil {
			return err
		}
	}
	return nil
}

// FileContent fetches the current content of path on the configured branch.
func (c *Client) FileContent(ctx context.Context, path string) (string, error) {
	existing, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&github.RepositoryContentGetOptions{Ref: c.branch})
	if err != nil {
		return "", &PushError{Repo: c.repoName(), Path: path, Message: "content lookup failed", Cause: err}
	}
	return existing.GetContent()
}
