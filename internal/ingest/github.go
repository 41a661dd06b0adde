package ingest

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/jonathan/ats-optimizer/internal/types"
)

// maxReposPerPage bounds the repository listing to a single page; more repos
// than this add noise without improving the capability profile.
const maxReposPerPage = 100

// maxCommitsCounted caps per-repo commit counting to stay inside rate limits.
const maxCommitsCounted = 100

// maxReadmeBullets caps how many README bullets are kept per repository.
const maxReadmeBullets = 10

var (
	markdownBulletRe = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	numberedBulletRe = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
)

// GitHubSource fetches repositories, READMEs and commit activity for a user.
type GitHubSource struct {
	client   *github.Client
	username string
}

// NewGitHubSource builds a token-authenticated GitHub source.
func NewGitHubSource(token, username string) *GitHubSource {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &GitHubSource{
		client:   github.NewClient(httpClient),
		username: username,
	}
}

// newGitHubSourceWithClient is used by tests to point at a mock API server.
func newGitHubSourceWithClient(httpClient *http.Client, baseURL, username string) *GitHubSource {
	client := github.NewClient(httpClient)
	if baseURL != "" {
		client, _ = client.WithEnterpriseURLs(baseURL, baseURL)
	}
	return &GitHubSource{client: client, username: username}
}

// Fetch populates profile with repository data. Forks and archived
// repositories are skipped.
func (s *GitHubSource) Fetch(ctx context.Context, profile *types.Profile) error {
	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: maxReposPerPage},
	}
	repos, _, err := s.client.Repositories.ListByUser(ctx, s.username, opts)
	if err != nil {
		return err
	}

	for _, repo := range repos {
		if repo.GetFork() || repo.GetArchived() {
			continue
		}

		entry := types.Repository{
			Name:        repo.GetName(),
			Description: repo.GetDescription(),
			Language:    repo.GetLanguage(),
			Stars:       repo.GetStargazersCount(),
			Forks:       repo.GetForksCount(),
			Topics:      repo.Topics,
		}

		// README bullets; missing README is fine.
		if readme, _, err := s.client.Repositories.GetReadme(ctx, s.username, entry.Name, nil); err == nil {
			if content, err := readme.GetContent(); err == nil {
				entry.KeyBullets = extractReadmeBullets(content)
			}
		}

		// Approximate commit count, capped to avoid rate-limit burn.
		commitOpts := &github.CommitsListOptions{
			Author:      s.username,
			ListOptions: github.ListOptions{PerPage: maxCommitsCounted},
		}
		if commits, _, err := s.client.Repositories.ListCommits(ctx, s.username, entry.Name, commitOpts); err == nil {
			entry.Commits = len(commits)
			profile.TotalCommits += len(commits)
		}

		if entry.Language != "" {
			profile.Languages[entry.Language]++
		}

		profile.Repositories = append(profile.Repositories, entry)
	}

	return nil
}

// extractReadmeBullets pulls markdown bullet and numbered-list items from
// README content.
func extractReadmeBullets(content string) []string {
	var bullets []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if m := markdownBulletRe.FindStringSubmatch(line); m != nil {
			bullets = append(bullets, strings.TrimSpace(m[1]))
		} else if m := numberedBulletRe.FindStringSubmatch(line); m != nil {
			bullets = append(bullets, strings.TrimSpace(m[1]))
		}
		if len(bullets) >= maxReadmeBullets {
			break
		}
	}
	return bullets
}
