package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubResolver discovers a default ref for a `repository:` dependency
// locator that names no explicit version: a token-optional oauth2
// client wrapping a github.Client, consulting Repositories.ListTags.
type GitHubResolver struct {
	client *github.Client
}

// NewGitHubResolver builds a resolver. token may be empty, in which
// case requests are made unauthenticated (subject to GitHub's lower
// rate limit for anonymous API access).
func NewGitHubResolver(token string) *GitHubResolver {
	if token == "" {
		return &GitHubResolver{client: github.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &GitHubResolver{client: github.NewClient(httpClient)}
}

// LatestTag returns the highest-named tag of owner/repo, the default
// ref chosen when a repository locator omits an explicit version.
func (g *GitHubResolver) LatestTag(ctx context.Context, owner, repo string) (string, error) {
	tags, _, err := g.client.Repositories.ListTags(ctx, owner, repo, &github.ListOptions{PerPage: 1})
	if err != nil {
		return "", fmt.Errorf("resolver: listing tags for %s/%s: %w", owner, repo, err)
	}
	if len(tags) == 0 {
		return "", fmt.Errorf("resolver: %s/%s has no tags", owner, repo)
	}
	return tags[0].GetName(), nil
}

// ownerRepo splits a "https://github.com/owner/repo(.git)" or
// "owner/repo" repository URL into its two path components.
func ownerRepo(repositoryURL string) (owner, repo string, ok bool) {
	trimmed := strings.TrimSuffix(repositoryURL, ".git")
	trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	trimmed = strings.TrimPrefix(trimmed, "git@github.com:")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
