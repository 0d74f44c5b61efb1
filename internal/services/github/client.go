// Package github provides the gateway to the GitHub API, mapping REST and
// GraphQL payloads into the strict activity types as soon as they arrive.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	gogithub "github.com/google/go-github/v62/github"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// ErrUnauthorized means GitHub rejected the access token.
var ErrUnauthorized = errors.New("github: access token rejected")

// ErrNotFound means the requested user or repository does not exist.
var ErrNotFound = errors.New("github: not found")

// ScopeRepo is the OAuth scope that grants access to private repositories.
const ScopeRepo = "repo"

// GrantedScopes are the OAuth scopes reported in the X-OAuth-Scopes header.
type GrantedScopes []string

// Has reports whether scope was granted.
func (g GrantedScopes) Has(scope string) bool {
	for _, s := range g {
		if s == scope {
			return true
		}
	}
	return false
}

// String joins the scopes the way GitHub sends them.
func (g GrantedScopes) String() string {
	return strings.Join(g, ", ")
}

// ParseScopes parses an X-OAuth-Scopes header value.
func ParseScopes(header string) GrantedScopes {
	var scopes GrantedScopes
	for _, s := range strings.Split(header, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// Profile is the authenticated user's identity.
type Profile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

// Fetcher defines what the report pipeline needs from GitHub.
type Fetcher interface {
	ListRepositories(ctx context.Context) ([]activity.Repository, GrantedScopes, error)
	ListCommits(ctx context.Context, repo activity.Repository, author string, since time.Time) ([]activity.Commit, error)
	SearchPullRequests(ctx context.Context, author string, since time.Time) ([]activity.PullRequest, error)
	ListPublicRepositories(ctx context.Context, username string) ([]activity.Repository, error)
	Viewer(ctx context.Context) (*Profile, error)
}

// Factory builds a Fetcher for one access token.
type Factory func(token string) (Fetcher, error)

// Options tune the gateway. The zero value targets github.com.
type Options struct {
	// APIBaseURL points at a GitHub Enterprise REST endpoint.
	APIBaseURL string
	// MaxPages bounds every paginated listing.
	MaxPages int
}

// Client is the concrete implementation of Fetcher.
type Client struct {
	rest     *gogithub.Client
	graphql  *githubv4.Client
	maxPages int
}

// NewClient creates a gateway authenticated with token; an empty token makes
// anonymous requests. Requests go through a waiter that sleeps on GitHub's
// secondary rate limit.
func NewClient(token string, opts Options) (*Client, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	httpClient := &http.Client{Transport: rateLimitWaiter}
	if token != "" {
		httpClient.Transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}

	rest := gogithub.NewClient(httpClient)
	graphql := githubv4.NewClient(httpClient)
	if opts.APIBaseURL != "" {
		rest, err = rest.WithEnterpriseURLs(opts.APIBaseURL, opts.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		graphql = githubv4.NewEnterpriseClient(enterpriseGraphQLURL(opts.APIBaseURL), httpClient)
	}

	return newClient(rest, graphql, opts.MaxPages), nil
}

// NewFactory returns a Factory that builds clients with opts.
func NewFactory(opts Options) Factory {
	return func(token string) (Fetcher, error) {
		return NewClient(token, opts)
	}
}

func newClient(rest *gogithub.Client, graphql *githubv4.Client, maxPages int) *Client {
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Client{rest: rest, graphql: graphql, maxPages: maxPages}
}

// enterpriseGraphQLURL maps https://host/api/v3/ to https://host/api/graphql.
func enterpriseGraphQLURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil {
		return apiBase
	}
	u.Path = "/api/graphql"
	return u.String()
}

// wrapError maps a 401 from either API to ErrUnauthorized and a REST 404 to
// ErrNotFound.
func wrapError(op string, err error) error {
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", op, ErrUnauthorized)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	if strings.Contains(err.Error(), "401 Unauthorized") {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isEmptyRepository(err error) bool {
	var ghErr *gogithub.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusConflict
}

func splitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q", fullName)
	}
	return parts[0], parts[1], nil
}

func toRepository(r *gogithub.Repository) activity.Repository {
	return activity.Repository{
		ID:       r.GetID(),
		FullName: r.GetFullName(),
		Private:  r.GetPrivate(),
		PushedAt: r.GetPushedAt().Time,
	}
}

// ListRepositories lists every repository the token can see, most recently
// pushed first, together with the scopes granted to the token.
func (c *Client) ListRepositories(ctx context.Context) ([]activity.Repository, GrantedScopes, error) {
	opts := &gogithub.RepositoryListByAuthenticatedUserOptions{
		Type:        "all",
		Sort:        "pushed",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	var repos []activity.Repository
	var scopes GrantedScopes
	for page := 0; page < c.maxPages; page++ {
		result, resp, err := c.rest.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, nil, wrapError("failed to list repositories", err)
		}
		if page == 0 {
			scopes = ParseScopes(resp.Header.Get("X-OAuth-Scopes"))
		}
		for _, r := range result {
			repos = append(repos, toRepository(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	logger.Debug().Int("count", len(repos)).Str("scopes", scopes.String()).Msg("listed repositories")
	return repos, scopes, nil
}

// ListPublicRepositories lists the public repositories of username.
func (c *Client) ListPublicRepositories(ctx context.Context, username string) ([]activity.Repository, error) {
	opts := &gogithub.RepositoryListByUserOptions{
		Sort:        "pushed",
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	var repos []activity.Repository
	for page := 0; page < c.maxPages; page++ {
		result, resp, err := c.rest.Repositories.ListByUser(ctx, username, opts)
		if err != nil {
			return nil, wrapError("failed to list public repositories", err)
		}
		for _, r := range result {
			repos = append(repos, toRepository(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return repos, nil
}

// ListCommits lists the commits of author in repo since the cutoff. The commit
// timestamp is the committer date. An empty repository yields no commits.
func (c *Client) ListCommits(ctx context.Context, repo activity.Repository, author string, since time.Time) ([]activity.Commit, error) {
	owner, name, err := splitFullName(repo.FullName)
	if err != nil {
		return nil, err
	}
	opts := &gogithub.CommitsListOptions{
		Author:      author,
		Since:       since,
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	var commits []activity.Commit
	for page := 0; page < c.maxPages; page++ {
		result, resp, err := c.rest.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			if isEmptyRepository(err) {
				return []activity.Commit{}, nil
			}
			return nil, wrapError(fmt.Sprintf("failed to list commits for %s", repo.FullName), err)
		}
		for _, rc := range result {
			commits = append(commits, toCommit(rc))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

func toCommit(rc *gogithub.RepositoryCommit) activity.Commit {
	var ts string
	if date := rc.GetCommit().GetCommitter().GetDate(); !date.IsZero() {
		ts = date.UTC().Format(time.RFC3339)
	}
	return activity.Commit{
		Message:   rc.GetCommit().GetMessage(),
		SHA:       rc.GetSHA(),
		URL:       rc.GetHTMLURL(),
		Timestamp: ts,
	}
}

// PullRequestQuery builds the search query for pull requests authored by
// author and updated after since.
func PullRequestQuery(author string, since time.Time) string {
	return fmt.Sprintf("type:pr author:%s updated:>%s", author, since.UTC().Format("2006-01-02T15:04:05Z"))
}

// SearchPullRequests finds pull requests authored by author and updated after
// since, across all repositories.
func (c *Client) SearchPullRequests(ctx context.Context, author string, since time.Time) ([]activity.PullRequest, error) {
	query := PullRequestQuery(author, since)
	opts := &gogithub.SearchOptions{ListOptions: gogithub.ListOptions{PerPage: 100}}

	var prs []activity.PullRequest
	for page := 0; page < c.maxPages; page++ {
		result, resp, err := c.rest.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, wrapError("failed to search pull requests", err)
		}
		for _, issue := range result.Issues {
			prs = append(prs, activity.PullRequest{
				Title:         issue.GetTitle(),
				Body:          issue.GetBody(),
				URL:           issue.GetHTMLURL(),
				Number:        issue.GetNumber(),
				RepositoryURL: issue.GetRepositoryURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	logger.Debug().Str("query", query).Int("count", len(prs)).Msg("searched pull requests")
	return prs, nil
}

type viewerQuery struct {
	Viewer struct {
		DatabaseID githubv4.Int    `graphql:"databaseId"`
		Login      githubv4.String `graphql:"login"`
		Name       githubv4.String `graphql:"name"`
		Email      githubv4.String `graphql:"email"`
		AvatarURL  githubv4.String `graphql:"avatarUrl"`
	}
}

// Viewer returns the profile of the token's owner.
func (c *Client) Viewer(ctx context.Context) (*Profile, error) {
	var q viewerQuery
	if err := c.graphql.Query(ctx, &q, nil); err != nil {
		return nil, wrapError("failed to query viewer", err)
	}
	return &Profile{
		ID:        int64(q.Viewer.DatabaseID),
		Login:     string(q.Viewer.Login),
		Name:      string(q.Viewer.Name),
		Email:     string(q.Viewer.Email),
		AvatarURL: string(q.Viewer.AvatarURL),
	}, nil
}
