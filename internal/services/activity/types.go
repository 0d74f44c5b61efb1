// Package activity turns raw repository, commit and pull request data into the
// per-repository activity records and the daily report handed to the dashboard.
//
// Everything in this package is pure: callers fetch data, this package filters,
// merges, measures and assembles it.
package activity

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"
)

// ErrNoActivity is returned when the selected scope and window contain no events.
// It is an outcome, not a failure.
var ErrNoActivity = errors.New("no activity in the selected window")

// Commit is a single commit authored by the caller.
type Commit struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	URL     string `json:"url"`
	// Timestamp is the committer date in RFC 3339 form.
	Timestamp string `json:"timestamp"`
}

// PullRequest is a pull request authored by the caller.
type PullRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
	Number int    `json:"number"`
	// RepositoryURL is the API URL of the origin repository, e.g.
	// https://api.github.com/repos/owner/name.
	RepositoryURL string `json:"repositoryUrl,omitempty"`
}

var repoURLPattern = regexp.MustCompile(`repos/(.+?/.+?)$`)

// RepoFullName extracts "owner/name" from RepositoryURL. It returns an empty
// string when the URL does not point at a repository.
func (p PullRequest) RepoFullName() string {
	m := repoURLPattern.FindStringSubmatch(p.RepositoryURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Repository is a candidate repository of the authenticated user.
type Repository struct {
	ID       int64     `json:"id"`
	FullName string    `json:"fullName"`
	Private  bool      `json:"private"`
	PushedAt time.Time `json:"pushedAt"` // zero when unknown
}

// RepositoryActivity groups the commits and pull requests of one repository.
type RepositoryActivity struct {
	RepoID       int64         `json:"repoId"`
	RepoName     string        `json:"repoName"`
	IsPrivate    bool          `json:"isPrivate"`
	Commits      []Commit      `json:"commits"`
	PullRequests []PullRequest `json:"prs"`
}

// EventCount is always derived from the two collections.
func (a RepositoryActivity) EventCount() int {
	return len(a.Commits) + len(a.PullRequests)
}

func (a RepositoryActivity) hasPullRequest(number int) bool {
	for _, pr := range a.PullRequests {
		if pr.Number == number {
			return true
		}
	}
	return false
}

// MarshalJSON adds the derived eventCount field.
func (a RepositoryActivity) MarshalJSON() ([]byte, error) {
	type plain RepositoryActivity
	return json.Marshal(struct {
		plain
		EventCount int `json:"eventCount"`
	}{plain: plain(a), EventCount: a.EventCount()})
}

// RepoDuration is the estimated active time spent in a repository.
type RepoDuration struct {
	RepoName        string `json:"repoName"`
	DurationMinutes int    `json:"durationMinutes"`
	CommitCount     int    `json:"commitCount"`
}

// AccessScope is the caller's choice of repository visibility.
type AccessScope struct {
	IncludePublic  bool `json:"publicRepos"`
	IncludePrivate bool `json:"privateRepos"`
}

// ErrEmptyScope is returned by AccessScope.Validate when nothing is selected.
var ErrEmptyScope = errors.New("select at least one of public or private repositories")

// Validate rejects a scope with both flags unset.
func (s AccessScope) Validate() error {
	if !s.IncludePublic && !s.IncludePrivate {
		return ErrEmptyScope
	}
	return nil
}
