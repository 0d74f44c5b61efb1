package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/gitdigest/internal/metrics"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/internal/services/github"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/huangang/gitdigest/pkg/response"
	"gorm.io/gorm"
)

const (
	msgSessionExpired = "Session expired, please login again"
	msgMissingRepo    = `Missing "repo" scope, please authorize private repositories`
)

// RepositoryService lists repositories for the repository pickers.
type RepositoryService struct {
	db         *gorm.DB
	newFetcher github.Factory
}

func NewRepositoryService(db *gorm.DB, newFetcher github.Factory) *RepositoryService {
	return &RepositoryService{db: db, newFetcher: newFetcher}
}

// PublicRepositories lists the public repositories of any GitHub user
// without authentication.
func (s *RepositoryService) PublicRepositories(ctx context.Context, username string) ([]activity.Repository, error) {
	if username == "" {
		return nil, response.NewBadRequest("username is required")
	}
	fetcher, err := s.newFetcher("")
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	repos, err := fetcher.ListPublicRepositories(ctx, username)
	if errors.Is(err, github.ErrNotFound) {
		return nil, response.NewNotFound("User not found")
	}
	if err != nil {
		return nil, response.NewBadGateway("Failed to fetch repositories", err)
	}
	if repos == nil {
		repos = []activity.Repository{}
	}
	return repos, nil
}

// PrivateRepositories lists the private repositories visible to the user's
// token. The token must carry the repo scope.
func (s *RepositoryService) PrivateRepositories(ctx context.Context, userID uint, token string) ([]activity.Repository, error) {
	fetcher, err := s.newFetcher(token)
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	repos, scopes, err := fetcher.ListRepositories(ctx)
	if err != nil {
		return nil, githubError(s.db, userID, "Failed to fetch repositories", err)
	}
	if lacksRepoScope(scopes) {
		return nil, response.NewForbidden(msgMissingRepo)
	}

	private := make([]activity.Repository, 0, len(repos))
	for _, r := range repos {
		if r.Private {
			private = append(private, r)
		}
	}
	return private, nil
}

// lacksRepoScope reports a classic OAuth grant without the repo scope.
// Fine-grained tokens send no scope header and are judged by what they list.
func lacksRepoScope(scopes github.GrantedScopes) bool {
	return len(scopes) > 0 && !scopes.Has(github.ScopeRepo)
}

// githubError maps a GitHub failure to an API error. A rejected token is
// remembered on the user so later requests fail fast.
func githubError(db *gorm.DB, userID uint, msg string, err error) error {
	if errors.Is(err, github.ErrUnauthorized) {
		metrics.RecordTokenRejected()
		invalidateToken(db, userID)
		return &response.AppError{HTTPStatus: 401, Code: 401, Message: msgSessionExpired, Err: err}
	}
	return response.NewBadGateway(msg, err)
}

func invalidateToken(db *gorm.DB, userID uint) {
	if db == nil || userID == 0 {
		return
	}
	if err := db.Model(&models.User{}).Where("id = ?", userID).Update("token_valid", false).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", userID).Msg("Failed to mark token invalid")
	}
}
