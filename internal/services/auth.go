package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services/github"
	"github.com/huangang/gitdigest/internal/utils"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
	"gorm.io/gorm"
)

// OAuth scopes requested at login and when private repositories are authorized.
var (
	BasicScopes = []string{"read:user", "user:email"}
	RepoScopes  = []string{"read:user", "user:email", github.ScopeRepo}
)

const stateTTL = 10 * time.Minute

// Callback failures. Handlers turn them into the error query parameter of
// the frontend redirect.
var (
	ErrAuthCancelled     = errors.New("auth_cancelled")
	ErrTokenExchange     = errors.New("token_exchange_failed")
	ErrUserFetch         = errors.New("user_fetch_failed")
	ErrAuthFailed        = errors.New("auth_failed")
	ErrTokenInvalid      = errors.New("github token is no longer valid")
	ErrStateUserMismatch = errors.New("state was issued for another user")
)

type AuthService struct {
	db         *gorm.DB
	oauth      *oauth2.Config
	cipher     *utils.TokenCipher
	newFetcher github.Factory
}

func NewAuthService(db *gorm.DB, cfg config.GitHubConfig, cipher *utils.TokenCipher, newFetcher github.Factory) *AuthService {
	return &AuthService{
		db: db,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     githuboauth.Endpoint,
		},
		cipher:     cipher,
		newFetcher: newFetcher,
	}
}

// AuthorizeURL returns the GitHub consent URL for scopes. userID is non-zero
// when an already signed-in user is upgrading their grant.
func (s *AuthService) AuthorizeURL(scopes []string, userID uint) (string, error) {
	state, err := utils.GenerateStateToken(scopes, userID, stateTTL)
	if err != nil {
		return "", err
	}
	cfg := *s.oauth
	cfg.Scopes = scopes
	return cfg.AuthCodeURL(state), nil
}

// HandleCallback completes the authorization-code flow and returns the stored
// user. Returned errors wrap one of the callback sentinels.
func (s *AuthService) HandleCallback(ctx context.Context, code, state string) (*models.User, error) {
	if code == "" {
		return nil, ErrAuthCancelled
	}
	claims, err := utils.ParseStateToken(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	fetcher, err := s.newFetcher(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserFetch, err)
	}
	profile, err := fetcher.Viewer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserFetch, err)
	}

	scopes := claims.Scopes
	if granted, ok := token.Extra("scope").(string); ok {
		scopes = github.ParseScopes(granted)
	}

	user, err := s.findUser(profile.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	// A repo upgrade must come back as the same GitHub account.
	if claims.UserID != 0 && claims.UserID != user.ID {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, ErrStateUserMismatch)
	}
	if err := s.saveUser(user, profile, token.AccessToken, scopes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if err := s.ensurePreferences(user.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return user, nil
}

// findUser returns the stored user for a GitHub account, or an unsaved one.
func (s *AuthService) findUser(githubID int64) (*models.User, error) {
	var user models.User
	err := s.db.Where(&models.User{GitHubID: githubID}).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) saveUser(user *models.User, profile *github.Profile, accessToken string, scopes []string) error {
	sealed, err := s.cipher.Seal(accessToken)
	if err != nil {
		return err
	}
	now := time.Now()

	user.GitHubID = profile.ID
	user.Login = profile.Login
	user.Name = profile.Name
	user.AvatarURL = profile.AvatarURL
	user.Email = profile.Email
	user.AccessToken = sealed
	user.TokenScopes = strings.Join(scopes, ",")
	user.TokenValid = true
	user.LastLogin = &now

	return s.db.Save(user).Error
}

func (s *AuthService) ensurePreferences(userID uint) error {
	var pref models.UserPreference
	return s.db.Where(&models.UserPreference{UserID: userID}).FirstOrCreate(&pref).Error
}

// AccessToken decrypts the stored GitHub token of user.
func (s *AuthService) AccessToken(user *models.User) (string, error) {
	if !user.TokenValid {
		return "", ErrTokenInvalid
	}
	return s.cipher.Open(user.AccessToken)
}

// Scopes returns the scopes granted at the user's last authorization.
func (s *AuthService) Scopes(user *models.User) github.GrantedScopes {
	return github.ParseScopes(user.TokenScopes)
}

func (s *AuthService) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
