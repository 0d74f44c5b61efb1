package models

import "time"

// User is a developer who signed in with GitHub.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	GitHubID    int64      `gorm:"column:github_id;uniqueIndex;not null" json:"github_id"`
	Login       string     `gorm:"size:100;not null;index" json:"login"`
	Name        string     `gorm:"size:200" json:"name"`
	AvatarURL   string     `gorm:"size:500" json:"avatar_url"`
	Email       string     `gorm:"size:255" json:"email"`
	AccessToken string     `gorm:"type:text;not null" json:"-"`  // encrypted, see utils.TokenCipher
	TokenScopes string     `gorm:"size:500" json:"token_scopes"` // X-OAuth-Scopes at login, comma separated
	TokenValid  bool       `gorm:"default:true;index" json:"token_valid"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }
