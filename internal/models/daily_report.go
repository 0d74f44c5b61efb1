package models

import "time"

// DailyReport is one generated report kept for the history view.
type DailyReport struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	UserID       uint   `gorm:"index;not null" json:"user_id"`
	Login        string `gorm:"size:100" json:"login"`
	Style        string `gorm:"size:20" json:"style"`
	Language     string `gorm:"size:20" json:"language"`
	LookbackDays int    `json:"lookback_days"`
	Headline     string `gorm:"size:500" json:"headline"`
	TotalRepos   int    `json:"total_repos"`
	TotalCommits int    `json:"total_commits"`
	TotalPRs     int    `gorm:"column:total_prs" json:"total_prs"`

	Payload     string `gorm:"type:text" json:"-"` // JSON encoded activity.DailyReport
	AIModelUsed string `gorm:"size:100" json:"ai_model_used"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (DailyReport) TableName() string { return "daily_reports" }
