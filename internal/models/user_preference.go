package models

// Push frequencies. Stored only; nothing schedules pushes yet.
const (
	PushDaily  = "DAILY"
	PushWeekly = "WEEKLY"
)

// UserPreference holds per-user report settings.
type UserPreference struct {
	UserID           uint    `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ReportStyle      string  `gorm:"size:20;default:PROFESSIONAL" json:"report_style"`
	OutputLanguage   string  `gorm:"size:20;default:CHINESE" json:"output_language"`
	SelectedRepos    string  `gorm:"type:text" json:"-"` // JSON array of repository ids
	IncludePrivate   bool    `gorm:"column:include_private_repos;default:false" json:"include_private_repos"`
	PushFrequency    *string `gorm:"size:10" json:"push_frequency"`
	PushTime         string  `gorm:"size:5;default:09:00" json:"push_time"`
	PushWeekday      int     `gorm:"default:1" json:"push_weekday"`
	Timezone         string  `gorm:"size:64;default:Asia/Shanghai" json:"timezone"`
	SkipIfNoActivity bool    `gorm:"default:true" json:"skip_if_no_activity"`
	EmailEnabled     bool    `gorm:"default:false" json:"email_enabled"`
	SlackWebhook     string  `gorm:"size:500" json:"slack_webhook"`
	DiscordWebhook   string  `gorm:"size:500" json:"discord_webhook"`
	User             *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserPreference) TableName() string { return "user_preferences" }
