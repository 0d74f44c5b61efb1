package services

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // timezones are user input

	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/huangang/gitdigest/pkg/response"
	"gorm.io/gorm"
)

var pushTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type PreferenceService struct {
	db *gorm.DB
}

func NewPreferenceService(db *gorm.DB) *PreferenceService {
	return &PreferenceService{db: db}
}

// PreferenceResponse is the dashboard's view of a user's settings.
type PreferenceResponse struct {
	ReportStyle         string  `json:"reportStyle"`
	OutputLanguage      string  `json:"outputLanguage"`
	SelectedRepos       []int64 `json:"selectedRepos"`
	IncludePrivateRepos bool    `json:"includePrivateRepos"`
	PushFrequency       *string `json:"pushFrequency"`
	PushTime            string  `json:"pushTime"`
	PushWeekday         int     `json:"pushWeekday"`
	Timezone            string  `json:"timezone"`
	SkipIfNoActivity    bool    `json:"skipIfNoActivity"`
	EmailEnabled        bool    `json:"emailEnabled"`
	SlackWebhook        string  `json:"slackWebhook"`
	DiscordWebhook      string  `json:"discordWebhook"`
}

type UpdatePreferenceRequest struct {
	ReportStyle         *string  `json:"reportStyle"`
	OutputLanguage      *string  `json:"outputLanguage"`
	SelectedRepos       *[]int64 `json:"selectedRepos"`
	IncludePrivateRepos *bool    `json:"includePrivateRepos"`
	PushFrequency       *string  `json:"pushFrequency"` // "" clears it
	PushTime            *string  `json:"pushTime"`
	PushWeekday         *int     `json:"pushWeekday"`
	Timezone            *string  `json:"timezone"`
	SkipIfNoActivity    *bool    `json:"skipIfNoActivity"`
	EmailEnabled        *bool    `json:"emailEnabled"`
	SlackWebhook        *string  `json:"slackWebhook"`
	DiscordWebhook      *string  `json:"discordWebhook"`
}

// Get returns the user's preferences, creating the default row if needed.
func (s *PreferenceService) Get(userID uint) (*models.UserPreference, error) {
	var pref models.UserPreference
	if err := s.db.Where(&models.UserPreference{UserID: userID}).FirstOrCreate(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

func (s *PreferenceService) Update(userID uint, req *UpdatePreferenceRequest) (*models.UserPreference, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	pref, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.ReportStyle != nil {
		updates["report_style"] = *req.ReportStyle
	}
	if req.OutputLanguage != nil {
		updates["output_language"] = *req.OutputLanguage
	}
	if req.SelectedRepos != nil {
		data, err := json.Marshal(*req.SelectedRepos)
		if err != nil {
			return nil, err
		}
		updates["selected_repos"] = string(data)
	}
	if req.IncludePrivateRepos != nil {
		updates["include_private_repos"] = *req.IncludePrivateRepos
	}
	if req.PushFrequency != nil {
		if *req.PushFrequency == "" {
			updates["push_frequency"] = nil
		} else {
			updates["push_frequency"] = *req.PushFrequency
		}
	}
	if req.PushTime != nil {
		updates["push_time"] = *req.PushTime
	}
	if req.PushWeekday != nil {
		updates["push_weekday"] = *req.PushWeekday
	}
	if req.Timezone != nil {
		updates["timezone"] = *req.Timezone
	}
	if req.SkipIfNoActivity != nil {
		updates["skip_if_no_activity"] = *req.SkipIfNoActivity
	}
	if req.EmailEnabled != nil {
		updates["email_enabled"] = *req.EmailEnabled
	}
	if req.SlackWebhook != nil {
		updates["slack_webhook"] = strings.TrimSpace(*req.SlackWebhook)
	}
	if req.DiscordWebhook != nil {
		updates["discord_webhook"] = strings.TrimSpace(*req.DiscordWebhook)
	}

	if len(updates) > 0 {
		if err := s.db.Model(pref).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(userID)
}

func (r *UpdatePreferenceRequest) validate() error {
	if r.ReportStyle != nil && !activity.SummaryStyle(*r.ReportStyle).Valid() {
		return response.NewBadRequest("Invalid report style")
	}
	if r.OutputLanguage != nil && !activity.OutputLanguage(*r.OutputLanguage).Valid() {
		return response.NewBadRequest("Invalid output language")
	}
	if r.PushFrequency != nil {
		switch *r.PushFrequency {
		case "", models.PushDaily, models.PushWeekly:
		default:
			return response.NewBadRequest("Invalid push frequency")
		}
	}
	if r.PushTime != nil && !pushTimePattern.MatchString(*r.PushTime) {
		return response.NewBadRequest("Invalid push time, expected HH:MM")
	}
	if r.PushWeekday != nil && (*r.PushWeekday < 0 || *r.PushWeekday > 6) {
		return response.NewBadRequest("Invalid push weekday")
	}
	if r.Timezone != nil {
		if _, err := time.LoadLocation(*r.Timezone); err != nil || *r.Timezone == "" {
			return response.NewBadRequest("Invalid timezone")
		}
	}
	for _, hook := range []*string{r.SlackWebhook, r.DiscordWebhook} {
		if hook != nil && !validWebhook(*hook) {
			return response.NewBadRequest("Webhook must be an https URL")
		}
	}
	return nil
}

func validWebhook(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host != ""
}

// SelectedRepoIDs decodes the stored repository selection. A corrupt value
// selects everything.
func SelectedRepoIDs(pref *models.UserPreference) []int64 {
	if pref.SelectedRepos == "" {
		return []int64{}
	}
	var ids []int64
	if err := json.Unmarshal([]byte(pref.SelectedRepos), &ids); err != nil {
		logger.Warn().Err(err).Uint("user_id", pref.UserID).Msg("Invalid selected_repos, ignoring")
		return []int64{}
	}
	if ids == nil {
		return []int64{}
	}
	return ids
}

func ToPreferenceResponse(pref *models.UserPreference) PreferenceResponse {
	return PreferenceResponse{
		ReportStyle:         pref.ReportStyle,
		OutputLanguage:      pref.OutputLanguage,
		SelectedRepos:       SelectedRepoIDs(pref),
		IncludePrivateRepos: pref.IncludePrivate,
		PushFrequency:       pref.PushFrequency,
		PushTime:            pref.PushTime,
		PushWeekday:         pref.PushWeekday,
		Timezone:            pref.Timezone,
		SkipIfNoActivity:    pref.SkipIfNoActivity,
		EmailEnabled:        pref.EmailEnabled,
		SlackWebhook:        pref.SlackWebhook,
		DiscordWebhook:      pref.DiscordWebhook,
	}
}
