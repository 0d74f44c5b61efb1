package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/models"
	"gorm.io/gorm"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	if s == nil || s.db == nil {
		return defaultValue
	}
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetInt reads an integer knob. Missing, malformed or non-positive values
// yield defaultValue.
func (s *SystemConfigService) GetInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s.GetWithDefault(key, "")))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) GetBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s.GetWithDefault(key, "")))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Group: group}).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// ActivitySettings are the knobs of the commit fan-out.
type ActivitySettings struct {
	FetchConcurrency int           `json:"fetch_concurrency"`
	FetchTimeout     time.Duration `json:"fetch_timeout"`
	MaxLookbackDays  int           `json:"max_lookback_days"`
}

// ActivitySettings merges the database knobs over the file configuration.
func (s *SystemConfigService) ActivitySettings(fallback config.ActivityConfig) ActivitySettings {
	timeout := s.GetInt("activity_fetch_timeout", fallback.FetchTimeout)
	return ActivitySettings{
		FetchConcurrency: s.GetInt("activity_fetch_concurrency", fallback.FetchConcurrency),
		FetchTimeout:     time.Duration(timeout) * time.Second,
		MaxLookbackDays:  s.GetInt("activity_max_lookback_days", 30),
	}
}

// SummaryLimits bound the payload sent to the summarizer.
type SummaryLimits struct {
	MaxPRBodyLength   int `json:"max_pr_body_length"`
	MaxCommitsPerRepo int `json:"max_commits_per_repo"`
	MaxPRsPerRepo     int `json:"max_prs_per_repo"`
}

func (s *SystemConfigService) SummaryLimits(fallback config.SummaryConfig) SummaryLimits {
	return SummaryLimits{
		MaxPRBodyLength:   s.GetInt("summary_max_pr_body_length", fallback.MaxPRBodyLength),
		MaxCommitsPerRepo: s.GetInt("summary_max_commits_per_repo", fallback.MaxCommitsPerRepo),
		MaxPRsPerRepo:     s.GetInt("summary_max_prs_per_repo", fallback.MaxPRsPerRepo),
	}
}

// HistoryEnabled reports whether generated reports are persisted.
func (s *SystemConfigService) HistoryEnabled() bool {
	return s.GetBool("report_history_enabled", true)
}

type UpdateActivitySettingsRequest struct {
	FetchConcurrency *int `json:"fetch_concurrency"`
	FetchTimeout     *int `json:"fetch_timeout"`
	MaxLookbackDays  *int `json:"max_lookback_days"`
}

func (s *SystemConfigService) UpdateActivitySettings(req *UpdateActivitySettingsRequest) error {
	if req.FetchConcurrency != nil {
		if err := s.Set("activity_fetch_concurrency", strconv.Itoa(*req.FetchConcurrency)); err != nil {
			return err
		}
	}
	if req.FetchTimeout != nil {
		if err := s.Set("activity_fetch_timeout", strconv.Itoa(*req.FetchTimeout)); err != nil {
			return err
		}
	}
	if req.MaxLookbackDays != nil {
		if err := s.Set("activity_max_lookback_days", strconv.Itoa(*req.MaxLookbackDays)); err != nil {
			return err
		}
	}
	return nil
}
