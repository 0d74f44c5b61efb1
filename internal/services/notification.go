package services

import (
	"context"
	"net/http"

	"github.com/huangang/gitdigest/internal/metrics"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/huangang/gitdigest/pkg/response"
	"gorm.io/gorm"
)

// ShareResult lists where a report went.
type ShareResult struct {
	Delivered []string          `json:"delivered"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// NotificationService sends stored reports to the channels a user set up in
// their preferences. Nothing here runs on a schedule.
type NotificationService struct {
	reports     *ReportService
	preferences *PreferenceService
	email       *EmailService
	client      *http.Client
}

func NewNotificationService(db *gorm.DB, reports *ReportService, preferences *PreferenceService) *NotificationService {
	return &NotificationService{
		reports:     reports,
		preferences: preferences,
		email:       NewEmailService(db),
		client:      notificationHTTPClient,
	}
}

type channelTarget struct {
	channel string
	target  string
}

// ShareReport delivers one of the user's stored reports. It fails only when
// no channel is configured or every channel failed.
func (s *NotificationService) ShareReport(ctx context.Context, user *models.User, reportID uint) (*ShareResult, error) {
	detail, err := s.reports.GetByID(user.ID, reportID)
	if err != nil {
		return nil, err
	}
	if detail.Report == nil {
		return nil, response.NewNotFound("Report content not available")
	}

	pref, err := s.preferences.Get(user.ID)
	if err != nil {
		return nil, err
	}

	var targets []channelTarget
	if pref.SlackWebhook != "" {
		targets = append(targets, channelTarget{ChannelSlack, pref.SlackWebhook})
	}
	if pref.DiscordWebhook != "" {
		targets = append(targets, channelTarget{ChannelDiscord, pref.DiscordWebhook})
	}
	if pref.EmailEnabled && user.Email != "" && s.email.GetConfig().usable() {
		targets = append(targets, channelTarget{ChannelEmail, user.Email})
	}
	if len(targets) == 0 {
		return nil, response.NewBadRequest("No notification channel configured")
	}

	msg := &ReportMessage{Login: user.Login, Report: detail.Report}
	result := &ShareResult{Delivered: []string{}}
	var lastErr error
	for _, t := range targets {
		err := s.send(ctx, t, msg)
		metrics.RecordNotification(t.channel, err == nil)
		if err != nil {
			logger.Warn().Err(err).Str("channel", t.channel).Uint("report_id", reportID).Msg("Failed to deliver report")
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[t.channel] = err.Error()
			lastErr = err
			continue
		}
		result.Delivered = append(result.Delivered, t.channel)
	}

	if len(result.Delivered) == 0 {
		return nil, response.NewBadGateway("Failed to deliver report", lastErr)
	}
	return result, nil
}

func (s *NotificationService) send(ctx context.Context, t channelTarget, msg *ReportMessage) error {
	if t.channel == ChannelEmail {
		return s.email.SendReport(t.target, msg)
	}
	return getAdapter(t.channel).Send(ctx, s.client, t.target, msg)
}
