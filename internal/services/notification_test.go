package services

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *activity.DailyReport {
	return &activity.DailyReport{
		Headline:        "Shipped the activity API",
		Date:            "Saturday, October 17, 2026",
		TotalCommits:    4,
		TotalPRs:        1,
		KeyAchievements: []string{"Added pagination", "Fixed <script> escaping"},
		RepoSummaries:   []activity.RepoSummary{{RepoName: "octocat/api", Summary: "Worked on endpoints", Tags: []string{"go", "api"}}},
		Style:           activity.StyleProfessional,
	}
}

type webhookRecorder struct {
	mu     sync.Mutex
	bodies []map[string]interface{}
	status int
}

func (rec *webhookRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		json.Unmarshal(data, &body)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, body)
		rec.mu.Unlock()
		if rec.status != 0 {
			w.WriteHeader(rec.status)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (rec *webhookRecorder) all() []map[string]interface{} {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]map[string]interface{}(nil), rec.bodies...)
}

func newTestNotificationService(t *testing.T) (*NotificationService, *models.User, uint) {
	t.Helper()
	db := setupTestDB(t)

	user := models.User{GitHubID: 9, Login: "octocat", Email: "octo@example.com", AccessToken: "sealed", TokenValid: true}
	require.NoError(t, db.Create(&user).Error)

	payload, _ := json.Marshal(sampleReport())
	record := models.DailyReport{UserID: user.ID, Login: user.Login, Headline: "Shipped the activity API", Payload: string(payload)}
	require.NoError(t, db.Create(&record).Error)

	reports := NewReportService(db, config.ActivityConfig{}, nil, nil)
	preferences := NewPreferenceService(db)
	return NewNotificationService(db, reports, preferences), &user, record.ID
}

func setWebhooks(t *testing.T, svc *NotificationService, userID uint, slack, discord string) {
	t.Helper()
	pref, err := svc.preferences.Get(userID)
	require.NoError(t, err)
	require.NoError(t, svc.preferences.db.Model(pref).Updates(map[string]interface{}{
		"slack_webhook":   slack,
		"discord_webhook": discord,
	}).Error)
}

func TestNotificationService_ShareReport(t *testing.T) {
	svc, user, reportID := newTestNotificationService(t)
	slack, discord := &webhookRecorder{}, &webhookRecorder{}
	setWebhooks(t, svc, user.ID, slack.server(t).URL, discord.server(t).URL)

	result, err := svc.ShareReport(context.Background(), user, reportID)
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelSlack, ChannelDiscord}, result.Delivered)
	assert.Empty(t, result.Failed)

	slackBodies, discordBodies := slack.all(), discord.all()
	require.Len(t, slackBodies, 1)
	assert.Equal(t, "Shipped the activity API", slackBodies[0]["text"])
	blocks := slackBodies[0]["blocks"].([]interface{})
	text := blocks[0].(map[string]interface{})["text"].(map[string]interface{})["text"].(string)
	assert.Contains(t, text, "*Shipped the activity API*")
	assert.Contains(t, text, "@octocat")
	assert.Contains(t, text, "`go`")

	require.Len(t, discordBodies, 1)
	assert.Contains(t, discordBodies[0]["content"], "**Key achievements**")
}

func TestNotificationService_ShareReportPartialFailure(t *testing.T) {
	svc, user, reportID := newTestNotificationService(t)
	slack, discord := &webhookRecorder{status: http.StatusNotFound}, &webhookRecorder{}
	setWebhooks(t, svc, user.ID, slack.server(t).URL, discord.server(t).URL)

	result, err := svc.ShareReport(context.Background(), user, reportID)
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelDiscord}, result.Delivered)
	assert.Contains(t, result.Failed[ChannelSlack], "status 404")
}

func TestNotificationService_ShareReportErrors(t *testing.T) {
	t.Run("no channel", func(t *testing.T) {
		svc, user, reportID := newTestNotificationService(t)
		_, err := svc.ShareReport(context.Background(), user, reportID)
		assert.Equal(t, http.StatusBadRequest, appErrorStatus(t, err))
	})

	t.Run("email enabled without SMTP", func(t *testing.T) {
		svc, user, reportID := newTestNotificationService(t)
		_, err := svc.preferences.Update(user.ID, &UpdatePreferenceRequest{EmailEnabled: boolPtr(true)})
		require.NoError(t, err)
		_, err = svc.ShareReport(context.Background(), user, reportID)
		assert.Equal(t, http.StatusBadRequest, appErrorStatus(t, err))
	})

	t.Run("every channel fails", func(t *testing.T) {
		svc, user, reportID := newTestNotificationService(t)
		down := &webhookRecorder{status: http.StatusInternalServerError}
		setWebhooks(t, svc, user.ID, down.server(t).URL, "")
		_, err := svc.ShareReport(context.Background(), user, reportID)
		assert.Equal(t, http.StatusBadGateway, appErrorStatus(t, err))
	})

	t.Run("someone else's report", func(t *testing.T) {
		svc, _, reportID := newTestNotificationService(t)
		_, err := svc.ShareReport(context.Background(), &models.User{ID: 999, Login: "hubot"}, reportID)
		assert.Equal(t, http.StatusNotFound, appErrorStatus(t, err))
	})
}

func TestDiscordAdapter_SplitsLongReports(t *testing.T) {
	rec := &webhookRecorder{}
	srv := rec.server(t)

	report := sampleReport()
	report.RepoSummaries[0].Summary = strings.Repeat("工作内容。\n", 600)
	err := (&discordAdapter{}).Send(context.Background(), http.DefaultClient, srv.URL, &ReportMessage{Login: "octocat", Report: report})
	require.NoError(t, err)

	bodies := rec.all()
	require.Greater(t, len(bodies), 1)
	for i, body := range bodies {
		content := body["content"].(string)
		assert.True(t, utf8.ValidString(content), "part %d is not valid UTF-8", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(content), 2000)
		assert.True(t, strings.HasPrefix(content, "**["), "part %d lacks its marker", i)
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		maxLen int
		want   []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"breaks after newline", "aaaa\nbbbbbb", 6, []string{"aaaa\n", "bbbbbb"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"runes", "日本語日本語", 4, []string{"日本語日", "本語"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitMessage(tt.msg, tt.maxLen))
		})
	}
}

func TestBuildEmailBody_Escapes(t *testing.T) {
	body := buildEmailBody(&ReportMessage{Login: "octocat", Report: sampleReport()})
	assert.Contains(t, body, "<h2>Shipped the activity API</h2>")
	assert.Contains(t, body, "Fixed &lt;script&gt; escaping")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "go · api")
}

func TestEmailService_GetConfig(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEmailService(db)

	cfg := svc.GetConfig()
	assert.False(t, cfg.usable())
	assert.Equal(t, 587, cfg.Port)

	// A port nobody listens on, so the send fails fast.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	require.NoError(t, svc.configService.Set("email_enabled", "true"))
	require.NoError(t, svc.configService.Set("email_host", "127.0.0.1"))
	require.NoError(t, svc.configService.Set("email_port", strconv.Itoa(port)))

	cfg = svc.GetConfig()
	assert.True(t, cfg.usable())
	assert.Equal(t, port, cfg.Port)

	err = svc.SendReport("octo@example.com", &ReportMessage{Login: "octocat", Report: sampleReport()})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailDisabled)
}

func TestComposeMessage(t *testing.T) {
	msg := string(composeMessage("bot@example.com", []string{"a@example.com", "b@example.com"}, "日报 ready", "<p>hi</p>"))

	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "<p>hi</p>", body)
	assert.True(t, strings.HasPrefix(head, "From: bot@example.com\r\nTo: a@example.com,b@example.com\r\n"))
	assert.Contains(t, head, "Subject: =?utf-8?q?")
	assert.Contains(t, head, "Content-Type: text/html; charset=UTF-8")
}
