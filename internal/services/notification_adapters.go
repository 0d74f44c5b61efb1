package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/pkg/logger"
)

// ReportMessage is a stored report on its way to a chat channel.
type ReportMessage struct {
	Login  string
	Report *activity.DailyReport
}

// NotificationAdapter delivers a report to one kind of incoming webhook.
type NotificationAdapter interface {
	Send(ctx context.Context, client *http.Client, webhook string, msg *ReportMessage) error
}

const (
	ChannelSlack   = "slack"
	ChannelDiscord = "discord"
	ChannelEmail   = "email"
)

func getAdapter(channel string) NotificationAdapter {
	switch channel {
	case ChannelSlack:
		return &slackAdapter{}
	case ChannelDiscord:
		return &discordAdapter{}
	default:
		return nil
	}
}

// --- Helper functions shared by adapters ---

func postJSONWithClient(ctx context.Context, client *http.Client, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	logger.Debug().Int("status", resp.StatusCode).Int("payload", len(body)).Msg("[Notification] webhook responded")

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

var notificationHTTPClient = &http.Client{Timeout: 10 * time.Second}

// splitMessage cuts msg into parts of at most maxLen runes, preferring to
// break after a newline in the second half of a part.
func splitMessage(msg string, maxLen int) []string {
	remaining := []rune(msg)
	if len(remaining) <= maxLen {
		return []string{msg}
	}

	var parts []string
	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			parts = append(parts, string(remaining))
			break
		}

		breakPoint := maxLen
		for i := maxLen - 1; i > maxLen/2; i-- {
			if remaining[i] == '\n' {
				breakPoint = i + 1
				break
			}
		}

		parts = append(parts, string(remaining[:breakPoint]))
		remaining = remaining[breakPoint:]
	}
	return parts
}

// formatReport renders the report as chat markdown. strong wraps bold text,
// which Slack and Discord spell differently.
func formatReport(m *ReportMessage, strong func(string) string) string {
	r := m.Report
	var sb strings.Builder

	fmt.Fprintf(&sb, "📋 %s\n", strong(r.Headline))
	fmt.Fprintf(&sb, "%s · @%s · %d commits · %d PRs\n", r.Date, m.Login, r.TotalCommits, r.TotalPRs)

	if len(r.KeyAchievements) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", strong("Key achievements"))
		for _, a := range r.KeyAchievements {
			fmt.Fprintf(&sb, "• %s\n", a)
		}
	}

	for _, rs := range r.RepoSummaries {
		sb.WriteString("\n")
		sb.WriteString(strong(rs.RepoName))
		for _, tag := range rs.Tags {
			fmt.Fprintf(&sb, " `%s`", tag)
		}
		fmt.Fprintf(&sb, "\n%s\n", rs.Summary)
	}
	return sb.String()
}

// --- Adapter implementations ---

// slackAdapter posts Block Kit messages to a Slack incoming webhook.
type slackAdapter struct{}

func (a *slackAdapter) Send(ctx context.Context, client *http.Client, webhook string, m *ReportMessage) error {
	const maxLen = 3000 // section text limit
	text := formatReport(m, func(s string) string { return "*" + s + "*" })

	parts := splitMessage(text, maxLen)
	blocks := make([]map[string]interface{}, 0, len(parts))
	for _, part := range parts {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": part},
		})
	}

	payload := map[string]interface{}{
		"text":   m.Report.Headline,
		"blocks": blocks,
	}
	return postJSONWithClient(ctx, client, webhook, payload)
}

// discordAdapter posts plain content to a Discord webhook, one message per
// part.
type discordAdapter struct{}

func (a *discordAdapter) Send(ctx context.Context, client *http.Client, webhook string, m *ReportMessage) error {
	const maxLen = 1900 // content limit is 2000, leave room for the part marker
	text := formatReport(m, func(s string) string { return "**" + s + "**" })

	parts := splitMessage(text, maxLen)
	for i, part := range parts {
		content := part
		if len(parts) > 1 {
			content = fmt.Sprintf("**[%d/%d]**\n%s", i+1, len(parts), part)
		}
		if err := postJSONWithClient(ctx, client, webhook, map[string]string{"content": content}); err != nil {
			return err
		}
	}
	return nil
}
