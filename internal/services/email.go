package services

import (
	"crypto/tls"
	"errors"
	"fmt"
	"html"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/huangang/gitdigest/pkg/logger"
	"gorm.io/gorm"
)

var ErrEmailDisabled = errors.New("email delivery is not configured")

const smtpDialTimeout = 10 * time.Second

type EmailService struct {
	configService *SystemConfigService
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

func NewEmailService(db *gorm.DB) *EmailService {
	return &EmailService{configService: NewSystemConfigService(db)}
}

// GetConfig reads the SMTP settings of the "email" group.
func (s *EmailService) GetConfig() *EmailConfig {
	cfg := &EmailConfig{Port: 587}

	configs, err := s.configService.GetByGroup("email")
	if err != nil {
		logger.Warn().Err(err).Msg("[Email] Failed to load SMTP settings")
		return cfg
	}

	for _, c := range configs {
		switch c.Key {
		case "email_enabled":
			cfg.Enabled = c.Value == "true"
		case "email_host":
			cfg.Host = c.Value
		case "email_port":
			if port, err := strconv.Atoi(c.Value); err == nil && port > 0 {
				cfg.Port = port
			}
		case "email_username":
			cfg.Username = c.Value
		case "email_password":
			cfg.Password = c.Value
		case "email_from":
			cfg.From = c.Value
		case "email_use_tls":
			cfg.UseTLS = c.Value == "true"
		}
	}
	return cfg
}

func (c *EmailConfig) usable() bool {
	return c.Enabled && c.Host != ""
}

// SendReport mails the report to one recipient.
func (s *EmailService) SendReport(to string, m *ReportMessage) error {
	cfg := s.GetConfig()
	if !cfg.usable() {
		return ErrEmailDisabled
	}

	subject := fmt.Sprintf("[Gitdigest] %s - %s", m.Report.Date, m.Report.Headline)
	return s.sendEmail(cfg, []string{to}, subject, buildEmailBody(m))
}

func buildEmailBody(m *ReportMessage) string {
	r := m.Report
	esc := html.EscapeString
	var sb strings.Builder

	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString(fmt.Sprintf("<h2>%s</h2>", esc(r.Headline)))
	sb.WriteString(fmt.Sprintf("<p style=\"color: #555;\">%s · @%s · %d commits · %d pull requests</p>",
		esc(r.Date), esc(m.Login), r.TotalCommits, r.TotalPRs))

	if len(r.KeyAchievements) > 0 {
		sb.WriteString("<h3>Key Achievements</h3><ul>")
		for _, a := range r.KeyAchievements {
			sb.WriteString(fmt.Sprintf("<li>%s</li>", esc(a)))
		}
		sb.WriteString("</ul>")
	}

	for _, rs := range r.RepoSummaries {
		sb.WriteString(fmt.Sprintf("<h3>%s</h3>", esc(rs.RepoName)))
		if len(rs.Tags) > 0 {
			tags := make([]string, len(rs.Tags))
			for i, t := range rs.Tags {
				tags[i] = esc(t)
			}
			sb.WriteString(fmt.Sprintf("<p style=\"color: #888;\">%s</p>", strings.Join(tags, " · ")))
		}
		sb.WriteString(fmt.Sprintf("<div style=\"white-space: pre-wrap;\">%s</div>", esc(rs.Summary)))
	}

	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Sent by Gitdigest</p>")
	sb.WriteString("</body></html>")
	return sb.String()
}

func (s *EmailService) sendEmail(cfg *EmailConfig, to []string, subject, body string) error {
	if err := cfg.deliver(to, composeMessage(cfg.sender(), to, subject, body)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	logger.Info().Strs("to", to).Str("subject", subject).Msg("[Email] Report sent")
	return nil
}

func (c *EmailConfig) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

func composeMessage(from string, to []string, subject, body string) []byte {
	var msg strings.Builder
	for _, h := range [][2]string{
		{"From", from},
		{"To", strings.Join(to, ",")},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	} {
		fmt.Fprintf(&msg, "%s: %s\r\n", h[0], h[1])
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

// deliver runs one SMTP transaction. With use_tls the connection is TLS from
// the start (port 465); otherwise STARTTLS is negotiated when offered.
func (c *EmailConfig) deliver(to []string, msg []byte) error {
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	tlsConfig := &tls.Config{ServerName: c.Host}
	dialer := &net.Dialer{Timeout: smtpDialTimeout}

	var conn net.Conn
	var err error
	if c.UseTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, c.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if !c.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if c.Username != "" && c.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", c.Username, c.Password, c.Host)); err != nil {
			return err
		}
	}

	if err := client.Mail(c.sender()); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
