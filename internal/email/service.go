// Package email sends new-doubt notifications via SMTP.
package email

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"sync"

	"doubtabase/internal/config"
)

// transport is the connection material derived from one SMTP configuration.
type transport struct {
	server string
	auth   smtp.Auth
}

// Service sends notification email. The derived transport is cached against a
// hash of the configuration, so a config reload only rebuilds it when the SMTP
// settings actually changed.
type Service struct {
	mu         sync.Mutex
	cfg        config.SMTPConfig
	cached     *transport
	cachedHash string

	// sendMail is swapped out in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(cfg config.SMTPConfig) *Service {
	return &Service{cfg: cfg, sendMail: smtp.SendMail}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Port != "" && s.cfg.From != ""
}

// UpdateConfig swaps the SMTP settings. The transport cache is keyed by config
// hash, so an unchanged config keeps the cached transport.
func (s *Service) UpdateConfig(cfg config.SMTPConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func configHash(cfg config.SMTPConfig) string {
	h := sha256.New()
	for _, part := range []string{cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From, cfg.FromName} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// getTransport returns the cached transport, rebuilding it when the config
// hash changed since it was built.
func (s *Service) getTransport() (*transport, config.SMTPConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := configHash(s.cfg)
	if s.cached == nil || s.cachedHash != hash {
		s.cached = &transport{
			server: s.cfg.Host + ":" + s.cfg.Port,
			auth:   smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host),
		}
		s.cachedHash = hash
	}
	return s.cached, s.cfg
}

// SendHTMLEmail sends a multipart email with a plain-text fallback part.
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	tr, cfg := s.getTransport()

	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}

	const boundary = "boundary-doubtabase"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.sendMail(tr.server, tr.auth, cfg.From, to, msg.Bytes())
}

// DoubtCreatedData holds data for the new-doubt notification template
type DoubtCreatedData struct {
	AppName    string
	RoomName   string
	AuthorName string
	Title      string
	Subject    string
	Difficulty string
	DoubtURL   string
}

// SendDoubtCreated notifies room members that a doubt was posted.
func (s *Service) SendDoubtCreated(to []string, data DoubtCreatedData) error {
	if len(to) == 0 {
		return nil
	}
	if data.AppName == "" {
		data.AppName = "Doubtabase"
	}
	if data.AuthorName == "" {
		data.AuthorName = "A member"
	}

	subject := fmt.Sprintf("New doubt in %s: %s", data.RoomName, data.Title)
	html, err := renderTemplate(doubtCreatedTemplate, data)
	if err != nil {
		return fmt.Errorf("render doubt notification template: %w", err)
	}

	return s.SendHTMLEmail(to, subject, html)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const doubtCreatedTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New doubt in {{.RoomName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #6d28d9; padding-bottom: 10px; margin-bottom: 20px; }
        .meta { color: #666; font-size: 14px; }
        .button { display: inline-block; padding: 12px 24px; background: #6d28d9; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>{{.Title}}</h2>

    <p class="meta">{{.AuthorName}} posted a new doubt in <strong>{{.RoomName}}</strong> &middot; {{.Subject}} &middot; {{.Difficulty}}</p>

    <p>
        <a href="{{.DoubtURL}}" class="button">Open Doubt</a>
    </p>

    <div class="footer">
        <p>You received this because you are a member of {{.RoomName}} on {{.AppName}}.</p>
    </div>
</body>
</html>`
