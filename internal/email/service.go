// Package email provides email sending capabilities via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendHTMLEmail sends an HTML email
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	// Simple multipart message
	boundary := "boundary-deltapronet"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	// Plain text part (fallback)
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	// HTML part
	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// ModerationData holds data for the pending-content notification template
type ModerationData struct {
	AppName     string
	ContentKind string
	AuthorName  string
	Excerpt     string
	QueueURL    string
}

// ApprovalData holds data for the content-approved notification template
type ApprovalData struct {
	AppName     string
	UserName    string
	ContentKind string
	ContentURL  string
}

// SendModerationNotice tells moderators new content is waiting for review.
func (s *Service) SendModerationNotice(to []string, contentKind, authorName, excerpt, queueURL string) error {
	data := ModerationData{
		AppName:     "DeltaProNet",
		ContentKind: contentKind,
		AuthorName:  authorName,
		Excerpt:     excerpt,
		QueueURL:    queueURL,
	}

	subject := fmt.Sprintf("New %s awaiting moderation", contentKind)
	html, err := renderTemplate(moderationEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render moderation template: %w", err)
	}

	return s.SendHTMLEmail(to, subject, html)
}

// SendApprovalNotice tells an author their content went live.
func (s *Service) SendApprovalNotice(to, userName, contentKind, contentURL string) error {
	data := ApprovalData{
		AppName:     "DeltaProNet",
		UserName:    userName,
		ContentKind: contentKind,
		ContentURL:  contentURL,
	}

	subject := fmt.Sprintf("Your %s has been approved", contentKind)
	html, err := renderTemplate(approvalEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render approval template: %w", err)
	}

	return s.SendHTMLEmail([]string{to}, subject, html)
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const moderationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New {{.ContentKind}} awaiting moderation</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .excerpt { background: #f5f5f5; padding: 12px; border-left: 3px solid #0066cc; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>New {{.ContentKind}} from {{.AuthorName}}</h2>

    <p>A new {{.ContentKind}} is waiting in the moderation queue.</p>

    <div class="excerpt">{{.Excerpt}}</div>

    <p>
        <a href="{{.QueueURL}}" class="button">Open moderation queue</a>
    </p>

    <div class="footer">
        <p>You are receiving this because you moderate content on {{.AppName}}.</p>
    </div>
</body>
</html>`

const approvalEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Your {{.ContentKind}} has been approved</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Good news, {{.UserName}}!</h2>

    <p>Your {{.ContentKind}} has been approved and is now visible to the community.</p>

    <p>
        <a href="{{.ContentURL}}" class="button">View it live</a>
    </p>

    <div class="footer">
        <p>You are receiving this because you posted content on {{.AppName}}.</p>
    </div>
</body>
</html>`
