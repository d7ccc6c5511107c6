// Package email sends account and activity mail over SMTP. Any SMTP relay
// works, including SendGrid's (smtp.sendgrid.net with user "apikey").
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	AppName  string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	if config.AppName == "" {
		config.AppName = "Corkboard"
	}
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured reports whether mail can be sent at all. Callers fall back to
// returning verification tokens directly when it is false.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) fromHeader() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	return s.config.From
}

// SendHTMLEmail sends a multipart/alternative message with a text fallback.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	const boundary = "corkboard-alternative"
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", s.fromHeader())
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, textBody)
	fmt.Fprintf(&msg, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	if err := s.send(s.server, s.auth, s.config.From, to, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type VerificationData struct {
	AppName         string
	UserName        string
	VerificationURL string
}

type CommentData struct {
	AppName   string
	UserName  string
	PostTitle string
	Commenter string
	PostURL   string
}

func (s *Service) SendVerificationEmail(to, userName, verificationURL string) error {
	data := VerificationData{AppName: s.config.AppName, UserName: userName, VerificationURL: verificationURL}
	html, err := renderTemplate(verificationEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render verification template: %w", err)
	}
	text := fmt.Sprintf("Hi %s,\n\nVerify your %s account within 24 hours:\n%s\n", userName, data.AppName, verificationURL)
	return s.SendHTMLEmail([]string{to}, "Verify your "+data.AppName+" account", text, html)
}

// SendCommentNotification tells a post owner that someone commented.
func (s *Service) SendCommentNotification(to string, data CommentData) error {
	data.AppName = s.config.AppName
	html, err := renderTemplate(commentEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render comment template: %w", err)
	}
	text := fmt.Sprintf("Hi %s,\n\n%s commented on \"%s\":\n%s\n", data.UserName, data.Commenter, data.PostTitle, data.PostURL)
	return s.SendHTMLEmail([]string{to}, "New comment on "+data.PostTitle, text, html)
}

var templates = map[string]*template.Template{}

func renderTemplate(name string, data any) (string, error) {
	tmpl, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const (
	verificationEmailTemplate = "verification"
	commentEmailTemplate      = "comment"
)

func init() {
	templates[verificationEmailTemplate] = template.Must(template.New(verificationEmailTemplate).Parse(layout + `{{define "body"}}
    <h2>Welcome, {{.UserName}}!</h2>
    <p>Please verify your email address to start posting with your account.</p>
    <p><a href="{{.VerificationURL}}" class="button">Verify Email Address</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.VerificationURL}}</p>
    <p>This verification link will expire in 24 hours.</p>
{{end}}`))
	templates[commentEmailTemplate] = template.Must(template.New(commentEmailTemplate).Parse(layout + `{{define "body"}}
    <h2>Hi {{.UserName}},</h2>
    <p>{{.Commenter}} commented on your post <strong>{{.PostTitle}}</strong>.</p>
    <p><a href="{{.PostURL}}" class="button">Read the comment</a></p>
{{end}}`))
}

const layout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.AppName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #2f6f4f; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #2f6f4f; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .link { word-break: break-all; color: #2f6f4f; }
    </style>
</head>
<body>
    <div class="header"><h1>{{.AppName}}</h1></div>
{{template "body" .}}
</body>
</html>`
