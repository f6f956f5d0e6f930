// Package email sends transactional email for AgroScan.
//
// Sender has two implementations:
// - SMTPSender: any SMTP server (Mailhog in development)
// - LogSender: logs instead of sending, for tests and mail-less setups
//
// Outgoing mail is queued as SendEmail tasks by the services; the job handler
// calls a Sender from the worker.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a single email. When both bodies are set the message is sent as
// multipart/alternative.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // Empty for Mailhog
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

const (
	DefaultFromEmail = "noreply@agroscan.app"
	DefaultFromName  = "AgroScan"
)

// =============================================================================
// Templates
// =============================================================================

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("email").Funcs(template.FuncMap{
	"currentYear": func() int { return time.Now().Year() },
}).ParseFS(templateFS, "templates/*.html"))

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// WelcomeMessage builds the message sent after registration.
func WelcomeMessage(to, firstName, role string) (Message, error) {
	title := cases.Title(language.English).String(role)
	html, err := render("welcome.html", map[string]interface{}{
		"FirstName": firstName,
		"Role":      title,
	})
	if err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf(`Hi %s,

Welcome to AgroScan! Your %s account is ready.

You can now record plant inspections, attach photos and track analysis results.

Thanks,
The AgroScan Team
`, firstName, title)

	return Message{
		To:       to,
		Subject:  "Welcome to AgroScan",
		TextBody: text,
		HTMLBody: html,
	}, nil
}

// ExportReadyMessage builds the notification sent when an asynchronous export
// has been written.
func ExportReadyMessage(to, exportType, format, downloadURL string, rows int) (Message, error) {
	html, err := render("export_ready.html", map[string]interface{}{
		"ExportType":  exportType,
		"Format":      format,
		"DownloadURL": downloadURL,
		"Rows":        rows,
	})
	if err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf(`Hi,

Your %s export (%s, %d rows) is ready:

%s

Thanks,
The AgroScan Team
`, exportType, format, rows, downloadURL)

	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Your %s export is ready", exportType),
		TextBody: text,
		HTMLBody: html,
	}, nil
}

// =============================================================================
// LogSender
// =============================================================================

// LogSender records messages in the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("email not sent (log sender)", "to", msg.To, "subject", msg.Subject)
	return nil
}

var _ Sender = (*LogSender)(nil)
