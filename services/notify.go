package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NotificationResult reports the outcome of a send. Failures never surface
// as errors to the caller.
type NotificationResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type dashboardEmail struct {
	ClientName   string
	ProjectName  string
	DashboardURL string
}

var dashboardHTML = htmltemplate.Must(htmltemplate.New("dashboard.html").Parse(`<!DOCTYPE html>
<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
      .container { max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background: #1d4ed8; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
      .content { background: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
      .button { display: inline-block; padding: 12px 24px; background: #1d4ed8; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
      .link { background: #e5e7eb; padding: 10px; border-radius: 4px; word-break: break-all; }
      .footer { text-align: center; margin-top: 20px; color: #6b7280; font-size: 12px; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header"><h1>Your Project is Ready!</h1></div>
      <div class="content">
        <p>Hi {{.ClientName}},</p>
        <p>Great news! Your project <strong>{{.ProjectName}}</strong> is now active.</p>
        <p>You can track your project progress, view updates, and see the status at any time using the link below:</p>
        <p style="text-align: center;"><a href="{{.DashboardURL}}" class="button">View Project Dashboard</a></p>
        <p>Or copy this link:</p>
        <p class="link">{{.DashboardURL}}</p>
        <p>This link is private and secure. Only you can access your project dashboard.</p>
      </div>
      <div class="footer"><p>This is an automated message. Please do not reply.</p></div>
    </div>
  </body>
</html>
`))

var dashboardText = texttemplate.Must(texttemplate.New("dashboard.txt").Parse(`Hi {{.ClientName}},

Great news! Your project "{{.ProjectName}}" is now active.

You can track your project progress using this link:
{{.DashboardURL}}

This link is private and secure. Only you can access your project dashboard.

Best regards,
Client Project Portal
`))

// NotificationService sends client-facing emails.
type NotificationService struct {
	mailer      Mailer
	from        string
	frontendURL string
	logger      zerolog.Logger
}

var _ DashboardNotifier = (*NotificationService)(nil)

func NewNotificationService(mailer Mailer, from, frontendURL string) *NotificationService {
	return &NotificationService{
		mailer:      mailer,
		from:        from,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      log.With().Str("service", "notifications").Logger(),
	}
}

// DashboardURL is the client's private dashboard link for a project.
func (n *NotificationService) DashboardURL(projectID uuid.UUID) string {
	return fmt.Sprintf("%s/client/%s/dashboard", n.frontendURL, projectID)
}

// NotifyClientDashboardReady emails the client a link to their dashboard.
func (n *NotificationService) NotifyClientDashboardReady(ctx context.Context, clientEmail, clientName string, projectID uuid.UUID, projectName string) NotificationResult {
	data := dashboardEmail{
		ClientName:   clientName,
		ProjectName:  projectName,
		DashboardURL: n.DashboardURL(projectID),
	}
	n.logger.Info().
		Str("projectId", projectID.String()).
		Str("to", clientEmail).
		Str("dashboardUrl", data.DashboardURL).
		Msg("sending dashboard email")

	var html, text bytes.Buffer
	if err := dashboardHTML.Execute(&html, data); err != nil {
		return n.failed(projectID, fmt.Errorf("render html body: %w", err))
	}
	if err := dashboardText.Execute(&text, data); err != nil {
		return n.failed(projectID, fmt.Errorf("render text body: %w", err))
	}

	id, err := n.mailer.Send(ctx, Message{
		From:    n.from,
		To:      []string{clientEmail},
		Subject: "Your Project Dashboard: " + projectName,
		HTML:    html.String(),
		Text:    text.String(),
	})
	if err != nil {
		return n.failed(projectID, err)
	}

	n.logger.Info().Str("projectId", projectID.String()).Str("messageId", id).Msg("dashboard email sent")
	return NotificationResult{Success: true, MessageID: id}
}

func (n *NotificationService) failed(projectID uuid.UUID, err error) NotificationResult {
	n.logger.Error().Err(err).Str("projectId", projectID.String()).Msg("email send error")
	return NotificationResult{Success: false, Error: err.Error()}
}
