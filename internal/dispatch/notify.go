package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsstack/incident-rca/internal/models"
)

// Notifier is the delivery capability for incident notifications. Optional:
// a nil Notifier degrades the stage to simulation mode.
type Notifier interface {
	Post(ctx context.Context, channel, content string) (string, error)
}

// WebhookNotifier delivers notifications to a Slack-compatible incoming
// webhook.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier constructs a notifier; returns nil when no URL is
// configured so callers fall into simulation mode.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// Post sends the content and returns a delivery id.
func (n *WebhookNotifier) Post(ctx context.Context, channel, content string) (string, error) {
	payload, err := json.Marshal(map[string]string{"channel": channel, "text": content})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("webhook post failed: %s", strings.TrimSpace(string(data)))
	}
	return uuid.NewString(), nil
}

var severityIcons = map[models.Severity]string{
	models.SeverityCritical: "\U0001F534",
	models.SeverityError:    "\U0001F7E0",
	models.SeverityWarning:  "\U0001F7E1",
}

func severityIcon(sev models.Severity) string {
	if icon, ok := severityIcons[sev]; ok {
		return icon
	}
	return "⚪"
}

// NotificationStage formats and best-effort delivers the incident alert.
type NotificationStage struct {
	delivery Notifier
	channel  string
	limit    int
	logger   *slog.Logger
}

// NewNotificationStage constructs the stage. delivery may be nil.
func NewNotificationStage(delivery Notifier, channel string, limit int, logger *slog.Logger) *NotificationStage {
	if limit <= 0 {
		limit = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationStage{delivery: delivery, channel: channel, limit: limit, logger: logger}
}

// Notify formats the alert and attempts delivery. Absence or failure of the
// delivery capability degrades to a simulated result carrying the same
// formatted text; it never returns an error.
func (s *NotificationStage) Notify(ctx context.Context, plans []models.RemediationPlan, summary string) *models.NotificationResult {
	if len(plans) == 0 {
		return &models.NotificationResult{Mode: "skipped", MessagePreview: "No remediations to notify"}
	}
	if summary == "" {
		summary = "Incident analysis completed"
	}

	message := s.formatMessage(plans, summary)
	preview := truncate(message, 500)

	if s.delivery == nil || s.channel == "" {
		return &models.NotificationResult{Mode: "simulation", MessagePreview: preview}
	}

	deliveryID, err := s.delivery.Post(ctx, s.channel, message)
	if err != nil {
		s.logger.Warn("notification delivery failed", slog.Any("error", err))
		return &models.NotificationResult{Mode: "simulation", MessagePreview: preview}
	}

	return &models.NotificationResult{
		NotificationsSent: 1,
		Mode:              "live",
		DeliveryID:        deliveryID,
		Channel:           s.channel,
		MessagePreview:    truncate(message, 200),
	}
}

func (s *NotificationStage) formatMessage(plans []models.RemediationPlan, summary string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\U0001F6A8 DevOps Incident Alert\n\n%s\n\nFound %d issues requiring attention.\n", summary, len(plans))

	limit := len(plans)
	if limit > s.limit {
		limit = s.limit
	}
	for i, plan := range plans[:limit] {
		issue := plan.Issue
		fmt.Fprintf(&sb, "\n%s Issue #%d: %s\n%s\n",
			severityIcon(issue.Severity), i+1,
			strings.ToUpper(string(issue.Category)), truncate(issue.Message, 150))
		fmt.Fprintf(&sb, "Remediation Plan:\n%s\n", truncate(plan.Plan, 500))
		fmt.Fprintf(&sb, "Confidence: %s | Sources: %d\n", plan.Confidence, plan.KnowledgeSources)
	}

	if len(plans) > limit {
		fmt.Fprintf(&sb, "\nShowing %d of %d total issues. Check the dashboard for complete details.\n", limit, len(plans))
	}
	return sb.String()
}

// truncate keeps the first n characters, never splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
