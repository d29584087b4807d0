package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opsstack/incident-rca/internal/models"
)

// TicketFields is the tracker-agnostic ticket payload.
type TicketFields struct {
	ProjectKey  string
	Summary     string
	Description string
	IssueType   string
	Priority    string
	Labels      []string
}

// TicketTracker is the ticket creation capability. Optional: a nil tracker
// degrades the stage to simulation mode.
type TicketTracker interface {
	CreateTicket(ctx context.Context, fields TicketFields) (string, error)
}

// JiraTracker creates tickets through the Jira REST API v2.
type JiraTracker struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
}

// NewJiraTracker constructs a tracker; returns nil when credentials are
// incomplete so callers fall into simulation mode.
func NewJiraTracker(baseURL, email, apiToken string, timeout time.Duration) *JiraTracker {
	if baseURL == "" || email == "" || apiToken == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &JiraTracker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateTicket posts the issue and returns the created ticket key.
func (t *JiraTracker) CreateTicket(ctx context.Context, fields TicketFields) (string, error) {
	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": fields.ProjectKey},
			"summary":     fields.Summary,
			"description": fields.Description,
			"issuetype":   map[string]string{"name": fields.IssueType},
			"priority":    map[string]string{"name": fields.Priority},
			"labels":      fields.Labels,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/rest/api/2/issue", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(t.email, t.apiToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ticket creation failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.Key, nil
}

var severityPriority = map[models.Severity]string{
	models.SeverityCritical: "Highest",
	models.SeverityError:    "High",
	models.SeverityWarning:  "Medium",
}

// TicketURL returns the browse URL for a ticket key, empty when no base URL
// is configured.
func TicketURL(baseURL, key string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/browse/" + key
}

// TicketingStage files tracker tickets for the most severe issues.
type TicketingStage struct {
	tracker    TicketTracker
	baseURL    string
	projectKey string
	maxTickets int
	logger     *slog.Logger
}

// NewTicketingStage constructs the stage. tracker may be nil.
func NewTicketingStage(tracker TicketTracker, baseURL, projectKey string, maxTickets int, logger *slog.Logger) *TicketingStage {
	if projectKey == "" {
		projectKey = "OPS"
	}
	if maxTickets <= 0 {
		maxTickets = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketingStage{
		tracker:    tracker,
		baseURL:    baseURL,
		projectKey: projectKey,
		maxTickets: maxTickets,
		logger:     logger,
	}
}

// File creates one ticket per CRITICAL or ERROR plan, up to the configured
// cap. A tracker failure on one ticket omits that ticket and continues; the
// batch never aborts.
func (s *TicketingStage) File(ctx context.Context, plans []models.RemediationPlan) *models.TicketingResult {
	var eligible []models.RemediationPlan
	for _, plan := range plans {
		if plan.Issue.Severity == models.SeverityCritical || plan.Issue.Severity == models.SeverityError {
			eligible = append(eligible, plan)
		}
	}
	if len(eligible) > s.maxTickets {
		eligible = eligible[:s.maxTickets]
	}

	mode := "live"
	if s.tracker == nil {
		mode = "simulation"
	}
	result := &models.TicketingResult{Mode: mode, Tickets: []models.Ticket{}}

	for _, plan := range eligible {
		issue := plan.Issue
		fields := TicketFields{
			ProjectKey: s.projectKey,
			Summary: fmt.Sprintf("[%s] %s: %s", issue.Severity,
				strings.ToUpper(string(issue.Category)), truncate(issue.Message, 80)),
			Description: s.describe(plan),
			IssueType:   "Bug",
			Priority:    severityPriority[issue.Severity],
			Labels:      []string{"incident-rca", string(issue.Category)},
		}

		var ticket models.Ticket
		if s.tracker == nil {
			ticket = models.Ticket{
				Key:      simulatedKey(s.projectKey, issue.Message),
				Summary:  fields.Summary,
				Priority: fields.Priority,
				Mode:     "simulation",
			}
		} else {
			key, err := s.tracker.CreateTicket(ctx, fields)
			if err != nil {
				s.logger.Warn("ticket creation failed",
					slog.String("category", string(issue.Category)), slog.Any("error", err))
				continue
			}
			ticket = models.Ticket{
				Key:      key,
				URL:      TicketURL(s.baseURL, key),
				Summary:  fields.Summary,
				Priority: fields.Priority,
			}
		}
		result.Tickets = append(result.Tickets, ticket)
	}

	result.TicketsCreated = len(result.Tickets)
	return result
}

func (s *TicketingStage) describe(plan models.RemediationPlan) string {
	issue := plan.Issue
	var sb strings.Builder
	fmt.Fprintf(&sb, "Automated incident analysis detected a %s severity issue.\n\n", issue.Severity)
	fmt.Fprintf(&sb, "Category: %s\n", issue.Category)
	fmt.Fprintf(&sb, "Timestamp: %s\n\n", issue.Timestamp)
	fmt.Fprintf(&sb, "Log Message:\n%s\n\n", issue.Message)
	fmt.Fprintf(&sb, "Remediation Plan:\n%s\n\n", truncate(plan.Plan, 2000))
	fmt.Fprintf(&sb, "Confidence: %s | Knowledge Sources: %d\n", plan.Confidence, plan.KnowledgeSources)
	return sb.String()
}

// simulatedKey derives a stable ticket key from the issue message so repeated
// simulated runs produce identical output.
func simulatedKey(projectKey, message string) string {
	h := fnv.New32a()
	h.Write([]byte(message))
	return fmt.Sprintf("%s-%04d", projectKey, h.Sum32()%10000)
}
