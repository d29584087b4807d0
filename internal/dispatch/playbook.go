package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opsstack/incident-rca/internal/llm"
	"github.com/opsstack/incident-rca/internal/models"
)

const (
	maxChecklistSteps = 10
	summaryIssueLimit = 10
)

// PlaybookBuilder synthesises a reusable incident response playbook from the
// remediation plans of one run.
type PlaybookBuilder struct {
	completer llm.Completer
	dir       string
	logger    *slog.Logger
	now       func() time.Time
}

// NewPlaybookBuilder constructs the builder. completer may be nil; dir may be
// empty to skip persistence.
func NewPlaybookBuilder(completer llm.Completer, dir string, logger *slog.Logger) *PlaybookBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybookBuilder{completer: completer, dir: dir, logger: logger, now: time.Now}
}

// Build groups plans by category, derives checklists and a quick reference,
// and best-effort persists the result. Returns nil when there are no plans.
func (b *PlaybookBuilder) Build(ctx context.Context, plans []models.RemediationPlan, summary string) *models.Playbook {
	if len(plans) == 0 {
		return nil
	}

	// Group by category, preserving first-seen order.
	var order []models.Category
	grouped := map[models.Category][]models.RemediationPlan{}
	for _, plan := range plans {
		cat := plan.Issue.Category
		if _, seen := grouped[cat]; !seen {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], plan)
	}

	sections := make([]models.PlaybookSection, 0, len(order))
	for _, cat := range order {
		section := models.PlaybookSection{Category: cat, IssueCount: len(grouped[cat])}
		for _, plan := range grouped[cat] {
			section.Checklists = append(section.Checklists, buildChecklist(plan))
		}
		sections = append(sections, section)
	}

	enhanced := summary
	if b.completer != nil {
		if text, err := b.enhanceSummary(ctx, plans, summary); err != nil {
			b.logger.Warn("playbook summary enhancement failed", slog.Any("error", err))
		} else {
			enhanced = text
		}
	}

	now := b.now()
	playbook := &models.Playbook{
		Title:              "Incident Response Playbook - " + now.Format("2006-01-02 15:04"),
		CreatedAt:          now.Format(time.RFC3339),
		Summary:            enhanced,
		TotalIssues:        len(plans),
		CategoriesAffected: order,
		Sections:           sections,
		QuickReference:     buildQuickReference(plans, order),
	}

	b.save(playbook, now)
	return playbook
}

// buildChecklist extracts actionable steps from the plan text, falling back
// to a generic sequence when the plan carries no list structure.
func buildChecklist(plan models.RemediationPlan) models.Checklist {
	issue := plan.Issue

	var steps []string
	for _, line := range strings.Split(plan.Plan, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !isActionLine(line) {
			continue
		}
		if step := strings.TrimLeft(line, "0123456789.-*• "); step != "" {
			steps = append(steps, step)
		}
	}
	if len(steps) == 0 {
		steps = []string{
			fmt.Sprintf("Investigate %s issue", issue.Category),
			"Review relevant logs and metrics",
			"Apply recommended fix",
			"Verify resolution",
			"Document outcome",
		}
	}
	if len(steps) > maxChecklistSteps {
		steps = steps[:maxChecklistSteps]
	}

	trigger := issue.Message
	if runes := []rune(trigger); len(runes) > 100 {
		trigger = string(runes[:100])
	}

	return models.Checklist{
		IssueType:  issue.Category,
		Severity:   issue.Severity,
		Trigger:    trigger,
		Steps:      steps,
		Confidence: plan.Confidence,
	}
}

func isActionLine(line string) bool {
	if line[0] >= '0' && line[0] <= '9' {
		return true
	}
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "•")
}

func buildQuickReference(plans []models.RemediationPlan, order []models.Category) models.QuickReference {
	severityCounts := map[models.Severity]int{}
	categoryCounts := map[models.Category]int{}
	for _, plan := range plans {
		severityCounts[plan.Issue.Severity]++
		categoryCounts[plan.Issue.Category]++
	}

	top := append([]models.Category(nil), order...)
	sort.SliceStable(top, func(i, j int) bool {
		return categoryCounts[top[i]] > categoryCounts[top[j]]
	})
	if len(top) > 3 {
		top = top[:3]
	}

	priority := "HIGH"
	if severityCounts[models.SeverityCritical] > 0 {
		priority = "CRITICAL"
	}

	return models.QuickReference{
		SeverityBreakdown:   severityCounts,
		TopCategories:       top,
		TotalRemediations:   len(plans),
		RecommendedPriority: priority,
	}
}

func (b *PlaybookBuilder) enhanceSummary(ctx context.Context, plans []models.RemediationPlan, base string) (string, error) {
	limit := len(plans)
	if limit > summaryIssueLimit {
		limit = summaryIssueLimit
	}
	var lines []string
	for _, plan := range plans[:limit] {
		issue := plan.Issue
		lines = append(lines, fmt.Sprintf("- %s: %s - %s",
			issue.Severity, issue.Category, truncate(issue.Message, 80)))
	}

	prompt := fmt.Sprintf(`Based on these incidents, create an enhanced executive summary for an incident playbook:

%s

Key Issues:
%s

Provide a comprehensive 3-4 sentence summary that:
1. Highlights the overall incident pattern
2. Notes the most critical areas
3. Suggests preventive measures
4. Sets priority level

Keep it professional and actionable.`, base, strings.Join(lines, "\n"))

	text, err := b.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// save persists the playbook for future reference. Failure only logs.
func (b *PlaybookBuilder) save(playbook *models.Playbook, now time.Time) {
	if b.dir == "" {
		return
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		b.logger.Error("failed to create playbook directory", slog.Any("error", err))
		return
	}

	path := filepath.Join(b.dir, "incident_playbook_"+now.Format("20060102_150405")+".json")
	data, err := json.MarshalIndent(playbook, "", "  ")
	if err != nil {
		b.logger.Error("failed to encode playbook", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		b.logger.Error("failed to save playbook", slog.Any("error", err))
		return
	}
	b.logger.Info("playbook saved", slog.String("path", path))
}
