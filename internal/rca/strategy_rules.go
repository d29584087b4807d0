package rca

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsstack/incident-rca/internal/models"
)

// ruleStrategy fills the report with deterministic templates. It is the
// fallback whenever the completion capability is absent or fails.
type ruleStrategy struct{}

func (ruleStrategy) Fill(_ context.Context, report *models.RCAReport, issues []models.Issue, plans []models.RemediationPlan) error {
	meta := report.Metadata

	report.ExecutiveSummary = fmt.Sprintf(
		"Incident involving %d issues detected. %d critical issues and %d errors identified across multiple system components. Immediate attention required for critical infrastructure components.",
		meta.TotalIssues, meta.CriticalCount, meta.ErrorCount)

	categories := categoryList(issues)
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, string(cat))
	}
	report.ProblemStatement = fmt.Sprintf(
		"Multiple system failures detected across %s components, resulting in service degradation and potential data loss.",
		strings.Join(names, ", "))

	if len(issues) > 0 {
		report.FiveWhys = &models.FiveWhys{
			PrimaryIssue: issues[0].Message,
			Analysis:     "Completion capability unavailable; perform a manual five-whys review starting from the primary issue above.",
		}
	}

	report.RootCauses = ruleRootCauses(issues)
	report.ContributingFactors = []string{
		"Insufficient monitoring coverage",
		"Lack of automated alerting",
		"Resource capacity constraints",
		"Configuration management gaps",
	}

	severity := "P2"
	if meta.CriticalCount > 0 {
		severity = "P1"
	}
	report.ImpactAssessment = models.ImpactAssessment{
		UserImpact:      "Service degradation affecting end users",
		BusinessImpact:  "Potential revenue loss and reputation damage",
		TechnicalImpact: fmt.Sprintf("%d system components affected", len(categories)),
		Duration:        "Ongoing - immediate action required",
		Severity:        severity,
	}

	report.ImmediateActions = ruleImmediateActions(issues, plans)
	report.PreventiveMeasures = []string{
		"Implement comprehensive monitoring for all critical systems",
		"Set up automated alerting with escalation procedures",
		"Conduct regular capacity planning reviews",
		"Establish configuration management best practices",
		"Implement automated health checks",
		"Create incident response playbooks",
		"Schedule regular disaster recovery drills",
	}
	report.LessonsLearned = []string{
		"Early detection systems are critical for incident prevention",
		"Multiple simultaneous failures indicate systemic issues",
		"Automated remediation can reduce incident response time",
		"Cross-functional collaboration improves incident resolution",
	}
	return nil
}

// ruleRootCauses emits one cause per category in first-seen order, capped
// at 5.
func ruleRootCauses(issues []models.Issue) []models.RootCause {
	grouped := make(map[models.Category][]models.Issue)
	order := make([]models.Category, 0)
	for _, issue := range issues {
		if _, ok := grouped[issue.Category]; !ok {
			order = append(order, issue.Category)
		}
		grouped[issue.Category] = append(grouped[issue.Category], issue)
	}

	causes := make([]models.RootCause, 0, len(order))
	for _, cat := range order {
		group := grouped[cat]
		causes = append(causes, models.RootCause{
			Cause:    capitalize(string(cat)) + " system failure",
			Evidence: fmt.Sprintf("Multiple %s errors detected: %s", cat, truncate(group[0].Message, 100)),
			Impact:   fmt.Sprintf("%d related incidents", len(group)),
		})
		if len(causes) == maxRootCauses {
			break
		}
	}
	return causes
}

func ruleImmediateActions(issues []models.Issue, plans []models.RemediationPlan) []models.ImmediateAction {
	if len(plans) > 0 {
		actions := make([]models.ImmediateAction, 0, maxImmediateActions)
		for _, plan := range plans {
			actions = append(actions, models.ImmediateAction{
				Action:   fmt.Sprintf("Address %s issue", plan.Issue.Category),
				Priority: plan.Issue.Severity,
				Details:  truncate(plan.Plan, 200),
			})
			if len(actions) == maxImmediateActions {
				break
			}
		}
		return actions
	}

	actions := make([]models.ImmediateAction, 0, maxImmediateActions)
	for _, issue := range issues {
		actions = append(actions, models.ImmediateAction{
			Action:   fmt.Sprintf("Resolve %s issue", issue.Category),
			Priority: issue.Severity,
			Details:  issue.Message,
		})
		if len(actions) == maxImmediateActions {
			break
		}
	}
	return actions
}

func categoryList(issues []models.Issue) []models.Category {
	seen := make(map[models.Category]struct{})
	order := make([]models.Category, 0)
	for _, issue := range issues {
		if _, ok := seen[issue.Category]; ok {
			continue
		}
		seen[issue.Category] = struct{}{}
		order = append(order, issue.Category)
	}
	return order
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
