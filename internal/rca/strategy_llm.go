package rca

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsstack/incident-rca/internal/llm"
	"github.com/opsstack/incident-rca/internal/models"
)

// completionStrategy fills each report section with one completion call and
// parses the free text through the section parsers. Any call failing aborts
// the whole strategy; the analyzer then reruns the rule strategy so the
// report never mixes generated and templated sections.
type completionStrategy struct {
	completer llm.Completer
}

func (s *completionStrategy) Fill(ctx context.Context, report *models.RCAReport, issues []models.Issue, plans []models.RemediationPlan) error {
	issuesText := issueContext(issues, 15)

	summary, err := s.completer.Complete(ctx, fmt.Sprintf(`As a senior DevOps engineer, provide a concise executive summary for this incident:

Issues Found:
%s

Total Issues: %d (%d CRITICAL, %d ERRORS)

Provide a 2-3 sentence executive summary highlighting the most critical aspects and overall impact.`,
		issuesText, report.Metadata.TotalIssues, report.Metadata.CriticalCount, report.Metadata.ErrorCount))
	if err != nil {
		return fmt.Errorf("executive summary: %w", err)
	}
	report.ExecutiveSummary = strings.TrimSpace(summary)

	problem, err := s.completer.Complete(ctx, fmt.Sprintf(`Create a clear problem statement for this incident:

Issues:
%s

Provide a single, clear problem statement (1-2 sentences) that describes what went wrong.`, issuesText))
	if err != nil {
		return fmt.Errorf("problem statement: %w", err)
	}
	report.ProblemStatement = strings.TrimSpace(problem)

	// Five-whys drills into the first issue only.
	primary := issues[0]
	whys, err := s.completer.Complete(ctx, fmt.Sprintf(`Perform a "5 Whys" root cause analysis for this issue:

Issue: %s
Category: %s
Severity: %s

Provide exactly 5 "Why" questions and answers to drill down to the root cause.
Format as:
Why 1: [question]
Answer: [answer]
Why 2: [question]
Answer: [answer]
... (continue for all 5)`, primary.Message, primary.Category, primary.Severity))
	if err != nil {
		return fmt.Errorf("five whys: %w", err)
	}
	report.FiveWhys = &models.FiveWhys{
		PrimaryIssue: primary.Message,
		Analysis:     strings.TrimSpace(whys),
	}

	causes, err := s.completer.Complete(ctx, fmt.Sprintf(`Identify the root causes for these incidents:

%s

List 3-5 distinct root causes. For each, provide:
1. Root cause description
2. Evidence from logs
3. How it led to the incident

Format as a clear list.`, issuesText))
	if err != nil {
		return fmt.Errorf("root causes: %w", err)
	}
	report.RootCauses = ParseRootCauses(causes)

	factors, err := s.completer.Complete(ctx, fmt.Sprintf(`Identify contributing factors that made this incident worse or allowed it to happen:

Issues: %s

List 3-5 contributing factors (not root causes, but things that contributed).
Examples: monitoring gaps, configuration issues, resource constraints, etc.`, issuesText))
	if err != nil {
		return fmt.Errorf("contributing factors: %w", err)
	}
	report.ContributingFactors = ParseListItems(factors)

	impact, err := s.completer.Complete(ctx, fmt.Sprintf(`Assess the impact of this incident:

Issues: %s

Provide:
1. User Impact (how users were affected)
2. Business Impact (revenue, reputation, etc.)
3. Technical Impact (systems affected)
4. Duration (estimated)
5. Severity Level (P1-P4)`, issuesText))
	if err != nil {
		return fmt.Errorf("impact assessment: %w", err)
	}
	report.ImpactAssessment = ParseImpactAssessment(impact)

	report.ImmediateActions = ruleImmediateActions(issues, plans)

	preventive, err := s.completer.Complete(ctx, fmt.Sprintf(`Based on this incident, suggest preventive measures to avoid similar issues:

Issues: %s

Provide 5-7 specific preventive measures including:
- Monitoring improvements
- Process changes
- Technical improvements
- Training needs

Format as actionable items.`, issuesText))
	if err != nil {
		return fmt.Errorf("preventive measures: %w", err)
	}
	report.PreventiveMeasures = ParseListItems(preventive)

	lessons, err := s.completer.Complete(ctx, fmt.Sprintf(`What are the key lessons learned from this incident?

Issues: %s

Provide 3-5 specific lessons learned that the team should remember.`, issuesText))
	if err != nil {
		return fmt.Errorf("lessons learned: %w", err)
	}
	report.LessonsLearned = ParseListItems(lessons)

	return nil
}

// issueContext renders up to limit issues as prompt context lines.
func issueContext(issues []models.Issue, limit int) string {
	if limit > len(issues) {
		limit = len(issues)
	}
	var sb strings.Builder
	for _, issue := range issues[:limit] {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", issue.Severity, issue.Category, issue.Message)
	}
	return sb.String()
}
