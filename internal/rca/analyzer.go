package rca

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/opsstack/incident-rca/internal/llm"
	"github.com/opsstack/incident-rca/internal/models"
)

const analyzerName = "Incident RCA Pipeline"

// Strategy produces the variable sections of an RCA report. Both
// implementations fill the same shape so downstream consumers never care
// which one ran.
type Strategy interface {
	Fill(ctx context.Context, report *models.RCAReport, issues []models.Issue, plans []models.RemediationPlan) error
}

// Analyzer builds the root-cause analysis report. The strategy is selected
// once per report by completion-capability availability; a completion
// failure partway through discards the partial report and reruns the
// rule-based strategy so reports never mix strategies.
type Analyzer struct {
	completer llm.Completer
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs an Analyzer. completer may be nil.
func New(completer llm.Completer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{completer: completer, logger: logger, now: time.Now}
}

// Analyze produces the report for one incident. With no issues it returns
// nil: there is nothing to analyze, which is not an error.
func (a *Analyzer) Analyze(ctx context.Context, issues []models.Issue, plans []models.RemediationPlan) (*models.RCAReport, error) {
	if len(issues) == 0 {
		return nil, nil
	}

	report := &models.RCAReport{
		Metadata: a.buildMetadata(issues),
		Timeline: buildTimeline(issues),
	}

	if a.completer != nil {
		if err := (&completionStrategy{completer: a.completer}).Fill(ctx, report, issues, plans); err == nil {
			return report, nil
		} else {
			a.logger.Warn("completion-backed analysis failed, falling back to rules", slog.Any("error", err))
			// Rebuild so no partially filled completion sections leak through.
			report = &models.RCAReport{
				Metadata: a.buildMetadata(issues),
				Timeline: buildTimeline(issues),
			}
		}
	}

	if err := (&ruleStrategy{}).Fill(ctx, report, issues, plans); err != nil {
		return nil, fmt.Errorf("rule-based analysis: %w", err)
	}
	return report, nil
}

func (a *Analyzer) buildMetadata(issues []models.Issue) models.ReportMetadata {
	critical, errs := 0, 0
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityError:
			errs++
		}
	}
	now := a.now()
	return models.ReportMetadata{
		IncidentID:    "INC-" + now.Format("20060102-150405"),
		AnalysisDate:  now.Format(time.RFC3339),
		Analyzer:      analyzerName,
		TotalIssues:   len(issues),
		CriticalCount: critical,
		ErrorCount:    errs,
	}
}

// buildTimeline orders all issues ascending by timestamp string. Both
// strategies share it so the timeline never depends on strategy choice.
func buildTimeline(issues []models.Issue) []models.TimelineItem {
	sorted := append([]models.Issue(nil), issues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	timeline := make([]models.TimelineItem, 0, len(sorted))
	for _, issue := range sorted {
		timeline = append(timeline, models.TimelineItem{
			Timestamp: issue.Timestamp,
			Event:     truncate(issue.Message, 100),
			Severity:  issue.Severity,
			Category:  issue.Category,
		})
	}
	return timeline
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
	return string(runes[:n])
}
