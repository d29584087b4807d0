package rca

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/opsstack/incident-rca/internal/models"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

func issue(sev models.Severity, cat models.Category, msg, ts string) models.Issue {
	return models.Issue{Severity: sev, Category: cat, Message: msg, Timestamp: ts}
}

func TestAnalyzeNoIssues(t *testing.T) {
	a := New(nil, nil)
	report, err := a.Analyze(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if report != nil {
		t.Fatalf("expected nil report for empty issues, got %+v", report)
	}
}

func TestAnalyzeMetadata(t *testing.T) {
	a := New(nil, nil)
	a.now = func() time.Time { return time.Date(2024, 3, 10, 14, 22, 5, 0, time.UTC) }

	issues := []models.Issue{
		issue(models.SeverityCritical, models.CategoryDatabase, "db down", "2024-03-10 14:00:00"),
		issue(models.SeverityError, models.CategoryNetwork, "timeout", "2024-03-10 14:01:00"),
		issue(models.SeverityError, models.CategoryNetwork, "timeout again", "2024-03-10 14:02:00"),
	}
	report, err := a.Analyze(context.Background(), issues, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	meta := report.Metadata
	if meta.IncidentID != "INC-20240310-142205" {
		t.Errorf("IncidentID = %q", meta.IncidentID)
	}
	if meta.TotalIssues != 3 || meta.CriticalCount != 1 || meta.ErrorCount != 2 {
		t.Errorf("counts = %d/%d/%d, want 3/1/2", meta.TotalIssues, meta.CriticalCount, meta.ErrorCount)
	}
	if meta.Analyzer != analyzerName {
		t.Errorf("Analyzer = %q", meta.Analyzer)
	}
}

func TestAnalyzeTimelineSorted(t *testing.T) {
	issues := []models.Issue{
		issue(models.SeverityError, models.CategoryDisk, "late", "2024-03-10 14:05:00"),
		issue(models.SeverityCritical, models.CategoryDatabase, "early", "2024-03-10 13:59:00"),
		issue(models.SeverityError, models.CategoryNetwork, "middle", "2024-03-10 14:02:00"),
	}

	a := New(nil, nil)
	report, err := a.Analyze(context.Background(), issues, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	timeline := report.Timeline
	if len(timeline) != 3 {
		t.Fatalf("len(timeline) = %d, want 3", len(timeline))
	}
	if !sort.SliceIsSorted(timeline, func(i, j int) bool {
		return timeline[i].Timestamp < timeline[j].Timestamp
	}) {
		t.Errorf("timeline not sorted ascending: %+v", timeline)
	}
	if timeline[0].Event != "early" {
		t.Errorf("first event = %q, want %q", timeline[0].Event, "early")
	}
}

func TestAnalyzeTimelineEventRuneSafe(t *testing.T) {
	long := strings.Repeat("сбой", 40) // 160 runes, 320 bytes
	issues := []models.Issue{
		issue(models.SeverityError, models.CategoryDatabase, long, "2024-03-10 14:00:00"),
	}

	a := New(nil, nil)
	report, err := a.Analyze(context.Background(), issues, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	event := report.Timeline[0].Event
	if !utf8.ValidString(event) {
		t.Fatal("timeline event split a rune")
	}
	if n := utf8.RuneCountInString(event); n != 100 {
		t.Errorf("event rune count = %d, want 100", n)
	}
}

func TestAnalyzeRuleStrategyWithoutCompleter(t *testing.T) {
	issues := []models.Issue{
		issue(models.SeverityCritical, models.CategoryDatabase, "connection refused", "2024-03-10 14:00:00"),
		issue(models.SeverityError, models.CategoryDatabase, "query timeout", "2024-03-10 14:01:00"),
	}
	plans := []models.RemediationPlan{
		{Issue: issues[0], Plan: strings.Repeat("x", 300), Confidence: models.ConfidenceHigh},
	}

	a := New(nil, nil)
	report, err := a.Analyze(context.Background(), issues, plans)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !strings.Contains(report.ExecutiveSummary, "Incident involving 2 issues detected.") {
		t.Errorf("ExecutiveSummary = %q", report.ExecutiveSummary)
	}
	if !strings.Contains(report.ProblemStatement, "database") {
		t.Errorf("ProblemStatement = %q", report.ProblemStatement)
	}
	if report.FiveWhys == nil || report.FiveWhys.PrimaryIssue != "connection refused" {
		t.Errorf("FiveWhys = %+v", report.FiveWhys)
	}
	if len(report.RootCauses) != 1 {
		t.Fatalf("len(RootCauses) = %d, want 1 (one category)", len(report.RootCauses))
	}
	if report.RootCauses[0].Cause != "Database system failure" {
		t.Errorf("Cause = %q", report.RootCauses[0].Cause)
	}
	if report.ImpactAssessment.Severity != "P1" {
		t.Errorf("Severity = %q, want P1 with a critical issue", report.ImpactAssessment.Severity)
	}
	if len(report.ImmediateActions) != 1 {
		t.Fatalf("len(ImmediateActions) = %d, want 1", len(report.ImmediateActions))
	}
	action := report.ImmediateActions[0]
	if action.Action != "Address database issue" {
		t.Errorf("Action = %q", action.Action)
	}
	if len(action.Details) > 203 {
		t.Errorf("Details not truncated: %d chars", len(action.Details))
	}
}

func TestAnalyzeImpactSeverityP2WithoutCritical(t *testing.T) {
	issues := []models.Issue{
		issue(models.SeverityError, models.CategoryNetwork, "timeout", "2024-03-10 14:00:00"),
	}
	a := New(nil, nil)
	report, err := a.Analyze(context.Background(), issues, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.ImpactAssessment.Severity != "P2" {
		t.Errorf("Severity = %q, want P2", report.ImpactAssessment.Severity)
	}
}

func TestAnalyzeFallsBackOnCompletionFailure(t *testing.T) {
	failing := &fakeCompleter{err: errors.New("model overloaded")}
	issues := []models.Issue{
		issue(models.SeverityCritical, models.CategoryMemory, "oom killer invoked", "2024-03-10 14:00:00"),
	}

	a := New(failing, nil)
	report, err := a.Analyze(context.Background(), issues, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if failing.calls == 0 {
		t.Fatal("completion strategy was never attempted")
	}

	// The rule strategy's templated sections must be present, with no partial
	// completion output leaking through.
	if !strings.Contains(report.ExecutiveSummary, "Incident involving 1 issues detected.") {
		t.Errorf("ExecutiveSummary = %q, want rule template", report.ExecutiveSummary)
	}
	if len(report.RootCauses) == 0 {
		t.Error("RootCauses empty after fallback")
	}
}

func TestAnalyzeCompletionStrategy(t *testing.T) {
	completer := &fakeCompleter{response: "- The cache layer saturated under load\nEvidence line here\nImpact line here"}
	issues := []models.Issue{
		issue(models.SeverityError, models.CategoryCPU, "load spike", "2024-03-10 14:00:00"),
	}
	plans := []models.RemediationPlan{{Issue: issues[0], Plan: "1. Scale out"}}

	a := New(completer, nil)
	report, err := a.Analyze(context.Background(), issues, plans)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// One completion per generated section.
	if completer.calls != 8 {
		t.Errorf("completion calls = %d, want 8", completer.calls)
	}
	if report.ExecutiveSummary == "" || report.ProblemStatement == "" {
		t.Error("completion-backed sections empty")
	}
	if report.FiveWhys == nil || report.FiveWhys.PrimaryIssue != "load spike" {
		t.Errorf("FiveWhys = %+v", report.FiveWhys)
	}
	// Immediate actions always derive from plans, not completions.
	if len(report.ImmediateActions) != 1 || report.ImmediateActions[0].Action != "Address cpu issue" {
		t.Errorf("ImmediateActions = %+v", report.ImmediateActions)
	}
}

func TestRuleRootCausesCapAndOrder(t *testing.T) {
	cats := []models.Category{
		models.CategoryDatabase, models.CategoryNetwork, models.CategoryMemory,
		models.CategoryDisk, models.CategoryCPU, models.CategorySecurity,
	}
	var issues []models.Issue
	for _, cat := range cats {
		issues = append(issues, issue(models.SeverityError, cat, "msg "+string(cat), "2024-01-01 00:00:00"))
	}

	causes := ruleRootCauses(issues)
	if len(causes) != maxRootCauses {
		t.Fatalf("len(causes) = %d, want %d", len(causes), maxRootCauses)
	}
	if causes[0].Cause != "Database system failure" {
		t.Errorf("first cause = %q, want first-seen category first", causes[0].Cause)
	}
}

func TestRuleImmediateActionsFromIssuesWhenNoPlans(t *testing.T) {
	var issues []models.Issue
	for i := 0; i < 7; i++ {
		issues = append(issues, issue(models.SeverityError, models.CategoryGeneral, "boom", "2024-01-01 00:00:00"))
	}

	actions := ruleImmediateActions(issues, nil)
	if len(actions) != maxImmediateActions {
		t.Fatalf("len(actions) = %d, want %d", len(actions), maxImmediateActions)
	}
	if actions[0].Action != "Resolve general issue" {
		t.Errorf("Action = %q", actions[0].Action)
	}
}
