package classify

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

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

func TestClassifyEmptyInput(t *testing.T) {
	c := New(nil, nil)
	for _, raw := range []string{"", "   ", "\n\n"} {
		if _, err := c.Classify(context.Background(), raw); err == nil {
			t.Errorf("Classify(%q) expected error", raw)
		}
	}
}

func TestClassifyCountsNonBlankLines(t *testing.T) {
	raw := "line one has an error\n\nline two is fine\n   \nline three warning\n"
	c := New(nil, nil)

	analysis, err := c.Classify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if analysis.TotalEntries != 3 {
		t.Fatalf("TotalEntries = %d, want 3", analysis.TotalEntries)
	}
	if len(analysis.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(analysis.Entries))
	}
}

func TestClassifyLineSeverity(t *testing.T) {
	tests := []struct {
		line string
		want models.Severity
	}{
		// CRITICAL keywords shadow ERROR keywords on the same line.
		{"2024-01-01 00:00:00 WARNING critical disk failure", models.SeverityCritical},
		{"fatal: out of memory", models.SeverityCritical},
		{"request failed with timeout", models.SeverityError},
		{"deprecated API call detected", models.SeverityWarning},
		{"notice: scheduled maintenance", models.SeverityInfo},
		{"verbose output enabled", models.SeverityDebug},
		{"nothing special here", models.SeverityInfo},
	}

	c := New(nil, nil)
	for _, tt := range tests {
		entry := c.classifyLine(tt.line)
		if entry.Severity != tt.want {
			t.Errorf("classifyLine(%q).Severity = %s, want %s", tt.line, entry.Severity, tt.want)
		}
	}
}

func TestClassifyLineCategory(t *testing.T) {
	tests := []struct {
		line string
		want models.Category
	}{
		{"database connection refused", models.CategoryDatabase},
		{"dns lookup unreachable", models.CategoryNetwork},
		{"java.lang.OutOfMemoryError: heap exhausted", models.CategoryMemory},
		{"disk space at 98%", models.CategoryDisk},
		{"cpu throttling detected", models.CategoryCPU},
		{"unauthorized access attempt", models.CategorySecurity},
		{"NullPointerException in handler", models.CategoryApplication},
		// No keyword from any group falls through to general.
		{"2024-01-01 00:00:00 ERROR something odd happened", models.CategoryGeneral},
	}

	c := New(nil, nil)
	for _, tt := range tests {
		entry := c.classifyLine(tt.line)
		if entry.Category != tt.want {
			t.Errorf("classifyLine(%q).Category = %s, want %s", tt.line, entry.Category, tt.want)
		}
	}
}

func TestExtractTimestamp(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"2024-03-10 14:22:05 ERROR boom", "2024-03-10 14:22:05"},
		{"2024-03-10T14:22:05Z ERROR boom", "2024-03-10T14:22:05"},
		{"10/Mar/2024:14:22:05 +0000 GET /api", "10/Mar/2024:14:22:05"},
		{"10-03-2024 14:22:05 ERROR boom", "10-03-2024 14:22:05"},
	}

	c := New(nil, nil)
	for _, tt := range tests {
		if got := c.extractTimestamp(tt.line); got != tt.want {
			t.Errorf("extractTimestamp(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}

	// Lines without a recognized timestamp get the current time.
	got := c.extractTimestamp("no timestamp here ERROR")
	if got == "" {
		t.Error("expected fallback timestamp, got empty string")
	}
}

func TestExtractFields(t *testing.T) {
	line := "ERROR service: payments returned 503 from 10.0.0.12, error_code: ECONNRESET"
	fields := extractFields(line)

	if !reflect.DeepEqual(fields.IPAddresses, []string{"10.0.0.12"}) {
		t.Errorf("IPAddresses = %v", fields.IPAddresses)
	}
	if !reflect.DeepEqual(fields.HTTPStatus, []string{"503"}) {
		t.Errorf("HTTPStatus = %v", fields.HTTPStatus)
	}
	if !reflect.DeepEqual(fields.ErrorCodes, []string{"ECONNRESET"}) {
		t.Errorf("ErrorCodes = %v", fields.ErrorCodes)
	}
	if !reflect.DeepEqual(fields.Services, []string{"payments"}) {
		t.Errorf("Services = %v", fields.Services)
	}
}

func TestClassifyIssuePromotion(t *testing.T) {
	var lines []string
	lines = append(lines, "2024-01-01 00:00:01 WARNING disk filling up")
	lines = append(lines, "2024-01-01 00:00:02 CRITICAL database down")
	lines = append(lines, "2024-01-01 00:00:03 CRITICAL out of memory")
	for i := 0; i < 7; i++ {
		lines = append(lines, fmt.Sprintf("2024-01-01 00:00:%02d ERROR request failed", 4+i))
	}

	c := New(nil, nil)
	analysis, err := c.Classify(context.Background(), strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	if analysis.TotalEntries != 10 {
		t.Errorf("TotalEntries = %d, want 10", analysis.TotalEntries)
	}
	if len(analysis.Issues) != 9 {
		t.Errorf("len(Issues) = %d, want 9", len(analysis.Issues))
	}
	if analysis.CriticalCount != 2 {
		t.Errorf("CriticalCount = %d, want 2", analysis.CriticalCount)
	}
	if analysis.ErrorCount != 7 {
		t.Errorf("ErrorCount = %d, want 7", analysis.ErrorCount)
	}

	// Issues keep input order.
	if analysis.Issues[0].Severity != models.SeverityCritical {
		t.Errorf("first issue severity = %s, want CRITICAL", analysis.Issues[0].Severity)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	raw := "2024-01-01 00:00:00 ERROR database timeout\n2024-01-01 00:00:01 INFO all good"
	c := New(nil, nil)

	first, err := c.Classify(context.Background(), raw)
	if err != nil {
		t.Fatalf("first Classify: %v", err)
	}
	second, err := c.Classify(context.Background(), raw)
	if err != nil {
		t.Fatalf("second Classify: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("classification is not deterministic across runs")
	}
}

func TestSummarizeFallbacks(t *testing.T) {
	raw := "2024-01-01 00:00:00 ERROR database timeout"

	// No completer configured: templated summary.
	c := New(nil, nil)
	analysis, err := c.Classify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if analysis.Summary != "Analyzed 1 log entries. Found 1 issues." {
		t.Errorf("templated summary = %q", analysis.Summary)
	}

	// Completion failure degrades to the attention variant.
	failing := &fakeCompleter{err: errors.New("rate limited")}
	c = New(failing, nil)
	analysis, err = c.Classify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if analysis.Summary != "Analyzed 1 log entries. Found 1 issues requiring attention." {
		t.Errorf("fallback summary = %q", analysis.Summary)
	}

	// Successful completion is used verbatim (trimmed).
	ok := &fakeCompleter{response: "  Database outage caused by pool exhaustion.  "}
	c = New(ok, nil)
	analysis, err = c.Classify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if analysis.Summary != "Database outage caused by pool exhaustion." {
		t.Errorf("completion summary = %q", analysis.Summary)
	}
	if ok.calls != 1 {
		t.Errorf("completer calls = %d, want 1", ok.calls)
	}
}
