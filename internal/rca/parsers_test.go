package rca

import (
	"reflect"
	"strings"
	"testing"

	"github.com/opsstack/incident-rca/internal/models"
)

func TestParseListItems(t *testing.T) {
	text := `Here are the measures:
1. Implement monitoring for the database tier
2. Add alerting on connection pool saturation
- Review capacity planning quarterly
* Tune the slow query log thresholds
short
`
	items := ParseListItems(text)
	want := []string{
		"Implement monitoring for the database tier",
		"Add alerting on connection pool saturation",
		"Review capacity planning quarterly",
		"Tune the slow query log thresholds",
	}
	// The intro line survives too: any line longer than 10 chars counts.
	if len(items) != 5 {
		t.Fatalf("len(items) = %d, want 5: %v", len(items), items)
	}
	if !reflect.DeepEqual(items[1:], want) {
		t.Errorf("items[1:] = %v, want %v", items[1:], want)
	}
}

func TestParseListItemsFallback(t *testing.T) {
	items := ParseListItems("short")
	if len(items) != 1 || items[0] != "short" {
		t.Errorf("fallback items = %v", items)
	}
}

func TestParseListItemsCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 15; i++ {
		sb.WriteString("- a sufficiently long measure line\n")
	}
	if got := ParseListItems(sb.String()); len(got) != maxListItems {
		t.Errorf("len = %d, want %d", len(got), maxListItems)
	}
}

func TestParseRootCauses(t *testing.T) {
	text := `1. Connection pool misconfigured
Evidence: pool capped at 10 connections
Impact: all requests queued

2. Missing circuit breaker
Evidence: retries amplified load
Impact: cascade into payments`

	causes := ParseRootCauses(text)
	if len(causes) != 2 {
		t.Fatalf("len(causes) = %d, want 2: %+v", len(causes), causes)
	}
	first := causes[0]
	if first.Cause != "Connection pool misconfigured" {
		t.Errorf("Cause = %q", first.Cause)
	}
	if !strings.Contains(first.Evidence, "pool capped") {
		t.Errorf("Evidence = %q", first.Evidence)
	}
	if !strings.Contains(first.Impact, "requests queued") {
		t.Errorf("Impact = %q", first.Impact)
	}
}

func TestParseRootCausesFallback(t *testing.T) {
	causes := ParseRootCauses("The system failed due to unknown factors with no list structure")
	if len(causes) != 1 {
		t.Fatalf("len(causes) = %d, want 1", len(causes))
	}
	if causes[0].Evidence != "See analysis" || causes[0].Impact != "Multiple systems" {
		t.Errorf("fallback cause = %+v", causes[0])
	}
}

func TestParseRootCausesCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		sb.WriteString("- another distinct root cause\n")
	}
	if got := ParseRootCauses(sb.String()); len(got) != maxRootCauses {
		t.Errorf("len = %d, want %d", len(got), maxRootCauses)
	}
}

func TestParseImpactAssessment(t *testing.T) {
	text := `User Impact:
Checkout unavailable for 40% of sessions
Business Impact:
Estimated $12k revenue loss
Technical Impact:
Database replica lag exceeded 5 minutes
Duration:
Roughly 45 minutes
Severity:
P1`

	impact := ParseImpactAssessment(text)
	if !strings.Contains(impact.UserImpact, "Checkout unavailable") {
		t.Errorf("UserImpact = %q", impact.UserImpact)
	}
	if !strings.Contains(impact.BusinessImpact, "$12k") {
		t.Errorf("BusinessImpact = %q", impact.BusinessImpact)
	}
	if !strings.Contains(impact.TechnicalImpact, "replica lag") {
		t.Errorf("TechnicalImpact = %q", impact.TechnicalImpact)
	}
	if !strings.Contains(impact.Duration, "45 minutes") {
		t.Errorf("Duration = %q", impact.Duration)
	}
	if impact.Severity != "P1" {
		t.Errorf("Severity = %q", impact.Severity)
	}
}

func TestParseImpactAssessmentDefaults(t *testing.T) {
	impact := ParseImpactAssessment("nothing structured here")
	want := models.ImpactAssessment{
		UserImpact:      "Not assessed",
		BusinessImpact:  "Not assessed",
		TechnicalImpact: "Not assessed",
		Duration:        "Not assessed",
		Severity:        "Not assessed",
	}
	if impact != want {
		t.Errorf("impact = %+v", impact)
	}
}
