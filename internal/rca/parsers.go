package rca

import (
	"strings"

	"github.com/opsstack/incident-rca/internal/models"
)

const (
	maxRootCauses       = 5
	maxImmediateActions = 5
	maxListItems        = 10
)

const bulletCutset = "0123456789.-*• "

// isBulleted reports whether a line opens a numbered or bulleted item.
func isBulleted(line string) bool {
	if line == "" {
		return false
	}
	c := line[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '*' || strings.HasPrefix(line, "•")
}

// ParseListItems extracts bulleted/numbered lines from free text. Lines
// shorter than 10 characters after stripping markers are treated as noise.
// Falls back to the whole text as a single item so a section is never empty.
func ParseListItems(text string) []string {
	var items []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), bulletCutset)
		if line != "" && len(line) > 10 {
			items = append(items, line)
		}
		if len(items) == maxListItems {
			break
		}
	}
	if len(items) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return items
}

// ParseRootCauses groups free text into cause/evidence/impact triples: a
// bulleted line starts a new cause, the following plain lines fill evidence
// then impact. Capped at 5 causes.
func ParseRootCauses(text string) []models.RootCause {
	var causes []models.RootCause
	var current *models.RootCause

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isBulleted(line) {
			if current != nil {
				causes = append(causes, *current)
			}
			current = &models.RootCause{Cause: strings.TrimLeft(line, bulletCutset)}
			continue
		}
		if current == nil {
			continue
		}
		if current.Evidence == "" {
			current.Evidence = line
		} else if current.Impact == "" {
			current.Impact = line
		}
	}
	if current != nil {
		causes = append(causes, *current)
	}

	if len(causes) == 0 {
		return []models.RootCause{{
			Cause:    truncate(strings.TrimSpace(text), 200),
			Evidence: "See analysis",
			Impact:   "Multiple systems",
		}}
	}
	if len(causes) > maxRootCauses {
		causes = causes[:maxRootCauses]
	}
	return causes
}

// ParseImpactAssessment routes lines into impact slots by the most recently
// seen slot keyword; lines with no keyword extend the active slot. Slots
// that never receive text read "Not assessed".
func ParseImpactAssessment(text string) models.ImpactAssessment {
	slots := map[string]string{
		"user_impact":      "",
		"business_impact":  "",
		"technical_impact": "",
		"duration":         "",
		"severity":         "",
	}

	active := ""
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		switch {
		case strings.Contains(lower, "user") && strings.Contains(lower, "impact"):
			active = "user_impact"
		case strings.Contains(lower, "business") && strings.Contains(lower, "impact"):
			active = "business_impact"
		case strings.Contains(lower, "technical") && strings.Contains(lower, "impact"):
			active = "technical_impact"
		case strings.Contains(lower, "duration"):
			active = "duration"
		case strings.Contains(lower, "severity"):
			active = "severity"
		case active != "" && line != "":
			slots[active] += " " + strings.TrimLeft(line, ":-")
		}
	}

	value := func(key string) string {
		v := strings.TrimSpace(slots[key])
		if v == "" {
			return "Not assessed"
		}
		return v
	}
	return models.ImpactAssessment{
		UserImpact:      value("user_impact"),
		BusinessImpact:  value("business_impact"),
		TechnicalImpact: value("technical_impact"),
		Duration:        value("duration"),
		Severity:        value("severity"),
	}
}
