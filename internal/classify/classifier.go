package classify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/opsstack/incident-rca/internal/llm"
	"github.com/opsstack/incident-rca/internal/models"
)

// severityPattern ties a severity to its keyword group. Order matters: the
// first matching group wins, so CRITICAL shadows ERROR and so on down.
type severityPattern struct {
	severity models.Severity
	re       *regexp.Regexp
}

var severityPatterns = []severityPattern{
	{models.SeverityCritical, regexp.MustCompile(`(?i)\b(critical|fatal|panic|emergency)\b`)},
	{models.SeverityError, regexp.MustCompile(`(?i)\b(error|err|exception|failed|failure)\b`)},
	{models.SeverityWarning, regexp.MustCompile(`(?i)\b(warning|warn|deprecated)\b`)},
	{models.SeverityInfo, regexp.MustCompile(`(?i)\b(info|information|notice)\b`)},
	{models.SeverityDebug, regexp.MustCompile(`(?i)\b(debug|trace|verbose)\b`)},
}

// categoryKeywords maps categories to their trigger substrings, checked in
// declaration order against the lowercased message.
type categoryKeywords struct {
	category models.Category
	keywords []string
}

var categoryTable = []categoryKeywords{
	{models.CategoryDatabase, []string{"connection", "query", "timeout", "deadlock", "schema"}},
	{models.CategoryNetwork, []string{"timeout", "refused", "unreachable", "latency", "dns"}},
	{models.CategoryMemory, []string{"oom", "memory", "heap", "stack", "allocation"}},
	{models.CategoryDisk, []string{"disk", "storage", "space", "inode", "filesystem"}},
	{models.CategoryCPU, []string{"cpu", "load", "throttling", "performance"}},
	{models.CategorySecurity, []string{"auth", "permission", "unauthorized", "forbidden", "ssl"}},
	{models.CategoryApplication, []string{"null", "exception", "crash", "segfault", "assertion"}},
}

// Ordered timestamp patterns: ISO, Apache access-log, DD-MM-YYYY. First
// match anywhere in the line wins.
var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}-\d{2}-\d{4} \d{2}:\d{2}:\d{2}`),
}

var (
	ipPattern        = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	httpStatusRe     = regexp.MustCompile(`\b[45]\d{2}\b`)
	errorCodePattern = regexp.MustCompile(`(?i)error[_ ]code[:\s]+(\w+)`)
	servicePattern   = regexp.MustCompile(`(?i)service[:\s]+(\w+)`)
)

const fallbackTimeLayout = "2006-01-02 15:04:05"

// Classifier turns raw log text into classified entries and an issue list.
// The completion capability is optional and only used for the incident
// summary; classification itself is fully deterministic.
type Classifier struct {
	completer llm.Completer
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs a Classifier. completer may be nil.
func New(completer llm.Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{completer: completer, logger: logger, now: time.Now}
}

// Classify parses raw log text into structured entries, promotes ERROR and
// CRITICAL entries to issues, and produces a summary. Empty input is a
// reported error; malformed lines never abort parsing.
func (c *Classifier) Classify(ctx context.Context, raw string) (models.LogAnalysis, error) {
	if strings.TrimSpace(raw) == "" {
		return models.LogAnalysis{}, fmt.Errorf("no logs provided")
	}

	var entries []models.LogEntry
	var issues []models.Issue
	criticalCount, errorCount := 0, 0

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry := c.classifyLine(line)
		entries = append(entries, entry)

		switch entry.Severity {
		case models.SeverityCritical:
			criticalCount++
		case models.SeverityError:
			errorCount++
		default:
			continue
		}
		issues = append(issues, models.Issue{
			Severity:  entry.Severity,
			Category:  entry.Category,
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
			Fields:    entry.Fields,
		})
	}

	analysis := models.LogAnalysis{
		TotalEntries:  len(entries),
		Entries:       entries,
		Issues:        issues,
		CriticalCount: criticalCount,
		ErrorCount:    errorCount,
	}
	analysis.Summary = c.summarize(ctx, analysis)

	c.logger.Info("log classification complete",
		slog.Int("entries", len(entries)),
		slog.Int("issues", len(issues)))

	return analysis, nil
}

func (c *Classifier) classifyLine(line string) models.LogEntry {
	entry := models.LogEntry{
		Raw:       line,
		Message:   line,
		Timestamp: c.extractTimestamp(line),
		Severity:  models.SeverityInfo,
		Category:  models.CategoryGeneral,
		Fields:    extractFields(line),
	}

	for _, sp := range severityPatterns {
		if sp.re.MatchString(line) {
			entry.Severity = sp.severity
			break
		}
	}

	lower := strings.ToLower(line)
	for _, ck := range categoryTable {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				entry.Category = ck.category
				return entry
			}
		}
	}
	return entry
}

func (c *Classifier) extractTimestamp(line string) string {
	for _, re := range timestampPatterns {
		if m := re.FindString(line); m != "" {
			return m
		}
	}
	return c.now().Format(fallbackTimeLayout)
}

func extractFields(message string) models.ExtractedFields {
	fields := models.ExtractedFields{
		IPAddresses: ipPattern.FindAllString(message, -1),
		HTTPStatus:  httpStatusRe.FindAllString(message, -1),
	}
	for _, m := range errorCodePattern.FindAllStringSubmatch(message, -1) {
		fields.ErrorCodes = append(fields.ErrorCodes, m[1])
	}
	for _, m := range servicePattern.FindAllStringSubmatch(message, -1) {
		fields.Services = append(fields.Services, m[1])
	}
	return fields
}

// summarize produces the running incident summary, preferring the completion
// capability and degrading to a templated line.
func (c *Classifier) summarize(ctx context.Context, analysis models.LogAnalysis) string {
	templated := fmt.Sprintf("Analyzed %d log entries. Found %d issues.",
		analysis.TotalEntries, len(analysis.Issues))
	if c.completer == nil || len(analysis.Issues) == 0 {
		return templated
	}

	var sb strings.Builder
	for i, issue := range analysis.Issues {
		if i >= 10 {
			break
		}
		msg := issue.Message
		if runes := []rune(msg); len(runes) > 100 {
			msg = string(runes[:100])
		}
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", issue.Severity, issue.Category, msg)
	}

	prompt := fmt.Sprintf(`Analyze these log issues and provide a brief summary:

%s
Provide a concise 2-3 sentence summary highlighting:
1. Most critical issues
2. Common patterns
3. Overall system health`, sb.String())

	summary, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("summary generation failed", slog.Any("error", err))
		return fmt.Sprintf("Analyzed %d log entries. Found %d issues requiring attention.",
			analysis.TotalEntries, len(analysis.Issues))
	}
	return strings.TrimSpace(summary)
}
