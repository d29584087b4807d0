package models

// Severity classifies a log line by impact. Ordering is encoded in the
// classifier's pattern priority list, not here.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
	SeverityDebug    Severity = "DEBUG"
)

// Category groups a log line by the subsystem its keywords point at.
type Category string

const (
	CategoryDatabase    Category = "database"
	CategoryNetwork     Category = "network"
	CategoryMemory      Category = "memory"
	CategoryDisk        Category = "disk"
	CategoryCPU         Category = "cpu"
	CategorySecurity    Category = "security"
	CategoryApplication Category = "application"
	CategoryGeneral     Category = "general"
)

// ExtractedFields holds structured values scraped out of a log message.
// Every slice is optional; empty means the pattern never matched.
type ExtractedFields struct {
	IPAddresses []string `json:"ip_addresses,omitempty"`
	HTTPStatus  []string `json:"http_status,omitempty"`
	ErrorCodes  []string `json:"error_codes,omitempty"`
	Services    []string `json:"services,omitempty"`
}

// LogEntry is one classified input line. Immutable after classification.
// Timestamp is kept as a string so timeline ordering stays lexicographic
// across the formats the classifier recognises.
type LogEntry struct {
	Raw       string          `json:"raw"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	Severity  Severity        `json:"severity"`
	Category  Category        `json:"category"`
	Fields    ExtractedFields `json:"extracted_fields"`
}

// Issue is a log entry promoted to the unit of downstream work because its
// severity is ERROR or CRITICAL.
type Issue struct {
	Severity  Severity        `json:"severity"`
	Category  Category        `json:"category"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	Fields    ExtractedFields `json:"extracted_fields"`
}

// LogAnalysis is the classifier stage's full output.
type LogAnalysis struct {
	TotalEntries  int        `json:"total_entries"`
	Entries       []LogEntry `json:"classified_logs"`
	Issues        []Issue    `json:"issues_found"`
	CriticalCount int        `json:"critical_count"`
	ErrorCount    int        `json:"error_count"`
	Summary       string     `json:"summary"`
}

// Confidence labels how well supported a remediation plan is. The scale is
// low < medium < medium-high < high; medium-high is produced only by the
// enrichment-without-retrieval path.
type Confidence string

const (
	ConfidenceLow        Confidence = "low"
	ConfidenceMedium     Confidence = "medium"
	ConfidenceMediumHigh Confidence = "medium-high"
	ConfidenceHigh       Confidence = "high"
)

// RemediationPlan is generated fix guidance for one issue. The issue is held
// by value; plans never mutate their source issue.
type RemediationPlan struct {
	Issue            Issue              `json:"issue"`
	Plan             string             `json:"remediation_plan"`
	KnowledgeSources int                `json:"knowledge_sources"`
	Confidence       Confidence         `json:"confidence"`
	Enrichment       *EnrichmentContext `json:"enrichment,omitempty"`
}

// KnowledgeDocument is one corpus entry used for retrieval-augmented
// remediation. Immutable once embedded.
type KnowledgeDocument struct {
	Issue     string   `json:"issue"`
	Category  Category `json:"category"`
	Solution  string   `json:"solution"`
	Rationale string   `json:"rationale"`
}

// Text renders the document into the single string that gets embedded and
// handed to the completion prompt as context.
func (d KnowledgeDocument) Text() string {
	return "Issue: " + d.Issue + "\nCategory: " + string(d.Category) +
		"\nSolution:\n" + d.Solution + "\n\nRationale: " + d.Rationale + "\n"
}

// MetricReading is one telemetry sample returned by a context provider.
type MetricReading struct {
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
	Status    string  `json:"status,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Trend     string  `json:"trend,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// InfraState is a snapshot of one infrastructure resource.
type InfraState struct {
	ResourceType string `json:"resource_type"`
	Name         string `json:"name,omitempty"`
	Namespace    string `json:"namespace,omitempty"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
}

// PastIncident is a historical ticket surfaced as enrichment signal.
type PastIncident struct {
	Key        string `json:"key"`
	Summary    string `json:"summary"`
	Created    string `json:"created"`
	Status     string `json:"status"`
	Resolution string `json:"resolution,omitempty"`
	Similarity string `json:"similarity,omitempty"`
}

// ServiceHealth is a point-in-time health report for one service.
type ServiceHealth struct {
	Service     string  `json:"service"`
	Status      string  `json:"status"`
	HealthScore float64 `json:"health_score,omitempty"`
	Uptime      string  `json:"uptime,omitempty"`
}

// EnrichmentContext aggregates best-effort real-time signal for one issue.
// Empty slices/nil fields mean "no signal", never an error.
type EnrichmentContext struct {
	Metrics         []MetricReading `json:"metrics,omitempty"`
	Infra           []InfraState    `json:"infrastructure,omitempty"`
	RecentIncidents []PastIncident  `json:"recent_incidents,omitempty"`
	Health          *ServiceHealth  `json:"service_health,omitempty"`
}

// Empty reports whether enrichment produced no signal at all.
func (e *EnrichmentContext) Empty() bool {
	if e == nil {
		return true
	}
	return len(e.Metrics) == 0 && len(e.Infra) == 0 && len(e.RecentIncidents) == 0 && e.Health == nil
}
