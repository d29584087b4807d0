package models

// ReportMetadata identifies one RCA report and its headline counts.
type ReportMetadata struct {
	IncidentID    string `json:"incident_id"`
	AnalysisDate  string `json:"analysis_date"`
	Analyzer      string `json:"analyzer"`
	TotalIssues   int    `json:"total_issues"`
	CriticalCount int    `json:"critical_count"`
	ErrorCount    int    `json:"error_count"`
}

// FiveWhys drills into the primary (first) issue only.
type FiveWhys struct {
	PrimaryIssue string `json:"primary_issue"`
	Analysis     string `json:"analysis"`
}

// RootCause is one cause/evidence/impact finding. Capped at 5 per report.
type RootCause struct {
	Cause    string `json:"cause"`
	Evidence string `json:"evidence"`
	Impact   string `json:"impact"`
}

// ImpactAssessment routes free-text impact analysis into fixed slots.
type ImpactAssessment struct {
	UserImpact      string `json:"user_impact"`
	BusinessImpact  string `json:"business_impact"`
	TechnicalImpact string `json:"technical_impact"`
	Duration        string `json:"duration"`
	Severity        string `json:"severity"`
}

// ImmediateAction is derived 1:1 from the first remediation plans.
type ImmediateAction struct {
	Action   string   `json:"action"`
	Priority Severity `json:"priority"`
	Details  string   `json:"details"`
}

// TimelineItem is one issue placed on the incident timeline.
type TimelineItem struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Severity  Severity `json:"severity"`
	Category  Category `json:"category"`
}

// RCAReport is the aggregate root-cause analysis built once per incident and
// never mutated after construction.
type RCAReport struct {
	Metadata            ReportMetadata    `json:"metadata"`
	ExecutiveSummary    string            `json:"executive_summary"`
	ProblemStatement    string            `json:"problem_statement"`
	Timeline            []TimelineItem    `json:"timeline"`
	FiveWhys            *FiveWhys         `json:"five_whys,omitempty"`
	RootCauses          []RootCause       `json:"root_causes"`
	ContributingFactors []string          `json:"contributing_factors"`
	ImpactAssessment    ImpactAssessment  `json:"impact_assessment"`
	ImmediateActions    []ImmediateAction `json:"immediate_actions"`
	PreventiveMeasures  []string          `json:"preventive_measures"`
	LessonsLearned      []string          `json:"lessons_learned"`
}

// NotificationResult reports what the notification stage did. Mode is
// "live" when a delivery capability accepted the message, "simulation" when
// the formatted message was produced without a configured channel.
type NotificationResult struct {
	NotificationsSent int    `json:"notifications_sent"`
	Mode              string `json:"mode"`
	DeliveryID        string `json:"delivery_id,omitempty"`
	Channel           string `json:"channel,omitempty"`
	MessagePreview    string `json:"message_preview"`
}

// Ticket is one created (or simulated) tracker ticket.
type Ticket struct {
	Key      string `json:"ticket_key"`
	URL      string `json:"ticket_url"`
	Summary  string `json:"summary"`
	Priority string `json:"priority"`
	Mode     string `json:"mode,omitempty"`
}

// TicketingResult reports the ticketing stage outcome.
type TicketingResult struct {
	TicketsCreated int      `json:"tickets_created"`
	Tickets        []Ticket `json:"tickets"`
	Mode           string   `json:"mode"`
}

// Checklist is the actionable step list derived from one remediation plan.
type Checklist struct {
	IssueType  Category   `json:"issue_type"`
	Severity   Severity   `json:"severity"`
	Trigger    string     `json:"trigger"`
	Steps      []string   `json:"steps"`
	Confidence Confidence `json:"confidence"`
}

// PlaybookSection groups checklists for one category.
type PlaybookSection struct {
	Category   Category    `json:"category"`
	IssueCount int         `json:"issue_count"`
	Checklists []Checklist `json:"checklists"`
}

// QuickReference summarises a playbook at a glance.
type QuickReference struct {
	SeverityBreakdown   map[Severity]int `json:"severity_breakdown"`
	TopCategories       []Category       `json:"top_affected_categories"`
	TotalRemediations   int              `json:"total_remediations"`
	RecommendedPriority string           `json:"recommended_priority"`
}

// Playbook is the reusable incident response artifact.
type Playbook struct {
	Title              string            `json:"title"`
	CreatedAt          string            `json:"created_at"`
	Summary            string            `json:"summary"`
	TotalIssues        int               `json:"total_issues"`
	CategoriesAffected []Category        `json:"categories_affected"`
	Sections           []PlaybookSection `json:"playbook_sections"`
	QuickReference     QuickReference    `json:"quick_reference"`
}
