package models

// StageStatus is a stage's terminal state in the execution log.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// StageRecord is one append-only execution log entry. ExecutionTime is
// wall-clock seconds spent inside the stage.
type StageRecord struct {
	Agent         string      `json:"agent"`
	Status        StageStatus `json:"status"`
	Details       string      `json:"details"`
	ExecutionTime float64     `json:"execution_time"`
}

// PipelineState is the single mutable object threaded through the
// orchestrator. Stages never touch it directly; they return partial updates
// the orchestrator merges field by field. StageLog is the one field with
// accumulating semantics and must only ever be appended to.
type PipelineState struct {
	Logs         string               `json:"logs"`
	LogAnalysis  *LogAnalysis         `json:"log_analysis,omitempty"`
	Issues       []Issue              `json:"issues_found"`
	Remediations []RemediationPlan    `json:"remediations"`
	Notification *NotificationResult  `json:"notifications,omitempty"`
	Tickets      *TicketingResult     `json:"jira_tickets,omitempty"`
	Playbook     *Playbook            `json:"cookbook,omitempty"`
	RCAReport    *RCAReport           `json:"rca_report,omitempty"`
	Summary      string               `json:"summary"`
	Err          string               `json:"error,omitempty"`
	StageLog     []StageRecord        `json:"agent_logs"`
}

// PipelineResult is the orchestrator's final answer for one incident.
type PipelineResult struct {
	Success  bool          `json:"success"`
	State    PipelineState `json:"state"`
	Timeline []StageRecord `json:"agent_timeline"`
}
