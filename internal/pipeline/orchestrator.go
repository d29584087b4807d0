package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opsstack/incident-rca/internal/metrics"
	"github.com/opsstack/incident-rca/internal/models"
)

// Stage keys reported to observers, in execution order.
const (
	StageLogReader    = "log_reader"
	StageRemediation  = "remediation"
	StageRCA          = "rca"
	StageNotification = "notification"
	StageTicketing    = "jira"
	StagePlaybook     = "cookbook"
)

// startDetails are the progress lines reported to observers when a stage
// begins.
var startDetails = map[string]string{
	StageLogReader:    "Parsing and classifying log entries...",
	StageRemediation:  "Finding solutions using RAG knowledge base...",
	StageRCA:          "Performing root cause analysis...",
	StageNotification: "Sending notifications to Slack...",
	StageTicketing:    "Creating JIRA tickets for critical issues...",
	StagePlaybook:     "Generating incident playbook...",
}

// LogClassifier parses and classifies raw log text.
type LogClassifier interface {
	Classify(ctx context.Context, raw string) (models.LogAnalysis, error)
}

// Remediator produces fix guidance for the classified issues.
type Remediator interface {
	Synthesize(ctx context.Context, issues []models.Issue) []models.RemediationPlan
}

// RootCauseAnalyzer builds the RCA report.
type RootCauseAnalyzer interface {
	Analyze(ctx context.Context, issues []models.Issue, plans []models.RemediationPlan) (*models.RCAReport, error)
}

// IncidentNotifier delivers (or simulates) the incident alert.
type IncidentNotifier interface {
	Notify(ctx context.Context, plans []models.RemediationPlan, summary string) *models.NotificationResult
}

// TicketFiler creates tracker tickets for severe issues.
type TicketFiler interface {
	File(ctx context.Context, plans []models.RemediationPlan) *models.TicketingResult
}

// PlaybookMaker synthesises the reusable playbook artifact.
type PlaybookMaker interface {
	Build(ctx context.Context, plans []models.RemediationPlan, summary string) *models.Playbook
}

// Observer receives stage lifecycle events. Both methods are called from the
// orchestrator goroutine; implementations must not block. detail is the
// human-readable progress line for the stage that just started.
type Observer interface {
	OnStageStart(stage, detail string)
	OnStageEnd(stage string, record models.StageRecord)
}

// StageUpdate is a stage's partial contribution to the pipeline state.
// Nil pointer fields and nil slices mean "leave unchanged"; a non-nil empty
// slice overwrites.
type StageUpdate struct {
	LogAnalysis  *models.LogAnalysis
	Issues       []models.Issue
	Remediations []models.RemediationPlan
	Notification *models.NotificationResult
	Tickets      *models.TicketingResult
	Playbook     *models.Playbook
	RCAReport    *models.RCAReport
	Summary      string
}

// Orchestrator drives the fixed incident analysis chain:
// classify -> remediate -> rca -> notify -> ticket -> playbook.
// It owns the single PipelineState; stages only ever see inputs and return
// partial updates. Collaborator failures past classification are recorded in
// the stage log and absorbed.
type Orchestrator struct {
	classifier LogClassifier
	remediator Remediator
	analyzer   RootCauseAnalyzer
	notifier   IncidentNotifier
	ticketer   TicketFiler
	playbook   PlaybookMaker

	stageTimeout time.Duration
	observer     Observer
	logger       *slog.Logger
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithObserver attaches a stage lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithStageTimeout bounds each stage's wall-clock time.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stageTimeout = d
		}
	}
}

// New constructs the orchestrator. Classifier is required; every other
// collaborator may be nil, in which case its stage records a skip.
func New(
	classifier LogClassifier,
	remediator Remediator,
	analyzer RootCauseAnalyzer,
	notifier IncidentNotifier,
	ticketer TicketFiler,
	playbook PlaybookMaker,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		classifier:   classifier,
		remediator:   remediator,
		analyzer:     analyzer,
		notifier:     notifier,
		ticketer:     ticketer,
		playbook:     playbook,
		stageTimeout: 120 * time.Second,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessIncident runs the full chain over raw log text. Only empty input or
// a classification failure yields Success=false; downstream stage failures
// are recorded in the state's stage log and the run completes with whatever
// artifacts were produced.
func (o *Orchestrator) ProcessIncident(ctx context.Context, logs string) models.PipelineResult {
	o.logger.Info("starting incident analysis")

	state := models.PipelineState{
		Logs:         logs,
		Issues:       []models.Issue{},
		Remediations: []models.RemediationPlan{},
		StageLog:     []models.StageRecord{},
	}

	if strings.TrimSpace(logs) == "" {
		state.Err = "no log content provided"
		metrics.ObserveIncident(metrics.OutcomeFailure)
		return models.PipelineResult{Success: false, State: state, Timeline: state.StageLog}
	}

	o.runStage(ctx, &state, StageLogReader, "Log Reader", func(ctx context.Context) (StageUpdate, string, error) {
		analysis, err := o.classifier.Classify(ctx, state.Logs)
		if err != nil {
			return StageUpdate{}, "", err
		}
		details := fmt.Sprintf("Analyzed %d log entries, found %d issues", analysis.TotalEntries, len(analysis.Issues))
		return StageUpdate{
			LogAnalysis: &analysis,
			Issues:      analysis.Issues,
			Summary:     analysis.Summary,
		}, details, nil
	})
	if state.Err != "" {
		metrics.ObserveIncident(metrics.OutcomeFailure)
		return models.PipelineResult{Success: false, State: state, Timeline: state.StageLog}
	}

	o.runStage(ctx, &state, StageRemediation, "Remediation", func(ctx context.Context) (StageUpdate, string, error) {
		if o.remediator == nil {
			return StageUpdate{Remediations: []models.RemediationPlan{}}, "Generated 0 remediation plans", nil
		}
		plans := o.remediator.Synthesize(ctx, state.Issues)
		if plans == nil {
			plans = []models.RemediationPlan{}
		}
		return StageUpdate{Remediations: plans}, fmt.Sprintf("Generated %d remediation plans", len(plans)), nil
	})

	o.runStage(ctx, &state, StageRCA, "RCA", func(ctx context.Context) (StageUpdate, string, error) {
		if o.analyzer == nil {
			return StageUpdate{}, "Root Cause Analysis skipped", nil
		}
		report, err := o.analyzer.Analyze(ctx, state.Issues, state.Remediations)
		if err != nil {
			return StageUpdate{}, "", err
		}
		return StageUpdate{RCAReport: report}, "Root Cause Analysis completed", nil
	})

	o.runStage(ctx, &state, StageNotification, "Notification", func(ctx context.Context) (StageUpdate, string, error) {
		if o.notifier == nil {
			return StageUpdate{}, "Sent 0 notifications", nil
		}
		result := o.notifier.Notify(ctx, state.Remediations, state.Summary)
		return StageUpdate{Notification: result}, fmt.Sprintf("Sent %d notifications", result.NotificationsSent), nil
	})

	o.runStage(ctx, &state, StageTicketing, "JIRA", func(ctx context.Context) (StageUpdate, string, error) {
		if o.ticketer == nil {
			return StageUpdate{}, "Created 0 tickets", nil
		}
		result := o.ticketer.File(ctx, state.Remediations)
		return StageUpdate{Tickets: result}, fmt.Sprintf("Created %d tickets", result.TicketsCreated), nil
	})

	o.runStage(ctx, &state, StagePlaybook, "Cookbook", func(ctx context.Context) (StageUpdate, string, error) {
		if o.playbook == nil {
			return StageUpdate{}, "Incident playbook skipped", nil
		}
		playbook := o.playbook.Build(ctx, state.Remediations, state.Summary)
		return StageUpdate{Playbook: playbook}, "Incident playbook created", nil
	})

	o.logger.Info("incident analysis completed",
		slog.Int("issues", len(state.Issues)),
		slog.Int("remediations", len(state.Remediations)))
	metrics.ObserveIncident(metrics.OutcomeSuccess)

	return models.PipelineResult{Success: true, State: state, Timeline: state.StageLog}
}

type stageFunc func(ctx context.Context) (StageUpdate, string, error)

type stageOutcome struct {
	update  StageUpdate
	details string
	err     error
}

// runStage executes one stage under the configured timeout, merges its
// update into the state and appends its record to the stage log. A stage
// error on the first stage (log_reader) additionally sets state.Err.
func (o *Orchestrator) runStage(ctx context.Context, state *models.PipelineState, stage, agent string, fn stageFunc) {
	if o.observer != nil {
		o.observer.OnStageStart(stage, startDetails[stage])
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan stageOutcome, 1)
	go func() {
		update, details, err := fn(stageCtx)
		done <- stageOutcome{update: update, details: details, err: err}
	}()

	var outcome stageOutcome
	select {
	case outcome = <-done:
	case <-stageCtx.Done():
		outcome = stageOutcome{err: fmt.Errorf("stage timed out after %s", o.stageTimeout)}
	}
	elapsed := time.Since(start)

	record := models.StageRecord{Agent: agent, ExecutionTime: elapsed.Seconds()}
	if outcome.err != nil {
		o.logger.Error("stage failed", slog.String("stage", stage), slog.Any("error", outcome.err))
		record.Status = models.StageFailed
		record.Details = outcome.err.Error()
		if stage == StageLogReader {
			state.Err = outcome.err.Error()
		}
	} else {
		o.merge(state, outcome.update)
		record.Status = models.StageCompleted
		record.Details = outcome.details
	}

	state.StageLog = append(state.StageLog, record)

	metrics.ObserveStage(stage, elapsed, outcome.err != nil)
	if o.observer != nil {
		o.observer.OnStageEnd(stage, record)
	}
}

// merge applies a partial update. Every field overwrites; StageLog is the
// only accumulating field and is owned by runStage.
func (o *Orchestrator) merge(state *models.PipelineState, update StageUpdate) {
	if update.LogAnalysis != nil {
		state.LogAnalysis = update.LogAnalysis
	}
	if update.Issues != nil {
		state.Issues = update.Issues
	}
	if update.Remediations != nil {
		state.Remediations = update.Remediations
	}
	if update.Notification != nil {
		state.Notification = update.Notification
	}
	if update.Tickets != nil {
		state.Tickets = update.Tickets
	}
	if update.Playbook != nil {
		state.Playbook = update.Playbook
	}
	if update.RCAReport != nil {
		state.RCAReport = update.RCAReport
	}
	if update.Summary != "" {
		state.Summary = update.Summary
	}
}
