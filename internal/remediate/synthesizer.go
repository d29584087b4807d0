package remediate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsstack/incident-rca/internal/enrich"
	"github.com/opsstack/incident-rca/internal/knowledge"
	"github.com/opsstack/incident-rca/internal/llm"
	"github.com/opsstack/incident-rca/internal/models"
)

// Synthesizer produces one remediation plan per issue by combining retrieved
// knowledge, enrichment context, and the completion capability.
type Synthesizer struct {
	index     *knowledge.Index
	enricher  *enrich.Enricher
	completer llm.Completer
	topK      int
	maxPlans  int
	logger    *slog.Logger
}

// New constructs a Synthesizer. completer may be nil (templated fallback
// plans); enricher may be nil (no enrichment context).
func New(index *knowledge.Index, enricher *enrich.Enricher, completer llm.Completer, topK, maxPlans int, logger *slog.Logger) *Synthesizer {
	if topK <= 0 {
		topK = 5
	}
	if maxPlans <= 0 {
		maxPlans = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		index:     index,
		enricher:  enricher,
		completer: completer,
		topK:      topK,
		maxPlans:  maxPlans,
		logger:    logger,
	}
}

// Synthesize generates plans for at most the first maxPlans issues. Issues
// are processed independently: a failure on one is logged and skipped, never
// aborting the rest. Result order follows issue order.
func (s *Synthesizer) Synthesize(ctx context.Context, issues []models.Issue) []models.RemediationPlan {
	limit := len(issues)
	if limit > s.maxPlans {
		limit = s.maxPlans
	}

	plans := make([]models.RemediationPlan, 0, limit)
	for _, issue := range issues[:limit] {
		plan, err := s.plan(ctx, issue)
		if err != nil {
			s.logger.Warn("remediation synthesis failed for issue",
				slog.String("category", string(issue.Category)), slog.Any("error", err))
			continue
		}
		plans = append(plans, plan)
	}
	return plans
}

func (s *Synthesizer) plan(ctx context.Context, issue models.Issue) (models.RemediationPlan, error) {
	if s.completer == nil {
		msg := issue.Message
		if runes := []rune(msg); len(runes) > 100 {
			msg = string(runes[:100])
		}
		return models.RemediationPlan{
			Issue:            issue,
			Plan:             fmt.Sprintf("Manual investigation required for %s issue: %s", issue.Category, msg),
			KnowledgeSources: 0,
			Confidence:       models.ConfidenceLow,
		}, nil
	}

	query := fmt.Sprintf("%s %s %s", issue.Category, issue.Severity, issue.Message)
	docs := s.index.Search(ctx, query, s.topK)
	enrichment := s.enricher.Enrich(ctx, issue)

	text, err := s.completer.Complete(ctx, s.buildPrompt(issue, docs, enrichment))
	if err != nil {
		return models.RemediationPlan{}, fmt.Errorf("generate plan: %w", err)
	}

	return models.RemediationPlan{
		Issue:            issue,
		Plan:             strings.TrimSpace(text),
		KnowledgeSources: len(docs),
		Confidence:       deriveConfidence(len(docs) > 0, !enrichment.Empty()),
		Enrichment:       enrichment,
	}, nil
}

// deriveConfidence is the fixed confidence rule: both contexts present means
// high, retrieval alone medium, enrichment alone medium-high, neither low.
func deriveConfidence(hasRetrieval, hasEnrichment bool) models.Confidence {
	switch {
	case hasRetrieval && hasEnrichment:
		return models.ConfidenceHigh
	case hasRetrieval:
		return models.ConfidenceMedium
	case hasEnrichment:
		return models.ConfidenceMediumHigh
	default:
		return models.ConfidenceLow
	}
}

func (s *Synthesizer) buildPrompt(issue models.Issue, docs []models.KnowledgeDocument, enrichment *models.EnrichmentContext) string {
	knowledgeContext := "No specific knowledge available."
	if len(docs) > 0 {
		parts := make([]string, 0, len(docs))
		for _, doc := range docs {
			parts = append(parts, doc.Text())
		}
		knowledgeContext = strings.Join(parts, "\n\n")
	}

	enrichmentContext := "No real-time context available."
	if !enrichment.Empty() {
		if data, err := json.MarshalIndent(enrichment, "", "  "); err == nil {
			enrichmentContext = string(data)
		}
	}

	return fmt.Sprintf(`You are a DevOps expert. Given this incident and relevant knowledge, provide a clear remediation plan.

**Incident Details:**
- Severity: %s
- Category: %s
- Message: %s
- Timestamp: %s

**Relevant Knowledge:**
%s

**Real-Time Context:**
%s

Provide:
1. **Root Cause**: Brief explanation (1-2 sentences)
2. **Immediate Action**: What to do right now (3-5 steps)
3. **Long-term Fix**: Prevent recurrence (2-3 points)
4. **Priority**: Critical/High/Medium/Low

Format as clear, actionable steps.`,
		issue.Severity, issue.Category, issue.Message, issue.Timestamp,
		knowledgeContext, enrichmentContext)
}
