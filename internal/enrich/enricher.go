package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opsstack/incident-rca/internal/cache"
	"github.com/opsstack/incident-rca/internal/models"
)

const recentIncidentWindowHours = 24

// Enricher aggregates best-effort real-time context for one issue. Which
// providers get queried is keyed off the issue's category and message
// keywords; every lookup failure degrades to "no signal".
type Enricher struct {
	provider  ContextProvider
	cache     cache.Provider
	recentTTL time.Duration
	logger    *slog.Logger
}

// New constructs an Enricher. provider may be nil (enrichment disabled);
// cacheProvider may be nil (no caching).
func New(provider ContextProvider, cacheProvider cache.Provider, recentTTL time.Duration, logger *slog.Logger) *Enricher {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{provider: provider, cache: cacheProvider, recentTTL: recentTTL, logger: logger}
}

// Enrich fetches whatever real-time signal applies to the issue. A nil
// return means enrichment is disabled or produced nothing; it is never an
// error.
func (e *Enricher) Enrich(ctx context.Context, issue models.Issue) *models.EnrichmentContext {
	if e == nil || e.provider == nil {
		return nil
	}

	ec := &models.EnrichmentContext{}
	lower := strings.ToLower(issue.Message)

	if issue.Category == models.CategoryDatabase || strings.Contains(lower, "connection") {
		e.addMetric(ctx, ec, "database_connections")
		if state, err := e.provider.GetInfraState(ctx, "pod", map[string]string{"name": "database-pod"}); err == nil && state != nil {
			ec.Infra = append(ec.Infra, *state)
		}
	}
	if issue.Category == models.CategoryCPU || issue.Category == models.CategoryMemory {
		e.addMetric(ctx, ec, string(issue.Category)+"_usage")
	}
	if strings.Contains(lower, "error") {
		e.addMetric(ctx, ec, "error_rate")
		service := serviceName(issue)
		if health, err := e.provider.GetServiceHealth(ctx, service); err == nil && health != nil {
			ec.Health = health
		}
	}

	ec.RecentIncidents = e.recentIncidents(ctx, string(issue.Category))

	if ec.Empty() {
		return nil
	}
	return ec
}

func (e *Enricher) addMetric(ctx context.Context, ec *models.EnrichmentContext, query string) {
	reading, err := e.provider.GetMetrics(ctx, query, "5m")
	if err != nil {
		e.logger.Warn("metric lookup failed", slog.String("query", query), slog.Any("error", err))
		return
	}
	if reading != nil {
		ec.Metrics = append(ec.Metrics, *reading)
	}
}

// recentIncidents fetches ticket history for the category, caching results
// so that a burst of same-category issues hits the tracker once.
func (e *Enricher) recentIncidents(ctx context.Context, category string) []models.PastIncident {
	key := fmt.Sprintf("enrich:recent:%s", category)

	if e.recentTTL > 0 {
		if data, err := e.cache.Get(ctx, key); err == nil {
			var cached []models.PastIncident
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached
			}
		}
	}

	incidents, err := e.provider.GetRecentIncidents(ctx, category, recentIncidentWindowHours)
	if err != nil {
		e.logger.Warn("recent incident lookup failed", slog.String("category", category), slog.Any("error", err))
		return nil
	}

	if e.recentTTL > 0 && len(incidents) > 0 {
		if data, err := json.Marshal(incidents); err == nil {
			_ = e.cache.Set(ctx, key, data, e.recentTTL)
		}
	}
	return incidents
}

func serviceName(issue models.Issue) string {
	if len(issue.Fields.Services) > 0 {
		return issue.Fields.Services[0]
	}
	return string(issue.Category)
}
