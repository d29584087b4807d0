package enrich

import (
	"context"

	"github.com/opsstack/incident-rca/internal/models"
)

// ContextProvider is the external telemetry/ticket-history capability. Every
// call may fail or return empty; callers treat empty as "no signal", not as
// an error.
type ContextProvider interface {
	GetMetrics(ctx context.Context, query, window string) (*models.MetricReading, error)
	GetInfraState(ctx context.Context, resourceType string, filters map[string]string) (*models.InfraState, error)
	GetRecentIncidents(ctx context.Context, category string, hours int) ([]models.PastIncident, error)
	GetServiceHealth(ctx context.Context, service string) (*models.ServiceHealth, error)
}
