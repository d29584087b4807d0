package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/opsstack/incident-rca/internal/models"
)

// MockProvider serves canned telemetry for local development and demos. The
// payloads mimic a cluster mid-incident: saturated CPU, a crash-looping pod,
// an elevated error rate, and two resolved look-alike tickets.
type MockProvider struct{}

// NewMockProvider returns a provider that always answers.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (MockProvider) GetMetrics(_ context.Context, query, _ string) (*models.MetricReading, error) {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "cpu"):
		return &models.MetricReading{
			Metric: "cpu_usage", Value: 92.5, Unit: "percent", Status: "critical",
			Threshold: 80.0, Trend: "increasing",
			Message: "CPU usage is at 92.5%, exceeding critical threshold of 80%",
		}, nil
	case strings.Contains(q, "memory"):
		return &models.MetricReading{
			Metric: "memory_usage", Value: 88.3, Unit: "percent", Status: "warning",
			Threshold: 85.0, Trend: "stable",
			Message: "Memory usage is at 88.3%, approaching threshold",
		}, nil
	case strings.Contains(q, "error_rate"):
		return &models.MetricReading{
			Metric: "error_rate", Value: 15.2, Unit: "percent", Status: "critical",
			Threshold: 1.0, Trend: "increasing",
			Message: "Error rate is at 15.2%, significantly above normal (0.5%)",
		}, nil
	case strings.Contains(q, "database"):
		return &models.MetricReading{
			Metric: "database_connections", Value: 95, Unit: "connections", Status: "critical",
			Threshold: 100, Trend: "increasing",
			Message: "Database connection pool at 95/100, near capacity",
		}, nil
	}
	return nil, nil
}

func (MockProvider) GetInfraState(_ context.Context, resourceType string, filters map[string]string) (*models.InfraState, error) {
	switch resourceType {
	case "pod":
		name := filters["name"]
		if name == "" {
			name = "database-pod-123"
		}
		return &models.InfraState{
			ResourceType: "pod", Name: name, Namespace: "production",
			Status:  "CrashLoopBackOff",
			Message: "Pod is in CrashLoopBackOff state with 5 restarts",
		}, nil
	case "deployment":
		return &models.InfraState{
			ResourceType: "deployment", Name: "api-service", Namespace: "production",
			Status:  "degraded",
			Message: "Deployment has 2/3 replicas ready, 1 pod is failing",
		}, nil
	}
	return nil, nil
}

func (MockProvider) GetRecentIncidents(_ context.Context, _ string, _ int) ([]models.PastIncident, error) {
	now := time.Now()
	return []models.PastIncident{
		{
			Key: "OPS-1234", Summary: "Database connection timeout - Production",
			Created: now.Add(-48 * time.Hour).Format(time.RFC3339), Status: "Resolved",
			Resolution: "Restarted database pod and increased memory limit", Similarity: "high",
		},
		{
			Key: "OPS-1156", Summary: "High CPU usage on database service",
			Created: now.Add(-120 * time.Hour).Format(time.RFC3339), Status: "Resolved",
			Resolution: "Scaled up database pod resources", Similarity: "medium",
		},
	}, nil
}

func (MockProvider) GetServiceHealth(_ context.Context, service string) (*models.ServiceHealth, error) {
	return &models.ServiceHealth{
		Service: service, Status: "degraded", HealthScore: 65, Uptime: "99.2%",
	}, nil
}
