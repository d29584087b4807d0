package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed incident runs.
	OutcomeSuccess = "success"
	// OutcomeFailure labels runs rejected for empty input or failed classification.
	OutcomeFailure = "failure"
)

var (
	incidentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_rca",
			Name:      "incidents_total",
			Help:      "Total number of incidents processed, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	stageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "incident_rca",
			Name:      "stage_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	stageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incident_rca",
			Name:      "stage_failures_total",
			Help:      "Total number of stage executions that ended in failure.",
		},
		[]string{"stage"},
	)
)

// Register attaches incident-rca collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		incidentsTotal,
		stageSeconds,
		stageFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIncident counts one finished incident run.
func ObserveIncident(outcome string) {
	if outcome != OutcomeFailure {
		outcome = OutcomeSuccess
	}
	incidentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records one stage execution.
func ObserveStage(stage string, duration time.Duration, failed bool) {
	if duration < 0 {
		duration = 0
	}
	stageSeconds.WithLabelValues(stage).Observe(duration.Seconds())
	if failed {
		stageFailuresTotal.WithLabelValues(stage).Inc()
	}
}
