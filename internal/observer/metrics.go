package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for ingestion event metrics
	eventLabels = []string{"event_type", "workspace_id"}
	// Labels for DB operation metrics
	dbOperationLabels = []string{"operation", "entity", "workspace_id", "status"}

	// EventsReceivedTotal counts gateway events accepted by the HTTP surface.
	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_engine_events_received_total",
			Help: "Total number of gateway events received, labeled by event type.",
		},
		eventLabels,
	)
	// EventsProcessedTotal counts events that completed successfully.
	EventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_engine_events_processed_total",
			Help: "Total number of gateway events successfully processed.",
		},
		eventLabels,
	)
	// EventsFailedTotal counts events that surfaced a failure to the caller.
	EventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_engine_events_failed_total",
			Help: "Total number of gateway events that failed processing.",
		},
		eventLabels,
	)
	// DuplicateEventsTotal counts idempotent short-circuits on the external id.
	DuplicateEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_engine_duplicate_events_total",
			Help: "Total number of events recognized as replays via external id.",
		},
		eventLabels,
	)
	// SchemaDriftFallbacksTotal counts reduced-payload message inserts.
	SchemaDriftFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_engine_schema_drift_fallbacks_total",
			Help: "Total number of message inserts retried with mandatory columns only.",
		},
		[]string{"workspace_id"},
	)

	// EventProcessingDurationSeconds is the end-to-end ingest latency.
	EventProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_inbound_engine_event_processing_duration_seconds",
			Help:    "Histogram of event processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		eventLabels,
	)

	// DatabaseOperationDurationSeconds tracks repository latency per operation.
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_inbound_engine_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// Metrics related to the pipeline-error sink worker pool
var (
	sinkTenantLabels = []string{"workspace_id"}

	errorSinkTasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_engine_error_sink_tasks_submitted_total",
			Help: "Total number of tasks submitted to the error-sink worker pool.",
		},
		sinkTenantLabels,
	)
	errorSinkTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_engine_error_sink_tasks_processed_total",
			Help: "Total number of error-sink tasks processed, labeled by outcome.",
		},
		[]string{"workspace_id", "status"},
	)
	errorSinkQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crm_inbound_engine_error_sink_queue_length",
		Help: "Current number of tasks waiting in the error-sink worker pool.",
	})
)

// InitMetrics toggles metric collection. Metrics are auto-registered via
// promauto; this only controls whether the helpers record observations.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IncEventsReceived increments the received counter
func IncEventsReceived(eventType, workspaceID string) {
	if !metricsEnabled {
		return
	}
	EventsReceivedTotal.WithLabelValues(eventType, sanitizeTenant(workspaceID)).Inc()
}

// IncEventsProcessed increments the processed counter
func IncEventsProcessed(eventType, workspaceID string) {
	if !metricsEnabled {
		return
	}
	EventsProcessedTotal.WithLabelValues(eventType, sanitizeTenant(workspaceID)).Inc()
}

// IncEventsFailed increments the failure counter
func IncEventsFailed(eventType, workspaceID string) {
	if !metricsEnabled {
		return
	}
	EventsFailedTotal.WithLabelValues(eventType, sanitizeTenant(workspaceID)).Inc()
}

// IncDuplicateEvents increments the idempotent-replay counter
func IncDuplicateEvents(eventType, workspaceID string) {
	if !metricsEnabled {
		return
	}
	DuplicateEventsTotal.WithLabelValues(eventType, sanitizeTenant(workspaceID)).Inc()
}

// IncSchemaDriftFallback increments the reduced-insert counter
func IncSchemaDriftFallback(workspaceID string) {
	if !metricsEnabled {
		return
	}
	SchemaDriftFallbacksTotal.WithLabelValues(sanitizeTenant(workspaceID)).Inc()
}

// ObserveEventProcessingDuration records end-to-end ingest latency
func ObserveEventProcessingDuration(eventType, workspaceID string, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	EventProcessingDurationSeconds.WithLabelValues(eventType, sanitizeTenant(workspaceID)).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records repository latency with a success/error label
func ObserveDbOperationDuration(operation, entity, workspaceID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeTenant(workspaceID), status).Observe(duration.Seconds())
}

// IncErrorSinkTasksSubmitted increments the sink submission counter
func IncErrorSinkTasksSubmitted(workspaceID string) {
	if !metricsEnabled {
		return
	}
	errorSinkTasksSubmittedTotal.WithLabelValues(sanitizeTenant(workspaceID)).Inc()
}

// IncErrorSinkTasksProcessed increments the sink outcome counter
func IncErrorSinkTasksProcessed(workspaceID, status string) {
	if !metricsEnabled {
		return
	}
	errorSinkTasksProcessedTotal.WithLabelValues(sanitizeTenant(workspaceID), status).Inc()
}

// SetErrorSinkQueueLength records the approximate sink backlog
func SetErrorSinkQueueLength(length int) {
	if !metricsEnabled {
		return
	}
	errorSinkQueueLength.Set(float64(length))
}

// sanitizeTenant keeps label cardinality bounded when a workspace id is absent
// or malformed.
func sanitizeTenant(tenant string) string {
	t := strings.TrimSpace(tenant)
	if t == "" {
		return "unknown"
	}
	return t
}
