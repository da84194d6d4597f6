// Package metrics provides Prometheus metrics for the Sage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal tracks inbound webhook deliveries by result
	WebhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Total number of inbound webhook deliveries by result",
		},
		[]string{"provider", "result"},
	)

	// WebhookDuplicatesTotal tracks redeliveries dropped by the deduper
	WebhookDuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "webhook",
			Name:      "duplicates_total",
			Help:      "Total number of duplicate webhook deliveries dropped",
		},
		[]string{"provider"},
	)

	// PipelineResolutionsTotal tracks pipeline outcomes by stage
	PipelineResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "pipeline",
			Name:      "resolutions_total",
			Help:      "Total number of pipeline resolutions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// PipelineResolutionDuration tracks end-to-end resolution duration in seconds
	PipelineResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "pipeline",
			Name:      "resolution_duration_seconds",
			Help:      "Duration of pipeline resolutions in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	// GenerativeRequestsTotal tracks generative backend calls
	GenerativeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "generative",
			Name:      "requests_total",
			Help:      "Total number of generative backend requests",
		},
		[]string{"model", "status"},
	)

	// GenerativeRequestDuration tracks generative backend call duration
	GenerativeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "generative",
			Name:      "request_duration_seconds",
			Help:      "Duration of generative backend requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	// DeliverySendsTotal tracks outbound message sends
	DeliverySendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "delivery",
			Name:      "sends_total",
			Help:      "Total number of outbound message sends by kind and status",
		},
		[]string{"kind", "status"},
	)

	// DeliverySendDuration tracks outbound send duration
	DeliverySendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "delivery",
			Name:      "send_duration_seconds",
			Help:      "Duration of outbound message sends in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	// TenantCacheLookups tracks tenant config cache lookups
	TenantCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "cache",
			Name:      "tenant_lookups_total",
			Help:      "Total number of tenant config cache lookups by result",
		},
		[]string{"result"},
	)

	// LeadsCreatedTotal tracks sales leads captured
	LeadsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "leads",
			Name:      "created_total",
			Help:      "Total number of sales leads created",
		},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordWebhook records an inbound webhook delivery
func RecordWebhook(provider, result string) {
	WebhookRequestsTotal.WithLabelValues(provider, result).Inc()
}

// RecordDuplicate records a dropped duplicate delivery
func RecordDuplicate(provider string) {
	WebhookDuplicatesTotal.WithLabelValues(provider).Inc()
}

// RecordResolution records a pipeline resolution
func RecordResolution(stage, outcome string, durationSeconds float64) {
	PipelineResolutionsTotal.WithLabelValues(stage, outcome).Inc()
	PipelineResolutionDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordGenerativeRequest records a generative backend call
func RecordGenerativeRequest(model, status string, durationSeconds float64) {
	GenerativeRequestsTotal.WithLabelValues(model, status).Inc()
	GenerativeRequestDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordDelivery records an outbound message send
func RecordDelivery(kind, status string, durationSeconds float64) {
	DeliverySendsTotal.WithLabelValues(kind, status).Inc()
	DeliverySendDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordCacheLookup records a tenant cache lookup result
func RecordCacheLookup(result string) {
	TenantCacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
