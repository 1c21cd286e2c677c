// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "trustledger"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuditRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_total",
			Help:      "Audit records written, by entity type and action.",
		},
		[]string{"entity_type", "action"},
	)

	AuditWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Audit records that could not be persisted.",
		},
		[]string{"entity_type", "action"},
	)

	AuditPublishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_publish_failures_total",
			Help:      "Audit records that could not be exported to the event stream.",
		},
	)

	IntegrityChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_checks_total",
			Help:      "Integrity verifications, by kind (document, signature, audit_record) and result.",
		},
		[]string{"kind", "result"},
	)

	AttestationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attestations_total",
			Help:      "Transaction signatures recorded, by whether a previous attestation was replaced.",
		},
		[]string{"override"},
	)

	SigningKeysProvisionedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signing_keys_provisioned_total",
			Help:      "Signing keys generated and stored.",
		},
	)

	KeygenDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "keygen_duration_seconds",
			Help:      "Time spent generating RSA keypairs.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// Result labels an integrity check outcome.
func Result(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

// MustRegister registers every collector with the default registry.
func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuditRecordsTotal,
		AuditWriteFailuresTotal,
		AuditPublishFailuresTotal,
		IntegrityChecksTotal,
		AttestationsTotal,
		SigningKeysProvisionedTotal,
		KeygenDurationSeconds,
	)
}
