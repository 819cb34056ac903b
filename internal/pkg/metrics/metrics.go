// Package metrics defines and registers the Prometheus metrics of the todo
// API. It is the single source of truth for metric names, labels, and help
// strings. Metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "todo"

// Auth outcomes.
const (
	OutcomeSuccess            = "success"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts served requests.
// Labels:
//   - method: HTTP method
//   - route: the matched route pattern (e.g. "/api/todos/:id")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency by route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts registration and login attempts.
// Labels:
//   - operation: "register" or "login"
//   - outcome: one of the Outcome* constants
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of registration and login attempts, by outcome.",
	},
	[]string{"operation", "outcome"},
)

// ── Todo metrics ──────────────────────────────────────────────────────────────

// TodoOperationsTotal counts successful todo mutations.
// Label:
//   - operation: "create", "update", or "delete"
var TodoOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "todos_operations_total",
		Help:      "Total number of successful todo mutations, by operation.",
	},
	[]string{"operation"},
)

// IdempotentReplaysTotal counts creations answered from an earlier Idempotency-Key.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of todo creations replayed from an Idempotency-Key.",
	},
)
