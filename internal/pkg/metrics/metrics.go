// Package metrics defines and registers all custom Prometheus metrics for the
// deck API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "deckapi"

// ── Authentication metrics ────────────────────────────────────────────────────

// SignInTotal counts sign-in attempts by final outcome.
// Label:
//   - outcome: "token_issued", "user_not_found", "invalid_credentials", "error"
var SignInTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signin_total",
		Help:      "Total number of sign-in attempts, by outcome.",
	},
	[]string{"outcome"},
)

// SignUpTotal counts sign-up attempts by outcome.
// Label:
//   - outcome: "created", "user_exists", "invalid", "error"
var SignUpTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signup_total",
		Help:      "Total number of sign-up attempts, by outcome.",
	},
	[]string{"outcome"},
)

// TokenValidationTotal counts bearer tokens seen by the request authenticator.
// Label:
//   - result: "ok", "expired", "malformed", "unsupported", "signature", "unknown_principal", "error"
var TokenValidationTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validation_total",
		Help:      "Total number of bearer tokens validated, by result.",
	},
	[]string{"result"},
)

// ── Storage metrics ───────────────────────────────────────────────────────────

// RepositoryOperationDuration measures a single storage call on a worker.
// Labels:
//   - collection: e.g. "users", "decks"
//   - operation: e.g. "insert", "find_by_id"
var RepositoryOperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "repository_operation_duration_seconds",
		Help:      "Duration of document repository operations.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"collection", "operation"},
)

// WorkerPoolSize is the number of goroutines in the shared repository pool.
var WorkerPoolSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_pool_size",
		Help:      "Number of workers in the shared repository pool.",
	},
)

// WorkerPoolQueueDepth tracks jobs waiting for a free worker.
var WorkerPoolQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_pool_queue_depth",
		Help:      "Current number of jobs pending in the repository worker pool.",
	},
)

// PrincipalCacheTotal counts principal cache lookups.
// Label:
//   - result: "hit" or "miss"
var PrincipalCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "principal_cache_total",
		Help:      "Total number of principal cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// ObserveRepository starts timing a repository operation. Call the returned
// func when the storage call returns.
func ObserveRepository(collection, operation string) func() {
	timer := prometheus.NewTimer(RepositoryOperationDuration.WithLabelValues(collection, operation))
	return func() { timer.ObserveDuration() }
}
