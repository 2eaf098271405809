// Package metrics defines and registers all custom Prometheus metrics for the
// task tracker API. It is the single source of truth for metric names, labels,
// and help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasktracker"

// ── Task metrics ──────────────────────────────────────────────────────────────

// TaskMutationsTotal counts task operations by outcome.
// Labels:
//   - operation: "create", "update" or "delete"
//   - result: "ok", "validation", "not_found", "forbidden", "unauthenticated", "error"
var TaskMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_mutations_total",
		Help:      "Total number of task mutations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Identity metrics ──────────────────────────────────────────────────────────

// IdentityResolutionsTotal counts identity resolutions.
// Label:
//   - result: "authenticated" or "anonymous"
var IdentityResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_resolutions_total",
		Help:      "Total number of resolved request identities, by result.",
	},
	[]string{"result"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsPublishedTotal counts events accepted for fanout, by kind.
var NotificationsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_published_total",
		Help:      "Total number of notification events accepted for fanout.",
	},
	[]string{"kind"},
)

// NotificationsDroppedTotal counts events that were not delivered.
// Label:
//   - stage: "queue" (dispatcher buffer full), "subscriber" (client buffer full)
//     or "broadcast" (broadcaster error)
var NotificationsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Total number of notification deliveries dropped, by stage.",
	},
	[]string{"stage"},
)

// NotificationsQueueDepth tracks events waiting in each dispatcher worker channel.
var NotificationsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifications_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// RealtimeSubscribers tracks currently connected realtime clients.
var RealtimeSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_subscribers",
		Help:      "Number of currently connected realtime subscribers.",
	},
)

// BroadcastDuration measures one fanout pass over all subscribers.
var BroadcastDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "broadcast_duration_seconds",
		Help:      "Duration of a single broadcast to all subscribers.",
		Buckets:   prometheus.DefBuckets,
	},
)
