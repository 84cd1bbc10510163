package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unihub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// MessageThroughput counts chat messages processed per chat.
	MessageThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unihub_message_throughput_total",
		Help: "Total number of chat messages processed",
	}, []string{"chat_id"})

	// SnapshotDeliveries counts realtime snapshots delivered to subscribers.
	SnapshotDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unihub_snapshot_deliveries_total",
		Help: "Total number of full-replace message snapshots delivered",
	})

	// SubscriptionRetries counts realtime subscription resubscribe attempts.
	SubscriptionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unihub_subscription_retries_total",
		Help: "Total number of realtime subscription resubscribe attempts",
	})

	// ActiveWebSockets is the gauge of active WebSocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unihub_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// AuthFailures counts failed auth operations by error code.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unihub_auth_failures_total",
		Help: "Total number of failed auth operations by code",
	}, []string{"code"})
)
