package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics defines our Prometheus metrics
type Metrics struct {
	ActiveRooms       prometheus.Gauge
	ActiveConnections prometheus.Gauge
	RoomsCreated      prometheus.Counter
	MessagesTotal     prometheus.Counter
	JoinRejections    *prometheus.CounterVec
	BroadcastFailures prometheus.Counter
	StorageFaults     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatroom",
			Name:      "active_rooms",
			Help:      "Number of rooms with at least one attached connection.",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatroom",
			Name:      "active_connections",
			Help:      "Number of live WebSocket connections attached to a room.",
		}),
		RoomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chatroom",
			Name:      "rooms_created_total",
			Help:      "Total rooms created since process start.",
		}),
		MessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chatroom",
			Name:      "messages_total",
			Help:      "Total chat messages accepted since process start.",
		}),
		JoinRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatroom",
			Name:      "join_rejections_total",
			Help:      "Join attempts rejected, partitioned by reason.",
		}, []string{"reason"}),
		BroadcastFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chatroom",
			Name:      "broadcast_failures_total",
			Help:      "Events dropped because a recipient could not accept them.",
		}),
		StorageFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatroom",
			Name:      "storage_faults_total",
			Help:      "Durable store operations that failed, partitioned by operation.",
		}, []string{"op"}),
	}
}
