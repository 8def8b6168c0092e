// Package metrics defines every Prometheus series the node exposes on
// GET /metrics, registered once at package init (teacher's style in
// pkg/metrics/limited.go), grouped by the component that owns them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// --- Ingestor ---
	PacketsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "packets_ingested_total",
		Help:      "Packets that passed the sampling gate and were counted.",
	})
	PacketsSampledOut = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "packets_sampled_out_total",
		Help:      "Packets dropped by the sampling gate.",
	})

	// --- Shallow / deep analyzers ---
	ShallowDetectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "shallow_detections_total",
		Help:      "Victim-centric detections, labeled by case (THRESHOLD / TRAFFIC_INCREASE).",
	}, []string{"case"})
	DeepConfirmationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "deep_confirmations_total",
		Help:      "Candidates confirmed as attackers by the deep analyzer.",
	})

	// --- Collab bus ---
	ReqPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "requests_published_total",
		Help:      "CollabRequests published, labeled by topic.",
	}, []string{"topic"})
	ResPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "responses_published_total",
		Help:      "CollabResponses published, labeled by topic.",
	}, []string{"topic"})
	SelfEchoDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "self_echo_dropped_total",
		Help:      "Self-originated CollabRequests dropped on arrival via the bus.",
	})
	BusReadErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "bus_read_errors_total",
		Help:      "Errors surfaced while reading from the message bus.",
	})

	// --- Reputation / ledger ---
	ReputationAdjustmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "reputation_adjustments_total",
		Help:      "Reputation adjustments applied, labeled by direction (up / down).",
	}, []string{"direction"})
	PendingRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wardnet",
		Name:      "pending_requests",
		Help:      "Current size of PendingRequest.",
	})
	ResponseLedgerEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wardnet",
		Name:      "response_ledger_entries",
		Help:      "Current number of (request_id, responder) entries in ResponseLedger.",
	})
	ReapEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "reap_evictions_total",
		Help:      "Entries evicted from the request/response ledger, labeled by kind.",
	}, []string{"kind"})

	// --- Mitigation ---
	MitigationFilterTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "mitigation_filter_total",
		Help:      "IPs submitted to the mitigation sink, labeled by sink kind.",
	}, []string{"sink"})

	// --- Admin HTTP surface ---
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardnet",
		Name:      "http_requests_total",
		Help:      "Admin HTTP requests, labeled by status code and route.",
	}, []string{"code", "route"})
)

func init() {
	prometheus.MustRegister(
		PacketsIngested,
		PacketsSampledOut,
		ShallowDetectionsTotal,
		DeepConfirmationsTotal,
		ReqPublishedTotal,
		ResPublishedTotal,
		SelfEchoDroppedTotal,
		BusReadErrorsTotal,
		ReputationAdjustmentsTotal,
		PendingRequests,
		ResponseLedgerEntries,
		ReapEvictionsTotal,
		MitigationFilterTotal,
		Requests,
	)
}
