// Package metrics registers the Prometheus collectors the flush-control and
// ticket-queue layers publish, following the teacher's per-component
// registration convention (internal/metrics, metrics_info.go) rather than a
// single ad hoc counter.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ivx"

var (
	// PendingFlushBytes is the aggregate RAM held by DWPTs queued or
	// flushing, the quantity flushcontrol's stall check compares against
	// FlushParam.StallRAMBytes.
	PendingFlushBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "flush",
		Name:      "pending_bytes",
		Help:      "RAM held by DWPTs that are queued for flush or flushing.",
	})

	StallTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "flush",
		Name:      "stall_total",
		Help:      "Number of times a producer thread blocked in wait_if_stalled.",
	})

	FlushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "flush",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of DWPT.flush calls.",
		Buckets:   prometheus.DefBuckets,
	})

	TicketQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ticketqueue",
		Name:      "depth",
		Help:      "Number of tickets currently enqueued, ready or not.",
	})

	ForcedPurgeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ticketqueue",
		Name:      "forced_purge_total",
		Help:      "Number of ForcedPurge events emitted due to ticket backlog.",
	})

	SegmentsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "segments",
		Name:      "published_total",
		Help:      "Number of segments published to the index.",
	})

	CollectorHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "collector_hits_total",
		Help:      "Documents collected per collector kind.",
	}, []string{"collector"})
)

func init() {
	prometheus.MustRegister(
		PendingFlushBytes,
		StallTotal,
		FlushDuration,
		TicketQueueDepth,
		ForcedPurgeTotal,
		SegmentsPublished,
		CollectorHits,
	)
}
