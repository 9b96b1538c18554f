package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomsync",
		Subsystem: "ingest",
		Name:      "events_total",
		Help:      "Events processed, labeled by envelope domain and outcome.",
	}, []string{"domain", "outcome"})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roomsync",
		Subsystem: "ingest",
		Name:      "dropped_total",
		Help:      "Envelopes rejected because the queue was full.",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roomsync",
		Subsystem: "ingest",
		Name:      "queue_depth",
		Help:      "Envelopes currently waiting in the ingest queue.",
	})
)
