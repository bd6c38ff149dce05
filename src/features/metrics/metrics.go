package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rename outcome labels.
const (
	ResultSuccess       = "success"
	ResultFailed        = "failed"
	ResultNoDestination = "no_destination"
)

// Set holds the pipeline's Prometheus collectors. A single Set is created
// at startup and threaded through the stages.
type Set struct {
	registry *prometheus.Registry

	EventsSeen        *prometheus.CounterVec
	Renames           *prometheus.CounterVec
	DuplicatesRemoved prometheus.Counter
	StageExits        *prometheus.CounterVec
	ActiveFiles       prometheus.Gauge
}

// NewSet creates the collectors on a fresh registry.
func NewSet() *Set {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Set{
		registry: registry,
		EventsSeen: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medio",
			Name:      "events_seen_total",
			Help:      "File system events routed, by kind.",
		}, []string{"kind"}),
		Renames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medio",
			Name:      "renames_total",
			Help:      "Rename attempts, by result.",
		}, []string{"result"}),
		DuplicatesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "medio",
			Name:      "duplicates_removed_total",
			Help:      "Files deleted as byte-identical duplicates.",
		}),
		StageExits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medio",
			Name:      "stage_fatal_exits_total",
			Help:      "Pipeline stages that hit the consecutive-error limit.",
		}, []string{"stage"}),
		ActiveFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "medio",
			Name:      "active_files",
			Help:      "Files currently tracked as in transfer.",
		}),
	}
}

// RegisterQueueDepth exposes a queue's backlog as a gauge.
func (s *Set) RegisterQueueDepth(queue string, depth func() int) {
	s.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "medio",
		Name:        "queue_depth",
		Help:        "Items waiting in a pipeline queue.",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, func() float64 {
		return float64(depth())
	}))
}

// Registry returns the underlying registry for the HTTP exposition.
func (s *Set) Registry() *prometheus.Registry {
	return s.registry
}
