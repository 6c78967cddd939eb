package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hanfei1991/distddl/pkg/promutil"
)

type metrics struct {
	jobsBuilt       *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	objectsMarked   prometheus.Counter
	objectsUnmarked prometheus.Counter
	nodesActivated  prometheus.Counter
}

func newMetrics(factory promutil.Factory) *metrics {
	return &metrics{
		jobsBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "coordinator",
			Name:      "jobs_built_total",
			Help:      "Number of DDL jobs built by statement.",
		}, []string{"stmt"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "coordinator",
			Name:      "statements_not_propagated_total",
			Help:      "Number of statements applied locally only.",
		}, []string{"stmt"}),
		objectsMarked: factory.NewCounter(prometheus.CounterOpts{
			Subsystem: "coordinator",
			Name:      "objects_marked_total",
			Help:      "Number of objects marked distributed.",
		}),
		objectsUnmarked: factory.NewCounter(prometheus.CounterOpts{
			Subsystem: "coordinator",
			Name:      "objects_unmarked_total",
			Help:      "Number of objects unmarked distributed.",
		}),
		nodesActivated: factory.NewCounter(prometheus.CounterOpts{
			Subsystem: "coordinator",
			Name:      "nodes_activated_total",
			Help:      "Number of worker nodes activated.",
		}),
	}
}
