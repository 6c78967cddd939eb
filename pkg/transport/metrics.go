package transport

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hanfei1991/distddl/pkg/promutil"
)

// Metrics of the worker transport.
type Metrics struct {
	jobsSent       prometheus.Counter
	commandsSent   prometheus.Counter
	remoteFailures *prometheus.CounterVec
	execDuration   prometheus.Histogram
}

func NewMetrics(factory promutil.Factory) *Metrics {
	return &Metrics{
		jobsSent: factory.NewCounter(prometheus.CounterOpts{
			Subsystem: "transport",
			Name:      "jobs_sent_total",
			Help:      "Number of DDL jobs executed on all their target workers.",
		}),
		commandsSent: factory.NewCounter(prometheus.CounterOpts{
			Subsystem: "transport",
			Name:      "commands_sent_total",
			Help:      "Number of commands executed on workers, one per command per worker.",
		}),
		remoteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "transport",
			Name:      "remote_failures_total",
			Help:      "Number of failed remote calls by phase.",
		}, []string{"phase"}),
		execDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Subsystem: "transport",
			Name:      "execute_duration_seconds",
			Help:      "Time to execute one DDL job on all its target workers.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
	}
}
