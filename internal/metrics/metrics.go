// Package metrics holds the Prometheus collectors shared by the loader, the
// power context and the module manager. Collectors are registered with the
// default registry on init, the same way the HTTP layer registers its own.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hvxhost"

var (
	ModulesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "power",
		Name:      "modules_active",
		Help:      "Modules currently holding the accelerator powered",
	})

	PowerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "power",
			Name:      "transitions_total",
			Help:      "Accelerator power requests by direction and result",
		},
		[]string{"direction", "result"},
	)

	LoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "loads_total",
			Help:      "Kernel image loads by result",
		},
		[]string{"result"},
	)

	ReleasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "releases_total",
			Help:      "Kernel module releases by result",
		},
		[]string{"result"},
	)

	InvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoke",
			Name:      "invocations_total",
			Help:      "Entry point invocations by result",
		},
		[]string{"result"},
	)

	InvocationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "invoke",
		Name:      "duration_seconds",
		Help:      "Wall time spent inside invoked entry points",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	AllocLiveBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "alloc",
		Name:      "live_bytes",
		Help:      "Bytes currently handed out to kernels by the scoped allocator",
	})

	AllocFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alloc",
		Name:      "failures_total",
		Help:      "Allocation requests that could not be satisfied",
	})

	KernelMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diag",
			Name:      "kernel_messages_total",
			Help:      "Messages emitted by loaded kernels through the runtime table",
		},
		[]string{"level"},
	)
)

func init() {
	prometheus.MustRegister(
		ModulesActive,
		PowerTransitions,
		LoadsTotal,
		ReleasesTotal,
		InvocationsTotal,
		InvocationDuration,
		AllocLiveBytes,
		AllocFailures,
		KernelMessages,
	)
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
