package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommoditiesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharebox_commodities_created_total",
		Help: "Total number of commodities created with a locker allocated.",
	})

	CapacityExceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharebox_capacity_exceeded_total",
		Help: "Total number of allocations rejected because the storage group was full.",
	})

	LockersReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharebox_lockers_released_total",
		Help: "Total number of lockers returned to the pool.",
	})

	IntegrityViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharebox_integrity_violations_total",
		Help: "Total number of detected occupancy integrity violations.",
	})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharebox_status_transitions_total",
		Help: "Total number of commodity status transitions.",
	},
		[]string{"source", "to"},
	)

	SweepPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharebox_sweep_passes_total",
		Help: "Total number of completed expiration sweep passes.",
	})

	SweepItemErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharebox_sweep_item_errors_total",
		Help: "Total number of commodities whose status write failed during a sweep.",
	})

	SweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharebox_sweep_duration_seconds",
		Help:    "Duration of expiration sweep passes.",
		Buckets: prometheus.DefBuckets,
	})

	EventPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sharebox_event_publish_errors_total",
		Help: "Total number of status change events that could not be published.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharebox_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)
)
