package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPDuration длительность обработки HTTP-запросов
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lesson_scheduler",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// MaintenanceCompleted занятия, закрытые фоновой уборкой
	MaintenanceCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lesson_scheduler",
		Name:      "maintenance_completed_total",
		Help:      "Appointments auto-completed by maintenance passes",
	})

	// MaintenanceCancelled pending-записи, отменённые фоновой уборкой
	MaintenanceCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lesson_scheduler",
		Name:      "maintenance_cancelled_total",
		Help:      "Stale pending appointments auto-cancelled by maintenance passes",
	})

	// RecurrenceGenerated занятия, созданные по еженедельным правилам
	RecurrenceGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lesson_scheduler",
		Name:      "recurrence_generated_total",
		Help:      "Appointments generated from weekly recurrence rules",
	})
)
