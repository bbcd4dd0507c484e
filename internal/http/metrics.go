package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts domain events for the /metrics endpoint. Each server owns
// its registry.
type Metrics struct {
	registry         *prometheus.Registry
	ChildrenEnrolled prometheus.Counter
	Egress           prometheus.Counter
	AttendanceMarked prometheus.Counter
	ReportsGenerated *prometheus.CounterVec
	LoginFailures    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ChildrenEnrolled: factory.NewCounter(prometheus.CounterOpts{
			Name: "daycare_children_enrolled_total",
			Help: "Total number of children enrolled",
		}),
		Egress: factory.NewCounter(prometheus.CounterOpts{
			Name: "daycare_egress_total",
			Help: "Total number of recorded departures",
		}),
		AttendanceMarked: factory.NewCounter(prometheus.CounterOpts{
			Name: "daycare_attendance_marked_total",
			Help: "Total number of attendance marks written",
		}),
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "daycare_reports_generated_total",
			Help: "Total number of report files generated",
		}, []string{"format"}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "daycare_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
