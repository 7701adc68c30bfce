package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// background scheduling jobs.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	slotsGenerated  prometheus.Counter
	slotsCleaned    prometheus.Counter
	claimConflicts  prometheus.Counter
	schedulerRuns   *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	slotsGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slots_generated_total",
		Help: "Appointment slots created by the generator",
	})

	slotsCleaned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slots_cleaned_total",
		Help: "Expired unclaimed slots removed by the cleaner",
	})

	claimConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_claim_conflicts_total",
		Help: "Slot claims rejected because the slot was already taken",
	})

	schedulerRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Scheduled job runs by job and outcome",
	}, []string{"job", "outcome"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_run_duration_seconds",
		Help:    "Duration of scheduled job runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, slotsGenerated, slotsCleaned, claimConflicts, schedulerRuns, runDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		slotsGenerated:  slotsGenerated,
		slotsCleaned:    slotsCleaned,
		claimConflicts:  claimConflicts,
		schedulerRuns:   schedulerRuns,
		runDuration:     runDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// AddSlotsGenerated counts slots inserted by a generator run.
func (m *MetricsService) AddSlotsGenerated(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsGenerated.Add(float64(n))
}

// AddSlotsCleaned counts slots removed by a cleaner run.
func (m *MetricsService) AddSlotsCleaned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsCleaned.Add(float64(n))
}

// IncClaimConflict counts a claim rejected with a conflict.
func (m *MetricsService) IncClaimConflict() {
	if m == nil {
		return
	}
	m.claimConflicts.Inc()
}

// ObserveSchedulerRun records the outcome and duration of a scheduled run.
func (m *MetricsService) ObserveSchedulerRun(job string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.schedulerRuns.WithLabelValues(job, outcome).Inc()
	m.runDuration.WithLabelValues(job).Observe(duration.Seconds())
}
