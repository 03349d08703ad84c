package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/trainingportal-backend/internal/platform/envutil"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

// Metrics holds the process-wide Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqError *Counter

	lessonsCompleted     *Counter
	attemptsStarted      *Counter
	attemptsFinished     *CounterVec
	attemptsBlocked      *Counter
	attemptsAbandoned    *CounterVec
	enrollmentsCompleted *Counter
	certificatesIssued   *CounterVec

	writeLatency        *HistogramVec
	persistenceFailures *CounterVec
	sseClients          *Gauge

	redisUp   *Gauge
	redisPing *Gauge
	pgStats   *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Init builds the global collectors once. It returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered collector set.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("tp_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"tp_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("tp_api_inflight_requests", "In-flight API requests."),
		apiReqError: NewCounter("tp_api_requests_error_total", "Total API requests with 5xx status."),

		lessonsCompleted:     NewCounter("tp_lessons_completed_total", "Lessons that crossed the completion threshold."),
		attemptsStarted:      NewCounter("tp_assessment_attempts_started_total", "Assessment attempts started."),
		attemptsFinished:     NewCounterVec("tp_assessment_attempts_finished_total", "Assessment attempts finished by outcome.", []string{"outcome"}),
		attemptsBlocked:      NewCounter("tp_assessment_attempts_blocked_total", "Assessment starts refused by the lockout window."),
		attemptsAbandoned:    NewCounterVec("tp_assessment_attempts_abandoned_total", "In-flight attempts abandoned by reason.", []string{"reason"}),
		enrollmentsCompleted: NewCounter("tp_enrollments_completed_total", "Enrollments that reached completed."),
		certificatesIssued:   NewCounterVec("tp_certificates_total", "Certificate requests by status.", []string{"status"}),

		writeLatency: NewHistogramVec(
			"tp_write_queue_job_duration_seconds",
			"Write-behind job latency in seconds by kind.",
			[]string{"kind"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		),
		persistenceFailures: NewCounterVec("tp_persistence_failures_total", "Write-behind jobs that exhausted their retries, by kind.", []string{"kind"}),
		sseClients:          NewGauge("tp_sse_clients", "Connected SSE clients."),

		redisUp:   NewGauge("tp_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("tp_redis_ping_seconds", "Redis ping latency in seconds."),
		pgStats:   NewGaugeVec("tp_db_pool", "Database pool statistics.", []string{"stat"}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqError,
		m.lessonsCompleted, m.attemptsStarted, m.attemptsFinished, m.attemptsBlocked, m.attemptsAbandoned,
		m.enrollmentsCompleted, m.certificatesIssued,
		m.writeLatency, m.persistenceFailures, m.sseClients,
		m.redisUp, m.redisPing, m.pgStats,
	}
	for _, c := range all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncLessonCompleted() {
	if m == nil {
		return
	}
	m.lessonsCompleted.Inc()
}

func (m *Metrics) IncAttemptStarted() {
	if m == nil {
		return
	}
	m.attemptsStarted.Inc()
}

func (m *Metrics) IncAttemptFinished(passed bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.attemptsFinished.Inc(outcome)
}

func (m *Metrics) IncAttemptBlocked() {
	if m == nil {
		return
	}
	m.attemptsBlocked.Inc()
}

// IncAttemptAbandoned counts abandonment by reason: "explicit", "replaced" or "expired".
func (m *Metrics) IncAttemptAbandoned(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attemptsAbandoned.Add(float64(n), reason)
}

func (m *Metrics) IncEnrollmentCompleted() {
	if m == nil {
		return
	}
	m.enrollmentsCompleted.Inc()
}

func (m *Metrics) IncCertificate(status string) {
	if m == nil {
		return
	}
	m.certificatesIssued.Inc(status)
}

func (m *Metrics) ObserveWrite(kind string, dur time.Duration) {
	if m == nil {
		return
	}
	m.writeLatency.Observe(dur.Seconds(), kind)
}

func (m *Metrics) IncPersistenceFailure(kind string) {
	if m == nil {
		return
	}
	m.persistenceFailures.Inc(kind)
}

func (m *Metrics) PersistenceFailures(kind string) float64 {
	if m == nil {
		return 0
	}
	return m.persistenceFailures.Value(kind)
}

func (m *Metrics) SSEClientsInc() {
	if m == nil {
		return
	}
	m.sseClients.Inc()
}

func (m *Metrics) SSEClientsDec() {
	if m == nil {
		return
	}
	m.sseClients.Dec()
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval. The caller owns rdb.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
