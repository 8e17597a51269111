package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the pipeline counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	BulletinsTotal *prometheus.CounterVec
	ProductsTotal  prometheus.Counter
	DiscardedLines *prometheus.CounterVec
	RunDuration    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BulletinsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulletins_processed_total",
				Help: "Bulletin runs by outcome",
			},
			[]string{"outcome"},
		),
		ProductsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bulletin_products_extracted_total",
				Help: "Products emitted by validated bulletins",
			},
		),
		DiscardedLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulletin_lines_discarded_total",
				Help: "Scan steps that produced no product, by reason",
			},
			[]string{"reason"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bulletin_run_duration_seconds",
				Help:    "Wall time of one bulletin run",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.BulletinsTotal, m.ProductsTotal, m.DiscardedLines, m.RunDuration)
	}
	return m
}

func (m *Metrics) ObserveRun(outcome string, products int, d time.Duration) {
	if m == nil {
		return
	}
	m.BulletinsTotal.WithLabelValues(outcome).Inc()
	m.ProductsTotal.Add(float64(products))
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveDiscards(byReason map[string]int) {
	if m == nil {
		return
	}
	for reason, n := range byReason {
		m.DiscardedLines.WithLabelValues(reason).Add(float64(n))
	}
}

// Start serves /metrics from g on addr until ctx is done.
func Start(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics.listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics.serve.failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv
}
