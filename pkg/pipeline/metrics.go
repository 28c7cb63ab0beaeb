package pipeline

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toyz/axonroute/pkg/axon"
)

// UnmatchedRoute labels requests that did not reach a mounted route
const UnmatchedRoute = "unmatched"

// MetricsConfig configures the Metrics middleware
type MetricsConfig struct {
	Namespace string
	Subsystem string
	// Registerer defaults to prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
	// Buckets of the latency histogram, prometheus.DefBuckets when empty
	Buckets []float64
}

// Metrics counts requests and observes their latency, labelled by method,
// route template and status code. Collectors already registered on the
// same Registerer are reused.
func Metrics(cfg MetricsConfig) axon.MiddlewareFunc {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "axon"
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	labels := []string{"method", "route", "status"}

	requests := register(cfg.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, labels))
	latency := register(cfg.Registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   buckets,
	}, labels))

	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status()
			if err != nil {
				status = axon.ErrorStatus(err)
			}
			route := routeOf(ctx)
			if route == "" {
				route = UnmatchedRoute
			}
			values := []string{ctx.Method(), route, strconv.Itoa(status)}
			requests.WithLabelValues(values...).Inc()
			latency.WithLabelValues(values...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// MetricsHandler exposes g in the Prometheus text format. A nil gatherer
// exposes prometheus.DefaultGatherer.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// MetricsEndpoint serves MetricsHandler as a route handler
func MetricsEndpoint(g prometheus.Gatherer) axon.HandlerFunc {
	h := MetricsHandler(g)
	return func(ctx axon.RequestContext) error {
		req, err := http.NewRequestWithContext(ctx.Context(), http.MethodGet, ctx.Path(), nil)
		if err != nil {
			return err
		}
		for k, vs := range ctx.Request().Headers() {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		rec := &bufferedWriter{header: make(http.Header), status: http.StatusOK}
		h.ServeHTTP(rec, req)
		for k, vs := range rec.header {
			if k == "Content-Type" || len(vs) == 0 {
				continue
			}
			ctx.Response().SetHeader(k, vs[0])
		}
		return ctx.Response().Blob(rec.status, rec.header.Get("Content-Type"), rec.body.Bytes())
	}
}

// bufferedWriter collects a handler's response so it can be replayed
// through a ResponseInterface
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) Write(b []byte) (int, error) { return w.body.Write(b) }

func (w *bufferedWriter) WriteHeader(code int) { w.status = code }
