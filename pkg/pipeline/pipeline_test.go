package pipeline

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/axon/adapters"
)

func record(name string, log *[]string) axon.MiddlewareFunc {
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			*log = append(*log, name)
			return next(ctx)
		}
	}
}

func routeTemplate(route string) axon.MiddlewareFunc {
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			ctx.Set(axon.RouteKey, route)
			return next(ctx)
		}
	}
}

func serve(ws axon.WebServerInterface, method, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ws.ServeHTTP(rec, req)
	return rec
}

func ok(ctx axon.RequestContext) error {
	return ctx.Response().String(http.StatusOK, "ok")
}

func TestManager_PriorityOrdering(t *testing.T) {
	var log []string
	m := NewManager()
	m.Add(record("late", &log), WithPriority(10))
	m.Add(record("first", &log), WithPriority(-1))
	m.Add(record("default-a", &log))
	m.Add(record("default-b", &log))
	m.Add(nil)

	require.Equal(t, 4, m.Len())
	pipeline := m.Pipeline()
	require.Len(t, pipeline, 4)
	assert.Equal(t, []int{-1, 0, 0, 10}, []int{
		pipeline[0].Priority, pipeline[1].Priority, pipeline[2].Priority, pipeline[3].Priority,
	})

	ws := adapters.NewDefaultChiAdapter()
	m.Mount(ws, "/")
	ws.RegisterRoute("GET", axon.NewAxonPath("/"), ok)

	rec := serve(ws, "GET", "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"first", "default-a", "default-b", "late"}, log)
}

func TestManager_ScopedConfig(t *testing.T) {
	var log []string
	m := NewManager()
	m.AddConfig(MiddlewareConfig{Path: "/admin", Middlewares: []axon.MiddlewareFunc{record("admin", &log)}})
	m.Add(record("all", &log))

	ws := adapters.NewDefaultChiAdapter()
	m.Mount(ws, "/api")
	for _, p := range []string{"/api/admin", "/api/admin/users", "/api/administrators", "/api/public"} {
		ws.RegisterRoute("GET", axon.NewAxonPath(p), ok)
	}

	serve(ws, "GET", "/api/admin")
	assert.Equal(t, []string{"admin", "all"}, log)

	log = nil
	serve(ws, "GET", "/api/admin/users")
	assert.Equal(t, []string{"admin", "all"}, log)

	log = nil
	serve(ws, "GET", "/api/administrators")
	assert.Equal(t, []string{"all"}, log)

	log = nil
	serve(ws, "GET", "/api/public")
	assert.Equal(t, []string{"all"}, log)
}

func TestMatchesPrefix(t *testing.T) {
	assert.True(t, MatchesPrefix("/anything", "/"))
	assert.True(t, MatchesPrefix("/a", "/a"))
	assert.True(t, MatchesPrefix("/a/b", "/a/"))
	assert.False(t, MatchesPrefix("/ab", "/a"))
	assert.False(t, MatchesPrefix("/b", "/a"))
}

func TestManager_ErrorHandler(t *testing.T) {
	m := NewManager()
	m.SetErrorHandler(func(err error, ctx axon.RequestContext) {
		_ = ctx.Response().String(http.StatusTeapot, "handled: "+err.Error())
	})

	ws := adapters.NewDefaultChiAdapter()
	m.Mount(ws, "")
	ws.RegisterRoute("GET", axon.NewAxonPath("/boom"), func(axon.RequestContext) error {
		return axon.NewHTTPError(http.StatusBadRequest, "nope")
	})

	rec := serve(ws, "GET", "/boom")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "handled: nope", rec.Body.String())
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	ws := adapters.NewDefaultChiAdapter()
	ws.Use(Recovery(zap.New(core)))
	ws.RegisterRoute("GET", axon.NewAxonPath("/panic"), func(axon.RequestContext) error {
		panic("kaboom")
	})

	rec := serve(ws, "GET", "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kaboom", logs.All()[0].ContextMap()["panic"])
}

func TestRequestID(t *testing.T) {
	ws := adapters.NewDefaultChiAdapter()
	ws.Use(RequestID())
	var seen string
	ws.RegisterRoute("GET", axon.NewAxonPath("/"), func(ctx axon.RequestContext) error {
		seen = RequestIDOf(ctx)
		return ok(ctx)
	})

	rec := serve(ws, "GET", "/")
	assert.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	rec = serve(ws, "GET", "/", RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ws := adapters.NewDefaultChiAdapter()
	ws.Use(RequestID())
	ws.Use(RequestLogger(zap.New(core)))
	ws.RegisterRoute("GET", axon.NewAxonPath("/items/:id"), ok, routeTemplate("/items/:id"))
	ws.RegisterRoute("GET", axon.NewAxonPath("/missing"), func(axon.RequestContext) error {
		return axon.ErrNotFound("gone")
	})

	serve(ws, "GET", "/items/7")
	serve(ws, "GET", "/missing")

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/items/7", first["path"])
	assert.Equal(t, "/items/:id", first["route"])
	assert.EqualValues(t, 200, first["status"])
	assert.NotEmpty(t, first["request_id"])

	second := entries[1].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 404, second["status"])
	assert.Contains(t, second, "error")
}

func TestRateLimit(t *testing.T) {
	ws := adapters.NewDefaultChiAdapter()
	ws.Use(RateLimit(RateLimitConfig{
		Rate:  0.001,
		Burst: 2,
		KeyFunc: func(ctx axon.RequestContext) string {
			return ctx.Request().Header("X-Client")
		},
	}))
	ws.RegisterRoute("GET", axon.NewAxonPath("/"), ok)

	assert.Equal(t, http.StatusOK, serve(ws, "GET", "/", "X-Client", "a").Code)
	assert.Equal(t, http.StatusOK, serve(ws, "GET", "/", "X-Client", "a").Code)

	limited := serve(ws, "GET", "/", "X-Client", "a")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1000", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(ws, "GET", "/", "X-Client", "b").Code)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ws := adapters.NewDefaultChiAdapter()
	ws.Use(Metrics(MetricsConfig{Registerer: reg}))
	ws.RegisterRoute("GET", axon.NewAxonPath("/items/:id"), ok, routeTemplate("/items/:id"))
	ws.RegisterRoute("GET", axon.NewAxonPath("/fail"), func(axon.RequestContext) error {
		return axon.NewHTTPError(http.StatusBadGateway)
	})
	ws.RegisterRoute("GET", axon.NewAxonPath("/metrics"), MetricsEndpoint(reg))

	serve(ws, "GET", "/items/1")
	serve(ws, "GET", "/items/2")
	serve(ws, "GET", "/fail")

	assert.Equal(t, 2.0, counterValue(t, reg, "axon_http_requests_total",
		map[string]string{"method": "GET", "route": "/items/:id", "status": "200"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "axon_http_requests_total",
		map[string]string{"method": "GET", "route": UnmatchedRoute, "status": "502"}))

	rec := serve(ws, "GET", "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), `axon_http_requests_total{method="GET",route="/items/:id",status="200"} 2`)
	assert.Contains(t, rec.Body.String(), "axon_http_request_duration_seconds_bucket")
}

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		Metrics(MetricsConfig{Registerer: reg, Namespace: "svc"})
		Metrics(MetricsConfig{Registerer: reg, Namespace: "svc"})
	})
}
