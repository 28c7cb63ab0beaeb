package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/toyz/axonroute/internal/console"
	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/axon/adapters"
	"github.com/toyz/axonroute/pkg/decorate"
	"github.com/toyz/axonroute/pkg/di"
	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/pipeline"
	"github.com/toyz/axonroute/pkg/render"
)

type GreetController struct{}

func (c *GreetController) Hello(name string) map[string]string {
	return map[string]string{"hello": name}
}

func (c *GreetController) Page(name string) map[string]string {
	return map[string]string{"Name": name}
}

func (c *GreetController) Boom() string {
	panic("boom")
}

func declareGreetings(reg *metadata.Registry) {
	decorate.On[GreetController](reg).
		Method("Hello").Get("/:name").Param(0, "name").Http(http.StatusAccepted).
		Method("Page").Get("/page/:name").Param(0, "name").Render("greet").
		Method("Boom").Get("/boom/now").
		Controller("/greet")
}

func emptyModule(*di.Container) error { return nil }

type fixture struct {
	app     *App
	out     *bytes.Buffer
	logs    *observer.ObservedLogs
	metrics *prometheus.Registry
}

func newFixture(t *testing.T, cfg *Config, opts ...Option) *fixture {
	t.Helper()
	reg := metadata.NewRegistry()
	declareGreetings(reg)

	core, logs := observer.New(zapcore.DebugLevel)
	out := &bytes.Buffer{}
	metrics := prometheus.NewRegistry()
	base := []Option{
		WithConfig(cfg),
		WithLogger(zap.New(core)),
		WithConsole(console.New(out)),
		WithRegistry(reg),
		WithRouteRegistry(axon.NewInMemoryRouteRegistry()),
		WithMetricsRegistry(metrics, metrics),
	}
	a := New(adapters.NewDefaultChiAdapter(), append(base, opts...)...)
	_, err := a.ConfigContainer(emptyModule)
	require.NoError(t, err)
	return &fixture{app: a, out: out, logs: logs, metrics: metrics}
}

func get(ws axon.WebServerInterface, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ws.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_RunsGlobalConfiguration(t *testing.T) {
	var calls []string
	a := New(adapters.NewDefaultChiAdapter(), WithHooks(Hooks{
		GlobalConfiguration: func(a *App) error {
			calls = append(calls, "global")
			a.SetGlobalRoutePrefix("v1/")
			return nil
		},
	}))
	assert.Equal(t, []string{"global"}, calls)
	assert.Equal(t, "/v1", a.GlobalRoutePrefix())
}

func TestConfigContainer(t *testing.T) {
	a := New(adapters.NewDefaultChiAdapter())
	_, err := a.ConfigContainer()
	assert.True(t, errors.Is(err, axonerrors.Sentinel(axonerrors.ConfigurationErrorCode)))
	assert.Nil(t, a.Container())

	c, err := a.ConfigContainer(func(c *di.Container) error {
		c.Bind("greeting").ToConstantValue("hi")
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, c, a.Container())
	v, err := c.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", v)

	_, err = a.ConfigContainer(func(*di.Container) error { return errors.New("broken module") })
	assert.Error(t, err)
}

func TestBuild_WithoutContainer(t *testing.T) {
	code := -1
	core, logs := observer.New(zapcore.ErrorLevel)
	a := New(adapters.NewDefaultChiAdapter(),
		WithLogger(zap.New(core)),
		WithExitFunc(func(c int) { code = c }),
	)
	_, err := a.Build()
	assert.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, logs.FilterMessage("no container provided for application configuration").Len())
}

func TestBuild_MountsControllersBehindPipeline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Metrics.Enabled = true
	cfg.Pipeline.Metrics.Namespace = "greet"

	var order []string
	f := newFixture(t, cfg, WithHooks(Hooks{
		ConfigureServices: func(a *App) error {
			order = append(order, "services")
			a.Middleware().Add(func(next axon.HandlerFunc) axon.HandlerFunc {
				return func(ctx axon.RequestContext) error {
					ctx.Response().SetHeader("X-Pipeline", pipeline.RequestIDOf(ctx))
					return next(ctx)
				}
			})
			return nil
		},
	}))
	f.app.SetGlobalRoutePrefix("/api")

	_, err := f.app.HTTPServer()
	assert.Error(t, err)

	ws, err := f.app.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"services"}, order)

	again, err := f.app.Build()
	require.NoError(t, err)
	assert.Same(t, ws, again)
	assert.Equal(t, []string{"services"}, order)

	rec := get(ws, "/api/greet/ann")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"hello":"ann"}`, rec.Body.String())
	id := rec.Header().Get(pipeline.RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get("X-Pipeline"))

	rec = get(ws, "/api/greet/boom/now")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, f.logs.FilterMessage("panic recovered").Len())

	rec = get(ws, "/api/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `greet_http_requests_total{method="GET",route="/api/greet/:name",status="202"} 1`)

	assert.Equal(t, 1, f.logs.FilterMessage("request").FilterField(zap.Int("status", http.StatusAccepted)).Len())
}

func TestBuild_RendersViews(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.html"), []byte("<p>Hi {{.Name}}</p>"), 0o644))

	f := newFixture(t, DefaultConfig())
	f.app.SetEngine(render.EngineHTML, render.Options{ViewsDir: dir})
	ws, err := f.app.Build()
	require.NoError(t, err)

	rec := get(ws, "/greet/page/%3Cbob%3E")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>Hi &lt;bob&gt;</p>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestBuild_UnknownEngine(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.app.SetEngine(render.Engine("pug"))
	_, err := f.app.Build()
	assert.True(t, errors.Is(err, render.ErrUnsupportedEngine))
}

func TestIsDevelopment(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.False(t, f.app.IsDevelopment())
	assert.Equal(t, 1, f.logs.FilterMessage("IsDevelopment must be called from PostServerInitialization or later").Len())

	_, err := f.app.Build()
	require.NoError(t, err)
	assert.True(t, f.app.IsDevelopment())

	f.app.SetEnvironment(Production)
	assert.False(t, f.app.IsDevelopment())
}

func TestListen_RunsHooksInOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.ShutdownTimeout = time.Second

	var order []string
	f := newFixture(t, cfg, WithHooks(Hooks{
		ConfigureServices: func(*App) error {
			order = append(order, "services")
			return nil
		},
		PostServerInitialization: func(a *App) error {
			order = append(order, "post-init")
			assert.True(t, a.IsDevelopment())
			return nil
		},
		ServerShutdown: func(context.Context, *App) error {
			order = append(order, "shutdown")
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.app.Listen(ctx, ":0", &console.AppInfo{AppName: "greeter", AppVersion: "0.1.0"}))

	assert.Equal(t, []string{"services", "post-init", "shutdown"}, order)
	assert.Contains(t, f.out.String(), "greeter 0.1.0 is running on 127.0.0.1:0 [development] via Chi")
	assert.Contains(t, f.out.String(), "/greet/:name")
}

func TestListen_PostInitFailure(t *testing.T) {
	f := newFixture(t, DefaultConfig(), WithHooks(Hooks{
		PostServerInitialization: func(*App) error { return errors.New("not ready") },
	}))
	err := f.app.Listen(context.Background(), "0", nil)
	assert.EqualError(t, err, "not ready")
}
