// Package micro is the lightweight alternative to pkg/app: routes are
// registered one by one with plain handlers instead of being declared on
// controllers.
//
//	api := micro.New(adapters.NewDefaultChiAdapter(), nil)
//	api.Container().AddSingleton(&Store{})
//	api.SetGlobalRoutePrefix("/api")
//	api.Build()
//	api.Route().Get("/ping", func(ctx axon.RequestContext) error {
//		return ctx.Response().String(200, "pong")
//	})
//	err := api.Listen(ctx, "3000", nil)
package micro

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/toyz/axonroute/internal/console"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/di"
	"github.com/toyz/axonroute/pkg/pipeline"
)

// Config configures a MicroAPI. The zero value is usable.
type Config struct {
	// Container backs the IOC facade, a new container when nil
	Container *di.Container
	Logger    *zap.Logger
	// Console prints the startup banner, stdout when nil
	Console *console.Console
	// Environment defaults to "development"
	Environment     string
	Host            string
	ShutdownTimeout time.Duration
}

// MicroAPI serves routes defined through Route() behind a middleware pipeline
type MicroAPI struct {
	ws       axon.WebServerInterface
	ioc      *IOC
	pipeline *pipeline.Manager
	router   *Router
	logger   *zap.Logger
	console  *console.Console

	environment     string
	host            string
	shutdownTimeout time.Duration

	mu           sync.Mutex
	globalPrefix string
	configured   bool
}

// New creates a MicroAPI serving on ws
func New(ws axon.WebServerInterface, cfg *Config) *MicroAPI {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := cfg.Console
	if out == nil {
		out = console.New(nil)
	}
	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	return &MicroAPI{
		ws:              ws,
		ioc:             NewIOC(cfg.Container),
		pipeline:        pipeline.NewManager(),
		router:          newRouter(ws, logger),
		logger:          logger,
		console:         out,
		environment:     env,
		host:            cfg.Host,
		shutdownTimeout: cfg.ShutdownTimeout,
		globalPrefix:    "/",
	}
}

// SetGlobalRoutePrefix sets the prefix applied to routes defined after Build
func (m *MicroAPI) SetGlobalRoutePrefix(prefix string) {
	m.mu.Lock()
	m.globalPrefix = prefix
	m.mu.Unlock()
}

// Container returns the service container shared with route handlers
func (m *MicroAPI) Container() *IOC {
	return m.ioc
}

// Middleware returns the global middleware pipeline
func (m *MicroAPI) Middleware() *pipeline.Manager {
	return m.pipeline
}

// Route returns the router used to define endpoints
func (m *MicroAPI) Route() *Router {
	return m.router
}

// HTTPServer returns the underlying web server
func (m *MicroAPI) HTTPServer() axon.WebServerInterface {
	return m.ws
}

// Environment returns the configured environment name
func (m *MicroAPI) Environment() string {
	return m.environment
}

// Build hands the global prefix to the router
func (m *MicroAPI) Build() *MicroAPI {
	m.mu.Lock()
	prefix := m.globalPrefix
	m.mu.Unlock()
	m.router.setGlobalRoutePrefix(prefix)
	return m
}

// Mount installs the pipeline once and mounts every pending route. Listen
// calls it; tests can call it to drive the server through ServeHTTP.
func (m *MicroAPI) Mount() axon.WebServerInterface {
	m.mu.Lock()
	if !m.configured {
		m.pipeline.Mount(m.ws, "/")
		m.configured = true
	}
	m.mu.Unlock()
	m.router.ApplyRoutes()
	return m.ws
}

// Listen mounts the pipeline and routes, then serves until ctx is cancelled
// or a shutdown signal arrives. An empty port falls back to $PORT or 3000.
func (m *MicroAPI) Listen(ctx context.Context, port string, info *console.AppInfo) error {
	ws := m.Mount()

	cfg := axon.DefaultServerConfig()
	cfg.Host = m.host
	cfg.Port = strings.TrimPrefix(port, ":")
	if cfg.Port == "" {
		cfg.Port = os.Getenv("PORT")
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if m.shutdownTimeout > 0 {
		cfg.ShutdownTimeout = m.shutdownTimeout
	}

	srv := axon.NewServer(ws, cfg, m.logger)
	srv.OnShutdown(func(context.Context) error {
		m.logger.Info("server shutting down")
		return nil
	})

	m.console.Banner(info, srv.Addr(), m.environment, ws.Name())
	m.console.Routes(m.routeInfo())
	return srv.Run(ctx)
}

func (m *MicroAPI) routeInfo() []axon.RouteInfo {
	defs := m.router.Routes()
	out := make([]axon.RouteInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, axon.RouteInfo{
			Method:     def.Verb,
			Path:       def.Path,
			StatusCode: 200,
			Handler:    def.Handler,
		})
	}
	return out
}
