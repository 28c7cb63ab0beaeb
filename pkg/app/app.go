// Package app is the application shell around the route builder: it owns
// the container, the middleware pipeline, the view engine and the listener,
// and calls the lifecycle hooks in order.
//
//	a := app.New(adapters.NewDefaultChiAdapter(), app.WithHooks(app.Hooks{
//		ConfigureServices: func(a *app.App) error {
//			a.Middleware().Add(pipeline.RequestID())
//			return nil
//		},
//	}))
//	a.ConfigContainer(userModule)
//	a.SetGlobalRoutePrefix("/api")
//	err := a.Listen(ctx, "3000", &console.AppInfo{AppName: "users"})
package app

import (
	"context"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/toyz/axonroute/internal/console"
	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/di"
	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/pipeline"
	"github.com/toyz/axonroute/pkg/render"
	"github.com/toyz/axonroute/pkg/server"
)

// Hooks are called by the application at fixed points of its lifecycle.
// Any of them may be nil.
type Hooks struct {
	// GlobalConfiguration runs in New, before anything else
	GlobalConfiguration func(*App) error
	// ConfigureServices runs at the start of Build
	ConfigureServices func(*App) error
	// PostServerInitialization runs once routes are mounted, right before
	// the listener starts
	PostServerInitialization func(*App) error
	// ServerShutdown runs after the listener stopped
	ServerShutdown func(context.Context, *App) error
}

// App wires a container, a pipeline and a web server together
type App struct {
	ws        axon.WebServerInterface
	config    *Config
	hooks     Hooks
	logger    *zap.Logger
	console   *console.Console
	registry  *metadata.Registry
	routes    axon.RouteRegistry
	container *di.Container
	pipeline  *pipeline.Manager

	globalPrefix  string
	engine        render.Engine
	renderOptions render.Options
	serverOptions []server.Option
	metrics       prometheus.Registerer
	gatherer      prometheus.Gatherer
	exit          func(int)

	mu    sync.Mutex
	built bool
	srv   *axon.Server
}

// Option configures an App
type Option func(*App)

// WithConfig replaces DefaultConfig()
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		if cfg != nil {
			a.config = cfg
		}
	}
}

// WithHooks sets the lifecycle hooks, replacing any set before
func WithHooks(h Hooks) Option {
	return func(a *App) {
		a.hooks = h
	}
}

// WithLogger sets the application logger. A nil logger keeps the default.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithConsole replaces the stdout console used for the banner
func WithConsole(c *console.Console) Option {
	return func(a *App) {
		a.console = c
	}
}

// WithRegistry reads controller declarations from reg instead of metadata.Default()
func WithRegistry(reg *metadata.Registry) Option {
	return func(a *App) {
		a.registry = reg
	}
}

// WithRouteRegistry records mounted routes in reg instead of axon.DefaultRouteRegistry
func WithRouteRegistry(reg axon.RouteRegistry) Option {
	return func(a *App) {
		a.routes = reg
	}
}

// WithServerOptions passes extra options to server.New
func WithServerOptions(opts ...server.Option) Option {
	return func(a *App) {
		a.serverOptions = append(a.serverOptions, opts...)
	}
}

// WithMetricsRegistry registers pipeline metrics on r and serves them from g
func WithMetricsRegistry(r prometheus.Registerer, g prometheus.Gatherer) Option {
	return func(a *App) {
		a.metrics = r
		a.gatherer = g
	}
}

// WithExitFunc replaces os.Exit for fatal configuration errors
func WithExitFunc(exit func(int)) Option {
	return func(a *App) {
		a.exit = exit
	}
}

// New creates an application serving on ws and runs the
// GlobalConfiguration hook
func New(ws axon.WebServerInterface, opts ...Option) *App {
	a := &App{
		ws:       ws,
		config:   DefaultConfig(),
		logger:   zap.NewNop(),
		console:  console.New(nil),
		registry: metadata.Default(),
		routes:   axon.DefaultRouteRegistry,
		pipeline: pipeline.NewManager(),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.globalPrefix = axon.NormalizePath(a.config.GlobalPrefix)
	if a.config.Views.Engine != "" {
		a.SetEngine(render.Engine(a.config.Views.Engine), render.Options{
			ViewsDir:  a.config.Views.Dir,
			Extension: a.config.Views.Extension,
			Partials:  a.config.Views.Partials,
		})
	}

	if a.hooks.GlobalConfiguration != nil {
		if err := a.hooks.GlobalConfiguration(a); err != nil {
			a.logger.Error("global configuration failed", zap.Error(err))
		}
	}
	return a
}

// ConfigContainer creates the application container and loads modules into it
func (a *App) ConfigContainer(modules ...di.Module) (*di.Container, error) {
	if len(modules) == 0 {
		a.logger.Error("no modules provided for container configuration")
		return nil, axonerrors.ConfigurationError("container", "no modules provided")
	}
	c := di.New()
	if err := c.Load(modules...); err != nil {
		return nil, axonerrors.WrapConfigurationError("container", "load", err)
	}
	a.container = c
	return c, nil
}

// Container returns the container created by ConfigContainer
func (a *App) Container() *di.Container {
	return a.container
}

// Middleware returns the application pipeline
func (a *App) Middleware() *pipeline.Manager {
	return a.pipeline
}

// Config returns the active configuration
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// SetGlobalRoutePrefix mounts every controller and scoped middleware below prefix
func (a *App) SetGlobalRoutePrefix(prefix string) {
	a.globalPrefix = axon.NormalizePath(prefix)
}

// GlobalRoutePrefix returns the normalized prefix
func (a *App) GlobalRoutePrefix() string {
	return a.globalPrefix
}

// SetEngine selects the view engine used for methods declared with Render.
// The engine is created during Build.
func (a *App) SetEngine(engine render.Engine, opts ...render.Options) {
	a.engine = engine
	if len(opts) > 0 {
		a.renderOptions = opts[0]
	}
}

// SetEnvironment overrides the configured environment
func (a *App) SetEnvironment(env string) {
	a.config.Environment = env
}

// IsDevelopment reports whether the application runs in development. It is
// only meaningful once the application is built.
func (a *App) IsDevelopment() bool {
	a.mu.Lock()
	built := a.built
	a.mu.Unlock()
	if !built {
		a.logger.Error("IsDevelopment must be called from PostServerInitialization or later")
		return false
	}
	return a.config.Environment == Development
}

// HTTPServer returns the web server once the application is built
func (a *App) HTTPServer() (axon.WebServerInterface, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.built {
		return nil, axonerrors.ConfigurationError("server", "server instance not initialized yet")
	}
	return a.ws, nil
}

// Build runs ConfigureServices, installs the pipeline and mounts every
// controller. Calling it again returns the same web server.
func (a *App) Build() (axon.WebServerInterface, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return a.ws, nil
	}

	if a.container == nil {
		a.logger.Error("no container provided for application configuration")
		a.exit(1)
		return nil, axonerrors.ConfigurationError("container", "no container configured")
	}

	if a.hooks.ConfigureServices != nil {
		if err := a.hooks.ConfigureServices(a); err != nil {
			return nil, err
		}
	}
	a.addBuiltins()

	opts := []server.Option{
		server.WithRootPath(a.globalPrefix),
		server.WithLogger(a.logger),
		server.WithRegistry(a.registry),
		server.WithRouteRegistry(a.routes),
		server.WithStatusCodes(false),
	}
	if a.engine != "" {
		ro := a.renderOptions
		if ro.Logger == nil {
			ro.Logger = a.logger
		}
		if a.config.Environment == Development {
			ro.Reload = true
		}
		renderer, err := render.New(a.engine, ro)
		if err != nil {
			return nil, axonerrors.WrapConfigurationError("views", "create", err)
		}
		opts = append(opts, server.WithRenderer(renderer))
	}
	opts = append(opts, a.serverOptions...)

	srv := server.New(a.container, a.ws, opts...)
	srv.SetConfig(func(ws axon.WebServerInterface) {
		ws.Set("env", a.config.Environment)
		// status codes are applied before any other middleware
		ws.Use(server.StatusMiddleware(srv.Registry(), a.globalPrefix))
		a.pipeline.Mount(ws, a.globalPrefix)
	})
	srv.SetErrorConfig(func(ws axon.WebServerInterface) {
		if a.config.Pipeline.Metrics.Enabled {
			path := axon.JoinPaths(a.globalPrefix, a.config.Pipeline.Metrics.Path)
			ws.RegisterRoute("GET", axon.NewAxonPath(path), pipeline.MetricsEndpoint(a.gatherer))
		}
	})

	if _, err := srv.Build(); err != nil {
		return nil, err
	}
	a.built = true
	return a.ws, nil
}

// addBuiltins adds the middleware enabled in the pipeline configuration.
// Recovery is outermost, the others run before user middleware.
func (a *App) addBuiltins() {
	p := a.config.Pipeline
	if p.Recovery {
		a.pipeline.Add(pipeline.Recovery(a.logger), pipeline.WithPriority(math.MinInt))
	}
	if p.Metrics.Enabled {
		a.pipeline.Add(pipeline.Metrics(pipeline.MetricsConfig{
			Namespace:  p.Metrics.Namespace,
			Registerer: a.metrics,
		}), pipeline.WithPriority(math.MinInt+1))
	}
	if p.RequestID {
		a.pipeline.Add(pipeline.RequestID(), pipeline.WithPriority(math.MinInt+2))
	}
	if p.Logging {
		a.pipeline.Add(pipeline.RequestLogger(a.logger), pipeline.WithPriority(math.MinInt+3))
	}
	if p.RateLimit.Rate > 0 {
		a.pipeline.Add(pipeline.RateLimit(pipeline.RateLimitConfig{
			Rate:  p.RateLimit.Rate,
			Burst: p.RateLimit.Burst,
		}), pipeline.WithPriority(math.MinInt+4))
	}
}

// Listen builds the application, prints the banner and route table, runs
// PostServerInitialization and serves until ctx is cancelled or a shutdown
// signal arrives. ServerShutdown runs after the listener stopped. An empty
// port uses the configured one.
func (a *App) Listen(ctx context.Context, port string, info *console.AppInfo) error {
	ws, err := a.Build()
	if err != nil {
		return err
	}

	cfg := axon.DefaultServerConfig()
	cfg.Host = a.config.Host
	cfg.Port = strings.TrimPrefix(port, ":")
	if cfg.Port == "" {
		cfg.Port = a.config.Port
	}
	if a.config.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = a.config.ShutdownTimeout
	}

	srv := axon.NewServer(ws, cfg, a.logger)
	srv.OnShutdown(func(ctx context.Context) error {
		if a.hooks.ServerShutdown != nil {
			return a.hooks.ServerShutdown(ctx, a)
		}
		return nil
	})
	a.mu.Lock()
	a.srv = srv
	a.mu.Unlock()

	if info == nil && a.config.Name != "" {
		info = &console.AppInfo{AppName: a.config.Name, AppVersion: a.config.Version}
	}
	a.console.Banner(info, srv.Addr(), a.config.Environment, ws.Name())
	a.console.Routes(a.routes.GetAllRoutes())

	if a.hooks.PostServerInitialization != nil {
		if err := a.hooks.PostServerInitialization(a); err != nil {
			return err
		}
	}
	return srv.Run(ctx)
}
