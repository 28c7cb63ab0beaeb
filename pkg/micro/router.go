package micro

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
)

// RouteDefinition is a route registered through Router.Define
type RouteDefinition struct {
	Verb       string
	Path       string
	Handler    axon.HandlerFunc
	Middleware []axon.MiddlewareFunc
}

var verbs = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// Router collects route definitions and mounts them on a web server
type Router struct {
	ws     axon.WebServerInterface
	logger *zap.Logger

	mu      sync.Mutex
	prefix  string
	routes  []RouteDefinition
	applied int
}

func newRouter(ws axon.WebServerInterface, logger *zap.Logger) *Router {
	return &Router{ws: ws, logger: logger}
}

func (r *Router) setGlobalRoutePrefix(prefix string) {
	r.mu.Lock()
	r.prefix = prefix
	r.mu.Unlock()
}

// JoinPath appends path to prefix with exactly one slash between them
func JoinPath(prefix, path string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Define adds a route below the current global prefix. Only GET, POST,
// PUT, PATCH and DELETE are accepted.
func (r *Router) Define(verb, path string, handler axon.HandlerFunc, middleware ...axon.MiddlewareFunc) error {
	verb = strings.ToUpper(verb)
	if !verbs[verb] {
		return axonerrors.RegistrationFailed("route", verb+" "+path, "unsupported method")
	}
	if handler == nil {
		return axonerrors.RegistrationFailed("route", verb+" "+path, "handler is nil")
	}

	r.mu.Lock()
	full := JoinPath(r.prefix, path)
	r.routes = append(r.routes, RouteDefinition{
		Verb:       verb,
		Path:       full,
		Handler:    handler,
		Middleware: middleware,
	})
	r.mu.Unlock()

	r.logger.Info("route added", zap.String("method", verb), zap.String("path", full))
	return nil
}

// Get defines a GET route, see Define
func (r *Router) Get(path string, handler axon.HandlerFunc, middleware ...axon.MiddlewareFunc) error {
	return r.Define("GET", path, handler, middleware...)
}

// Post defines a POST route, see Define
func (r *Router) Post(path string, handler axon.HandlerFunc, middleware ...axon.MiddlewareFunc) error {
	return r.Define("POST", path, handler, middleware...)
}

// Put defines a PUT route, see Define
func (r *Router) Put(path string, handler axon.HandlerFunc, middleware ...axon.MiddlewareFunc) error {
	return r.Define("PUT", path, handler, middleware...)
}

// Patch defines a PATCH route, see Define
func (r *Router) Patch(path string, handler axon.HandlerFunc, middleware ...axon.MiddlewareFunc) error {
	return r.Define("PATCH", path, handler, middleware...)
}

// Delete defines a DELETE route, see Define
func (r *Router) Delete(path string, handler axon.HandlerFunc, middleware ...axon.MiddlewareFunc) error {
	return r.Define("DELETE", path, handler, middleware...)
}

// Routes returns a copy of the defined routes in definition order
func (r *Router) Routes() []RouteDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RouteDefinition(nil), r.routes...)
}

// ApplyRoutes mounts the routes defined since the previous call. Route
// middleware runs in definition order, before the handler.
func (r *Router) ApplyRoutes() {
	r.mu.Lock()
	pending := r.routes[r.applied:]
	r.applied = len(r.routes)
	r.mu.Unlock()

	for _, def := range pending {
		mws := append([]axon.MiddlewareFunc{routeTemplate(def.Path)}, def.Middleware...)
		r.ws.RegisterRoute(def.Verb, axon.NewAxonPath(def.Path), def.Handler, mws...)
	}
}

func routeTemplate(path string) axon.MiddlewareFunc {
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			ctx.Set(axon.RouteKey, path)
			return next(ctx)
		}
	}
}
