package axon

import (
	"sort"
	"sync"
)

// MiddlewareInstance represents a middleware with its name and handler
type MiddlewareInstance struct {
	// Name is the middleware name as referenced by routes
	Name string

	// Handler is the middleware function that can be applied to routes
	Handler MiddlewareFunc

	// Instance is the actual middleware struct instance (if available)
	Instance interface{}
}

// MiddlewareRegistry provides access to all registered middlewares
type MiddlewareRegistry interface {
	// RegisterMiddleware adds a middleware to the registry
	RegisterMiddleware(name string, handler MiddlewareFunc, instance interface{})

	// GetMiddleware retrieves a middleware by name
	GetMiddleware(name string) (MiddlewareInstance, bool)

	// GetAllMiddlewares returns all registered middlewares sorted by name
	GetAllMiddlewares() []MiddlewareInstance
}

// inMemoryMiddlewareRegistry implements MiddlewareRegistry
type inMemoryMiddlewareRegistry struct {
	mu          sync.RWMutex
	middlewares map[string]MiddlewareInstance
}

// NewInMemoryMiddlewareRegistry creates a new in-memory middleware registry
func NewInMemoryMiddlewareRegistry() MiddlewareRegistry {
	return &inMemoryMiddlewareRegistry{
		middlewares: make(map[string]MiddlewareInstance),
	}
}

func (r *inMemoryMiddlewareRegistry) RegisterMiddleware(name string, handler MiddlewareFunc, instance interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares[name] = MiddlewareInstance{
		Name:     name,
		Handler:  handler,
		Instance: instance,
	}
}

func (r *inMemoryMiddlewareRegistry) GetMiddleware(name string) (MiddlewareInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	middleware, exists := r.middlewares[name]
	return middleware, exists
}

func (r *inMemoryMiddlewareRegistry) GetAllMiddlewares() []MiddlewareInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]MiddlewareInstance, 0, len(r.middlewares))
	for _, middleware := range r.middlewares {
		result = append(result, middleware)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// DefaultMiddlewareRegistry is the global middleware registry
var DefaultMiddlewareRegistry MiddlewareRegistry = NewInMemoryMiddlewareRegistry()

// RouteInfo contains metadata about a mounted route
type RouteInfo struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, ALL, etc.)
	Method string

	// Path is the full mounted path including any global prefix (e.g., "/api/users/:id")
	Path string

	// HandlerName is the name of the controller method
	HandlerName string

	// ControllerName is the name of the controller that owns this route
	ControllerName string

	// PackageName is the import path of the controller package
	PackageName string

	// Middlewares is a list of middleware names applied to this route
	Middlewares []string

	// MiddlewareInstances provides access to the actual middleware instances
	MiddlewareInstances []MiddlewareInstance

	// ParameterTypes maps parameter names to their types (e.g., {"id": "int", "slug": "string"})
	ParameterTypes map[string]string

	// StatusCode is the status the route answers with when the handler does not override it
	StatusCode int

	// Handler is the fully resolved handler, excluding middlewares
	Handler HandlerFunc
}

// RouteRegistry provides access to all mounted routes in the application
type RouteRegistry interface {
	// GetAllRoutes returns all registered routes
	GetAllRoutes() []RouteInfo

	// GetRoutesByPackage returns routes filtered by package name
	GetRoutesByPackage(packageName string) []RouteInfo

	// GetRoutesByController returns routes filtered by controller name
	GetRoutesByController(controllerName string) []RouteInfo

	// GetRoutesByMethod returns routes filtered by HTTP method
	GetRoutesByMethod(method string) []RouteInfo

	// RegisterRoute adds a route to the registry
	RegisterRoute(route RouteInfo)
}

// DefaultRouteRegistry is the global route registry instance
var DefaultRouteRegistry RouteRegistry = NewInMemoryRouteRegistry()

// InMemoryRouteRegistry implements RouteRegistry using an in-memory slice
type InMemoryRouteRegistry struct {
	mu     sync.RWMutex
	routes []RouteInfo
}

// NewInMemoryRouteRegistry creates a new in-memory route registry
func NewInMemoryRouteRegistry() *InMemoryRouteRegistry {
	return &InMemoryRouteRegistry{
		routes: make([]RouteInfo, 0),
	}
}

// GetAllRoutes returns all registered routes
func (r *InMemoryRouteRegistry) GetAllRoutes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RouteInfo(nil), r.routes...) // Return a copy
}

func (r *InMemoryRouteRegistry) filter(keep func(RouteInfo) bool) []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var filtered []RouteInfo
	for _, route := range r.routes {
		if keep(route) {
			filtered = append(filtered, route)
		}
	}
	return filtered
}

// GetRoutesByPackage returns routes filtered by package name
func (r *InMemoryRouteRegistry) GetRoutesByPackage(packageName string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool { return route.PackageName == packageName })
}

// GetRoutesByController returns routes filtered by controller name
func (r *InMemoryRouteRegistry) GetRoutesByController(controllerName string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool { return route.ControllerName == controllerName })
}

// GetRoutesByMethod returns routes filtered by HTTP method
func (r *InMemoryRouteRegistry) GetRoutesByMethod(method string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool { return route.Method == method })
}

// RegisterRoute adds a route to the registry
func (r *InMemoryRouteRegistry) RegisterRoute(route RouteInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Reset drops all recorded routes
func (r *InMemoryRouteRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = r.routes[:0]
}

// RegisterAllRoutes mounts every route of reg on ws, applying the named
// middleware instances recorded with each route
func RegisterAllRoutes(ws WebServerInterface, reg RouteRegistry) {
	for _, route := range reg.GetAllRoutes() {
		mws := make([]MiddlewareFunc, 0, len(route.MiddlewareInstances))
		for _, mw := range route.MiddlewareInstances {
			if mw.Handler != nil {
				mws = append(mws, mw.Handler)
			}
		}
		ws.RegisterRoute(route.Method, AxonPath(route.Path), route.Handler, mws...)
	}
}

// GetRoutes returns all registered routes (convenience function)
func GetRoutes() []RouteInfo {
	return DefaultRouteRegistry.GetAllRoutes()
}

// GetRoutesByPackage returns routes for a specific package (convenience function)
func GetRoutesByPackage(packageName string) []RouteInfo {
	return DefaultRouteRegistry.GetRoutesByPackage(packageName)
}

// GetRoutesByController returns routes for a specific controller (convenience function)
func GetRoutesByController(controllerName string) []RouteInfo {
	return DefaultRouteRegistry.GetRoutesByController(controllerName)
}

// Middleware convenience functions

// RegisterMiddleware registers a middleware with the global registry
func RegisterMiddleware(name string, handler MiddlewareFunc, instance interface{}) {
	DefaultMiddlewareRegistry.RegisterMiddleware(name, handler, instance)
}

// GetMiddleware retrieves a middleware by name from the global registry
func GetMiddleware(name string) (MiddlewareInstance, bool) {
	return DefaultMiddlewareRegistry.GetMiddleware(name)
}

// GetAllMiddlewares returns all registered middlewares from the global registry
func GetAllMiddlewares() []MiddlewareInstance {
	return DefaultMiddlewareRegistry.GetAllMiddlewares()
}

// GetMiddlewaresByRoute returns the middleware instances for a specific route
func GetMiddlewaresByRoute(route RouteInfo) []MiddlewareInstance {
	return route.MiddlewareInstances
}
