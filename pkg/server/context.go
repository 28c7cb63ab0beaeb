package server

import (
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/di"
)

// Service identifiers the builder binds in the container
const (
	TypeController   = "axon:controller"
	TypeHttpContext  = "axon:http_context"
	TypeAuthProvider = "axon:auth_provider"
)

// HttpContextKey is the request context key holding the *HttpContext
const HttpContextKey = "axon.http_context"

// HttpContext is created for every request before any route middleware
// runs. Container is a child of the application container, so bindings made
// through it only live for the request.
type HttpContext struct {
	Container *di.Container
	Request   axon.RequestContext
	Response  axon.ResponseInterface
	User      Principal
}

// HttpContextOf returns the HttpContext of the current request
func HttpContextOf(ctx axon.RequestContext) *HttpContext {
	hc, _ := ctx.Get(HttpContextKey).(*HttpContext)
	return hc
}

// Principal is the authenticated user of a request
type Principal interface {
	Details() interface{}
	IsAuthenticated() bool
	IsResourceOwner(resourceID interface{}) bool
	IsInRole(role string) bool
}

// AuthProvider resolves the principal of a request
type AuthProvider interface {
	GetUser(ctx axon.RequestContext) (Principal, error)
}

// AuthProviderFunc adapts a function to AuthProvider
type AuthProviderFunc func(ctx axon.RequestContext) (Principal, error)

// GetUser calls f
func (f AuthProviderFunc) GetUser(ctx axon.RequestContext) (Principal, error) {
	return f(ctx)
}

// ContextMiddleware is a container-resolved middleware that receives the
// request's HttpContext before it handles the request
type ContextMiddleware interface {
	SetHttpContext(hc *HttpContext)
	Handler(ctx axon.RequestContext, next axon.HandlerFunc) error
}

// BaseMiddleware is embedded by ContextMiddleware implementations
//
//	type Tenant struct{ server.BaseMiddleware }
//
//	func (t *Tenant) Handler(ctx axon.RequestContext, next axon.HandlerFunc) error {
//		t.Bind("tenant").ToConstantValue(ctx.Request().Header("X-Tenant"))
//		return next(ctx)
//	}
type BaseMiddleware struct {
	hc *HttpContext
}

// SetHttpContext implements ContextMiddleware
func (m *BaseMiddleware) SetHttpContext(hc *HttpContext) {
	m.hc = hc
}

// HttpContext returns the context of the request being handled
func (m *BaseMiddleware) HttpContext() *HttpContext {
	return m.hc
}

// Bind adds a binding to the request container, visible to the controller
// and to middleware resolved later in the chain
func (m *BaseMiddleware) Bind(id interface{}) *di.Binding {
	return m.hc.Container.Bind(id)
}
