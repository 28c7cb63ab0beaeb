package axon

import (
	"context"
	"net/http"
	"time"
)

// MethodAll registers a route for every HTTP verb
const MethodAll = "ALL"

// WebServerInterface defines the contract for web server implementations
type WebServerInterface interface {
	// Route registration
	RegisterRoute(method string, path AxonPath, handler HandlerFunc, middlewares ...MiddlewareFunc)
	RegisterGroup(prefix string) RouteGroup

	// Global middleware
	Use(middleware MiddlewareFunc)

	// SetErrorHandler replaces the handler invoked for errors returned by routes
	SetErrorHandler(handler ErrorHandler)

	// Application settings
	Set(key string, value interface{})
	Setting(key string) interface{}

	// Server lifecycle
	Start(addr string) error
	Stop(ctx context.Context) error

	// ServeHTTP lets tests and embedding servers drive the adapter directly
	http.Handler

	// Server information
	Name() string
}

// RouteGroup represents a group of routes with a common prefix
type RouteGroup interface {
	RegisterRoute(method string, path AxonPath, handler HandlerFunc, middlewares ...MiddlewareFunc)
	Use(middleware MiddlewareFunc)
	Group(prefix string) RouteGroup
}

// RequestContext provides a framework-agnostic interface for handling HTTP requests
type RequestContext interface {
	// Request data
	Method() string
	Path() string
	RealIP() string
	Context() context.Context

	// Parameters
	Param(key string) string
	ParamNames() []string
	ParamValues() []string
	SetParam(name, value string)

	// Query parameters
	QueryParam(key string) string
	QueryParams() map[string][]string
	QueryString() string

	// Headers
	Request() RequestInterface
	Response() ResponseInterface

	// Body handling
	Bind(i interface{}) error
	Validate(i interface{}) error

	// Context data
	Get(key string) interface{}
	Set(key string, val interface{})

	// Request body
	FormValue(name string) string
	FormParams() (map[string][]string, error)
	FormFile(name string) (FileHeader, error)
	MultipartForm() (MultipartForm, error)
}

// RequestInterface provides access to the underlying request
type RequestInterface interface {
	Header(key string) string
	Headers() map[string][]string
	SetHeader(key, value string)
	Body() []byte
	ContentLength() int64
	ContentType() string
	Cookies() []AxonCookie
	Cookie(name string) (AxonCookie, error)
}

// ResponseInterface provides response writing capabilities
type ResponseInterface interface {
	// Status
	Status() int
	SetStatus(code int)

	// Headers
	Header(key string) string
	SetHeader(key, value string)

	// Content
	JSON(code int, i interface{}) error
	JSONPretty(code int, i interface{}, indent string) error
	String(code int, s string) error
	HTML(code int, html string) error
	Blob(code int, contentType string, b []byte) error
	Stream(code int, contentType string, r interface{}) error
	NoContent(code int) error

	// Cookies
	SetCookie(cookie AxonCookie)

	// Response data
	Size() int64
	Written() bool
	Writer() interface{} // Framework-specific writer
}

// HandlerFunc defines the signature for HTTP handlers
type HandlerFunc func(RequestContext) error

// MiddlewareFunc defines the signature for middleware
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// ErrorHandler receives errors returned from handlers and middleware
type ErrorHandler func(err error, ctx RequestContext)

// RouteKey is the context key holding the route template of the matched route
const RouteKey = "axon.route"

// Chain wraps handler so that the first middleware is the outermost
func Chain(handler HandlerFunc, middlewares ...MiddlewareFunc) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// AxonCookie represents an HTTP cookie
type AxonCookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite SameSiteMode
}

// SameSiteMode defines cookie SameSite attribute modes
type SameSiteMode int

const (
	SameSiteDefaultMode SameSiteMode = iota
	SameSiteLaxMode
	SameSiteStrictMode
	SameSiteNoneMode
)

// CookieFromHTTP converts a net/http cookie
func CookieFromHTTP(c *http.Cookie) AxonCookie {
	return AxonCookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: sameSiteFromHTTP(c.SameSite),
	}
}

// ToHTTP converts the cookie for net/http based writers
func (c AxonCookie) ToHTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: sameSiteToHTTP(c.SameSite),
	}
}

func sameSiteFromHTTP(s http.SameSite) SameSiteMode {
	switch s {
	case http.SameSiteStrictMode:
		return SameSiteStrictMode
	case http.SameSiteLaxMode:
		return SameSiteLaxMode
	case http.SameSiteNoneMode:
		return SameSiteNoneMode
	default:
		return SameSiteDefaultMode
	}
}

func sameSiteToHTTP(s SameSiteMode) http.SameSite {
	switch s {
	case SameSiteStrictMode:
		return http.SameSiteStrictMode
	case SameSiteLaxMode:
		return http.SameSiteLaxMode
	case SameSiteNoneMode:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}

// FileHeader represents an uploaded file
type FileHeader interface {
	Filename() string
	Header() map[string][]string
	Size() int64
	Open() (interface{}, error) // Returns framework-specific file
}

// MultipartForm represents a parsed multipart form
type MultipartForm interface {
	Value() map[string][]string
	File() map[string][]FileHeader
}

// Settings is an embeddable key/value store backing WebServerInterface.Set
type Settings struct {
	values map[string]interface{}
}

// Set stores an application setting
func (s *Settings) Set(key string, value interface{}) {
	if s.values == nil {
		s.values = make(map[string]interface{})
	}
	s.values[key] = value
}

// Setting returns an application setting or nil
func (s *Settings) Setting(key string) interface{} {
	return s.values[key]
}

// Well known setting keys
const (
	SettingEnv        = "env"
	SettingViewEngine = "view engine"
	SettingViews      = "views"
)
