package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/toyz/axonroute/pkg/axon"
)

const ginErrorKey = "axon.error"

// GinAdapter implements axon.WebServerInterface for Gin framework
type GinAdapter struct {
	axon.Settings
	engine       *gin.Engine
	errorHandler axon.ErrorHandler
	server       *http.Server
}

// NewGinAdapter creates a new Gin adapter. The adapter installs an error
// boundary as the engine's first middleware, so it should be created before
// any route is added to g.
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	ga := &GinAdapter{engine: g, errorHandler: axon.DefaultErrorHandler}
	g.Use(ga.errorBoundary)
	return ga
}

// NewDefaultGinAdapter creates a new Gin adapter with default Gin instance
func NewDefaultGinAdapter() *GinAdapter {
	return NewGinAdapter(gin.New())
}

// ginPath converts AxonPath to Gin path format. Gin catch-alls must be named.
func ginPath(path axon.AxonPath) string {
	p := path.ColonPath()
	if strings.HasSuffix(p, "*") {
		p += "path"
	}
	return p
}

// RegisterRoute registers a route with the Gin server
func (ga *GinAdapter) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	ga.handle(&ga.engine.RouterGroup, method, path, handler, middlewares)
}

func (ga *GinAdapter) handle(group *gin.RouterGroup, method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares []axon.MiddlewareFunc) {
	handlers := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	for _, middleware := range middlewares {
		handlers = append(handlers, ga.convertMiddleware(middleware))
	}
	handlers = append(handlers, ga.convertHandler(handler))

	if method == axon.MethodAll {
		group.Any(ginPath(path), handlers...)
		return
	}
	group.Handle(method, ginPath(path), handlers...)
}

// RegisterGroup registers a route group with the Gin server
func (ga *GinAdapter) RegisterGroup(prefix string) axon.RouteGroup {
	ginGroup := ga.engine.Group(prefix)
	return &GinRouteGroup{group: ginGroup, adapter: ga}
}

// Use registers a global middleware with the Gin server. Like gin itself,
// it only applies to routes registered afterwards.
func (ga *GinAdapter) Use(middleware axon.MiddlewareFunc) {
	ga.engine.Use(ga.convertMiddleware(middleware))
}

// SetErrorHandler replaces the handler used for errors returned by routes
func (ga *GinAdapter) SetErrorHandler(handler axon.ErrorHandler) {
	ga.errorHandler = handler
}

// Start starts the Gin server
func (ga *GinAdapter) Start(addr string) error {
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	err := ga.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the Gin server down
func (ga *GinAdapter) Stop(ctx context.Context) error {
	if ga.server == nil {
		return nil
	}
	return ga.server.Shutdown(ctx)
}

// ServeHTTP dispatches a request through Gin
func (ga *GinAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ga.engine.ServeHTTP(w, r)
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

// GinRouteGroup implements axon.RouteGroup for Gin
type GinRouteGroup struct {
	group   *gin.RouterGroup
	adapter *GinAdapter
}

// RegisterRoute registers a route within the group
func (grg *GinRouteGroup) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	grg.adapter.handle(grg.group, method, path, handler, middlewares)
}

// Use registers middleware with the group
func (grg *GinRouteGroup) Use(middleware axon.MiddlewareFunc) {
	grg.group.Use(grg.adapter.convertMiddleware(middleware))
}

// Group creates a sub-group
func (grg *GinRouteGroup) Group(prefix string) axon.RouteGroup {
	subGroup := grg.group.Group(prefix)
	return &GinRouteGroup{group: subGroup, adapter: grg.adapter}
}

// errorBoundary runs the rest of the chain and reports whatever error
// bubbled back out of it
func (ga *GinAdapter) errorBoundary(c *gin.Context) {
	pending := &pendingError{}
	c.Set(ginErrorKey, pending)
	c.Next()
	if err := pending.take(); err != nil {
		ga.errorHandler(err, &GinRequestContext{ctx: c})
	}
}

func pendingOf(c *gin.Context) *pendingError {
	if v, ok := c.Get(ginErrorKey); ok {
		return v.(*pendingError)
	}
	return nil
}

// convertHandler converts axon.HandlerFunc to gin.HandlerFunc
func (ga *GinAdapter) convertHandler(handler axon.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&GinRequestContext{ctx: c}); err != nil {
			if pending := pendingOf(c); pending != nil {
				pending.err = err
				return
			}
			ga.errorHandler(err, &GinRequestContext{ctx: c})
		}
	}
}

// convertMiddleware converts axon.MiddlewareFunc to gin.HandlerFunc. A
// middleware that returns without calling next aborts the gin chain.
func (ga *GinAdapter) convertMiddleware(middleware axon.MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := func(rc axon.RequestContext) error {
			called = true
			c.Next()
			return pendingOf(c).take()
		}

		err := middleware(next)(&GinRequestContext{ctx: c})
		if !called {
			c.Abort()
		}
		if err != nil {
			if pending := pendingOf(c); pending != nil {
				pending.err = err
				return
			}
			c.Abort()
			ga.errorHandler(err, &GinRequestContext{ctx: c})
		}
	}
}

// GinRequestContext implements axon.RequestContext for Gin
type GinRequestContext struct {
	ctx *gin.Context
}

// Method returns the HTTP method
func (grc *GinRequestContext) Method() string {
	return grc.ctx.Request.Method
}

// Path returns the request path
func (grc *GinRequestContext) Path() string {
	return grc.ctx.Request.URL.Path
}

// Context returns the request context
func (grc *GinRequestContext) Context() context.Context {
	return grc.ctx.Request.Context()
}

// Param returns a path parameter
func (grc *GinRequestContext) Param(name string) string {
	if name == "*" {
		// Gin keeps the leading slash on catch-all values
		return strings.TrimPrefix(grc.ctx.Param("path"), "/")
	}
	return grc.ctx.Param(name)
}

// QueryParam returns a query parameter
func (grc *GinRequestContext) QueryParam(name string) string {
	return grc.ctx.Query(name)
}

// QueryParams returns all query parameters
func (grc *GinRequestContext) QueryParams() map[string][]string {
	return grc.ctx.Request.URL.Query()
}

// RealIP returns the real IP address
func (grc *GinRequestContext) RealIP() string {
	return grc.ctx.ClientIP()
}

// ParamNames returns parameter names
func (grc *GinRequestContext) ParamNames() []string {
	names := make([]string, 0, len(grc.ctx.Params))
	for _, param := range grc.ctx.Params {
		names = append(names, param.Key)
	}
	return names
}

// ParamValues returns parameter values
func (grc *GinRequestContext) ParamValues() []string {
	values := make([]string, 0, len(grc.ctx.Params))
	for _, param := range grc.ctx.Params {
		values = append(values, param.Value)
	}
	return values
}

// SetParam sets a parameter value, replacing an existing one
func (grc *GinRequestContext) SetParam(name, value string) {
	for i, param := range grc.ctx.Params {
		if param.Key == name {
			grc.ctx.Params[i].Value = value
			return
		}
	}
	grc.ctx.Params = append(grc.ctx.Params, gin.Param{Key: name, Value: value})
}

// QueryString returns the query string
func (grc *GinRequestContext) QueryString() string {
	return grc.ctx.Request.URL.RawQuery
}

// Request returns the request interface
func (grc *GinRequestContext) Request() axon.RequestInterface {
	return &GinRequestInterface{ctx: grc.ctx}
}

// Response returns the response interface
func (grc *GinRequestContext) Response() axon.ResponseInterface {
	return &GinResponseInterface{ctx: grc.ctx}
}

// Bind binds request body to a struct
func (grc *GinRequestContext) Bind(i interface{}) error {
	return grc.ctx.ShouldBind(i)
}

// Validate validates a struct using gin's binding validator
func (grc *GinRequestContext) Validate(i interface{}) error {
	if binding.Validator == nil {
		return nil
	}
	return binding.Validator.ValidateStruct(i)
}

// Get returns a value from context
func (grc *GinRequestContext) Get(key string) interface{} {
	value, _ := grc.ctx.Get(key)
	return value
}

// Set sets a value in context
func (grc *GinRequestContext) Set(key string, val interface{}) {
	grc.ctx.Set(key, val)
}

// FormValue returns a form value
func (grc *GinRequestContext) FormValue(name string) string {
	if v, ok := grc.ctx.GetPostForm(name); ok {
		return v
	}
	return grc.ctx.Query(name)
}

// FormParams returns all form parameters
func (grc *GinRequestContext) FormParams() (map[string][]string, error) {
	if strings.HasPrefix(grc.ctx.ContentType(), "multipart/") {
		if err := grc.ctx.Request.ParseMultipartForm(defaultMultipartMemory); err != nil {
			return nil, err
		}
	} else if err := grc.ctx.Request.ParseForm(); err != nil {
		return nil, err
	}
	return grc.ctx.Request.Form, nil
}

// FormFile returns a form file
func (grc *GinRequestContext) FormFile(name string) (axon.FileHeader, error) {
	header, err := grc.ctx.FormFile(name)
	if err != nil {
		return nil, err
	}
	return &StdFileHeader{header: header}, nil
}

// MultipartForm returns the multipart form
func (grc *GinRequestContext) MultipartForm() (axon.MultipartForm, error) {
	form, err := grc.ctx.MultipartForm()
	if err != nil {
		return nil, err
	}
	return &StdMultipartForm{form: form}, nil
}

// GinRequestInterface implements axon.RequestInterface for Gin
type GinRequestInterface struct {
	ctx *gin.Context
}

// Header returns a request header
func (gri *GinRequestInterface) Header(key string) string {
	return gri.ctx.GetHeader(key)
}

// Headers returns all request headers
func (gri *GinRequestInterface) Headers() map[string][]string {
	return gri.ctx.Request.Header
}

// SetHeader sets a request header
func (gri *GinRequestInterface) SetHeader(key, value string) {
	gri.ctx.Request.Header.Set(key, value)
}

// Body returns the request body
func (gri *GinRequestInterface) Body() []byte {
	return readBody(gri.ctx.Request)
}

// ContentLength returns the content length
func (gri *GinRequestInterface) ContentLength() int64 {
	return gri.ctx.Request.ContentLength
}

// ContentType returns the content type
func (gri *GinRequestInterface) ContentType() string {
	return gri.ctx.ContentType()
}

// Cookies returns the request cookies
func (gri *GinRequestInterface) Cookies() []axon.AxonCookie {
	return cookiesOf(gri.ctx.Request)
}

// Cookie returns a specific cookie
func (gri *GinRequestInterface) Cookie(name string) (axon.AxonCookie, error) {
	c, err := gri.ctx.Request.Cookie(name)
	if err != nil {
		return axon.AxonCookie{}, err
	}
	return axon.CookieFromHTTP(c), nil
}

// GinResponseInterface implements axon.ResponseInterface for Gin
type GinResponseInterface struct {
	ctx *gin.Context
}

// Status returns the response status code
func (gri *GinResponseInterface) Status() int {
	return gri.ctx.Writer.Status()
}

// SetStatus sets the response status code
func (gri *GinResponseInterface) SetStatus(code int) {
	gri.ctx.Status(code)
}

// Header returns a response header
func (gri *GinResponseInterface) Header(key string) string {
	return gri.ctx.Writer.Header().Get(key)
}

// SetHeader sets a response header
func (gri *GinResponseInterface) SetHeader(key, value string) {
	gri.ctx.Header(key, value)
}

// JSON writes a JSON response
func (gri *GinResponseInterface) JSON(code int, i interface{}) error {
	gri.ctx.JSON(code, i)
	return nil
}

// JSONPretty writes a pretty JSON response
func (gri *GinResponseInterface) JSONPretty(code int, i interface{}, indent string) error {
	b, err := json.MarshalIndent(i, "", indent)
	if err != nil {
		return err
	}
	gri.ctx.Data(code, "application/json; charset=utf-8", b)
	return nil
}

// String writes a string response
func (gri *GinResponseInterface) String(code int, s string) error {
	gri.ctx.Data(code, "text/plain; charset=utf-8", []byte(s))
	return nil
}

// HTML writes an HTML response
func (gri *GinResponseInterface) HTML(code int, html string) error {
	gri.ctx.Data(code, "text/html; charset=utf-8", []byte(html))
	return nil
}

// Blob writes a blob response
func (gri *GinResponseInterface) Blob(code int, contentType string, b []byte) error {
	gri.ctx.Data(code, contentType, b)
	return nil
}

// Stream writes a streaming response
func (gri *GinResponseInterface) Stream(code int, contentType string, r interface{}) error {
	if reader, ok := r.(io.Reader); ok {
		gri.ctx.DataFromReader(code, -1, contentType, reader, nil)
		return nil
	}
	return axon.NewHTTPError(http.StatusInternalServerError, "Invalid stream reader")
}

// NoContent writes only the status code
func (gri *GinResponseInterface) NoContent(code int) error {
	gri.ctx.Status(code)
	gri.ctx.Writer.WriteHeaderNow()
	return nil
}

// SetCookie sets a response cookie
func (gri *GinResponseInterface) SetCookie(cookie axon.AxonCookie) {
	http.SetCookie(gri.ctx.Writer, cookie.ToHTTP())
}

// Size returns the response size
func (gri *GinResponseInterface) Size() int64 {
	if size := gri.ctx.Writer.Size(); size > 0 {
		return int64(size)
	}
	return 0
}

// Written returns whether the response has been written
func (gri *GinResponseInterface) Written() bool {
	return gri.ctx.Writer.Written()
}

// Writer returns the underlying response writer
func (gri *GinResponseInterface) Writer() interface{} {
	return gri.ctx.Writer
}
