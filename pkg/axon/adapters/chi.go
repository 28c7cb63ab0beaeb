package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/toyz/axonroute/pkg/axon"
)

// ChiAdapter implements axon.WebServerInterface on top of a chi router.
// Middleware is composed in axon terms at request time, so Use may be
// called before or after routes are registered.
type ChiAdapter struct {
	axon.Settings
	mux          *chi.Mux
	errorHandler axon.ErrorHandler
	server       *http.Server

	mu     sync.RWMutex
	global []axon.MiddlewareFunc
}

// NewChiAdapter creates a new chi adapter
func NewChiAdapter(mux *chi.Mux) *ChiAdapter {
	return &ChiAdapter{mux: mux, errorHandler: axon.DefaultErrorHandler}
}

// NewDefaultChiAdapter creates a chi adapter with panic recovery
func NewDefaultChiAdapter() *ChiAdapter {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	return NewChiAdapter(mux)
}

// RegisterRoute registers a route with the chi router
func (ca *ChiAdapter) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	ca.handle(nil, method, path, handler, middlewares)
}

func (ca *ChiAdapter) handle(group *ChiRouteGroup, method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares []axon.MiddlewareFunc) {
	routePath := path.BracePath()
	if group != nil {
		routePath = group.fullPrefix() + routePath
	}
	if routePath == "" {
		routePath = "/"
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := newChiRequestContext(w, r)
		chain := append(ca.globals(), group.chain()...)
		chain = append(chain, middlewares...)
		if err := axon.Chain(handler, chain...)(ctx); err != nil {
			ca.errorHandler(err, ctx)
		}
	})

	if method == axon.MethodAll {
		ca.mux.Handle(routePath, h)
		return
	}
	ca.mux.Method(strings.ToUpper(method), routePath, h)
}

func (ca *ChiAdapter) globals() []axon.MiddlewareFunc {
	ca.mu.RLock()
	defer ca.mu.RUnlock()
	return append([]axon.MiddlewareFunc(nil), ca.global...)
}

// RegisterGroup creates a route group with the given prefix
func (ca *ChiAdapter) RegisterGroup(prefix string) axon.RouteGroup {
	return &ChiRouteGroup{adapter: ca, prefix: prefix}
}

// Use adds global middleware
func (ca *ChiAdapter) Use(mw axon.MiddlewareFunc) {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	ca.global = append(ca.global, mw)
}

// SetErrorHandler replaces the handler used for errors returned by routes
func (ca *ChiAdapter) SetErrorHandler(handler axon.ErrorHandler) {
	ca.errorHandler = handler
}

// Start starts the HTTP server
func (ca *ChiAdapter) Start(addr string) error {
	ca.server = &http.Server{Addr: addr, Handler: ca.mux}
	err := ca.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the HTTP server down
func (ca *ChiAdapter) Stop(ctx context.Context) error {
	if ca.server == nil {
		return nil
	}
	return ca.server.Shutdown(ctx)
}

// ServeHTTP dispatches a request through the chi router
func (ca *ChiAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ca.mux.ServeHTTP(w, r)
}

// Name returns the adapter name
func (ca *ChiAdapter) Name() string {
	return "Chi"
}

// GetRouter returns the underlying chi router
func (ca *ChiAdapter) GetRouter() *chi.Mux {
	return ca.mux
}

// ChiRouteGroup implements axon.RouteGroup as a path prefix plus
// middleware inherited from its parents
type ChiRouteGroup struct {
	adapter *ChiAdapter
	parent  *ChiRouteGroup
	prefix  string

	mu          sync.RWMutex
	middlewares []axon.MiddlewareFunc
}

func (g *ChiRouteGroup) fullPrefix() string {
	if g == nil {
		return ""
	}
	return strings.TrimSuffix(g.parent.fullPrefix()+g.prefix, "/")
}

func (g *ChiRouteGroup) chain() []axon.MiddlewareFunc {
	if g == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append(g.parent.chain(), g.middlewares...)
}

// RegisterRoute registers a route within the group
func (g *ChiRouteGroup) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	g.adapter.handle(g, method, path, handler, middlewares)
}

// Use adds middleware to the group
func (g *ChiRouteGroup) Use(mw axon.MiddlewareFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.middlewares = append(g.middlewares, mw)
}

// Group creates a sub-group
func (g *ChiRouteGroup) Group(prefix string) axon.RouteGroup {
	return &ChiRouteGroup{adapter: g.adapter, parent: g, prefix: prefix}
}

// ChiRequestContext implements axon.RequestContext over net/http
type ChiRequestContext struct {
	writer  middleware.WrapResponseWriter
	request *http.Request
	status  int
	store   map[string]interface{}
}

func newChiRequestContext(w http.ResponseWriter, r *http.Request) *ChiRequestContext {
	return &ChiRequestContext{
		writer:  middleware.NewWrapResponseWriter(w, r.ProtoMajor),
		request: r,
		status:  http.StatusOK,
		store:   make(map[string]interface{}),
	}
}

func (c *ChiRequestContext) routeParams() *chi.RouteParams {
	if rctx := chi.RouteContext(c.request.Context()); rctx != nil {
		return &rctx.URLParams
	}
	return &chi.RouteParams{}
}

// Method returns the HTTP method
func (c *ChiRequestContext) Method() string {
	return c.request.Method
}

// Path returns the request path
func (c *ChiRequestContext) Path() string {
	return c.request.URL.Path
}

// RealIP returns the client address, honouring proxy headers
func (c *ChiRequestContext) RealIP() string {
	return realIP(c.request)
}

// Context returns the request context
func (c *ChiRequestContext) Context() context.Context {
	return c.request.Context()
}

// Param returns a path parameter
func (c *ChiRequestContext) Param(key string) string {
	return chi.URLParam(c.request, key)
}

// ParamNames returns path parameter names
func (c *ChiRequestContext) ParamNames() []string {
	return c.routeParams().Keys
}

// ParamValues returns path parameter values
func (c *ChiRequestContext) ParamValues() []string {
	return c.routeParams().Values
}

// SetParam sets a path parameter, replacing an existing value
func (c *ChiRequestContext) SetParam(name, value string) {
	params := c.routeParams()
	for i := len(params.Keys) - 1; i >= 0; i-- {
		if params.Keys[i] == name {
			params.Values[i] = value
			return
		}
	}
	params.Add(name, value)
}

// QueryParam returns a query parameter
func (c *ChiRequestContext) QueryParam(key string) string {
	return c.request.URL.Query().Get(key)
}

// QueryParams returns all query parameters
func (c *ChiRequestContext) QueryParams() map[string][]string {
	return c.request.URL.Query()
}

// QueryString returns the raw query string
func (c *ChiRequestContext) QueryString() string {
	return c.request.URL.RawQuery
}

// Request returns the request interface
func (c *ChiRequestContext) Request() axon.RequestInterface {
	return &ChiRequest{request: c.request}
}

// Response returns the response interface
func (c *ChiRequestContext) Response() axon.ResponseInterface {
	return &ChiResponse{ctx: c}
}

// Bind decodes a JSON or form encoded body into i
func (c *ChiRequestContext) Bind(i interface{}) error {
	contentType := c.request.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"), contentType == "":
		body := readBody(c.request)
		if len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, i); err != nil {
			return axon.NewHTTPError(http.StatusBadRequest, err.Error(), err)
		}
		return nil
	default:
		return axon.NewHTTPError(http.StatusUnsupportedMediaType)
	}
}

// Validate is a no-op; chi ships no validator
func (c *ChiRequestContext) Validate(i interface{}) error {
	return nil
}

// Get retrieves request scoped data
func (c *ChiRequestContext) Get(key string) interface{} {
	return c.store[key]
}

// Set stores request scoped data
func (c *ChiRequestContext) Set(key string, val interface{}) {
	c.store[key] = val
}

// FormValue returns a form value
func (c *ChiRequestContext) FormValue(name string) string {
	return c.request.FormValue(name)
}

// FormParams returns all form parameters
func (c *ChiRequestContext) FormParams() (map[string][]string, error) {
	if strings.HasPrefix(c.request.Header.Get("Content-Type"), "multipart/") {
		if err := c.request.ParseMultipartForm(defaultMultipartMemory); err != nil {
			return nil, err
		}
	} else if err := c.request.ParseForm(); err != nil {
		return nil, err
	}
	return c.request.Form, nil
}

// FormFile returns an uploaded file
func (c *ChiRequestContext) FormFile(name string) (axon.FileHeader, error) {
	_, header, err := c.request.FormFile(name)
	if err != nil {
		return nil, err
	}
	return &StdFileHeader{header: header}, nil
}

// MultipartForm returns the parsed multipart form
func (c *ChiRequestContext) MultipartForm() (axon.MultipartForm, error) {
	if err := c.request.ParseMultipartForm(defaultMultipartMemory); err != nil {
		return nil, err
	}
	return &StdMultipartForm{form: c.request.MultipartForm}, nil
}

// ChiRequest implements axon.RequestInterface over *http.Request
type ChiRequest struct {
	request *http.Request
}

// Header returns a request header
func (r *ChiRequest) Header(key string) string {
	return r.request.Header.Get(key)
}

// Headers returns all request headers
func (r *ChiRequest) Headers() map[string][]string {
	return r.request.Header
}

// SetHeader sets a request header
func (r *ChiRequest) SetHeader(key, value string) {
	r.request.Header.Set(key, value)
}

// Body returns the request body
func (r *ChiRequest) Body() []byte {
	return readBody(r.request)
}

// ContentLength returns the content length
func (r *ChiRequest) ContentLength() int64 {
	return r.request.ContentLength
}

// ContentType returns the content type
func (r *ChiRequest) ContentType() string {
	return r.request.Header.Get("Content-Type")
}

// Cookies returns all cookies
func (r *ChiRequest) Cookies() []axon.AxonCookie {
	return cookiesOf(r.request)
}

// Cookie returns a specific cookie
func (r *ChiRequest) Cookie(name string) (axon.AxonCookie, error) {
	c, err := r.request.Cookie(name)
	if err != nil {
		return axon.AxonCookie{}, err
	}
	return axon.CookieFromHTTP(c), nil
}

// ChiResponse implements axon.ResponseInterface over a wrapped writer
type ChiResponse struct {
	ctx *ChiRequestContext
}

// Status returns the written status, or the pending one
func (r *ChiResponse) Status() int {
	if s := r.ctx.writer.Status(); s != 0 {
		return s
	}
	return r.ctx.status
}

// SetStatus sets the status used by the next write
func (r *ChiResponse) SetStatus(code int) {
	r.ctx.status = code
}

// Header returns a response header
func (r *ChiResponse) Header(key string) string {
	return r.ctx.writer.Header().Get(key)
}

// SetHeader sets a response header
func (r *ChiResponse) SetHeader(key, value string) {
	r.ctx.writer.Header().Set(key, value)
}

func (r *ChiResponse) write(code int, contentType string, body []byte) error {
	if contentType != "" {
		r.ctx.writer.Header().Set("Content-Type", contentType)
	}
	r.ctx.writer.WriteHeader(code)
	_, err := r.ctx.writer.Write(body)
	return err
}

// JSON writes a JSON response
func (r *ChiResponse) JSON(code int, i interface{}) error {
	b, err := json.Marshal(i)
	if err != nil {
		return err
	}
	return r.write(code, "application/json; charset=UTF-8", append(b, '\n'))
}

// JSONPretty writes an indented JSON response
func (r *ChiResponse) JSONPretty(code int, i interface{}, indent string) error {
	b, err := json.MarshalIndent(i, "", indent)
	if err != nil {
		return err
	}
	return r.write(code, "application/json; charset=UTF-8", append(b, '\n'))
}

// String writes a plain text response
func (r *ChiResponse) String(code int, s string) error {
	return r.write(code, "text/plain; charset=UTF-8", []byte(s))
}

// HTML writes an HTML response
func (r *ChiResponse) HTML(code int, html string) error {
	return r.write(code, "text/html; charset=UTF-8", []byte(html))
}

// Blob writes raw bytes
func (r *ChiResponse) Blob(code int, contentType string, b []byte) error {
	return r.write(code, contentType, b)
}

// Stream copies a reader to the response
func (r *ChiResponse) Stream(code int, contentType string, rd interface{}) error {
	reader, ok := rd.(io.Reader)
	if !ok {
		return axon.NewHTTPError(http.StatusInternalServerError, "Invalid stream reader")
	}
	r.ctx.writer.Header().Set("Content-Type", contentType)
	r.ctx.writer.WriteHeader(code)
	_, err := io.Copy(r.ctx.writer, reader)
	return err
}

// NoContent writes only the status code
func (r *ChiResponse) NoContent(code int) error {
	r.ctx.writer.WriteHeader(code)
	return nil
}

// SetCookie sets a response cookie
func (r *ChiResponse) SetCookie(cookie axon.AxonCookie) {
	http.SetCookie(r.ctx.writer, cookie.ToHTTP())
}

// Size returns the number of body bytes written
func (r *ChiResponse) Size() int64 {
	return int64(r.ctx.writer.BytesWritten())
}

// Written reports whether the status line has been sent
func (r *ChiResponse) Written() bool {
	return r.ctx.writer.Status() != 0
}

// Writer returns the underlying http.ResponseWriter
func (r *ChiResponse) Writer() interface{} {
	return r.ctx.writer
}
