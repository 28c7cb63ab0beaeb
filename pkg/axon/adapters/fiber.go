package adapters

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/toyz/axonroute/pkg/axon"
)

const (
	fiberWrittenKey = "axon.written"
	fiberParamsKey  = "axon.param_overrides"
)

// FiberAdapter wraps a Fiber app to implement axon.WebServerInterface
type FiberAdapter struct {
	axon.Settings
	app          *fiber.App
	errorHandler axon.ErrorHandler
	handler      http.HandlerFunc
}

// NewFiberAdapter creates a new Fiber adapter instance
func NewFiberAdapter() *FiberAdapter {
	fa := &FiberAdapter{errorHandler: axon.DefaultErrorHandler}
	fa.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				err = axon.NewHTTPError(fe.Code, fe.Message)
			}
			fa.errorHandler(err, &FiberRequestContext{ctx: c})
			return nil
		},
	})
	fa.handler = adaptor.FiberApp(fa.app)
	return fa
}

// NewDefaultFiberAdapter creates a new Fiber adapter with panic recovery
func NewDefaultFiberAdapter() *FiberAdapter {
	adapter := NewFiberAdapter()
	adapter.app.Use(recover.New())
	return adapter
}

// RegisterRoute registers a route with the Fiber app
func (fa *FiberAdapter) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	fa.add(fa.app, method, path, handler, middlewares)
}

func (fa *FiberAdapter) add(router fiber.Router, method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares []axon.MiddlewareFunc) {
	handlers := make([]fiber.Handler, 0, len(middlewares)+1)
	for _, mw := range middlewares {
		handlers = append(handlers, convertAxonMiddlewareToFiber(mw))
	}
	handlers = append(handlers, convertAxonHandlerToFiber(handler))

	fiberPath := path.ColonPath()
	if method == axon.MethodAll {
		router.All(fiberPath, handlers...)
		return
	}
	router.Add(strings.ToUpper(method), fiberPath, handlers...)
}

// RegisterGroup creates a new route group with the given prefix
func (fa *FiberAdapter) RegisterGroup(prefix string) axon.RouteGroup {
	fiberGroup := fa.app.Group(prefix)
	return &FiberRouteGroup{group: fiberGroup, adapter: fa}
}

// Use adds middleware to the Fiber app
func (fa *FiberAdapter) Use(middleware axon.MiddlewareFunc) {
	fa.app.Use(convertAxonMiddlewareToFiber(middleware))
}

// SetErrorHandler replaces the handler used for errors returned by routes
func (fa *FiberAdapter) SetErrorHandler(handler axon.ErrorHandler) {
	fa.errorHandler = handler
}

// Start starts the Fiber server
func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

// Stop stops the Fiber server
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// ServeHTTP bridges net/http requests into the Fiber app
func (fa *FiberAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fa.handler(w, r)
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

// FiberRouteGroup wraps a Fiber route group to implement axon.RouteGroup
type FiberRouteGroup struct {
	group   fiber.Router
	adapter *FiberAdapter
}

// RegisterRoute registers a route with this group
func (frg *FiberRouteGroup) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	frg.adapter.add(frg.group, method, path, handler, middlewares)
}

// Use adds middleware to this route group
func (frg *FiberRouteGroup) Use(middleware axon.MiddlewareFunc) {
	frg.group.Use(convertAxonMiddlewareToFiber(middleware))
}

// Group creates a sub-group with the given prefix
func (frg *FiberRouteGroup) Group(prefix string) axon.RouteGroup {
	subGroup := frg.group.Group(prefix)
	return &FiberRouteGroup{group: subGroup, adapter: frg.adapter}
}

// convertAxonHandlerToFiber converts an Axon handler to a Fiber handler.
// Errors flow to the app's ErrorHandler.
func convertAxonHandlerToFiber(handler axon.HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return handler(&FiberRequestContext{ctx: c})
	}
}

// convertAxonMiddlewareToFiber converts an Axon middleware to a Fiber handler
func convertAxonMiddlewareToFiber(middleware axon.MiddlewareFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		next := func(ctx axon.RequestContext) error {
			return c.Next()
		}
		return middleware(next)(&FiberRequestContext{ctx: c})
	}
}

// FiberRequestContext wraps Fiber context to implement axon.RequestContext
type FiberRequestContext struct {
	ctx *fiber.Ctx
}

// Method returns the HTTP method
func (frc *FiberRequestContext) Method() string {
	return frc.ctx.Method()
}

// Path returns the request path
func (frc *FiberRequestContext) Path() string {
	return frc.ctx.Path()
}

// RealIP returns the client IP address
func (frc *FiberRequestContext) RealIP() string {
	if ips := frc.ctx.IPs(); len(ips) > 0 {
		return ips[0]
	}
	return frc.ctx.IP()
}

// Context returns the request scoped context
func (frc *FiberRequestContext) Context() context.Context {
	return frc.ctx.UserContext()
}

func (frc *FiberRequestContext) overrides() map[string]string {
	if m, ok := frc.ctx.Locals(fiberParamsKey).(map[string]string); ok {
		return m
	}
	return nil
}

// Param returns a path parameter by name
func (frc *FiberRequestContext) Param(key string) string {
	if v, ok := frc.overrides()[key]; ok {
		return v
	}
	return frc.ctx.Params(key)
}

// ParamNames returns the route's parameter names
func (frc *FiberRequestContext) ParamNames() []string {
	route := frc.ctx.Route()
	names := make([]string, 0, len(route.Params))
	names = append(names, route.Params...)
	for name := range frc.overrides() {
		if !containsString(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// ParamValues returns parameter values aligned with ParamNames
func (frc *FiberRequestContext) ParamValues() []string {
	names := frc.ParamNames()
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = frc.Param(name)
	}
	return values
}

// SetParam overrides a path parameter for the rest of the request
func (frc *FiberRequestContext) SetParam(name, value string) {
	m := frc.overrides()
	if m == nil {
		m = make(map[string]string)
		frc.ctx.Locals(fiberParamsKey, m)
	}
	m[name] = value
}

// QueryParam returns a query parameter by name
func (frc *FiberRequestContext) QueryParam(key string) string {
	return frc.ctx.Query(key)
}

// QueryParams returns all query parameters
func (frc *FiberRequestContext) QueryParams() map[string][]string {
	params := make(map[string][]string)
	frc.ctx.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		params[k] = append(params[k], string(value))
	})
	return params
}

// QueryString returns the raw query string
func (frc *FiberRequestContext) QueryString() string {
	return string(frc.ctx.Request().URI().QueryString())
}

// Request returns the request interface
func (frc *FiberRequestContext) Request() axon.RequestInterface {
	return &FiberRequest{ctx: frc.ctx}
}

// Response returns the response interface
func (frc *FiberRequestContext) Response() axon.ResponseInterface {
	return &FiberResponse{ctx: frc.ctx}
}

// Bind binds the request body to the provided interface
func (frc *FiberRequestContext) Bind(i interface{}) error {
	return frc.ctx.BodyParser(i)
}

// Validate validates the provided interface. Fiber ships no validator.
func (frc *FiberRequestContext) Validate(i interface{}) error {
	return nil
}

// Get retrieves a value from the context
func (frc *FiberRequestContext) Get(key string) interface{} {
	return frc.ctx.Locals(key)
}

// Set stores a value in the context
func (frc *FiberRequestContext) Set(key string, val interface{}) {
	frc.ctx.Locals(key, val)
}

// FormValue returns a form value
func (frc *FiberRequestContext) FormValue(name string) string {
	return frc.ctx.FormValue(name)
}

// FormParams returns all form parameters
func (frc *FiberRequestContext) FormParams() (map[string][]string, error) {
	if strings.HasPrefix(string(frc.ctx.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := frc.ctx.MultipartForm()
		if err != nil {
			return nil, err
		}
		return form.Value, nil
	}
	params := make(map[string][]string)
	frc.ctx.Request().PostArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		params[k] = append(params[k], string(value))
	})
	return params, nil
}

// FormFile returns a form file
func (frc *FiberRequestContext) FormFile(name string) (axon.FileHeader, error) {
	fileHeader, err := frc.ctx.FormFile(name)
	if err != nil {
		return nil, err
	}
	return &StdFileHeader{header: fileHeader}, nil
}

// MultipartForm returns the multipart form
func (frc *FiberRequestContext) MultipartForm() (axon.MultipartForm, error) {
	form, err := frc.ctx.MultipartForm()
	if err != nil {
		return nil, err
	}
	return &StdMultipartForm{form: form}, nil
}

// FiberRequest wraps Fiber request to implement axon.RequestInterface
type FiberRequest struct {
	ctx *fiber.Ctx
}

// Header returns a request header
func (fr *FiberRequest) Header(key string) string {
	return fr.ctx.Get(key)
}

// Headers returns all request headers
func (fr *FiberRequest) Headers() map[string][]string {
	return fr.ctx.GetReqHeaders()
}

// SetHeader sets a request header
func (fr *FiberRequest) SetHeader(key, value string) {
	fr.ctx.Request().Header.Set(key, value)
}

// Body returns the request body
func (fr *FiberRequest) Body() []byte {
	return fr.ctx.Body()
}

// ContentLength returns the content length
func (fr *FiberRequest) ContentLength() int64 {
	return int64(fr.ctx.Request().Header.ContentLength())
}

// ContentType returns the content type
func (fr *FiberRequest) ContentType() string {
	return string(fr.ctx.Request().Header.ContentType())
}

// Cookies returns all cookies
func (fr *FiberRequest) Cookies() []axon.AxonCookie {
	var cookies []axon.AxonCookie
	fr.ctx.Request().Header.VisitAllCookie(func(key, value []byte) {
		cookies = append(cookies, axon.AxonCookie{
			Name:  string(key),
			Value: string(value),
		})
	})
	return cookies
}

// Cookie returns a specific cookie
func (fr *FiberRequest) Cookie(name string) (axon.AxonCookie, error) {
	value := fr.ctx.Cookies(name)
	if value == "" {
		return axon.AxonCookie{}, http.ErrNoCookie
	}
	return axon.AxonCookie{Name: name, Value: value}, nil
}

// FiberResponse wraps Fiber response to implement axon.ResponseInterface
type FiberResponse struct {
	ctx *fiber.Ctx
}

func (fr *FiberResponse) markWritten() {
	fr.ctx.Locals(fiberWrittenKey, true)
}

// Status returns the response status code
func (fr *FiberResponse) Status() int {
	return fr.ctx.Response().StatusCode()
}

// SetStatus sets the response status code
func (fr *FiberResponse) SetStatus(code int) {
	fr.ctx.Status(code)
}

// Header returns a response header
func (fr *FiberResponse) Header(key string) string {
	return string(fr.ctx.Response().Header.Peek(key))
}

// SetHeader sets a response header
func (fr *FiberResponse) SetHeader(key, value string) {
	fr.ctx.Set(key, value)
}

// JSON sends a JSON response
func (fr *FiberResponse) JSON(code int, i interface{}) error {
	fr.markWritten()
	return fr.ctx.Status(code).JSON(i)
}

// JSONPretty sends a pretty-printed JSON response
func (fr *FiberResponse) JSONPretty(code int, i interface{}, indent string) error {
	fr.markWritten()
	return fr.ctx.Status(code).JSON(i)
}

// String sends a string response
func (fr *FiberResponse) String(code int, s string) error {
	fr.markWritten()
	fr.ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return fr.ctx.Status(code).SendString(s)
}

// HTML sends an HTML response
func (fr *FiberResponse) HTML(code int, html string) error {
	fr.markWritten()
	fr.ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return fr.ctx.Status(code).SendString(html)
}

// Blob sends a blob response
func (fr *FiberResponse) Blob(code int, contentType string, b []byte) error {
	fr.markWritten()
	fr.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.ctx.Status(code).Send(b)
}

// Stream sends a streaming response
func (fr *FiberResponse) Stream(code int, contentType string, r interface{}) error {
	reader, ok := r.(io.Reader)
	if !ok {
		return axon.NewHTTPError(http.StatusInternalServerError, "Invalid stream reader")
	}
	fr.markWritten()
	fr.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.ctx.Status(code).SendStream(reader)
}

// NoContent sends only the status code
func (fr *FiberResponse) NoContent(code int) error {
	fr.markWritten()
	fr.ctx.Status(code)
	fr.ctx.Response().ResetBody()
	return nil
}

// SetCookie sets a cookie
func (fr *FiberResponse) SetCookie(cookie axon.AxonCookie) {
	fiberCookie := &fiber.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HttpOnly,
	}

	switch cookie.SameSite {
	case axon.SameSiteStrictMode:
		fiberCookie.SameSite = fiber.CookieSameSiteStrictMode
	case axon.SameSiteLaxMode:
		fiberCookie.SameSite = fiber.CookieSameSiteLaxMode
	case axon.SameSiteNoneMode:
		fiberCookie.SameSite = fiber.CookieSameSiteNoneMode
	}

	fr.ctx.Cookie(fiberCookie)
}

// Size returns the response body size
func (fr *FiberResponse) Size() int64 {
	return int64(len(fr.ctx.Response().Body()))
}

// Written reports whether an axon response helper already produced a body
func (fr *FiberResponse) Written() bool {
	written, _ := fr.ctx.Locals(fiberWrittenKey).(bool)
	return written
}

// Writer returns the underlying fasthttp response
func (fr *FiberResponse) Writer() interface{} {
	return fr.ctx.Response()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
