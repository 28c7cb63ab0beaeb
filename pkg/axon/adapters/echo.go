package adapters

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/toyz/axonroute/pkg/axon"
)

// EchoAdapter implements axon.WebServerInterface for Echo v4
type EchoAdapter struct {
	axon.Settings
	engine *echo.Echo
}

// NewEchoAdapter creates a new Echo adapter. Errors returned by axon handlers
// are answered by axon.DefaultErrorHandler until SetErrorHandler is called.
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	ea := &EchoAdapter{engine: e}
	ea.SetErrorHandler(axon.DefaultErrorHandler)
	return ea
}

// NewDefaultEchoAdapter creates a new Echo adapter with default Echo instance
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return NewEchoAdapter(e)
}

// RegisterRoute registers a route with the Echo server
func (ea *EchoAdapter) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	ea.add(ea.engine.Add, ea.engine.Any, method, path, handler, middlewares)
}

func (ea *EchoAdapter) add(
	add func(string, string, echo.HandlerFunc, ...echo.MiddlewareFunc) *echo.Route,
	any func(string, echo.HandlerFunc, ...echo.MiddlewareFunc) []*echo.Route,
	method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares []axon.MiddlewareFunc,
) {
	echoPath := path.ColonPath()
	echoHandler := ea.convertHandler(handler)

	echoMiddlewares := make([]echo.MiddlewareFunc, len(middlewares))
	for i, mw := range middlewares {
		echoMiddlewares[i] = ea.convertMiddleware(mw)
	}

	if method == axon.MethodAll {
		any(echoPath, echoHandler, echoMiddlewares...)
		return
	}
	add(method, echoPath, echoHandler, echoMiddlewares...)
}

// RegisterGroup creates a new route group
func (ea *EchoAdapter) RegisterGroup(prefix string) axon.RouteGroup {
	echoGroup := ea.engine.Group(prefix)
	return &EchoGroupAdapter{group: echoGroup, adapter: ea}
}

// Use adds global middleware
func (ea *EchoAdapter) Use(middleware axon.MiddlewareFunc) {
	ea.engine.Use(ea.convertMiddleware(middleware))
}

// SetErrorHandler routes Echo's HTTP error handling through handler
func (ea *EchoAdapter) SetErrorHandler(handler axon.ErrorHandler) {
	ea.engine.HTTPErrorHandler = func(err error, c echo.Context) {
		if he, ok := err.(*echo.HTTPError); ok {
			err = axon.NewHTTPError(he.Code, he.Message, he.Internal)
		}
		handler(err, &EchoRequestContext{context: c})
	}
}

// Start starts the server
func (ea *EchoAdapter) Start(addr string) error {
	return ea.engine.Start(addr)
}

// Stop stops the server
func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// ServeHTTP dispatches a request through Echo
func (ea *EchoAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ea.engine.ServeHTTP(w, r)
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}

// EchoGroupAdapter implements axon.RouteGroup for Echo groups
type EchoGroupAdapter struct {
	group   *echo.Group
	adapter *EchoAdapter
}

// RegisterRoute registers a route with the group
func (ega *EchoGroupAdapter) RegisterRoute(method string, path axon.AxonPath, handler axon.HandlerFunc, middlewares ...axon.MiddlewareFunc) {
	ega.adapter.add(ega.group.Add, ega.group.Any, method, path, handler, middlewares)
}

// Use adds middleware to the group
func (ega *EchoGroupAdapter) Use(middleware axon.MiddlewareFunc) {
	ega.group.Use(ega.adapter.convertMiddleware(middleware))
}

// Group creates a sub-group
func (ega *EchoGroupAdapter) Group(prefix string) axon.RouteGroup {
	subGroup := ega.group.Group(prefix)
	return &EchoGroupAdapter{group: subGroup, adapter: ega.adapter}
}

// convertHandler converts axon.HandlerFunc to echo.HandlerFunc
func (ea *EchoAdapter) convertHandler(handler axon.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handler(&EchoRequestContext{context: c})
	}
}

// convertMiddleware converts axon.MiddlewareFunc to echo.MiddlewareFunc
func (ea *EchoAdapter) convertMiddleware(middleware axon.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		axonNext := func(ctx axon.RequestContext) error {
			if erc, ok := ctx.(*EchoRequestContext); ok {
				return next(erc.context)
			}
			return next(ctx.Get(echoContextKey).(echo.Context))
		}
		axonHandler := middleware(axonNext)
		return func(c echo.Context) error {
			c.Set(echoContextKey, c)
			return axonHandler(&EchoRequestContext{context: c})
		}
	}
}

const echoContextKey = "axon.echo"

// EchoRequestContext implements axon.RequestContext for Echo
type EchoRequestContext struct {
	context echo.Context
}

// Method returns the HTTP method
func (erc *EchoRequestContext) Method() string {
	return erc.context.Request().Method
}

// Path returns the request path
func (erc *EchoRequestContext) Path() string {
	return erc.context.Request().URL.Path
}

// RealIP returns the real IP address
func (erc *EchoRequestContext) RealIP() string {
	return erc.context.RealIP()
}

// Context returns the request context
func (erc *EchoRequestContext) Context() context.Context {
	return erc.context.Request().Context()
}

// Param returns path parameter by name
func (erc *EchoRequestContext) Param(key string) string {
	return erc.context.Param(key)
}

// ParamNames returns path parameter names
func (erc *EchoRequestContext) ParamNames() []string {
	return erc.context.ParamNames()
}

// ParamValues returns path parameter values
func (erc *EchoRequestContext) ParamValues() []string {
	values := erc.context.ParamValues()
	if n := len(erc.context.ParamNames()); len(values) > n {
		values = values[:n]
	}
	return values
}

// SetParam sets path parameter, replacing an existing value
func (erc *EchoRequestContext) SetParam(name, value string) {
	names := erc.context.ParamNames()
	values := erc.ParamValues()
	for i, n := range names {
		if n == name {
			updated := append([]string(nil), values...)
			updated[i] = value
			erc.context.SetParamValues(updated...)
			return
		}
	}
	erc.context.SetParamNames(append(append([]string(nil), names...), name)...)
	erc.context.SetParamValues(append(append([]string(nil), values...), value)...)
}

// QueryParam returns query parameter by name
func (erc *EchoRequestContext) QueryParam(key string) string {
	return erc.context.QueryParam(key)
}

// QueryParams returns all query parameters
func (erc *EchoRequestContext) QueryParams() map[string][]string {
	return erc.context.QueryParams()
}

// QueryString returns the query string
func (erc *EchoRequestContext) QueryString() string {
	return erc.context.QueryString()
}

// Request returns the request interface
func (erc *EchoRequestContext) Request() axon.RequestInterface {
	return &EchoRequestInterface{request: erc.context.Request()}
}

// Response returns the response interface
func (erc *EchoRequestContext) Response() axon.ResponseInterface {
	return &EchoResponseInterface{response: erc.context.Response(), context: erc.context}
}

// Bind binds request body to provided struct
func (erc *EchoRequestContext) Bind(i interface{}) error {
	return erc.context.Bind(i)
}

// Validate validates the provided struct
func (erc *EchoRequestContext) Validate(i interface{}) error {
	if erc.context.Echo().Validator == nil {
		return nil
	}
	return erc.context.Validate(i)
}

// Get retrieves data from context
func (erc *EchoRequestContext) Get(key string) interface{} {
	return erc.context.Get(key)
}

// Set stores data in context
func (erc *EchoRequestContext) Set(key string, val interface{}) {
	erc.context.Set(key, val)
}

// FormValue returns form value by name
func (erc *EchoRequestContext) FormValue(name string) string {
	return erc.context.FormValue(name)
}

// FormParams returns form parameters
func (erc *EchoRequestContext) FormParams() (map[string][]string, error) {
	return erc.context.FormParams()
}

// FormFile returns uploaded file by name
func (erc *EchoRequestContext) FormFile(name string) (axon.FileHeader, error) {
	file, err := erc.context.FormFile(name)
	if err != nil {
		return nil, err
	}
	return &StdFileHeader{header: file}, nil
}

// MultipartForm returns multipart form
func (erc *EchoRequestContext) MultipartForm() (axon.MultipartForm, error) {
	form, err := erc.context.MultipartForm()
	if err != nil {
		return nil, err
	}
	return &StdMultipartForm{form: form}, nil
}

// EchoRequestInterface implements axon.RequestInterface for Echo requests
type EchoRequestInterface struct {
	request *http.Request
}

// Header returns request header value
func (eri *EchoRequestInterface) Header(key string) string {
	return eri.request.Header.Get(key)
}

// Headers returns all request headers
func (eri *EchoRequestInterface) Headers() map[string][]string {
	return eri.request.Header
}

// SetHeader sets request header
func (eri *EchoRequestInterface) SetHeader(key, value string) {
	eri.request.Header.Set(key, value)
}

// Body returns the request body, leaving it readable for later consumers
func (eri *EchoRequestInterface) Body() []byte {
	return readBody(eri.request)
}

// ContentLength returns content length
func (eri *EchoRequestInterface) ContentLength() int64 {
	return eri.request.ContentLength
}

// ContentType returns content type
func (eri *EchoRequestInterface) ContentType() string {
	return eri.request.Header.Get("Content-Type")
}

// Cookies returns all cookies
func (eri *EchoRequestInterface) Cookies() []axon.AxonCookie {
	return cookiesOf(eri.request)
}

// Cookie returns specific cookie
func (eri *EchoRequestInterface) Cookie(name string) (axon.AxonCookie, error) {
	c, err := eri.request.Cookie(name)
	if err != nil {
		return axon.AxonCookie{}, err
	}
	return axon.CookieFromHTTP(c), nil
}

// EchoResponseInterface implements axon.ResponseInterface for Echo responses
type EchoResponseInterface struct {
	response *echo.Response
	context  echo.Context
}

// Status returns response status code
func (eri *EchoResponseInterface) Status() int {
	return eri.response.Status
}

// SetStatus sets response status code
func (eri *EchoResponseInterface) SetStatus(code int) {
	if !eri.response.Committed {
		eri.response.Status = code
	}
}

// Header returns response header value
func (eri *EchoResponseInterface) Header(key string) string {
	return eri.response.Header().Get(key)
}

// SetHeader sets response header
func (eri *EchoResponseInterface) SetHeader(key, value string) {
	eri.response.Header().Set(key, value)
}

// JSON writes JSON response
func (eri *EchoResponseInterface) JSON(code int, i interface{}) error {
	return eri.context.JSON(code, i)
}

// JSONPretty writes pretty JSON response
func (eri *EchoResponseInterface) JSONPretty(code int, i interface{}, indent string) error {
	return eri.context.JSONPretty(code, i, indent)
}

// String writes string response
func (eri *EchoResponseInterface) String(code int, s string) error {
	return eri.context.String(code, s)
}

// HTML writes HTML response
func (eri *EchoResponseInterface) HTML(code int, html string) error {
	return eri.context.HTML(code, html)
}

// Blob writes blob response
func (eri *EchoResponseInterface) Blob(code int, contentType string, b []byte) error {
	return eri.context.Blob(code, contentType, b)
}

// Stream writes streaming response
func (eri *EchoResponseInterface) Stream(code int, contentType string, r interface{}) error {
	if reader, ok := r.(io.Reader); ok {
		return eri.context.Stream(code, contentType, reader)
	}
	return axon.NewHTTPError(http.StatusInternalServerError, "Invalid stream reader")
}

// NoContent writes only the status code
func (eri *EchoResponseInterface) NoContent(code int) error {
	return eri.context.NoContent(code)
}

// SetCookie sets a cookie
func (eri *EchoResponseInterface) SetCookie(cookie axon.AxonCookie) {
	eri.context.SetCookie(cookie.ToHTTP())
}

// Size returns response size
func (eri *EchoResponseInterface) Size() int64 {
	return eri.response.Size
}

// Written returns whether response has been written
func (eri *EchoResponseInterface) Written() bool {
	return eri.response.Committed
}

// Writer returns the underlying writer
func (eri *EchoResponseInterface) Writer() interface{} {
	return eri.response.Writer
}

// StdFileHeader implements axon.FileHeader over mime/multipart
type StdFileHeader struct {
	header *multipart.FileHeader
}

// Filename returns the uploaded file name
func (sfh *StdFileHeader) Filename() string {
	return sfh.header.Filename
}

// Header returns file headers
func (sfh *StdFileHeader) Header() map[string][]string {
	return sfh.header.Header
}

// Size returns file size
func (sfh *StdFileHeader) Size() int64 {
	return sfh.header.Size
}

// Open opens the uploaded file
func (sfh *StdFileHeader) Open() (interface{}, error) {
	return sfh.header.Open()
}

// StdMultipartForm implements axon.MultipartForm over mime/multipart
type StdMultipartForm struct {
	form *multipart.Form
}

// Value returns form values
func (smf *StdMultipartForm) Value() map[string][]string {
	return smf.form.Value
}

// File returns form files
func (smf *StdMultipartForm) File() map[string][]axon.FileHeader {
	result := make(map[string][]axon.FileHeader, len(smf.form.File))
	for key, files := range smf.form.File {
		fileHeaders := make([]axon.FileHeader, len(files))
		for i, file := range files {
			fileHeaders[i] = &StdFileHeader{header: file}
		}
		result[key] = fileHeaders
	}
	return result
}
