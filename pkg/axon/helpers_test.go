package axon

import (
	"context"
	"errors"
)

// fakeContext is an in-memory RequestContext used by the package tests
type fakeContext struct {
	method string
	path   string
	names  []string
	values []string
	query  map[string][]string
	store  map[string]interface{}
	resp   *fakeResponse
}

func newFakeContext(method, path string) *fakeContext {
	return &fakeContext{
		method: method,
		path:   path,
		query:  map[string][]string{},
		store:  map[string]interface{}{},
		resp:   &fakeResponse{status: 200, headers: map[string]string{}},
	}
}

func (f *fakeContext) withParams(kv ...string) *fakeContext {
	for i := 0; i+1 < len(kv); i += 2 {
		f.names = append(f.names, kv[i])
		f.values = append(f.values, kv[i+1])
	}
	return f
}

func (f *fakeContext) Method() string           { return f.method }
func (f *fakeContext) Path() string             { return f.path }
func (f *fakeContext) RealIP() string           { return "127.0.0.1" }
func (f *fakeContext) Context() context.Context { return context.Background() }
func (f *fakeContext) Param(key string) string {
	for i, n := range f.names {
		if n == key {
			return f.values[i]
		}
	}
	return ""
}
func (f *fakeContext) ParamNames() []string  { return f.names }
func (f *fakeContext) ParamValues() []string { return f.values }
func (f *fakeContext) SetParam(name, value string) {
	f.names = append(f.names, name)
	f.values = append(f.values, value)
}
func (f *fakeContext) QueryParam(key string) string {
	if v := f.query[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
func (f *fakeContext) QueryParams() map[string][]string { return f.query }
func (f *fakeContext) QueryString() string              { return "" }
func (f *fakeContext) Request() RequestInterface        { return nil }
func (f *fakeContext) Response() ResponseInterface      { return f.resp }
func (f *fakeContext) Bind(i interface{}) error         { return errors.New("no body") }
func (f *fakeContext) Validate(i interface{}) error     { return nil }
func (f *fakeContext) Get(key string) interface{}       { return f.store[key] }
func (f *fakeContext) Set(key string, val interface{})  { f.store[key] = val }
func (f *fakeContext) FormValue(name string) string     { return "" }
func (f *fakeContext) FormParams() (map[string][]string, error) {
	return nil, nil
}
func (f *fakeContext) FormFile(name string) (FileHeader, error) {
	return nil, errors.New("no file")
}
func (f *fakeContext) MultipartForm() (MultipartForm, error) {
	return nil, errors.New("no form")
}

type fakeResponse struct {
	status  int
	headers map[string]string
	body    interface{}
	written bool
}

func (r *fakeResponse) Status() int                 { return r.status }
func (r *fakeResponse) SetStatus(code int)          { r.status = code }
func (r *fakeResponse) Header(key string) string    { return r.headers[key] }
func (r *fakeResponse) SetHeader(key, value string) { r.headers[key] = value }
func (r *fakeResponse) write(code int, body interface{}) error {
	r.status, r.body, r.written = code, body, true
	return nil
}
func (r *fakeResponse) JSON(code int, i interface{}) error { return r.write(code, i) }
func (r *fakeResponse) JSONPretty(code int, i interface{}, indent string) error {
	return r.write(code, i)
}
func (r *fakeResponse) String(code int, s string) error  { return r.write(code, s) }
func (r *fakeResponse) HTML(code int, html string) error { return r.write(code, html) }
func (r *fakeResponse) Blob(code int, contentType string, b []byte) error {
	return r.write(code, b)
}
func (r *fakeResponse) Stream(code int, contentType string, rd interface{}) error {
	return r.write(code, rd)
}
func (r *fakeResponse) NoContent(code int) error    { return r.write(code, nil) }
func (r *fakeResponse) SetCookie(cookie AxonCookie) {}
func (r *fakeResponse) Size() int64                 { return 0 }
func (r *fakeResponse) Written() bool               { return r.written }
func (r *fakeResponse) Writer() interface{}         { return nil }
