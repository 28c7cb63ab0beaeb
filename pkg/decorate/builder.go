package decorate

import (
	"reflect"

	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/upload"
)

// Builder collects declarations for controller T
//
//	decorate.On[UserController](reg).
//		Method("Show").Get("/:id").Param(0, "id").
//		Method("Create").Post("/").Http(201).Body(0).
//		Controller("/users", auth)
type Builder[T any] struct {
	reg    *metadata.Registry
	target metadata.Target
}

// On starts a builder for controller T
func On[T any](reg *metadata.Registry) *Builder[T] {
	return &Builder[T]{
		reg:    reg,
		target: metadata.TargetOf(reflect.TypeOf((*T)(nil))),
	}
}

// Target returns the controller type being declared
func (b *Builder[T]) Target() metadata.Target {
	return b.target
}

// Method selects the method that following declarations apply to
func (b *Builder[T]) Method(key string) *MethodBuilder[T] {
	return &MethodBuilder[T]{parent: b, key: key}
}

// Controller declares T as a controller and ends the builder
func (b *Builder[T]) Controller(path string, middleware ...metadata.Middleware) {
	Controller(b.reg, b.target, path, middleware...)
}

// MethodBuilder declares a single method of T
type MethodBuilder[T any] struct {
	parent *Builder[T]
	key    string
}

func (m *MethodBuilder[T]) args() (*metadata.Registry, metadata.Target, string) {
	return m.parent.reg, m.parent.target, m.key
}

// Method switches to another method of T
func (m *MethodBuilder[T]) Method(key string) *MethodBuilder[T] {
	return m.parent.Method(key)
}

// Controller declares T as a controller
func (m *MethodBuilder[T]) Controller(path string, middleware ...metadata.Middleware) {
	m.parent.Controller(path, middleware...)
}

func (m *MethodBuilder[T]) Get(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	Get(reg, t, key, path, middleware...)
	return m
}

func (m *MethodBuilder[T]) Put(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	Put(reg, t, key, path, middleware...)
	return m
}

func (m *MethodBuilder[T]) Patch(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	Patch(reg, t, key, path, middleware...)
	return m
}

func (m *MethodBuilder[T]) Delete(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	Delete(reg, t, key, path, middleware...)
	return m
}

func (m *MethodBuilder[T]) Post(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	Post(reg, t, key, path, middleware...)
	return m
}

func (m *MethodBuilder[T]) Head(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	Head(reg, t, key, path, middleware...)
	return m
}

func (m *MethodBuilder[T]) Options(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	Options(reg, t, key, path, middleware...)
	return m
}

func (m *MethodBuilder[T]) All(path string, middleware ...metadata.Middleware) *MethodBuilder[T] {
	reg, t, key := m.args()
	All(reg, t, key, path, middleware...)
	return m
}

// Http sets the method's explicit status code
func (m *MethodBuilder[T]) Http(code int) *MethodBuilder[T] {
	reg, t, key := m.args()
	Http(reg, t, key, code)
	return m
}

// Params binds argument index to role
func (m *MethodBuilder[T]) Params(index int, role metadata.ParameterRole, name ...string) *MethodBuilder[T] {
	reg, t, key := m.args()
	Params(reg, t, key, index, role, name...)
	return m
}

func (m *MethodBuilder[T]) Request(index int) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleRequest)
}

func (m *MethodBuilder[T]) Response(index int) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleResponse)
}

// Next injects a handler answering 404, see the package level Next
func (m *MethodBuilder[T]) Next(index int) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleNext)
}

func (m *MethodBuilder[T]) Param(index int, name ...string) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleParams, name...)
}

func (m *MethodBuilder[T]) Query(index int, name ...string) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleQuery, name...)
}

func (m *MethodBuilder[T]) Body(index int) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleBody)
}

func (m *MethodBuilder[T]) Headers(index int, name ...string) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleHeaders, name...)
}

func (m *MethodBuilder[T]) Cookies(index int, name ...string) *MethodBuilder[T] {
	return m.Params(index, metadata.RoleCookies, name...)
}

func (m *MethodBuilder[T]) Principal(index int) *MethodBuilder[T] {
	return m.Params(index, metadata.RolePrincipal)
}

// Render renders the method's result with template
func (m *MethodBuilder[T]) Render(template string, defaultData ...map[string]interface{}) *MethodBuilder[T] {
	reg, t, key := m.args()
	Render(reg, t, key, template, defaultData...)
	return m
}

// FileUpload panics on an unknown options shape, like an undeclared method
func (m *MethodBuilder[T]) FileUpload(options interface{}, uploadOptions ...upload.Options) *MethodBuilder[T] {
	reg, t, key := m.args()
	if err := FileUpload(reg, t, key, options, uploadOptions...); err != nil {
		panic(err)
	}
	return m
}
