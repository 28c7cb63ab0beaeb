// Package di is the binding container used by the route builder to
// construct controllers and middleware. Singletons are built and cached by a
// go.uber.org/dig graph: the root container owns a dig.Container and every
// child that binds a singleton gets its own dig.Scope.
//
// Service identifiers are arbitrary comparable values, usually a
// reflect.Type or a string:
//
//	c := di.New()
//	c.Bind(di.TypeOf[Store]()).To(reflect.TypeOf(memoryStore{})).InSingletonScope()
//	c.Bind("greeting").ToConstantValue("hello")
//
//	store, err := di.Resolve[Store](c)
package di

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/dig"

	axonerrors "github.com/toyz/axonroute/internal/errors"
)

// Scope controls how long a resolved value is reused
type Scope int

const (
	ScopeTransient Scope = iota
	ScopeSingleton
	// ScopeRequest caches one value per container, typically a child
	// container created for a single request
	ScopeRequest
)

func (s Scope) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeRequest:
		return "request"
	default:
		return "transient"
	}
}

// Factory builds a value from the container it is resolved in
type Factory func(c *Container) (interface{}, error)

// Module configures a container
type Module func(c *Container) error

// PostConstructor is called once after a type binding was instantiated and
// its fields injected
type PostConstructor interface {
	PostConstruct() error
}

type bindingKind int

const (
	kindUnset bindingKind = iota
	kindType
	kindConstant
	kindFactory
)

// Binding is created by Container.Bind and configured fluently
type Binding struct {
	id    interface{}
	name  string
	scope Scope
	kind  bindingKind

	typ     reflect.Type
	value   interface{}
	factory Factory

	owner *node
	// key names the binding's value in the dig graph
	key string
	// provided is guarded by graph.mu
	provided bool
}

// ID returns the service identifier
func (b *Binding) ID() interface{} { return b.id }

// Name returns the binding's name constraint, empty when unnamed
func (b *Binding) Name() string { return b.name }

// Scope returns the binding scope
func (b *Binding) Scope() Scope { return b.scope }

// Type returns the implementation type of a To/ToSelf binding
func (b *Binding) Type() reflect.Type { return b.typ }

// To binds the identifier to a struct type. Resolving it yields a pointer
// to a new value with its inject-tagged fields filled.
func (b *Binding) To(t reflect.Type) *Binding {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	b.kind = kindType
	b.typ = t
	return b
}

// ToSelf binds a reflect.Type identifier to itself
func (b *Binding) ToSelf() *Binding {
	t, ok := b.id.(reflect.Type)
	if !ok {
		panic(axonerrors.DependencyError(fmt.Sprintf("%T", b.id), fmt.Sprint(b.id),
			"ToSelf requires a reflect.Type service identifier"))
	}
	return b.To(t)
}

// ToConstantValue always resolves to v
func (b *Binding) ToConstantValue(v interface{}) *Binding {
	b.kind = kindConstant
	b.value = v
	return b
}

// ToFactory resolves by calling f
func (b *Binding) ToFactory(f Factory) *Binding {
	b.kind = kindFactory
	b.factory = f
	return b
}

// InSingletonScope builds the value once through the dig scope of the
// container the binding was made on. Its dependencies and factory resolve
// from that container, never from the child it was first requested through.
func (b *Binding) InSingletonScope() *Binding {
	b.scope = ScopeSingleton
	return b
}

// InTransientScope builds a new value on every resolution. It is the default.
func (b *Binding) InTransientScope() *Binding {
	b.scope = ScopeTransient
	return b
}

// InRequestScope caches one value per container the binding is resolved
// through, usually the child created for a request
func (b *Binding) InRequestScope() *Binding {
	b.scope = ScopeRequest
	return b
}

// WhenTargetNamed restricts the binding to GetNamed lookups with name
func (b *Binding) WhenTargetNamed(name string) *Binding {
	b.name = name
	return b
}

// graph is the dig container shared by a root container and its children.
// dig is not safe for concurrent use, so every call into it holds mu.
type graph struct {
	mu   sync.Mutex
	root *dig.Container
	seq  atomic.Uint64
}

func (g *graph) nextName(prefix string) string {
	return prefix + strconv.FormatUint(g.seq.Add(1), 10)
}

// digScope is implemented by both *dig.Container and *dig.Scope
type digScope interface {
	Provide(constructor interface{}, opts ...dig.ProvideOption) error
	Invoke(function interface{}, opts ...dig.InvokeOption) error
}

type node struct {
	graph  *graph
	parent *node

	mu       sync.RWMutex
	bindings map[interface{}][]*Binding

	// scope is opened on first use and guarded by graph.mu. Constants and
	// transient bindings never need one, so the per-request children the
	// server creates do not leave a dig scope behind.
	scope digScope

	cacheMu sync.Mutex
	cache   map[*Binding]interface{}
}

func newNode(g *graph, parent *node) *node {
	n := &node{
		graph:    g,
		parent:   parent,
		bindings: make(map[interface{}][]*Binding),
		cache:    make(map[*Binding]interface{}),
	}
	if parent == nil {
		n.scope = g.root
	}
	return n
}

func (n *node) digScope() digScope {
	if n.scope != nil {
		return n.scope
	}
	name := n.graph.nextName("child")
	switch parent := n.parent.digScope().(type) {
	case *dig.Container:
		n.scope = parent.Scope(name)
	case *dig.Scope:
		n.scope = parent.Scope(name)
	}
	return n.scope
}

// Container holds bindings. Lookups fall back to the parent container.
type Container struct {
	*node
	// locked marks the view handed to singleton constructors, which run
	// while graph.mu is held
	locked bool
}

// New creates an empty root container
func New() *Container {
	return &Container{node: newNode(&graph{root: dig.New()}, nil)}
}

// CreateChild returns a container that inherits every binding of c.
// Request-scoped values resolved through the child are cached on the child.
func (c *Container) CreateChild() *Container {
	return &Container{node: newNode(c.graph, c.node), locked: c.locked}
}

// Parent returns the parent container, nil for a root container
func (c *Container) Parent() *Container {
	if c.parent == nil {
		return nil
	}
	return &Container{node: c.parent, locked: c.locked}
}

// Bind starts a new binding for id
func (c *Container) Bind(id interface{}) *Binding {
	b := &Binding{id: id, owner: c.node, key: c.graph.nextName("binding")}
	c.mu.Lock()
	c.bindings[id] = append(c.bindings[id], b)
	c.mu.Unlock()
	return b
}

// Unbind removes every binding of id from this container
func (c *Container) Unbind(id interface{}) {
	c.mu.Lock()
	delete(c.bindings, id)
	c.mu.Unlock()
}

// Load applies modules in order and stops at the first error
func (c *Container) Load(modules ...Module) error {
	for _, m := range modules {
		if err := m(c); err != nil {
			return err
		}
	}
	return nil
}

// Bindings returns the bindings of id visible from c, own bindings first
func (c *Container) Bindings(id interface{}) []*Binding {
	var out []*Binding
	for cur := c.node; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		out = append(out, cur.bindings[id]...)
		cur.mu.RUnlock()
	}
	return out
}

// lookup finds the bindings of the nearest container that has any for id
// matching name
func (c *Container) lookup(id interface{}, name string) []*Binding {
	for cur := c.node; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		var matched []*Binding
		for _, b := range cur.bindings[id] {
			if b.name == name {
				matched = append(matched, b)
			}
		}
		cur.mu.RUnlock()
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

// IsBound reports whether id has any binding visible from c
func (c *Container) IsBound(id interface{}) bool {
	return len(c.Bindings(id)) > 0
}

// IsBoundNamed reports whether id has a binding constrained to name
func (c *Container) IsBoundNamed(id interface{}, name string) bool {
	return len(c.lookup(id, name)) > 0
}

// Get resolves the single unnamed binding of id
func (c *Container) Get(id interface{}) (interface{}, error) {
	return c.GetNamed(id, "")
}

// GetNamed resolves the single binding of id constrained to name
func (c *Container) GetNamed(id interface{}, name string) (interface{}, error) {
	bindings := c.lookup(id, name)
	switch len(bindings) {
	case 0:
		return nil, c.unbound(id, name)
	case 1:
		return c.resolve(bindings[0])
	default:
		return nil, axonerrors.DependencyError(describe(id), name,
			fmt.Sprintf("ambiguous match: %d bindings found", len(bindings)))
	}
}

// GetAll resolves every binding of id visible from c, regardless of name
func (c *Container) GetAll(id interface{}) ([]interface{}, error) {
	bindings := c.Bindings(id)
	if len(bindings) == 0 {
		return nil, c.unbound(id, "")
	}
	out := make([]interface{}, 0, len(bindings))
	for _, b := range bindings {
		v, err := c.resolve(b)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Container) unbound(id interface{}, name string) error {
	msg := "no binding found"
	if name != "" {
		msg = fmt.Sprintf("no binding found for name %q", name)
	}
	return axonerrors.DependencyError(describe(id), name, msg).
		WithSuggestion(fmt.Sprintf("bind %s before resolving it", describe(id)))
}

func describe(id interface{}) string {
	if t, ok := id.(reflect.Type); ok {
		return t.String()
	}
	return fmt.Sprint(id)
}

func (c *Container) resolve(b *Binding) (interface{}, error) {
	switch {
	case b.kind == kindConstant:
		return b.value, nil
	case b.scope == ScopeSingleton:
		return c.singleton(b)
	case b.scope == ScopeRequest:
		c.cacheMu.Lock()
		if v, ok := c.cache[b]; ok {
			c.cacheMu.Unlock()
			return v, nil
		}
		c.cacheMu.Unlock()

		v, err := c.create(b)
		if err != nil {
			return nil, err
		}
		c.cacheMu.Lock()
		if cached, ok := c.cache[b]; ok {
			v = cached
		} else {
			c.cache[b] = v
		}
		c.cacheMu.Unlock()
		return v, nil
	default:
		return c.create(b)
	}
}

// instance carries a singleton through the dig graph
type instance struct {
	value interface{}
}

var (
	inType       = reflect.TypeOf(dig.In{})
	instanceType = reflect.TypeOf((*instance)(nil))
)

// singleton provides b to the dig scope of its owner on first use and
// invokes that scope for it. dig runs the constructor once and keeps the
// result.
func (c *Container) singleton(b *Binding) (interface{}, error) {
	if !c.locked {
		c.graph.mu.Lock()
		defer c.graph.mu.Unlock()
	}

	scope := b.owner.digScope()
	if !b.provided {
		owner := &Container{node: b.owner, locked: true}
		err := scope.Provide(func() (*instance, error) {
			v, err := owner.create(b)
			if err != nil {
				return nil, err
			}
			return &instance{value: v}, nil
		}, dig.Name(b.key))
		if err != nil {
			return nil, axonerrors.WrapDependencyError(describe(b.id), b.name, err)
		}
		b.provided = true
	}

	var out interface{}
	if err := scope.Invoke(receiver(b.key, func(i *instance) { out = i.value })); err != nil {
		return nil, dig.RootCause(err)
	}
	return out, nil
}

// receiver builds a function dig can invoke: it takes a dig.In struct whose
// only field is the *instance named key
func receiver(key string, fn func(*instance)) interface{} {
	in := reflect.StructOf([]reflect.StructField{
		{Name: "In", Type: inType, Anonymous: true},
		{Name: "Value", Type: instanceType, Tag: reflect.StructTag(`name:"` + key + `"`)},
	})
	call := reflect.MakeFunc(reflect.FuncOf([]reflect.Type{in}, nil, false), func(args []reflect.Value) []reflect.Value {
		fn(args[0].Field(1).Interface().(*instance))
		return nil
	})
	return call.Interface()
}

func (c *Container) create(b *Binding) (interface{}, error) {
	switch b.kind {
	case kindConstant:
		return b.value, nil
	case kindFactory:
		v, err := b.factory(c)
		if err != nil {
			return nil, axonerrors.WrapDependencyError(describe(b.id), b.name, err)
		}
		return v, nil
	case kindType:
		return c.Instantiate(b.typ)
	default:
		return nil, axonerrors.DependencyError(describe(b.id), b.name, "binding has no target")
	}
}

// Instantiate creates a *T for struct type t and fills its inject-tagged
// fields from c. `inject:""` resolves by field type, `inject:"name"` resolves
// the binding of the field type named name.
func (c *Container) Instantiate(t reflect.Type) (interface{}, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	ptr := reflect.New(t)
	if t.Kind() == reflect.Struct {
		if err := c.inject(ptr.Elem()); err != nil {
			return nil, err
		}
	}
	if pc, ok := ptr.Interface().(PostConstructor); ok {
		if err := pc.PostConstruct(); err != nil {
			return nil, axonerrors.WrapDependencyError(t.String(), "", err)
		}
	}
	return ptr.Interface(), nil
}

func (c *Container) inject(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, ok := field.Tag.Lookup("inject")
		if !ok {
			continue
		}

		if !v.Field(i).CanSet() {
			return axonerrors.DependencyError(t.String(), field.Name, "unexported field cannot be injected")
		}
		dep, err := c.resolveField(field.Type, name)
		if err != nil {
			return axonerrors.WrapDependencyError(t.String(), field.Name, err)
		}
		value, err := assignable(dep, field.Type)
		if err != nil {
			return axonerrors.WrapDependencyError(t.String(), field.Name, err)
		}
		v.Field(i).Set(value)
	}
	return nil
}

// resolveField looks the field type up first, then its element type for
// pointer fields so a *T field matches a binding keyed by T
func (c *Container) resolveField(ft reflect.Type, name string) (interface{}, error) {
	if c.IsBoundNamed(ft, name) || ft.Kind() != reflect.Pointer {
		return c.GetNamed(ft, name)
	}
	return c.GetNamed(ft.Elem(), name)
}

func assignable(dep interface{}, ft reflect.Type) (reflect.Value, error) {
	if dep == nil {
		return reflect.Zero(ft), nil
	}
	v := reflect.ValueOf(dep)
	switch {
	case v.Type().AssignableTo(ft):
		return v, nil
	case v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Type().AssignableTo(ft):
		return v.Elem(), nil
	case v.Type().ConvertibleTo(ft):
		return v.Convert(ft), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", v.Type(), ft)
}

// TypeOf returns the reflect.Type of T, usable as a service identifier for
// interface types
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Resolve gets the binding of TypeOf[T] and asserts it to T
func Resolve[T any](c *Container, name ...string) (T, error) {
	var zero T
	n := ""
	if len(name) > 0 {
		n = name[0]
	}
	v, err := c.GetNamed(TypeOf[T](), n)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, axonerrors.DependencyError(TypeOf[T]().String(), n,
			fmt.Sprintf("bound value has type %T", v))
	}
	return out, nil
}
