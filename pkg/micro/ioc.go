package micro

import (
	"reflect"

	"github.com/toyz/axonroute/pkg/di"
	"github.com/toyz/axonroute/pkg/metadata"
)

// IOC is a reduced view of a di.Container: services are registered by
// their own type and resolved as pointers
type IOC struct {
	container *di.Container
}

// NewIOC wraps c, or a new container when c is nil
func NewIOC(c *di.Container) *IOC {
	if c == nil {
		c = di.New()
	}
	return &IOC{container: c}
}

// serviceID turns a value, pointer or reflect.Type into the pointer type
// services are bound under
func serviceID(service interface{}) reflect.Type {
	return reflect.PointerTo(metadata.TargetOf(service))
}

// AddSingleton binds service to itself, created once
func (i *IOC) AddSingleton(service interface{}) {
	i.container.Bind(serviceID(service)).ToSelf().InSingletonScope()
}

// AddTransient binds service to itself, created on every Get
func (i *IOC) AddTransient(service interface{}) {
	i.container.Bind(serviceID(service)).ToSelf().InTransientScope()
}

// AddScoped binds service to itself, created once per request container
func (i *IOC) AddScoped(service interface{}) {
	i.container.Bind(serviceID(service)).ToSelf().InRequestScope()
}

// Get resolves a service registered with one of the Add methods. Other
// identifiers are passed to the container unchanged.
func (i *IOC) Get(id interface{}) (interface{}, error) {
	if _, named := id.(string); id != nil && !named {
		if t := serviceID(id); i.container.IsBound(t) {
			return i.container.Get(t)
		}
	}
	return i.container.Get(id)
}

// Container returns the underlying container
func (i *IOC) Container() *di.Container {
	return i.container
}

// Get resolves T from ioc
func Get[T any](ioc *IOC) (T, error) {
	return di.Resolve[T](ioc.container)
}
