// Package decorate declares controllers, routed methods and argument
// bindings on a metadata.Registry.
//
// Every function takes the controller either as a value, a pointer or a
// reflect.Type and the method by name:
//
//	decorate.Controller(reg, UserController{}, "/users", auth)
//	decorate.Get(reg, UserController{}, "Show", "/:id")
//	decorate.Param(reg, UserController{}, "Show", 0, "id")
//	decorate.Http(reg, UserController{}, "Show", 200)
//
// Method-level declarations must precede the Controller call for the
// method's explicit status code to be merged.
package decorate

import (
	"net/http"
	"reflect"
	"strings"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/upload"
)

// Controller declares target as a controller mounted at path
func Controller(reg *metadata.Registry, target interface{}, path string, middleware ...metadata.Middleware) {
	t := metadata.TargetOf(target)
	reg.AddController(metadata.ControllerMetadata{
		Path:       path,
		Middleware: middleware,
		Target:     t,
	})
	reg.Injectable(t)
}

// HttpMethod declares a routed method without parameter coercion. It panics
// with a registration error when path is malformed.
func HttpMethod(reg *metadata.Registry, target interface{}, verb, key, path string, middleware ...metadata.Middleware) {
	t := metadata.TargetOf(target)
	method := lookupMethod(t, key)
	if err := axon.ValidateAxonPath(path); err != nil {
		panic(axonerrors.RegistrationFailed("method", key, err.Error()))
	}
	reg.AddMethod(metadata.ControllerMethodMetadata{
		Key:        key,
		Verb:       strings.ToUpper(verb),
		Path:       path,
		Middleware: middleware,
		Target:     t,
		Kinds:      axon.KindsOf(method.Type, 1),
	})
}

// EnhancedHttpMethod declares a routed method whose route parameters are
// coerced before it runs. The i-th route parameter takes the kind of the
// i-th method argument.
func EnhancedHttpMethod(reg *metadata.Registry, target interface{}, verb, key, path string, middleware ...metadata.Middleware) {
	HttpMethod(reg, target, verb, key, path, middleware...)

	t := metadata.TargetOf(target)
	kinds := axon.KindsOf(lookupMethod(t, key).Type, 1)
	coerce := axon.CoerceParams(kinds)

	if reg.CoercionMode() == metadata.CoerceOnce {
		reg.PrependMiddleware(t, key, coerce)
		return
	}
	reg.PrependMiddleware(t, "", coerce)
}

func lookupMethod(t metadata.Target, key string) reflect.Method {
	if t == nil {
		panic(axonerrors.RegistrationFailed("method", key, "nil controller target"))
	}
	method, ok := reflect.PointerTo(t).MethodByName(key)
	if !ok {
		panic(axonerrors.RegistrationFailed("method", key,
			"no exported method "+key+" on *"+t.Name()))
	}
	return method
}

// Get declares a GET route
func Get(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	EnhancedHttpMethod(reg, target, http.MethodGet, key, path, middleware...)
}

// Put declares a PUT route
func Put(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	EnhancedHttpMethod(reg, target, http.MethodPut, key, path, middleware...)
}

// Patch declares a PATCH route
func Patch(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	EnhancedHttpMethod(reg, target, http.MethodPatch, key, path, middleware...)
}

// Delete declares a DELETE route
func Delete(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	EnhancedHttpMethod(reg, target, http.MethodDelete, key, path, middleware...)
}

// Post declares a POST route
func Post(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	HttpMethod(reg, target, http.MethodPost, key, path, middleware...)
}

// Head declares a HEAD route
func Head(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	HttpMethod(reg, target, http.MethodHead, key, path, middleware...)
}

// Options declares an OPTIONS route
func Options(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	HttpMethod(reg, target, http.MethodOptions, key, path, middleware...)
}

// All declares a route answering every verb
func All(reg *metadata.Registry, target interface{}, key, path string, middleware ...metadata.Middleware) {
	HttpMethod(reg, target, axon.MethodAll, key, path, middleware...)
}

// Http sets the status code a method answers with. It must be declared
// before the controller; the last call wins.
func Http(reg *metadata.Registry, target interface{}, key string, code int) {
	reg.SetStatus(metadata.TargetOf(target), key, code)
}

// Params binds argument index of a method to a request source. Without a
// name the whole source is injected.
func Params(reg *metadata.Registry, target interface{}, key string, index int, role metadata.ParameterRole, name ...string) {
	p := metadata.ParameterMetadata{Index: index, Role: role, InjectRoot: true}
	if len(name) > 0 {
		p.Name = name[0]
		p.InjectRoot = false
	}
	reg.AddParameter(metadata.TargetOf(target), key, p)
}

// Request injects the axon.RequestContext
func Request(reg *metadata.Registry, target interface{}, key string, index int) {
	Params(reg, target, key, index, metadata.RoleRequest)
}

// Response injects the axon.ResponseInterface
func Response(reg *metadata.Registry, target interface{}, key string, index int) {
	Params(reg, target, key, index, metadata.RoleResponse)
}

// Next injects an axon.HandlerFunc at index. A routed method is the end of
// its chain, so there is no route to fall through to: the injected handler
// always answers 404 Not Found.
func Next(reg *metadata.Registry, target interface{}, key string, index int) {
	Params(reg, target, key, index, metadata.RoleNext)
}

// Param injects one route parameter, or all of them without a name
func Param(reg *metadata.Registry, target interface{}, key string, index int, name ...string) {
	Params(reg, target, key, index, metadata.RoleParams, name...)
}

// Query injects one query value, or the whole query without a name
func Query(reg *metadata.Registry, target interface{}, key string, index int, name ...string) {
	Params(reg, target, key, index, metadata.RoleQuery, name...)
}

// Body injects the decoded request body
func Body(reg *metadata.Registry, target interface{}, key string, index int) {
	Params(reg, target, key, index, metadata.RoleBody)
}

// Headers injects one header, or all headers without a name
func Headers(reg *metadata.Registry, target interface{}, key string, index int, name ...string) {
	Params(reg, target, key, index, metadata.RoleHeaders, name...)
}

// Cookies injects one cookie value, or all cookies without a name
func Cookies(reg *metadata.Registry, target interface{}, key string, index int, name ...string) {
	Params(reg, target, key, index, metadata.RoleCookies, name...)
}

// Principal injects the user resolved by the configured auth provider
func Principal(reg *metadata.Registry, target interface{}, key string, index int) {
	Params(reg, target, key, index, metadata.RolePrincipal)
}

// Render renders the method's result with template
func Render(reg *metadata.Registry, target interface{}, key, template string, defaultData ...map[string]interface{}) {
	meta := metadata.RenderMetadata{Template: template}
	if len(defaultData) > 0 {
		meta.DefaultData = defaultData[0]
	}
	reg.SetRender(metadata.TargetOf(target), key, meta)
}

// RenderMetadataOf returns the render metadata of a method, or the zero
// value when none was declared
func RenderMetadataOf(reg *metadata.Registry, target interface{}, key string) metadata.RenderMetadata {
	meta, _ := reg.Render(metadata.TargetOf(target), key)
	return meta
}

// FileUpload makes the method accept multipart files shaped by options:
// upload.Field, []upload.Field, upload.None or upload.Any. An optional
// upload.Options limits sizes and counts.
func FileUpload(reg *metadata.Registry, target interface{}, key string, options interface{}, uploadOptions ...upload.Options) error {
	meta, err := upload.Infer(options)
	if err != nil {
		return err
	}
	opts := upload.Options{}
	if len(uploadOptions) > 0 {
		opts = uploadOptions[0]
	}
	meta.Options = opts
	reg.SetUpload(metadata.TargetOf(target), key, meta)
	return nil
}
