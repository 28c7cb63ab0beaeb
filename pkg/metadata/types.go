// Package metadata holds the routing facts collected from controller
// declarations: controllers, their methods, parameter roles, explicit status
// codes, render templates and upload options.
package metadata

import (
	"reflect"
	"strings"

	"github.com/toyz/axonroute/pkg/axon"
)

// Target identifies a controller by its struct type (never a pointer type)
type Target = reflect.Type

// TargetOf returns the Target for a controller value, pointer or reflect.Type
func TargetOf(v interface{}) Target {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Name returns the display name of a controller target
func Name(t Target) string {
	if t == nil {
		return ""
	}
	return t.Name()
}

// Middleware is anything the route builder knows how to turn into an
// axon.MiddlewareFunc: a MiddlewareFunc itself, a name registered in an
// axon.MiddlewareRegistry, or a container service identifier bound to a
// context-aware middleware.
type Middleware interface{}

// ControllerMetadata describes a controller declaration
type ControllerMetadata struct {
	Path       string
	Middleware []Middleware
	Target     Target
	Seq        int
}

// ControllerMethodMetadata describes a routed controller method
type ControllerMethodMetadata struct {
	Key        string
	Verb       string
	Path       string
	Middleware []Middleware
	Target     Target
	Kinds      []axon.Kind
}

// ParameterRole names where an argument is injected from
type ParameterRole int

const (
	RoleRequest ParameterRole = iota
	RoleResponse
	RoleParams
	RoleQuery
	RoleBody
	RoleHeaders
	RoleCookies
	RoleNext
	RolePrincipal
)

var roleNames = map[ParameterRole]string{
	RoleRequest:   "request",
	RoleResponse:  "response",
	RoleParams:    "params",
	RoleQuery:     "query",
	RoleBody:      "body",
	RoleHeaders:   "headers",
	RoleCookies:   "cookies",
	RoleNext:      "next",
	RolePrincipal: "principal",
}

func (r ParameterRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole maps a role name back to its ParameterRole
func ParseRole(name string) (ParameterRole, bool) {
	for role, n := range roleNames {
		if n == name {
			return role, true
		}
	}
	return 0, false
}

// ParameterMetadata binds one method argument to a request source.
// InjectRoot is true when no Name was given and the whole source is injected.
type ParameterMetadata struct {
	Index      int
	Role       ParameterRole
	Name       string
	InjectRoot bool
	Seq        int
}

// PathMetadata is the pending {path, verb} pair recorded for a method
type PathMetadata struct {
	Path string
	Verb string
}

// RenderMetadata names the template a method's result is rendered with
type RenderMetadata struct {
	Template    string
	DefaultData map[string]interface{}
}

// UploadMode is the multipart shape a FileUpload method accepts
type UploadMode string

const (
	UploadSingle UploadMode = "single"
	UploadArray  UploadMode = "array"
	UploadFields UploadMode = "fields"
	UploadNone   UploadMode = "none"
	UploadAny    UploadMode = "any"
)

// UploadField is one accepted file field
type UploadField struct {
	Name     string
	MaxCount int
}

// UploadMetadata is the inferred upload configuration of a method
type UploadMetadata struct {
	Mode    UploadMode
	Fields  []UploadField
	Options interface{} // upload.Options
}

// CoercionMode controls how enhanced verbs attach route-parameter coercion
type CoercionMode int

const (
	// CoerceReplicate prepends a coercer carrying the new method's kinds to
	// every method already declared on the controller.
	CoerceReplicate CoercionMode = iota
	// CoerceOnce gives each enhanced method exactly one coercer with its own kinds.
	CoerceOnce
)

// StatusKey builds the composite status key "{path}/-{verb}"
func StatusKey(path, verb string) string {
	return axon.NormalizePath(path) + "/-" + strings.ToLower(verb)
}

// ResolvePath joins a controller path and a method path. A method path of
// "/" resolves to the controller path itself.
func ResolvePath(controllerPath, methodPath string) string {
	if methodPath == "/" || methodPath == "" {
		return axon.NormalizePath(controllerPath)
	}
	return axon.JoinPaths(controllerPath, methodPath)
}
