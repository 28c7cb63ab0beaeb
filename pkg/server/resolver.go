package server

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"reflect"

	"github.com/google/uuid"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/metadata"
)

var (
	requestContextType = reflect.TypeOf((*axon.RequestContext)(nil)).Elem()
	requestType        = reflect.TypeOf((*axon.RequestInterface)(nil)).Elem()
	contextType        = reflect.TypeOf((*context.Context)(nil)).Elem()
	httpContextType    = reflect.TypeOf((*HttpContext)(nil))
	errorType          = reflect.TypeOf((*error)(nil)).Elem()

	stringMapType   = reflect.TypeOf(map[string]string(nil))
	anyMapType      = reflect.TypeOf(map[string]interface{}(nil))
	coercedType     = reflect.TypeOf(axon.CoercedParams(nil))
	queryMapType    = reflect.TypeOf(axon.QueryMap{})
	valuesType      = reflect.TypeOf(url.Values(nil))
	multiMapType    = reflect.TypeOf(map[string][]string(nil))
	headerType      = reflect.TypeOf(http.Header(nil))
	cookieSliceType = reflect.TypeOf([]axon.AxonCookie(nil))
	bytesType       = reflect.TypeOf([]byte(nil))
	uuidType        = reflect.TypeOf(uuid.UUID{})
)

// argResolver produces one argument of a controller method
type argResolver func(ctx axon.RequestContext, hc *HttpContext) (reflect.Value, error)

// resolversFor precompiles one resolver per method argument
func resolversFor(method reflect.Type, params []metadata.ParameterMetadata) ([]argResolver, error) {
	byIndex := make(map[int]metadata.ParameterMetadata, len(params))
	for _, p := range params {
		if p.Index >= method.NumIn() {
			return nil, fmt.Errorf("parameter index %d out of range: method takes %d arguments", p.Index, method.NumIn())
		}
		byIndex[p.Index] = p
	}

	resolvers := make([]argResolver, method.NumIn())
	for i := range resolvers {
		t := method.In(i)
		if p, ok := byIndex[i]; ok {
			resolvers[i] = roleResolver(p, t)
			continue
		}
		resolvers[i] = implicitResolver(t)
	}
	return resolvers, nil
}

func implicitResolver(t reflect.Type) argResolver {
	switch t {
	case requestContextType:
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			return reflect.ValueOf(ctx), nil
		}
	case contextType:
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			return reflect.ValueOf(ctx.Context()), nil
		}
	case httpContextType:
		return func(_ axon.RequestContext, hc *HttpContext) (reflect.Value, error) {
			return reflect.ValueOf(hc), nil
		}
	}
	return func(axon.RequestContext, *HttpContext) (reflect.Value, error) {
		return reflect.Zero(t), nil
	}
}

func roleResolver(p metadata.ParameterMetadata, t reflect.Type) argResolver {
	switch p.Role {
	case metadata.RoleRequest:
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			if t == requestType {
				return reflect.ValueOf(ctx.Request()), nil
			}
			return fit(reflect.ValueOf(ctx), t), nil
		}
	case metadata.RoleResponse:
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			return fit(reflect.ValueOf(ctx.Response()), t), nil
		}
	case metadata.RoleNext:
		return func(axon.RequestContext, *HttpContext) (reflect.Value, error) {
			return fit(reflect.ValueOf(axon.HandlerFunc(fallthroughHandler)), t), nil
		}
	case metadata.RoleParams:
		if p.InjectRoot {
			return paramsRoot(t)
		}
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			raw := ctx.Param(p.Name)
			if v, ok := axon.Coerced(ctx)[p.Name]; ok {
				return convertCoerced(p, v, raw, t)
			}
			return convertRaw(p, raw, t)
		}
	case metadata.RoleQuery:
		if p.InjectRoot {
			return queryRoot(t)
		}
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.String {
				return reflect.ValueOf(ctx.QueryParams()[p.Name]).Convert(t), nil
			}
			return convertOptional(p, ctx.QueryParam(p.Name), t)
		}
	case metadata.RoleHeaders:
		if p.InjectRoot {
			return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
				return fitMulti(ctx.Request().Headers(), t), nil
			}
		}
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			return convertOptional(p, ctx.Request().Header(p.Name), t)
		}
	case metadata.RoleCookies:
		if p.InjectRoot {
			return cookiesRoot(t)
		}
		return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
			cookie, err := ctx.Request().Cookie(p.Name)
			if err != nil {
				return reflect.Zero(t), nil
			}
			return convertOptional(p, cookie.Value, t)
		}
	case metadata.RoleBody:
		return bodyResolver(t)
	case metadata.RolePrincipal:
		return func(_ axon.RequestContext, hc *HttpContext) (reflect.Value, error) {
			if hc == nil || hc.User == nil {
				return reflect.Zero(t), nil
			}
			return fit(reflect.ValueOf(hc.User), t), nil
		}
	}
	return implicitResolver(t)
}

// fallthroughHandler is injected for the next role; the last handler of a
// chain has nothing to continue to, so calling it answers 404
func fallthroughHandler(axon.RequestContext) error {
	return axon.ErrNotFound("Not Found")
}

// fit returns v when it is assignable to t and the zero value otherwise
func fit(v reflect.Value, t reflect.Type) reflect.Value {
	if v.IsValid() && v.Type().AssignableTo(t) {
		return v
	}
	return reflect.Zero(t)
}

func fitMulti(values map[string][]string, t reflect.Type) reflect.Value {
	switch t {
	case headerType, valuesType, multiMapType:
		return reflect.ValueOf(values).Convert(t)
	case queryMapType:
		return reflect.ValueOf(axon.QueryMapOf(values))
	case stringMapType:
		flat := make(map[string]string, len(values))
		for k, v := range values {
			if len(v) > 0 {
				flat[k] = v[0]
			}
		}
		return reflect.ValueOf(flat)
	}
	return fit(reflect.ValueOf(values), t)
}

func paramsRoot(t reflect.Type) argResolver {
	return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
		names, values := ctx.ParamNames(), ctx.ParamValues()
		switch t {
		case anyMapType, coercedType:
			coerced := axon.Coerced(ctx)
			out := make(map[string]interface{}, len(names))
			for i, name := range names {
				if v, ok := coerced[name]; ok {
					out[name] = v
				} else if i < len(values) {
					out[name] = values[i]
				}
			}
			return reflect.ValueOf(out).Convert(t), nil
		}
		out := make(map[string]string, len(names))
		for i, name := range names {
			if i < len(values) {
				out[name] = values[i]
			}
		}
		return fit(reflect.ValueOf(out), t), nil
	}
}

func queryRoot(t reflect.Type) argResolver {
	return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
		return fitMulti(ctx.QueryParams(), t), nil
	}
}

func cookiesRoot(t reflect.Type) argResolver {
	return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
		cookies := ctx.Request().Cookies()
		if t == cookieSliceType {
			return reflect.ValueOf(cookies), nil
		}
		out := make(map[string]string, len(cookies))
		for _, c := range cookies {
			out[c.Name] = c.Value
		}
		return fit(reflect.ValueOf(out), t), nil
	}
}

func bodyResolver(t reflect.Type) argResolver {
	return func(ctx axon.RequestContext, _ *HttpContext) (reflect.Value, error) {
		switch {
		case t == bytesType:
			return reflect.ValueOf(ctx.Request().Body()), nil
		case t.Kind() == reflect.String:
			return reflect.ValueOf(string(ctx.Request().Body())).Convert(t), nil
		}

		target := t
		if t.Kind() == reflect.Pointer {
			target = t.Elem()
		}
		ptr := reflect.New(target)
		if len(ctx.Request().Body()) > 0 {
			if err := ctx.Bind(ptr.Interface()); err != nil {
				if axon.ErrorStatus(err) < http.StatusInternalServerError {
					return reflect.Value{}, err
				}
				return reflect.Value{}, axon.NewHTTPError(http.StatusBadRequest, "invalid request body", err)
			}
		}
		if t.Kind() == reflect.Pointer {
			return ptr, nil
		}
		return ptr.Elem(), nil
	}
}

// convertOptional treats an absent value as the zero value of t
func convertOptional(p metadata.ParameterMetadata, raw string, t reflect.Type) (reflect.Value, error) {
	if raw == "" {
		return reflect.Zero(t), nil
	}
	return convertRaw(p, raw, t)
}

func convertRaw(p metadata.ParameterMetadata, raw string, t reflect.Type) (reflect.Value, error) {
	v, err := axon.ParseValue(t, raw)
	if err != nil {
		return reflect.Value{}, axonerrors.InvalidParameter(p.Name, p.Index, raw, err)
	}
	return v, nil
}

// convertCoerced converts a value produced by route parameter coercion into
// the argument type, falling back to parsing the raw string
func convertCoerced(p metadata.ParameterMetadata, coerced interface{}, raw string, t reflect.Type) (reflect.Value, error) {
	v := reflect.ValueOf(coerced)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch c := coerced.(type) {
	case float64:
		switch t.Kind() {
		case reflect.Float32, reflect.Float64:
			return reflect.ValueOf(c).Convert(t), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if math.IsNaN(c) || math.IsInf(c, 0) || c != math.Trunc(c) {
				return reflect.Value{}, axonerrors.InvalidParameter(p.Name, p.Index, raw,
					fmt.Errorf("not an integer"))
			}
			out := reflect.New(t).Elem()
			if t.Kind() >= reflect.Uint && t.Kind() <= reflect.Uint64 {
				if c < 0 || out.OverflowUint(uint64(c)) {
					return reflect.Value{}, axonerrors.InvalidParameter(p.Name, p.Index, raw, fmt.Errorf("out of range"))
				}
				out.SetUint(uint64(c))
				return out, nil
			}
			if out.OverflowInt(int64(c)) {
				return reflect.Value{}, axonerrors.InvalidParameter(p.Name, p.Index, raw, fmt.Errorf("out of range"))
			}
			out.SetInt(int64(c))
			return out, nil
		}
	case bool:
		if t.Kind() == reflect.Bool {
			return reflect.ValueOf(c).Convert(t), nil
		}
	case uuid.UUID:
		if t == uuidType {
			return v, nil
		}
	}
	if v.Type().ConvertibleTo(t) && v.Kind() == t.Kind() {
		return v.Convert(t), nil
	}
	return convertRaw(p, raw, t)
}
