package axon

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind tags the declared type of a handler argument for route parameter coercion
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindUUID
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindUUID:
		return "uuid"
	default:
		return "any"
	}
}

// KindOf derives the coercion kind of a Go type
func KindOf(t reflect.Type) Kind {
	if t == nil {
		return KindAny
	}
	if t == uuidType {
		return KindUUID
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Bool:
		return KindBoolean
	case reflect.String:
		return KindString
	default:
		return KindAny
	}
}

// KindsOf returns the kinds of every input of fn, skipping the first n inputs
func KindsOf(fn reflect.Type, skip int) []Kind {
	if fn == nil || fn.Kind() != reflect.Func {
		return nil
	}
	kinds := make([]Kind, 0, fn.NumIn())
	for i := skip; i < fn.NumIn(); i++ {
		kinds = append(kinds, KindOf(fn.In(i)))
	}
	return kinds
}

// Coerce converts a raw route parameter.
// Numbers become float64 (NaN when unparsable), booleans are true only for
// "true" and "1", UUIDs fall back to the raw string when invalid.
func (k Kind) Coerce(raw string) interface{} {
	switch k {
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			if strings.TrimSpace(raw) == "" {
				return float64(0)
			}
			return math.NaN()
		}
		return f
	case KindBoolean:
		return raw == "true" || raw == "1"
	case KindUUID:
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
		return raw
	default:
		return raw
	}
}

// ParamsKey is the context key holding CoercedParams
const ParamsKey = "axon.params"

// CoercedParams holds route parameters after coercion, keyed by name
type CoercedParams map[string]interface{}

// Coerced returns the coerced parameters stored on ctx, or nil
func Coerced(ctx RequestContext) CoercedParams {
	params, _ := ctx.Get(ParamsKey).(CoercedParams)
	return params
}

// CoerceParams returns middleware converting route parameters positionally:
// the i-th route parameter is coerced with kinds[i]. Every instance
// recomputes from the raw values, so when coercers are stacked the innermost
// one, closest to the handler, decides.
func CoerceParams(kinds []Kind) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx RequestContext) error {
			names := ctx.ParamNames()
			values := ctx.ParamValues()

			params := Coerced(ctx)
			if params == nil {
				params = make(CoercedParams, len(names))
				ctx.Set(ParamsKey, params)
			}

			for idx, name := range names {
				if idx >= len(values) {
					continue
				}
				kind := KindAny
				if idx < len(kinds) {
					kind = kinds[idx]
				}
				params[name] = kind.Coerce(values[idx])
			}
			return next(ctx)
		}
	}
}
