package axon

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

// ParamParser converts a raw route or query value
type ParamParser func(ctx RequestContext, paramValue string) (interface{}, error)

// ParserInfo describes a built-in parser
type ParserInfo struct {
	TypeName string
	Type     reflect.Type
	Kind     Kind
	Parse    ParamParser
}

var uuidType = reflect.TypeOf(uuid.UUID{})

// BuiltinParsers contains all built-in parsers keyed by type name
var BuiltinParsers = map[string]ParserInfo{
	"int": {
		TypeName: "int",
		Type:     reflect.TypeOf(0),
		Kind:     KindNumber,
		Parse:    func(c RequestContext, v string) (interface{}, error) { return ParseInt(c, v) },
	},
	"string": {
		TypeName: "string",
		Type:     reflect.TypeOf(""),
		Kind:     KindString,
		Parse:    func(c RequestContext, v string) (interface{}, error) { return ParseString(c, v) },
	},
	"float64": {
		TypeName: "float64",
		Type:     reflect.TypeOf(float64(0)),
		Kind:     KindNumber,
		Parse:    func(c RequestContext, v string) (interface{}, error) { return ParseFloat64(c, v) },
	},
	"float32": {
		TypeName: "float32",
		Type:     reflect.TypeOf(float32(0)),
		Kind:     KindNumber,
		Parse:    func(c RequestContext, v string) (interface{}, error) { return ParseFloat32(c, v) },
	},
	"bool": {
		TypeName: "bool",
		Type:     reflect.TypeOf(false),
		Kind:     KindBoolean,
		Parse:    func(c RequestContext, v string) (interface{}, error) { return ParseBool(c, v) },
	},
	"uuid.UUID": {
		TypeName: "uuid.UUID",
		Type:     uuidType,
		Kind:     KindUUID,
		Parse:    func(c RequestContext, v string) (interface{}, error) { return ParseUUID(c, v) },
	},
}

// ParserAliases maps convenient aliases to their full type names
var ParserAliases = map[string]string{
	"UUID":    "uuid.UUID",
	"uuid":    "uuid.UUID",
	"float":   "float64", // Default float to float64
	"double":  "float64", // Common alias for float64
	"number":  "float64",
	"boolean": "bool",
}

// ParseInt parses a string parameter to int
func ParseInt(c RequestContext, paramValue string) (int, error) {
	return strconv.Atoi(paramValue)
}

// ParseString returns the string parameter as-is (no conversion needed)
func ParseString(c RequestContext, paramValue string) (string, error) {
	return paramValue, nil
}

// ParseFloat64 parses a string parameter to float64
func ParseFloat64(c RequestContext, paramValue string) (float64, error) {
	return strconv.ParseFloat(paramValue, 64)
}

// ParseFloat32 parses a string parameter to float32
func ParseFloat32(c RequestContext, paramValue string) (float32, error) {
	val, err := strconv.ParseFloat(paramValue, 32)
	if err != nil {
		return 0, err
	}
	return float32(val), nil
}

// ParseBool parses a string parameter to bool
func ParseBool(c RequestContext, paramValue string) (bool, error) {
	return strconv.ParseBool(paramValue)
}

// ParseUUID parses a string parameter to uuid.UUID
func ParseUUID(c RequestContext, paramValue string) (uuid.UUID, error) {
	return uuid.Parse(paramValue)
}

// GetBuiltinParser returns a built-in parser by type name, checking aliases first
func GetBuiltinParser(typeName string) (ParserInfo, bool) {
	parser, exists := BuiltinParsers[ResolveTypeAlias(typeName)]
	return parser, exists
}

// IsBuiltinType checks if a type is a built-in type, including aliases
func IsBuiltinType(typeName string) bool {
	_, exists := GetBuiltinParser(typeName)
	return exists
}

// ResolveTypeAlias resolves a type alias to its actual type name
func ResolveTypeAlias(typeName string) string {
	if actualType, isAlias := ParserAliases[typeName]; isAlias {
		return actualType
	}
	return typeName
}

// GetAllBuiltinTypes returns all built-in type names including aliases
func GetAllBuiltinTypes() []string {
	types := make([]string, 0, len(BuiltinParsers)+len(ParserAliases))
	for typeName := range BuiltinParsers {
		types = append(types, typeName)
	}
	for alias := range ParserAliases {
		types = append(types, alias)
	}
	return types
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// ParseValue converts raw into a value of type t.
// Pointers are allocated, TextUnmarshaler implementations are honoured.
func ParseValue(t reflect.Type, raw string) (reflect.Value, error) {
	if t == uuidType {
		id, err := uuid.Parse(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(id), nil
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		out.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.Pointer:
		elem, err := ParseValue(t.Elem(), raw)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return reflect.Value{}, fmt.Errorf("cannot parse %q into %s", raw, t)
		}
		out.Set(reflect.ValueOf(raw))
	default:
		return reflect.Value{}, fmt.Errorf("cannot parse %q into %s", raw, t)
	}
	return out, nil
}
