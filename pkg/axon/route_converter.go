package axon

import (
	"fmt"
	"regexp"
	"strings"
)

// RouteConverter inspects and validates templated route paths and compiles
// them into matchers
type RouteConverter struct{}

// NewRouteConverter creates a new route converter
func NewRouteConverter() *RouteConverter {
	return &RouteConverter{}
}

// ExtractParameterInfo returns a map of parameter names to their declared types.
// Untyped parameters report "string".
func (rc *RouteConverter) ExtractParameterInfo(path string) map[string]string {
	paramInfo := make(map[string]string)
	for _, part := range AxonPath(path).Parts() {
		if part.Type != ParameterPart {
			continue
		}
		paramType := part.ParamType
		if paramType == "" {
			paramType = "string"
		}
		paramInfo[part.Value] = paramType
	}
	return paramInfo
}

// ValidateAxonPath validates that a path has correct syntax and known parameter types
func (rc *RouteConverter) ValidateAxonPath(path string) error {
	openBraces := strings.Count(path, "{")
	closeBraces := strings.Count(path, "}")
	if openBraces != closeBraces {
		return fmt.Errorf("mismatched braces in path: %s", path)
	}

	seen := make(map[string]bool)
	for _, part := range AxonPath(path).Parts() {
		if part.Type != ParameterPart {
			continue
		}
		if part.Value == "" {
			return fmt.Errorf("empty parameter name in path: %s", path)
		}
		if seen[part.Value] {
			return fmt.Errorf("duplicate parameter %q in path: %s", part.Value, path)
		}
		seen[part.Value] = true
		if part.ParamType != "" && !IsBuiltinType(part.ParamType) {
			return fmt.Errorf("unknown parameter type %q in path: %s", part.ParamType, path)
		}
	}
	return nil
}

// Pattern compiles a templated path into an anchored matcher. Parameters
// match a single segment, wildcards match the remainder, everything else is literal.
func (rc *RouteConverter) Pattern(path string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, part := range AxonPath(path).Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString("([^/]+)")
		case WildcardPart:
			b.WriteString("(.*)")
		default:
			b.WriteString(regexp.QuoteMeta(part.Value))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// StaticLength counts the literal characters of a templated path
func (rc *RouteConverter) StaticLength(path string) int {
	n := 0
	for _, part := range AxonPath(path).Parts() {
		if part.Type == StaticPart {
			n += len(part.Value)
		}
	}
	return n
}

// DefaultRouteConverter is shared by the package level helpers
var DefaultRouteConverter = NewRouteConverter()

// ExtractParameterInfo reports the declared type of every parameter of path
func ExtractParameterInfo(path string) map[string]string {
	return DefaultRouteConverter.ExtractParameterInfo(path)
}

// ValidateAxonPath checks path with the default converter
func ValidateAxonPath(path string) error {
	return DefaultRouteConverter.ValidateAxonPath(path)
}
