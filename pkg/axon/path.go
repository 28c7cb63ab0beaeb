package axon

import (
	"strings"
)

// AxonPathPartType represents the type of path part
type AxonPathPartType int

const (
	StaticPart AxonPathPartType = iota
	ParameterPart
	WildcardPart
)

// AxonPathPart represents a single part of an Axon path
type AxonPathPart struct {
	Type      AxonPathPartType
	Value     string // For static parts: the literal text, for parameters: the parameter name
	ParamType string // For parameters: the type (e.g., "int", "string"), empty for untyped
}

// AxonPath represents a route path. Parameters are written either as
// ":name" or "{name}" / "{name:type}"; "*" or "{*}" is a catch-all.
type AxonPath string

// Raw returns the original path text
func (p AxonPath) Raw() string {
	return string(p)
}

// Parts parses the path and returns the individual parts
func (p AxonPath) Parts() []AxonPathPart {
	path := string(p)
	var parts []AxonPathPart

	i := 0
	for i < len(path) {
		switch {
		case path[i] == '{':
			j := strings.IndexByte(path[i:], '}')
			if j == -1 {
				// Malformed, treat as static
				parts = appendStatic(parts, path[i:i+1])
				i++
				continue
			}
			paramContent := path[i+1 : i+j]
			if paramContent == "*" {
				parts = append(parts, AxonPathPart{Type: WildcardPart, Value: "*"})
			} else {
				paramName := paramContent
				paramType := ""
				if colonIndex := strings.Index(paramContent, ":"); colonIndex != -1 {
					paramName = paramContent[:colonIndex]
					paramType = paramContent[colonIndex+1:]
				}
				parts = append(parts, AxonPathPart{
					Type:      ParameterPart,
					Value:     paramName,
					ParamType: paramType,
				})
			}
			i += j + 1
		case path[i] == ':' && (i == 0 || path[i-1] == '/'):
			j := i + 1
			for j < len(path) && path[j] != '/' {
				j++
			}
			parts = append(parts, AxonPathPart{Type: ParameterPart, Value: path[i+1 : j]})
			i = j
		case path[i] == '*' && (i == 0 || path[i-1] == '/'):
			parts = append(parts, AxonPathPart{Type: WildcardPart, Value: "*"})
			i++
		default:
			// Static part - collect consecutive static characters
			start := i
			i++
			for i < len(path) && path[i] != '{' && !(path[i-1] == '/' && (path[i] == ':' || path[i] == '*')) {
				i++
			}
			parts = appendStatic(parts, path[start:i])
		}
	}

	return parts
}

func appendStatic(parts []AxonPathPart, value string) []AxonPathPart {
	if n := len(parts); n > 0 && parts[n-1].Type == StaticPart {
		parts[n-1].Value += value
		return parts
	}
	return append(parts, AxonPathPart{Type: StaticPart, Value: value})
}

// ParamNames returns the parameter names in declaration order
func (p AxonPath) ParamNames() []string {
	var names []string
	for _, part := range p.Parts() {
		if part.Type == ParameterPart {
			names = append(names, part.Value)
		}
	}
	return names
}

// Format renders the path with a framework specific parameter syntax
func (p AxonPath) Format(param func(AxonPathPart) string, wildcard string) string {
	var b strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString(param(part))
		case WildcardPart:
			b.WriteString(wildcard)
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// ColonPath renders parameters as ":name" (echo, gin, fiber)
func (p AxonPath) ColonPath() string {
	return p.Format(func(part AxonPathPart) string { return ":" + part.Value }, "*")
}

// BracePath renders parameters as "{name}" (chi)
func (p AxonPath) BracePath() string {
	return p.Format(func(part AxonPathPart) string { return "{" + part.Value + "}" }, "*")
}

// NewAxonPath creates a new AxonPath from a string
func NewAxonPath(path string) AxonPath {
	return AxonPath(path)
}

// NormalizePath returns path with a single leading slash, no trailing slash
// and no repeated slashes. The empty path and "/" both normalize to "/".
func NormalizePath(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 1)
	prevSlash := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			if b.Len() == 0 {
				b.WriteByte('/')
			}
			prevSlash = false
		}
		b.WriteByte(c)
	}
	out := strings.TrimSuffix(b.String(), "/")
	if out == "" {
		return "/"
	}
	return out
}

// JoinPaths concatenates route segments and normalizes the result
func JoinPaths(segments ...string) string {
	return NormalizePath(strings.Join(segments, "/"))
}
