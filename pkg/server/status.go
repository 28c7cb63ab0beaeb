package server

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/metadata"
)

// DefaultStatus is the status a verb answers with when no explicit code
// was declared for the route
func DefaultStatus(verb string) int {
	switch strings.ToUpper(verb) {
	case http.MethodPost:
		return http.StatusCreated
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}

type statusPattern struct {
	key     string
	static  int
	pattern *regexp.Regexp
	code    int
}

// StatusResolver maps a request to the status declared for its route
type StatusResolver struct {
	prefix   string
	exact    map[string]int
	patterns []statusPattern
}

// NewStatusResolver compiles the status table once. Keys are
// "{path}/-{verb}" as produced by metadata.StatusKey.
func NewStatusResolver(codes map[string]int, prefix string) *StatusResolver {
	r := &StatusResolver{
		exact:    make(map[string]int, len(codes)),
		patterns: make([]statusPattern, 0, len(codes)),
	}
	if prefix != "" {
		if p := axon.NormalizePath(prefix); p != "/" {
			r.prefix = p
		}
	}

	for key, code := range codes {
		r.exact[key] = code
		r.patterns = append(r.patterns, statusPattern{
			key:     key,
			static:  axon.DefaultRouteConverter.StaticLength(key),
			pattern: axon.DefaultRouteConverter.Pattern(key),
			code:    code,
		})
	}
	sort.Slice(r.patterns, func(i, j int) bool {
		if r.patterns[i].static != r.patterns[j].static {
			return r.patterns[i].static > r.patterns[j].static
		}
		return r.patterns[i].key < r.patterns[j].key
	})
	return r
}

// Key builds the lookup key for a request path and verb
func (r *StatusResolver) Key(path, verb string) string {
	if r.prefix != "" && (path == r.prefix || strings.HasPrefix(path, r.prefix+"/")) {
		path = path[len(r.prefix):]
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}
	return path + "/-" + strings.ToLower(verb)
}

// Resolve returns the status for a request, falling back to DefaultStatus
func (r *StatusResolver) Resolve(path, verb string) int {
	key := r.Key(path, verb)
	if code, ok := r.exact[key]; ok {
		return code
	}
	for _, p := range r.patterns {
		if p.pattern.MatchString(key) {
			return p.code
		}
	}
	return DefaultStatus(verb)
}

// Middleware sets the resolved status on the response and always calls next
func (r *StatusResolver) Middleware() axon.MiddlewareFunc {
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			ctx.Response().SetStatus(r.Resolve(ctx.Path(), ctx.Method()))
			return next(ctx)
		}
	}
}

// StatusMiddleware builds the status middleware for the codes merged in reg
func StatusMiddleware(reg *metadata.Registry, prefix string) axon.MiddlewareFunc {
	return NewStatusResolver(reg.StatusCodes(), prefix).Middleware()
}
