package annotation

import (
	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
)

// Placement is the declaration an annotation is written on
type Placement int

const (
	OnMethod Placement = iota
	OnType
)

func (p Placement) String() string {
	if p == OnType {
		return "type"
	}
	return "method"
}

type rule struct {
	placement Placement
	// options allowed after the positional arguments, nil allows any
	options  []string
	validate func(*Annotation) string
}

var (
	middlewareOnly = []string{"Middleware"}
	noOptions      = []string{}
	uploadOptions  = []string{"MaxCount", "Fields", "None", "Any", "MaxFileSize", "MaxFiles"}
)

var rules = map[string]rule{
	"controller": {OnType, middlewareOnly, routePath},
	"get":        {OnMethod, middlewareOnly, routePath},
	"put":        {OnMethod, middlewareOnly, routePath},
	"patch":      {OnMethod, middlewareOnly, routePath},
	"delete":     {OnMethod, middlewareOnly, routePath},
	"post":       {OnMethod, middlewareOnly, routePath},
	"head":       {OnMethod, middlewareOnly, routePath},
	"options":    {OnMethod, middlewareOnly, routePath},
	"all":        {OnMethod, middlewareOnly, routePath},
	"http":       {OnMethod, noOptions, statusArg},
	"param":      {OnMethod, noOptions, indexArg},
	"params":     {OnMethod, noOptions, indexArg},
	"query":      {OnMethod, noOptions, indexArg},
	"headers":    {OnMethod, noOptions, indexArg},
	"cookies":    {OnMethod, noOptions, indexArg},
	"body":       {OnMethod, noOptions, indexArg},
	"request":    {OnMethod, noOptions, indexArg},
	"response":   {OnMethod, noOptions, indexArg},
	"next":       {OnMethod, noOptions, indexArg},
	"principal":  {OnMethod, noOptions, indexArg},
	"render":     {OnMethod, nil, templateArg},
	"upload":     {OnMethod, uploadOptions, uploadShape},
}

// IsRoute reports whether kind declares a route
func IsRoute(kind string) bool {
	_, ok := verbs[kind]
	return ok
}

// Check parses line and validates it for placement without touching a
// registry. Middleware names are not resolved.
func Check(line string, placement Placement) (*Annotation, error) {
	a, err := Parse(line)
	if err != nil {
		return nil, axonerrors.ParseFailed("annotation", axonerrors.SourceLocation{}, err)
	}
	if err := validate(a, placement, axonerrors.SourceLocation{}); err != nil {
		return nil, err
	}
	return a, nil
}

func validate(a *Annotation, placement Placement, loc axonerrors.SourceLocation) error {
	r, ok := rules[a.Kind]
	if !ok {
		return syntaxError(loc, "unknown annotation %q", a.Kind)
	}
	if r.placement != placement {
		return syntaxError(loc, "%s annotation is not allowed on a %s", a.Kind, placement)
	}
	if r.options != nil {
		if err := checkOptions(a, loc, r.options...); err != nil {
			return err
		}
	}
	if r.validate != nil {
		if msg := r.validate(a); msg != "" {
			return syntaxError(loc, "%s", msg)
		}
	}
	return nil
}

func routePath(a *Annotation) string {
	if err := axon.ValidateAxonPath(pathArg(a)); err != nil {
		return err.Error()
	}
	return ""
}

func statusArg(a *Annotation) string {
	if code, ok := intArg(a, 0); !ok || code < 100 || code > 599 {
		return "http expects a status code"
	}
	return ""
}

func indexArg(a *Annotation) string {
	if index, ok := intArg(a, 0); !ok || index < 0 {
		return a.Kind + " expects an argument index"
	}
	return ""
}

func templateArg(a *Annotation) string {
	if len(a.Positional()) == 0 {
		return "render expects a template name"
	}
	return ""
}

func uploadShape(a *Annotation) string {
	opts := a.Options()
	if opts["None"] == nil && opts["Any"] == nil && opts["Fields"] == nil && len(a.Positional()) == 0 {
		return "upload expects a field name, -Fields, -None or -Any"
	}
	return ""
}
