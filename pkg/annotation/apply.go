package annotation

import (
	"fmt"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/decorate"
	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/upload"
)

// Processor replays annotations onto a metadata registry. With Middlewares
// set, middleware names are checked when the annotation is applied instead
// of when the server is built.
type Processor struct {
	Registry    *metadata.Registry
	Middlewares axon.MiddlewareRegistry
}

// Apply replays method annotations for key on target
func Apply(reg *metadata.Registry, target interface{}, key string, lines ...string) error {
	return (&Processor{Registry: reg}).Apply(target, key, lines...)
}

// ApplyController replays a //axon::controller line for target
func ApplyController(reg *metadata.Registry, target interface{}, line string) error {
	return (&Processor{Registry: reg}).ApplyController(target, line)
}

// Apply replays method annotations for key on target. The first failing
// line aborts; lines before it stay applied.
func (p *Processor) Apply(target interface{}, key string, lines ...string) error {
	t := metadata.TargetOf(target)
	for i, line := range lines {
		loc := axonerrors.SourceLocation{File: metadata.Name(t) + "." + key, Line: i + 1}
		a, err := Parse(line)
		if err != nil {
			return axonerrors.ParseFailed("annotation", loc, err)
		}
		if err := p.guard(loc, func() error { return p.applyMethod(t, key, a, loc) }); err != nil {
			return err
		}
	}
	return nil
}

// ApplyController replays a //axon::controller line for target
func (p *Processor) ApplyController(target interface{}, line string) error {
	t := metadata.TargetOf(target)
	loc := axonerrors.SourceLocation{File: metadata.Name(t), Line: 1}
	a, err := Parse(line)
	if err != nil {
		return axonerrors.ParseFailed("annotation", loc, err)
	}
	if err := validate(a, OnType, loc); err != nil {
		return err
	}
	mw, err := p.middleware(a, loc)
	if err != nil {
		return err
	}
	return p.guard(loc, func() error {
		decorate.Controller(p.Registry, t, pathArg(a), mw...)
		return nil
	})
}

// guard turns registration panics from pkg/decorate into errors
func (p *Processor) guard(loc axonerrors.SourceLocation, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if be, ok := r.(*axonerrors.BaseError); ok {
				err = be.WithLocation(loc)
				return
			}
			panic(r)
		}
	}()
	return fn()
}

func (p *Processor) applyMethod(t metadata.Target, key string, a *Annotation, loc axonerrors.SourceLocation) error {
	if err := validate(a, OnMethod, loc); err != nil {
		return err
	}
	switch a.Kind {
	case "get", "put", "patch", "delete", "post", "head", "options", "all":
		mw, err := p.middleware(a, loc)
		if err != nil {
			return err
		}
		verbs[a.Kind](p.Registry, t, key, pathArg(a), mw...)
		return nil

	case "http":
		code, _ := intArg(a, 0)
		decorate.Http(p.Registry, t, key, code)
		return nil

	case "param", "params", "query", "headers", "cookies":
		index, _ := intArg(a, 0)
		role := namedRoles[a.Kind]
		var name []string
		if pos := a.Positional(); len(pos) > 1 {
			name = append(name, pos[1].Text())
		}
		decorate.Params(p.Registry, t, key, index, role, name...)
		return nil

	case "body", "request", "response", "next", "principal":
		index, _ := intArg(a, 0)
		role, _ := metadata.ParseRole(a.Kind)
		decorate.Params(p.Registry, t, key, index, role)
		return nil

	case "render":
		pos := a.Positional()
		var defaults map[string]interface{}
		for k, opt := range a.Options() {
			if defaults == nil {
				defaults = make(map[string]interface{})
			}
			switch len(opt.Values) {
			case 0:
				defaults[k] = true
			case 1:
				defaults[k] = opt.Values[0].Interface()
			default:
				defaults[k] = opt.Texts()
			}
		}
		if defaults == nil {
			decorate.Render(p.Registry, t, key, pos[0].Text())
		} else {
			decorate.Render(p.Registry, t, key, pos[0].Text(), defaults)
		}
		return nil

	case "upload":
		return p.applyUpload(t, key, a, loc)
	}
	return syntaxError(loc, "unknown annotation %q", a.Kind)
}

var namedRoles = map[string]metadata.ParameterRole{
	"param":   metadata.RoleParams,
	"params":  metadata.RoleParams,
	"query":   metadata.RoleQuery,
	"headers": metadata.RoleHeaders,
	"cookies": metadata.RoleCookies,
}

var verbs = map[string]func(*metadata.Registry, interface{}, string, string, ...metadata.Middleware){
	"get":     decorate.Get,
	"put":     decorate.Put,
	"patch":   decorate.Patch,
	"delete":  decorate.Delete,
	"post":    decorate.Post,
	"head":    decorate.Head,
	"options": decorate.Options,
	"all":     decorate.All,
}

func (p *Processor) applyUpload(t metadata.Target, key string, a *Annotation, loc axonerrors.SourceLocation) error {
	opts := a.Options()

	var shape interface{}
	switch {
	case opts["None"] != nil:
		shape = upload.None{}
	case opts["Any"] != nil:
		shape = upload.Any{}
	case opts["Fields"] != nil:
		var fields []upload.Field
		for _, name := range opts["Fields"].Texts() {
			fields = append(fields, upload.Field{Name: name, MaxCount: 1})
		}
		shape = fields
	default:
		f := upload.Field{Name: a.Positional()[0].Text()}
		if o := opts["MaxCount"]; o != nil && len(o.Values) > 0 {
			f.MaxCount, _ = o.Values[0].Int()
		}
		shape = f
	}

	var limits upload.Options
	if o := opts["MaxFileSize"]; o != nil && len(o.Values) > 0 {
		n, _ := o.Values[0].Int()
		limits.MaxFileSize = int64(n)
	}
	if o := opts["MaxFiles"]; o != nil && len(o.Values) > 0 {
		limits.MaxFiles, _ = o.Values[0].Int()
	}

	if err := decorate.FileUpload(p.Registry, t, key, shape, limits); err != nil {
		if be, ok := err.(*axonerrors.BaseError); ok {
			return be.WithLocation(loc)
		}
		return err
	}
	return nil
}

// middleware returns the names given with -Middleware
func (p *Processor) middleware(a *Annotation, loc axonerrors.SourceLocation) ([]metadata.Middleware, error) {
	opt := a.Options()["Middleware"]
	if opt == nil {
		return nil, nil
	}
	var out []metadata.Middleware
	for _, name := range opt.Texts() {
		if p.Middlewares != nil {
			if _, ok := p.Middlewares.GetMiddleware(name); !ok {
				return nil, axonerrors.RegistrationFailed("middleware", name, "not registered").WithLocation(loc)
			}
		}
		out = append(out, name)
	}
	return out, nil
}

func checkOptions(a *Annotation, loc axonerrors.SourceLocation, allowed ...string) error {
	for key := range a.Options() {
		found := false
		for _, k := range allowed {
			if k == key {
				found = true
				break
			}
		}
		if !found {
			return syntaxError(loc, "unknown option -%s for %s", key, a.Kind)
		}
	}
	return nil
}

func pathArg(a *Annotation) string {
	if pos := a.Positional(); len(pos) > 0 {
		return pos[0].Text()
	}
	return "/"
}

func intArg(a *Annotation, i int) (int, bool) {
	pos := a.Positional()
	if len(pos) <= i {
		return 0, false
	}
	return pos[i].Int()
}

func syntaxError(loc axonerrors.SourceLocation, format string, args ...interface{}) error {
	return axonerrors.New(axonerrors.SyntaxErrorCode, fmt.Sprintf(format, args...)).WithLocation(loc)
}
