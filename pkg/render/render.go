// Package render provides the view engines behind methods declared with
// decorate.Render: html/template, text/template and markdown.
//
// Markdown views are executed as text templates, converted with goldmark and
// sanitized with the bluemonday UGC policy before they are written.
package render

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
)

// Engine names a view engine
type Engine string

const (
	EngineHTML     Engine = "html"
	EngineText     Engine = "text"
	EngineMarkdown Engine = "markdown"
)

// ErrUnsupportedEngine is returned by New for an unknown engine name
var ErrUnsupportedEngine = errors.New("unsupported view engine")

// Options configures a Renderer
type Options struct {
	// ViewsDir holds the templates. Ignored when FS is set.
	ViewsDir string
	// FS replaces os.DirFS(ViewsDir)
	FS fs.FS
	// Extension is appended to template names without one. Defaults to
	// ".html", ".tmpl" or ".md" depending on the engine.
	Extension string
	// Partials are parsed into every template, so they can be used with
	// {{template "name" .}}
	Partials []string
	Funcs    map[string]interface{}
	// Reload parses templates on every render instead of caching them
	Reload bool
	Logger *zap.Logger
}

type executor interface {
	Execute(w io.Writer, data interface{}) error
}

// Renderer renders templates onto axon responses
type Renderer struct {
	engine   Engine
	fsys     fs.FS
	opts     Options
	logger   *zap.Logger
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	disabled bool

	mu    sync.RWMutex
	cache map[string]executor
}

// New creates a renderer for engine. A missing views directory is not an
// error: the renderer logs a warning and writes results as JSON.
func New(engine Engine, opts Options) (*Renderer, error) {
	switch engine {
	case EngineHTML, EngineText, EngineMarkdown:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Extension == "" {
		opts.Extension = defaultExtension(engine)
	} else if !strings.HasPrefix(opts.Extension, ".") {
		opts.Extension = "." + opts.Extension
	}

	r := &Renderer{
		engine: engine,
		opts:   opts,
		logger: opts.Logger,
		cache:  make(map[string]executor),
	}
	if engine == EngineMarkdown {
		r.md = goldmark.New(goldmark.WithExtensions(extension.GFM))
		r.policy = bluemonday.UGCPolicy()
	}

	r.fsys = opts.FS
	if r.fsys == nil {
		info, err := os.Stat(opts.ViewsDir)
		if opts.ViewsDir == "" || err != nil || !info.IsDir() {
			r.logger.Warn("views directory not found, rendered results are written as JSON",
				zap.String("engine", string(engine)), zap.String("dir", opts.ViewsDir))
			r.disabled = true
			return r, nil
		}
		r.fsys = os.DirFS(opts.ViewsDir)
	}
	return r, nil
}

func defaultExtension(engine Engine) string {
	switch engine {
	case EngineText:
		return ".tmpl"
	case EngineMarkdown:
		return ".md"
	default:
		return ".html"
	}
}

// Engine returns the engine name
func (r *Renderer) Engine() Engine {
	return r.engine
}

// Enabled reports whether templates can be rendered
func (r *Renderer) Enabled() bool {
	return !r.disabled
}

// Render writes template executed with data, using the pending response
// status. A disabled renderer writes data as JSON.
func (r *Renderer) Render(ctx axon.RequestContext, template string, data interface{}) error {
	res := ctx.Response()
	if r.disabled {
		return res.JSON(res.Status(), data)
	}

	var buf bytes.Buffer
	if err := r.Execute(&buf, template, data); err != nil {
		return err
	}
	if r.engine == EngineText {
		return res.Blob(res.Status(), "text/plain; charset=utf-8", buf.Bytes())
	}
	return res.HTML(res.Status(), buf.String())
}

// Execute renders template into w
func (r *Renderer) Execute(w io.Writer, template string, data interface{}) error {
	if r.disabled {
		return axonerrors.WrapRenderError(template, errors.New("renderer has no views directory"))
	}
	tmpl, err := r.lookup(template)
	if err != nil {
		return axonerrors.WrapRenderError(template, err)
	}

	if r.engine != EngineMarkdown {
		if err := tmpl.Execute(w, data); err != nil {
			return axonerrors.WrapRenderError(template, err)
		}
		return nil
	}

	var source, out bytes.Buffer
	if err := tmpl.Execute(&source, data); err != nil {
		return axonerrors.WrapRenderError(template, err)
	}
	if err := r.md.Convert(source.Bytes(), &out); err != nil {
		return axonerrors.WrapRenderError(template, err)
	}
	_, err = w.Write(r.policy.SanitizeBytes(out.Bytes()))
	return err
}

func (r *Renderer) lookup(name string) (executor, error) {
	file := r.fileName(name)
	if !r.opts.Reload {
		r.mu.RLock()
		tmpl, ok := r.cache[file]
		r.mu.RUnlock()
		if ok {
			return tmpl, nil
		}
	}

	tmpl, err := r.parse(file)
	if err != nil {
		return nil, err
	}
	if !r.opts.Reload {
		r.mu.Lock()
		r.cache[file] = tmpl
		r.mu.Unlock()
	}
	return tmpl, nil
}

func (r *Renderer) fileName(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if path.Ext(name) == "" {
		name += r.opts.Extension
	}
	return name
}

func (r *Renderer) parse(file string) (executor, error) {
	view, err := fs.ReadFile(r.fsys, file)
	if err != nil {
		return nil, err
	}
	partials := make(map[string]string, len(r.opts.Partials))
	for _, p := range r.opts.Partials {
		name := r.fileName(p)
		b, err := fs.ReadFile(r.fsys, name)
		if err != nil {
			return nil, err
		}
		partials[path.Base(name)] = string(b)
	}

	if r.engine == EngineHTML {
		t := htmltemplate.New(path.Base(file)).Funcs(htmltemplate.FuncMap(r.opts.Funcs))
		for name, text := range partials {
			if _, err := t.New(name).Parse(text); err != nil {
				return nil, err
			}
		}
		// parsed last so the view's own definitions win over the partials
		return t.Parse(string(view))
	}

	t := texttemplate.New(path.Base(file)).Funcs(texttemplate.FuncMap(r.opts.Funcs))
	for name, text := range partials {
		if _, err := t.New(name).Parse(text); err != nil {
			return nil, err
		}
	}
	return t.Parse(string(view))
}
