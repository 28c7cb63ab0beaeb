package cli

import (
	"os"
	"path"
	"path/filepath"

	"golang.org/x/mod/modfile"

	axonerrors "github.com/toyz/axonroute/internal/errors"
)

// ModuleResolver maps package directories to import paths using the
// nearest go.mod
type ModuleResolver struct {
	custom string
	cache  map[string]module
}

type module struct {
	root string
	path string
}

// NewModuleResolver creates a resolver. A non-empty custom module path
// replaces the one declared in go.mod.
func NewModuleResolver(custom string) *ModuleResolver {
	return &ModuleResolver{custom: custom, cache: make(map[string]module)}
}

// ImportPath returns the import path of the package in dir
func (r *ModuleResolver) ImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	mod, err := r.find(abs)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(mod.root, abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return mod.path, nil
	}
	return path.Join(mod.path, filepath.ToSlash(rel)), nil
}

func (r *ModuleResolver) find(dir string) (module, error) {
	if m, ok := r.cache[dir]; ok {
		return m, nil
	}
	for cur := dir; ; {
		gomod := filepath.Join(cur, "go.mod")
		if data, err := os.ReadFile(gomod); err == nil {
			name, err := ParseModulePath(gomod, data)
			if err != nil {
				return module{}, err
			}
			if r.custom != "" {
				name = r.custom
			}
			m := module{root: cur, path: name}
			r.cache[dir] = m
			return m, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	if r.custom != "" {
		m := module{root: dir, path: r.custom}
		r.cache[dir] = m
		return m, nil
	}
	return module{}, axonerrors.ConfigurationError("go.mod", "no go.mod found above "+dir).
		WithSuggestion("run the check inside a module or pass -module")
}

// ParseModulePath returns the module path declared in a go.mod file
func ParseModulePath(file string, data []byte) (string, error) {
	f, err := modfile.ParseLax(file, data, nil)
	if err != nil {
		return "", axonerrors.WrapConfigurationError(file, "parse", err)
	}
	if f.Module == nil {
		return "", axonerrors.ConfigurationError(file, "no module declaration")
	}
	return f.Module.Mod.Path, nil
}
