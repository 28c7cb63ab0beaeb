package metadata

import (
	"sort"
	"sync"
)

type methodRef struct {
	target Target
	key    string
}

// Registry accumulates controller metadata. Declarations write to it during
// start-up; the route builder reads it once per build.
type Registry struct {
	mu  sync.RWMutex
	seq int

	coercion    CoercionMode
	controllers map[Target]*ControllerMetadata
	injectable  map[Target]bool
	methods     map[Target][]*ControllerMethodMetadata
	params      map[methodRef][]ParameterMetadata

	pendingStatus map[methodRef]int
	pendingPaths  map[methodRef]PathMetadata
	statusCodes   map[string]int

	render map[methodRef]RenderMetadata
	upload map[methodRef]UploadMetadata
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		controllers:   make(map[Target]*ControllerMetadata),
		injectable:    make(map[Target]bool),
		methods:       make(map[Target][]*ControllerMethodMetadata),
		params:        make(map[methodRef][]ParameterMetadata),
		pendingStatus: make(map[methodRef]int),
		pendingPaths:  make(map[methodRef]PathMetadata),
		statusCodes:   make(map[string]int),
		render:        make(map[methodRef]RenderMetadata),
		upload:        make(map[methodRef]UploadMetadata),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by package-level declarations
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) next() int {
	r.seq++
	return r.seq
}

// SetCoercionMode selects how enhanced verbs attach coercion middleware
func (r *Registry) SetCoercionMode(mode CoercionMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coercion = mode
}

// CoercionMode returns the active coercion mode
func (r *Registry) CoercionMode() CoercionMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.coercion
}

// AddController records a controller and merges the pending status codes
// of its methods into the status table. Redeclaring a target replaces it.
func (r *Registry) AddController(meta ControllerMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta.Middleware = append([]Middleware(nil), meta.Middleware...)
	meta.Seq = r.next()
	r.controllers[meta.Target] = &meta

	for ref, p := range r.pendingPaths {
		if ref.target != meta.Target {
			continue
		}
		if code, ok := r.pendingStatus[ref]; ok {
			r.statusCodes[StatusKey(ResolvePath(meta.Path, p.Path), p.Verb)] = code
		}
		delete(r.pendingPaths, ref)
	}
	for ref := range r.pendingStatus {
		if ref.target == meta.Target {
			delete(r.pendingStatus, ref)
		}
	}
}

// Injectable marks a target as constructible by the container
func (r *Registry) Injectable(target Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.injectable[target] = true
}

// IsInjectable reports whether Injectable was called for target
func (r *Registry) IsInjectable(target Target) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.injectable[target]
}

// Controllers returns all controllers, most recently declared first
func (r *Registry) Controllers() []ControllerMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ControllerMetadata, 0, len(r.controllers))
	for _, c := range r.controllers {
		out = append(out, copyController(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
	return out
}

// Controller returns the metadata of a single controller
func (r *Registry) Controller(target Target) (ControllerMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controllers[target]
	if !ok {
		return ControllerMetadata{}, false
	}
	return copyController(c), true
}

func copyController(c *ControllerMetadata) ControllerMetadata {
	out := *c
	out.Middleware = append([]Middleware(nil), c.Middleware...)
	return out
}

// AddMethod appends a routed method and records its pending path/verb
func (r *Registry) AddMethod(meta ControllerMethodMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta.Middleware = append([]Middleware(nil), meta.Middleware...)
	r.methods[meta.Target] = append(r.methods[meta.Target], &meta)
	r.pendingPaths[methodRef{meta.Target, meta.Key}] = PathMetadata{Path: meta.Path, Verb: meta.Verb}
}

// PrependMiddleware puts mw in front of the middleware of the method
// identified by key, or of every method of target when key is empty
func (r *Registry) PrependMiddleware(target Target, key string, mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.methods[target] {
		if key != "" && m.Key != key {
			continue
		}
		m.Middleware = append([]Middleware{mw}, m.Middleware...)
	}
}

// Methods returns the routed methods of target in declaration order
func (r *Registry) Methods(target Target) []ControllerMethodMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.methods[target]
	out := make([]ControllerMethodMetadata, len(list))
	for i, m := range list {
		out[i] = *m
		out[i].Middleware = append([]Middleware(nil), m.Middleware...)
		out[i].Kinds = append(out[i].Kinds[:0:0], m.Kinds...)
	}
	return out
}

// SetStatus records an explicit status for a method until its controller
// is declared. The last call for a method wins.
func (r *Registry) SetStatus(target Target, key string, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingStatus[methodRef{target, key}] = code
}

// PendingStatus returns a status recorded by SetStatus that has not been merged yet
func (r *Registry) PendingStatus(target Target, key string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.pendingStatus[methodRef{target, key}]
	return code, ok
}

// StatusCodes returns a copy of the merged status table
func (r *Registry) StatusCodes() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.statusCodes))
	for k, v := range r.statusCodes {
		out[k] = v
	}
	return out
}

// AddParameter records an argument binding for a method
func (r *Registry) AddParameter(target Target, key string, p ParameterMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Seq = r.next()
	ref := methodRef{target, key}
	r.params[ref] = append(r.params[ref], p)
}

// Parameters returns the argument bindings of a method ordered by Index.
// When an index was declared twice the most recent declaration is kept.
func (r *Registry) Parameters(target Target, key string) []ParameterMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := make(map[int]ParameterMetadata)
	for _, p := range r.params[methodRef{target, key}] {
		if cur, ok := latest[p.Index]; !ok || p.Seq > cur.Seq {
			latest[p.Index] = p
		}
	}
	out := make([]ParameterMetadata, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Parameter returns the binding for a single argument index
func (r *Registry) Parameter(target Target, key string, index int) (ParameterMetadata, bool) {
	for _, p := range r.Parameters(target, key) {
		if p.Index == index {
			return p, true
		}
	}
	return ParameterMetadata{}, false
}

// SetRender attaches render metadata to a method
func (r *Registry) SetRender(target Target, key string, meta RenderMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.render[methodRef{target, key}] = meta
}

// Render returns the render metadata of a method
func (r *Registry) Render(target Target, key string) (RenderMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.render[methodRef{target, key}]
	return meta, ok
}

// SetUpload attaches upload metadata to a method
func (r *Registry) SetUpload(target Target, key string, meta UploadMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upload[methodRef{target, key}] = meta
}

// Upload returns the upload metadata of a method
func (r *Registry) Upload(target Target, key string) (UploadMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.upload[methodRef{target, key}]
	return meta, ok
}

// Reset forgets every declared controller. Method, parameter and status
// metadata stay in place, so redeclaring a controller restores its routes.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers = make(map[Target]*ControllerMetadata)
}
