// Package pipeline collects application wide middleware, orders it by
// priority and mounts it on a web server ahead of the controller routes.
package pipeline

import (
	"sort"
	"strings"
	"sync"

	"github.com/toyz/axonroute/pkg/axon"
)

// Entry is one middleware of the pipeline
type Entry struct {
	Middleware axon.MiddlewareFunc
	Priority   int
	// Path limits the middleware to requests below it. Empty means every request.
	Path string
	seq  int
}

// MiddlewareConfig groups middleware that only applies below Path
type MiddlewareConfig struct {
	Path        string
	Middlewares []axon.MiddlewareFunc
}

// EntryOption configures an Entry added with Manager.Add
type EntryOption func(*Entry)

// WithPriority orders the entry. Lower priorities run first (outermost).
func WithPriority(priority int) EntryOption {
	return func(e *Entry) {
		e.Priority = priority
	}
}

// WithPath limits the entry to requests below path
func WithPath(path string) EntryOption {
	return func(e *Entry) {
		e.Path = path
	}
}

// Manager holds the middleware pipeline of an application
type Manager struct {
	mu           sync.RWMutex
	entries      []Entry
	errorHandler axon.ErrorHandler
}

// NewManager creates an empty pipeline
func NewManager() *Manager {
	return &Manager{}
}

// Add appends mw to the pipeline
func (m *Manager) Add(mw axon.MiddlewareFunc, opts ...EntryOption) *Manager {
	if mw == nil {
		return m
	}
	e := Entry{Middleware: mw}
	for _, opt := range opts {
		opt(&e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e.seq = len(m.entries)
	m.entries = append(m.entries, e)
	return m
}

// AddConfig appends every middleware of cfg scoped to cfg.Path
func (m *Manager) AddConfig(cfg MiddlewareConfig) *Manager {
	for _, mw := range cfg.Middlewares {
		m.Add(mw, WithPath(cfg.Path))
	}
	return m
}

// SetErrorHandler installs h as the error handler of the web server on Mount
func (m *Manager) SetErrorHandler(h axon.ErrorHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorHandler = h
}

// ErrorHandler returns the handler set with SetErrorHandler, if any
func (m *Manager) ErrorHandler() axon.ErrorHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorHandler
}

// Len returns the number of entries in the pipeline
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Pipeline returns the entries sorted by priority. Entries with the same
// priority keep the order they were added in.
func (m *Manager) Pipeline() []Entry {
	m.mu.RLock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Mount registers the pipeline as global middleware of ws. Scoped entries
// are matched against globalPrefix joined with their path.
func (m *Manager) Mount(ws axon.WebServerInterface, globalPrefix string) {
	for _, e := range m.Pipeline() {
		if e.Path == "" {
			ws.Use(e.Middleware)
			continue
		}
		ws.Use(Scoped(axon.JoinPaths(globalPrefix, e.Path), e.Middleware))
	}
	if h := m.ErrorHandler(); h != nil {
		ws.SetErrorHandler(h)
	}
}

// Scoped runs mw only for requests whose path is prefix or lies below it
func Scoped(prefix string, mw axon.MiddlewareFunc) axon.MiddlewareFunc {
	prefix = axon.NormalizePath(prefix)
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		wrapped := mw(next)
		return func(ctx axon.RequestContext) error {
			if MatchesPrefix(ctx.Path(), prefix) {
				return wrapped(ctx)
			}
			return next(ctx)
		}
	}
}

// MatchesPrefix reports whether path equals prefix or continues it at a segment boundary
func MatchesPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
