package server

import (
	"go.uber.org/zap"

	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/upload"
)

// Option configures a Server
type Option func(*Server)

// WithRootPath mounts every controller below path
func WithRootPath(path string) Option {
	return func(s *Server) {
		s.rootPath = axon.NormalizePath(path)
	}
}

// WithForceControllers mounts the controllers bound in the container under
// TypeController and makes Build fail when there are none
func WithForceControllers(force bool) Option {
	return func(s *Server) {
		s.forceControllers = force
	}
}

// WithAuthProvider resolves the principal of every request
func WithAuthProvider(provider AuthProvider) Option {
	return func(s *Server) {
		s.authProvider = provider
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry reads controller declarations from reg instead of metadata.Default()
func WithRegistry(reg *metadata.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithRenderer renders the results of methods declared with Render
func WithRenderer(r Renderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithUploadParser replaces the multipart parser. A nil parser disables uploads.
func WithUploadParser(p upload.Parser) Option {
	return func(s *Server) {
		s.uploadParser = p
	}
}

// WithRouteRegistry records mounted routes in reg
func WithRouteRegistry(reg axon.RouteRegistry) Option {
	return func(s *Server) {
		s.routes = reg
	}
}

// WithMiddlewareRegistry resolves middleware names through reg
func WithMiddlewareRegistry(reg axon.MiddlewareRegistry) Option {
	return func(s *Server) {
		s.middlewares = reg
	}
}

// WithStatusCodes toggles mounting the status code middleware during Build.
// Callers that mount it themselves, such as the app shell, turn it off.
func WithStatusCodes(enabled bool) Option {
	return func(s *Server) {
		s.statusCodes = enabled
	}
}

// WithExitFunc replaces os.Exit for the fatal missing-container path
func WithExitFunc(exit func(int)) Option {
	return func(s *Server) {
		s.exit = exit
	}
}
