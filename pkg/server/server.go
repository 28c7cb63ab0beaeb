// Package server turns controller declarations into mounted routes: it binds
// controllers in the container, assembles their middleware, resolves method
// arguments per request and adapts results to responses.
package server

import (
	"fmt"
	"os"
	"reflect"

	"go.uber.org/zap"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/di"
	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/upload"
)

// Server assembles an axon.WebServerInterface from controller metadata
type Server struct {
	container   *di.Container
	ws          axon.WebServerInterface
	registry    *metadata.Registry
	middlewares axon.MiddlewareRegistry
	routes      axon.RouteRegistry
	logger      *zap.Logger

	rootPath         string
	forceControllers bool
	statusCodes      bool
	authProvider     AuthProvider
	renderer         Renderer
	uploadParser     upload.Parser

	configFn      func(axon.WebServerInterface)
	errorConfigFn func(axon.WebServerInterface)
	exit          func(int)

	status *StatusResolver
}

// New creates a Server mounting routes on ws
func New(container *di.Container, ws axon.WebServerInterface, opts ...Option) *Server {
	s := &Server{
		container:    container,
		ws:           ws,
		registry:     metadata.Default(),
		middlewares:  axon.DefaultMiddlewareRegistry,
		routes:       axon.DefaultRouteRegistry,
		logger:       zap.NewNop(),
		rootPath:     "/",
		statusCodes:  true,
		uploadParser: upload.MultipartParser{},
		exit:         os.Exit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConfig runs fn on the web server before any route is mounted
func (s *Server) SetConfig(fn func(axon.WebServerInterface)) *Server {
	s.configFn = fn
	return s
}

// SetErrorConfig runs fn on the web server after every route is mounted
func (s *Server) SetErrorConfig(fn func(axon.WebServerInterface)) *Server {
	s.errorConfigFn = fn
	return s
}

// Registry returns the metadata registry routes are built from
func (s *Server) Registry() *metadata.Registry {
	return s.registry
}

// StatusResolver returns the resolver built from the merged status codes.
// It is nil until Build ran.
func (s *Server) StatusResolver() *StatusResolver {
	return s.status
}

// Build binds controllers, mounts their routes and returns the web server.
// A duplicated controller name aborts the build before any route is mounted.
func (s *Server) Build() (axon.WebServerInterface, error) {
	if s.container == nil {
		s.logger.Error("cannot build server: no container configured")
		s.exit(1)
		return nil, axonerrors.ConfigurationError("server", "no container configured")
	}

	controllers, err := s.bindControllers()
	if err != nil {
		return nil, err
	}
	if len(controllers) == 0 {
		s.logger.Warn("no controllers registered, no routes will be mounted")
	}

	if !s.container.IsBound(TypeHttpContext) {
		s.container.Bind(TypeHttpContext).ToConstantValue(&HttpContext{Container: s.container})
	}
	if err := s.bindAuthProvider(); err != nil {
		return nil, err
	}

	if s.configFn != nil {
		s.configFn(s.ws)
	}

	s.status = NewStatusResolver(s.registry.StatusCodes(), s.rootPath)
	if s.statusCodes {
		s.ws.Use(s.status.Middleware())
	}

	for _, ctrl := range controllers {
		for _, m := range s.registry.Methods(ctrl.Target) {
			if err := s.mount(ctrl, m); err != nil {
				return nil, err
			}
		}
	}

	if s.errorConfigFn != nil {
		s.errorConfigFn(s.ws)
	}
	return s.ws, nil
}

func (s *Server) bindControllers() ([]metadata.ControllerMetadata, error) {
	declared := ControllersFromMetadata(s.registry)
	seen := make(map[string]bool, len(declared))
	for _, ctrl := range declared {
		name := metadata.Name(ctrl.Target)
		if seen[name] || s.container.IsBoundNamed(TypeController, name) {
			return nil, axonerrors.DuplicatedControllerName(name)
		}
		seen[name] = true
	}
	for _, ctrl := range declared {
		s.container.Bind(TypeController).To(ctrl.Target).WhenTargetNamed(metadata.Name(ctrl.Target))
	}

	if !s.forceControllers {
		return declared, nil
	}

	bound, err := ControllersFromContainer(s.container, true)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.ControllerMetadata, 0, len(bound))
	for _, t := range bound {
		ctrl, ok := s.registry.Controller(t)
		if !ok {
			s.logger.Warn("controller bound without declaration, no routes mounted",
				zap.String("controller", metadata.Name(t)))
			continue
		}
		out = append(out, ctrl)
	}
	return out, nil
}

func (s *Server) bindAuthProvider() error {
	if s.authProvider != nil {
		if !s.container.IsBound(TypeAuthProvider) {
			s.container.Bind(TypeAuthProvider).ToConstantValue(s.authProvider)
		}
		return nil
	}
	if !s.container.IsBound(TypeAuthProvider) {
		return nil
	}
	v, err := s.container.Get(TypeAuthProvider)
	if err != nil {
		return err
	}
	provider, ok := v.(AuthProvider)
	if !ok {
		return axonerrors.DependencyError(TypeAuthProvider, fmt.Sprintf("%T", v), "bound value does not implement AuthProvider")
	}
	s.authProvider = provider
	return nil
}

func (s *Server) mount(ctrl metadata.ControllerMetadata, m metadata.ControllerMethodMetadata) error {
	name := metadata.Name(ctrl.Target)
	fn := reflect.New(ctrl.Target).MethodByName(m.Key)
	if !fn.IsValid() {
		return axonerrors.RegistrationFailed("route", name+"."+m.Key, "method not found")
	}

	params := s.registry.Parameters(ctrl.Target, m.Key)
	resolvers, err := resolversFor(fn.Type(), params)
	if err != nil {
		return axonerrors.RegistrationFailed("route", name+"."+m.Key, err.Error())
	}

	var render *metadata.RenderMetadata
	if meta, ok := s.registry.Render(ctrl.Target, m.Key); ok {
		render = &meta
		if s.renderer == nil {
			s.logger.Warn("render template declared but no renderer configured, results are written as JSON",
				zap.String("controller", name), zap.String("method", m.Key), zap.String("template", meta.Template))
		}
	}

	path := axon.JoinPaths(s.rootPath, metadata.ResolvePath(ctrl.Path, m.Path))
	mws := []axon.MiddlewareFunc{s.contextMiddleware(path)}
	var names []string
	var instances []axon.MiddlewareInstance
	for _, list := range [][]metadata.Middleware{ctrl.Middleware, m.Middleware} {
		for _, raw := range list {
			mw, inst, err := s.resolveMiddleware(raw)
			if err != nil {
				return err
			}
			mws = append(mws, mw)
			if inst != nil {
				names = append(names, inst.Name)
				instances = append(instances, *inst)
			}
		}
	}
	if meta, ok := s.registry.Upload(ctrl.Target, m.Key); ok {
		opts, _ := meta.Options.(upload.Options)
		mws = append(mws, upload.Middleware(meta, s.uploadParser, opts, s.logger))
	}

	handler := s.handler(name, m.Key, resolvers, render)
	s.ws.RegisterRoute(m.Verb, axon.NewAxonPath(path), handler, mws...)

	paramTypes := axon.ExtractParameterInfo(path)
	for _, p := range params {
		if p.Role == metadata.RoleParams && !p.InjectRoot {
			paramTypes[p.Name] = fn.Type().In(p.Index).String()
		}
	}
	s.routes.RegisterRoute(axon.RouteInfo{
		Method:              m.Verb,
		Path:                path,
		HandlerName:         m.Key,
		ControllerName:      name,
		PackageName:         ctrl.Target.PkgPath(),
		Middlewares:         names,
		MiddlewareInstances: instances,
		ParameterTypes:      paramTypes,
		StatusCode:          s.status.Resolve(path, m.Verb),
		Handler:             handler,
	})

	s.logger.Debug("route mounted",
		zap.String("method", m.Verb),
		zap.String("path", path),
		zap.String("controller", name),
		zap.String("handler", m.Key))
	return nil
}

// contextMiddleware creates the HttpContext of a request and its child container
func (s *Server) contextMiddleware(route string) axon.MiddlewareFunc {
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			ctx.Set(axon.RouteKey, route)
			if HttpContextOf(ctx) != nil {
				return next(ctx)
			}
			child := s.container.CreateChild()
			hc := &HttpContext{Container: child, Request: ctx, Response: ctx.Response()}
			if s.authProvider != nil {
				user, err := s.authProvider.GetUser(ctx)
				if err != nil {
					return err
				}
				hc.User = user
			}
			child.Bind(TypeHttpContext).ToConstantValue(hc)
			ctx.Set(HttpContextKey, hc)
			return next(ctx)
		}
	}
}

// resolveMiddleware accepts middleware functions, names registered in the
// middleware registry and service identifiers bound in the container
func (s *Server) resolveMiddleware(raw metadata.Middleware) (axon.MiddlewareFunc, *axon.MiddlewareInstance, error) {
	switch m := raw.(type) {
	case axon.MiddlewareFunc:
		return m, nil, nil
	case func(axon.HandlerFunc) axon.HandlerFunc:
		return m, nil, nil
	case string:
		if inst, ok := s.middlewares.GetMiddleware(m); ok {
			return inst.Handler, &inst, nil
		}
	}
	if raw != nil && reflect.TypeOf(raw).Comparable() && s.container.IsBound(raw) {
		return s.containerMiddleware(raw), nil, nil
	}
	return nil, nil, axonerrors.RegistrationFailed("middleware", fmt.Sprint(raw),
		"not a middleware function, a registered middleware name or a bound service identifier")
}

func (s *Server) containerMiddleware(id interface{}) axon.MiddlewareFunc {
	return func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			c := s.container
			hc := HttpContextOf(ctx)
			if hc != nil {
				c = hc.Container
			}
			v, err := c.Get(id)
			if err != nil {
				return err
			}
			switch m := v.(type) {
			case ContextMiddleware:
				m.SetHttpContext(hc)
				return m.Handler(ctx, next)
			case axon.MiddlewareFunc:
				return m(next)(ctx)
			case func(axon.HandlerFunc) axon.HandlerFunc:
				return m(next)(ctx)
			}
			return axonerrors.DependencyError(fmt.Sprint(id), fmt.Sprintf("%T", v), "bound value is not a middleware")
		}
	}
}

func (s *Server) handler(name, key string, resolvers []argResolver, render *metadata.RenderMetadata) axon.HandlerFunc {
	return func(ctx axon.RequestContext) error {
		hc := HttpContextOf(ctx)
		if hc == nil {
			hc = &HttpContext{Container: s.container, Request: ctx, Response: ctx.Response()}
		}

		inst, err := hc.Container.GetNamed(TypeController, name)
		if err != nil {
			return err
		}
		recv := reflect.ValueOf(inst)
		if recv.Kind() != reflect.Pointer {
			ptr := reflect.New(recv.Type())
			ptr.Elem().Set(recv)
			recv = ptr
		}
		method := recv.MethodByName(key)
		if !method.IsValid() {
			return axonerrors.RegistrationFailed("route", name+"."+key, "method not found on resolved controller")
		}

		args := make([]reflect.Value, len(resolvers))
		for i, resolve := range resolvers {
			if args[i], err = resolve(ctx, hc); err != nil {
				return err
			}
		}

		value, err := splitResults(method.Call(args))
		if err != nil {
			return err
		}
		return writeResult(ctx, value, render, s.renderer)
	}
}
