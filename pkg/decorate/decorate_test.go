package decorate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	axonerrors "github.com/toyz/axonroute/internal/errors"
	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/axon/adapters"
	"github.com/toyz/axonroute/pkg/metadata"
	"github.com/toyz/axonroute/pkg/upload"
)

type UserController struct{}

func (c *UserController) List() []string                   { return nil }
func (c *UserController) Show(id int) string               { return "" }
func (c *UserController) Create(body map[string]any) error { return nil }
func (c *UserController) Remove(id int) error              { return nil }
func (c *UserController) Flag(a float64, b bool) string    { return "" }
func (c *UserController) Avatar() error                    { return nil }

func TestController_MergesPendingStatus(t *testing.T) {
	reg := metadata.NewRegistry()

	Get(reg, UserController{}, "Show", "/:id")
	Http(reg, UserController{}, "Show", 202)
	Http(reg, UserController{}, "Show", 203)
	Post(reg, UserController{}, "Create", "/")
	Http(reg, UserController{}, "Create", 200)
	Get(reg, UserController{}, "List", "/")

	code, ok := reg.PendingStatus(metadata.TargetOf(UserController{}), "Show")
	require.True(t, ok)
	assert.Equal(t, 203, code)

	Controller(reg, &UserController{}, "/users")

	assert.Equal(t, map[string]int{
		"/users/:id/-get": 203,
		"/users/-post":    200,
	}, reg.StatusCodes())

	_, ok = reg.PendingStatus(metadata.TargetOf(UserController{}), "Show")
	assert.False(t, ok)
	assert.True(t, reg.IsInjectable(metadata.TargetOf(UserController{})))
}

func TestController_RootMethodPath(t *testing.T) {
	reg := metadata.NewRegistry()
	Get(reg, UserController{}, "List", "/")
	Http(reg, UserController{}, "List", 206)
	Controller(reg, UserController{}, "/users")

	codes := reg.StatusCodes()
	assert.Equal(t, 206, codes["/users/-get"])
	assert.NotContains(t, codes, "/users//-get")
}

type OrderController struct{}

func (c *OrderController) List() error { return nil }

func TestController_NoCrossControllerLeakage(t *testing.T) {
	reg := metadata.NewRegistry()
	Get(reg, UserController{}, "List", "/")
	Http(reg, UserController{}, "List", 299)
	Get(reg, OrderController{}, "List", "/")

	Controller(reg, OrderController{}, "/orders")
	assert.Empty(t, reg.StatusCodes())

	Controller(reg, UserController{}, "/users")
	assert.Equal(t, map[string]int{"/users/-get": 299}, reg.StatusCodes())
}

func TestHttpMethod_VerbsAndKinds(t *testing.T) {
	reg := metadata.NewRegistry()
	On[UserController](reg).
		Method("List").Get("/").
		Method("Create").Post("/").
		Method("Remove").Delete("/:id").
		Method("Avatar").Head("/avatar").
		Method("Flag").All("/flag/:a/:b").
		Controller("/users")

	methods := reg.Methods(metadata.TargetOf(UserController{}))
	require.Len(t, methods, 5)

	verbs := make([]string, len(methods))
	for i, m := range methods {
		verbs[i] = m.Verb
	}
	assert.Equal(t, []string{"GET", "POST", "DELETE", "HEAD", axon.MethodAll}, verbs)
	assert.Equal(t, []axon.Kind{axon.KindNumber, axon.KindBoolean}, methods[4].Kinds)
	assert.Equal(t, []axon.Kind{axon.KindAny}, methods[1].Kinds)
}

func TestHttpMethod_PanicsOnUnknownMethod(t *testing.T) {
	reg := metadata.NewRegistry()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, axonerrors.Sentinel(axonerrors.RegistrationErrorCode))
	}()
	Get(reg, UserController{}, "Missing", "/")
}

func TestHttpMethod_PanicsOnMalformedPath(t *testing.T) {
	for _, path := range []string{"/users/:id/posts/:id", "/users/{id:int", "/users/{id:widget}"} {
		reg := metadata.NewRegistry()
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, path)
				err, ok := r.(error)
				require.True(t, ok)
				assert.ErrorIs(t, err, axonerrors.Sentinel(axonerrors.RegistrationErrorCode), path)
			}()
			Get(reg, UserController{}, "Show", path)
		}()
		assert.Empty(t, reg.Methods(metadata.TargetOf(UserController{})), path)
	}
}

func coercionCount(m metadata.ControllerMethodMetadata) int {
	return len(m.Middleware)
}

func TestEnhancedHttpMethod_CoercionModes(t *testing.T) {
	t.Run("replicate", func(t *testing.T) {
		reg := metadata.NewRegistry()
		Get(reg, UserController{}, "List", "/")
		Post(reg, UserController{}, "Create", "/")
		Get(reg, UserController{}, "Show", "/:id")
		Delete(reg, UserController{}, "Remove", "/:id")

		methods := reg.Methods(metadata.TargetOf(UserController{}))
		assert.Equal(t, 3, coercionCount(methods[0]))
		assert.Equal(t, 2, coercionCount(methods[1]))
		assert.Equal(t, 2, coercionCount(methods[2]))
		assert.Equal(t, 1, coercionCount(methods[3]))
	})

	t.Run("once", func(t *testing.T) {
		reg := metadata.NewRegistry()
		reg.SetCoercionMode(metadata.CoerceOnce)
		Get(reg, UserController{}, "List", "/")
		Post(reg, UserController{}, "Create", "/")
		Get(reg, UserController{}, "Show", "/:id")
		Delete(reg, UserController{}, "Remove", "/:id")

		for i, want := range []int{1, 0, 1, 1} {
			assert.Equal(t, want, coercionCount(reg.Methods(metadata.TargetOf(UserController{}))[i]))
		}
	})
}

func TestEnhancedHttpMethod_CoercionKeepsUserMiddlewareLast(t *testing.T) {
	reg := metadata.NewRegistry()
	var order []string
	user := axon.MiddlewareFunc(func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			order = append(order, "user")
			_, coerced := axon.Coerced(ctx)["id"]
			assert.True(t, coerced)
			return next(ctx)
		}
	})
	Get(reg, UserController{}, "Show", "/:id", user)
	Get(reg, UserController{}, "List", "/")

	mws := reg.Methods(metadata.TargetOf(UserController{}))[0].Middleware
	require.Len(t, mws, 3)

	ws := adapters.NewDefaultChiAdapter()
	chain := make([]axon.MiddlewareFunc, len(mws))
	for i, mw := range mws {
		chain[i] = mw.(axon.MiddlewareFunc)
	}
	ws.RegisterRoute("GET", axon.NewAxonPath("/users/:id"), func(ctx axon.RequestContext) error {
		order = append(order, "handler")
		return ctx.Response().NoContent(http.StatusNoContent)
	}, chain...)

	rec := httptest.NewRecorder()
	ws.ServeHTTP(rec, httptest.NewRequest("GET", "/users/7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"user", "handler"}, order)
}

func TestEnhancedHttpMethod_CoercesPositionally(t *testing.T) {
	reg := metadata.NewRegistry()
	Put(reg, UserController{}, "Flag", "/x/:a/:b")

	mws := reg.Methods(metadata.TargetOf(UserController{}))[0].Middleware
	chain := make([]axon.MiddlewareFunc, len(mws))
	for i, mw := range mws {
		chain[i] = mw.(axon.MiddlewareFunc)
	}

	var got axon.CoercedParams
	ws := adapters.NewDefaultChiAdapter()
	ws.RegisterRoute("PUT", axon.NewAxonPath("/x/:a/:b"), func(ctx axon.RequestContext) error {
		got = axon.Coerced(ctx)
		return ctx.Response().NoContent(http.StatusNoContent)
	}, chain...)

	tests := []struct {
		path string
		a    float64
		b    bool
	}{
		{"/x/42/true", 42, true},
		{"/x/42/false", 42, false},
		{"/x/42/yes", 42, false},
		{"/x/7/1", 7, true},
	}
	for _, tt := range tests {
		ws.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("PUT", tt.path, nil))
		assert.Equal(t, tt.a, got["a"], tt.path)
		assert.Equal(t, tt.b, got["b"], tt.path)
	}
}

func TestParams_RolesAndLatestWins(t *testing.T) {
	reg := metadata.NewRegistry()
	b := On[UserController](reg)
	b.Method("Flag").
		Param(1, "b").
		Query(0).
		Param(0, "a").
		Principal(2)

	params := reg.Parameters(b.Target(), "Flag")
	require.Len(t, params, 3)

	assert.Equal(t, 0, params[0].Index)
	assert.Equal(t, metadata.RoleParams, params[0].Role)
	assert.Equal(t, "a", params[0].Name)
	assert.False(t, params[0].InjectRoot)

	assert.Equal(t, "b", params[1].Name)
	assert.Equal(t, metadata.RolePrincipal, params[2].Role)
	assert.True(t, params[2].InjectRoot)
}

func TestRender(t *testing.T) {
	reg := metadata.NewRegistry()
	assert.Equal(t, metadata.RenderMetadata{}, RenderMetadataOf(reg, UserController{}, "List"))

	Render(reg, UserController{}, "List", "users/index", map[string]interface{}{"title": "Users"})
	meta := RenderMetadataOf(reg, &UserController{}, "List")
	assert.Equal(t, "users/index", meta.Template)
	assert.Equal(t, "Users", meta.DefaultData["title"])
}

func TestFileUpload(t *testing.T) {
	reg := metadata.NewRegistry()
	require.NoError(t, FileUpload(reg, UserController{}, "Avatar", upload.Field{Name: "avatar"}, upload.Options{MaxFileSize: 1 << 20}))

	meta, ok := reg.Upload(metadata.TargetOf(UserController{}), "Avatar")
	require.True(t, ok)
	assert.Equal(t, metadata.UploadSingle, meta.Mode)
	assert.Equal(t, upload.Options{MaxFileSize: 1 << 20}, meta.Options)

	err := FileUpload(reg, UserController{}, "Avatar", "avatar")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, axon.ErrorStatus(err))

	assert.Panics(t, func() {
		On[UserController](reg).Method("Avatar").FileUpload(42)
	})
}
