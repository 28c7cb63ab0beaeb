package adapters

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/axonroute/pkg/axon"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var servers = map[string]func() axon.WebServerInterface{
	"echo":  func() axon.WebServerInterface { return NewDefaultEchoAdapter() },
	"gin":   func() axon.WebServerInterface { return NewDefaultGinAdapter() },
	"fiber": func() axon.WebServerInterface { return NewDefaultFiberAdapter() },
	"chi":   func() axon.WebServerInterface { return NewDefaultChiAdapter() },
}

func serve(t *testing.T, ws axon.WebServerInterface, method, target string, body io.Reader) (int, http.Header, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	ws.ServeHTTP(rec, req)
	return rec.Code, rec.Header(), strings.TrimSpace(rec.Body.String())
}

func eachServer(t *testing.T, fn func(t *testing.T, ws axon.WebServerInterface)) {
	for name, factory := range servers {
		t.Run(name, func(t *testing.T) {
			fn(t, factory())
		})
	}
}

func TestAdapters_ImplementWebServerInterface(t *testing.T) {
	var _ axon.WebServerInterface = (*EchoAdapter)(nil)
	var _ axon.WebServerInterface = (*GinAdapter)(nil)
	var _ axon.WebServerInterface = (*FiberAdapter)(nil)
	var _ axon.WebServerInterface = (*ChiAdapter)(nil)
}

func TestAdapters_MiddlewareOrder(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		var order []string
		mark := func(name string) axon.MiddlewareFunc {
			return func(next axon.HandlerFunc) axon.HandlerFunc {
				return func(ctx axon.RequestContext) error {
					order = append(order, name)
					return next(ctx)
				}
			}
		}
		ws.Use(mark("global"))
		ws.RegisterRoute("GET", axon.NewAxonPath("/order"), func(ctx axon.RequestContext) error {
			order = append(order, "handler")
			return ctx.Response().String(http.StatusOK, "ok")
		}, mark("first"), mark("second"))

		code, _, body := serve(t, ws, "GET", "/order", nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body)
		assert.Equal(t, []string{"global", "first", "second", "handler"}, order)
	})
}

func TestAdapters_ShortCircuit(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		reached := false
		deny := func(next axon.HandlerFunc) axon.HandlerFunc {
			return func(ctx axon.RequestContext) error {
				return ctx.Response().String(http.StatusForbidden, "denied")
			}
		}
		ws.RegisterRoute("GET", axon.NewAxonPath("/private"), func(ctx axon.RequestContext) error {
			reached = true
			return nil
		}, deny)

		code, _, body := serve(t, ws, "GET", "/private", nil)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "denied", body)
		assert.False(t, reached)
	})
}

func TestAdapters_ErrorHandler(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		ws.RegisterRoute("GET", axon.NewAxonPath("/teapot"), func(ctx axon.RequestContext) error {
			return axon.NewHTTPError(http.StatusTeapot, "short and stout")
		})
		ws.RegisterRoute("GET", axon.NewAxonPath("/boom"), func(ctx axon.RequestContext) error {
			return errors.New("connection string leaked")
		})

		code, _, body := serve(t, ws, "GET", "/teapot", nil)
		assert.Equal(t, http.StatusTeapot, code)
		assert.JSONEq(t, `{"error":"short and stout"}`, body)

		code, _, body = serve(t, ws, "GET", "/boom", nil)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.NotContains(t, body, "leaked")
	})
}

func TestAdapters_SetErrorHandler(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		var seen error
		ws.SetErrorHandler(func(err error, ctx axon.RequestContext) {
			seen = err
			_ = ctx.Response().String(http.StatusBadGateway, "custom")
		})
		ws.RegisterRoute("GET", axon.NewAxonPath("/fail"), func(ctx axon.RequestContext) error {
			return axon.ErrConflict("taken")
		})

		code, _, body := serve(t, ws, "GET", "/fail", nil)
		assert.Equal(t, http.StatusBadGateway, code)
		assert.Equal(t, "custom", body)
		require.Error(t, seen)
		assert.Equal(t, "HTTP 409: taken", seen.Error())
	})
}

func TestAdapters_MethodAll(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		ws.RegisterRoute(axon.MethodAll, axon.NewAxonPath("/any"), func(ctx axon.RequestContext) error {
			return ctx.Response().String(http.StatusOK, ctx.Method())
		})

		for _, method := range []string{"GET", "POST", "DELETE", "PATCH"} {
			code, _, body := serve(t, ws, method, "/any", nil)
			assert.Equal(t, http.StatusOK, code, method)
			assert.Equal(t, method, body)
		}
	})
}

func TestAdapters_BracedAndColonParams(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		handler := func(ctx axon.RequestContext) error {
			return ctx.Response().JSON(http.StatusOK, map[string]interface{}{
				"names":  ctx.ParamNames(),
				"values": ctx.ParamValues(),
			})
		}
		ws.RegisterRoute("GET", axon.NewAxonPath("/users/{id:int}/posts/:slug"), handler)

		code, _, body := serve(t, ws, "GET", "/users/7/posts/hello", nil)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"names":["id","slug"],"values":["7","hello"]}`, body)
	})
}

func TestAdapters_SetParamOverridesValue(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		rewrite := func(next axon.HandlerFunc) axon.HandlerFunc {
			return func(ctx axon.RequestContext) error {
				ctx.SetParam("id", "42")
				return next(ctx)
			}
		}
		ws.RegisterRoute("GET", axon.NewAxonPath("/items/:id"), func(ctx axon.RequestContext) error {
			return ctx.Response().String(http.StatusOK, ctx.Param("id"))
		}, rewrite)

		_, _, body := serve(t, ws, "GET", "/items/1", nil)
		assert.Equal(t, "42", body)
	})
}

func TestAdapters_NoContentMarksWritten(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		var written bool
		ws.RegisterRoute("DELETE", axon.NewAxonPath("/items/:id"), func(ctx axon.RequestContext) error {
			err := ctx.Response().NoContent(http.StatusNoContent)
			written = ctx.Response().Written()
			return err
		})

		code, _, body := serve(t, ws, "DELETE", "/items/3", nil)
		assert.Equal(t, http.StatusNoContent, code)
		assert.Empty(t, body)
		assert.True(t, written)
	})
}

func TestAdapters_RequestHeadersAndBody(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		ws.RegisterRoute("POST", axon.NewAxonPath("/echo"), func(ctx axon.RequestContext) error {
			req := ctx.Request()
			assert.NotEmpty(t, req.Headers())
			assert.NotNil(t, ctx.Context())
			return ctx.Response().Blob(http.StatusOK, req.ContentType(), req.Body())
		})

		req := httptest.NewRequest("POST", "/echo", strings.NewReader(`{"a":1}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		ws.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"a":1}`, rec.Body.String())
	})
}

func TestAdapters_GroupsNest(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		api := ws.RegisterGroup("/api")
		api.Use(func(next axon.HandlerFunc) axon.HandlerFunc {
			return func(ctx axon.RequestContext) error {
				ctx.Response().SetHeader("X-Group", "api")
				return next(ctx)
			}
		})
		v1 := api.Group("/v1")
		v1.RegisterRoute("GET", axon.NewAxonPath("/ping"), func(ctx axon.RequestContext) error {
			return ctx.Response().String(http.StatusOK, "pong")
		})

		code, header, body := serve(t, ws, "GET", "/api/v1/ping", nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "pong", body)
		assert.Equal(t, "api", header.Get("X-Group"))
	})
}

func TestAdapters_Settings(t *testing.T) {
	eachServer(t, func(t *testing.T, ws axon.WebServerInterface) {
		assert.Nil(t, ws.Setting(axon.SettingViews))
		ws.Set(axon.SettingViews, "templates")
		assert.Equal(t, "templates", ws.Setting(axon.SettingViews))
	})
}
