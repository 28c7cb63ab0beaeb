package adapters

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/toyz/axonroute/pkg/axon"
)

func TestEchoAdapter_SharesEngine(t *testing.T) {
	e := echo.New()
	e.GET("/native", func(c echo.Context) error {
		return c.String(http.StatusOK, "native")
	})
	adapter := NewEchoAdapter(e)
	assert.Same(t, e, adapter.GetEngine())
	assert.Equal(t, "Echo", adapter.Name())

	adapter.RegisterRoute("GET", axon.NewAxonPath("/users/{id:int}"), func(ctx axon.RequestContext) error {
		return ctx.Response().JSON(http.StatusOK, map[string]string{
			"id":     ctx.Param("id"),
			"expand": ctx.QueryParam("expand"),
		})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest("GET", "/users/7?expand=roles", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"7","expand":"roles"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	adapter.ServeHTTP(rec, httptest.NewRequest("GET", "/native", nil))
	assert.Equal(t, "native", rec.Body.String())
}

func TestEchoAdapter_MiddlewareError(t *testing.T) {
	adapter := NewDefaultEchoAdapter()
	reached := false
	auth := func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			if ctx.Request().Header("Authorization") == "" {
				return axon.NewHTTPError(http.StatusUnauthorized, "missing token")
			}
			ctx.Set("user", "ann")
			return next(ctx)
		}
	}
	adapter.RegisterRoute("GET", axon.NewAxonPath("/me"), func(ctx axon.RequestContext) error {
		reached = true
		return ctx.Response().String(http.StatusOK, ctx.Get("user").(string))
	}, auth)

	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, httptest.NewRequest("GET", "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing token")
	assert.False(t, reached)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec = httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)
	assert.Equal(t, "ann", rec.Body.String())
}

func TestEchoAdapter_WildcardPath(t *testing.T) {
	adapter := NewDefaultEchoAdapter()
	adapter.RegisterRoute("GET", axon.NewAxonPath("/files/{*}"), func(ctx axon.RequestContext) error {
		return ctx.Response().JSON(http.StatusOK, map[string]string{"path": ctx.Param("*")})
	})

	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, httptest.NewRequest("GET", "/files/documents/readme.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"documents/readme.txt"}`, rec.Body.String())
}
