package adapters

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toyz/axonroute/pkg/axon"
)

func TestChiAdapter_WildcardPath(t *testing.T) {
	adapter := NewDefaultChiAdapter()

	adapter.RegisterRoute("GET", axon.NewAxonPath("/files/{*}"), func(ctx axon.RequestContext) error {
		return ctx.Response().JSON(200, map[string]string{"path": ctx.Param("*")})
	})

	req := httptest.NewRequest("GET", "/files/documents/readme.txt", nil)
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"documents/readme.txt"}`, rec.Body.String())
}

func TestChiAdapter_UseAfterRegistration(t *testing.T) {
	adapter := NewDefaultChiAdapter()

	adapter.RegisterRoute("GET", axon.NewAxonPath("/late"), func(ctx axon.RequestContext) error {
		return ctx.Response().String(200, ctx.Get("stamp").(string))
	})
	adapter.Use(func(next axon.HandlerFunc) axon.HandlerFunc {
		return func(ctx axon.RequestContext) error {
			ctx.Set("stamp", "applied")
			return next(ctx)
		}
	})

	req := httptest.NewRequest("GET", "/late", nil)
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	assert.Equal(t, "applied", strings.TrimSpace(rec.Body.String()))
}

func TestChiAdapter_PendingStatus(t *testing.T) {
	adapter := NewDefaultChiAdapter()

	adapter.RegisterRoute("POST", axon.NewAxonPath("/things"), func(ctx axon.RequestContext) error {
		ctx.Response().SetStatus(http.StatusAccepted)
		assert.Equal(t, http.StatusAccepted, ctx.Response().Status())
		assert.False(t, ctx.Response().Written())
		return ctx.Response().JSON(ctx.Response().Status(), map[string]bool{"queued": true})
	})

	req := httptest.NewRequest("POST", "/things", nil)
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))
}

func TestChiAdapter_BindJSON(t *testing.T) {
	adapter := NewDefaultChiAdapter()

	type payload struct {
		Name string `json:"name"`
	}
	adapter.RegisterRoute("POST", axon.NewAxonPath("/bind"), func(ctx axon.RequestContext) error {
		var p payload
		if err := ctx.Bind(&p); err != nil {
			return err
		}
		return ctx.Response().String(200, p.Name)
	})

	req := httptest.NewRequest("POST", "/bind", strings.NewReader(`{"name":"axon"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)
	assert.Equal(t, "axon", rec.Body.String())

	req = httptest.NewRequest("POST", "/bind", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
