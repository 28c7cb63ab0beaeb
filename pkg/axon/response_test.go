package axon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponse_NewResponse(t *testing.T) {
	body := map[string]string{"message": "success"}
	resp := NewResponse(201, body)

	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, body, resp.Body)
}

func TestResponse_OK(t *testing.T) {
	body := map[string]string{"data": "test"}
	resp := OK(body)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, body, resp.Body)
}

func TestResponse_Created(t *testing.T) {
	body := map[string]string{"id": "123"}
	resp := Created(body)

	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, body, resp.Body)
}

func TestResponse_NoContent(t *testing.T) {
	resp := NoContent()

	assert.Equal(t, 204, resp.StatusCode)
	assert.Nil(t, resp.Body)
}

func TestResponse_BadRequest(t *testing.T) {
	resp := BadRequest("Invalid input")

	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, map[string]string{"error": "Invalid input"}, resp.Body)
}

func TestResponse_NotFound(t *testing.T) {
	resp := NotFound("User not found")

	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, map[string]string{"error": "User not found"}, resp.Body)
}

func TestResponse_InternalServerError(t *testing.T) {
	resp := InternalServerError("Database connection failed")

	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, map[string]string{"error": "Database connection failed"}, resp.Body)
}

func TestResponse_ExecuteAsyncIsActionResult(t *testing.T) {
	var result ActionResult = Created(map[string]string{"id": "1"}).WithHeader("Location", "/users/1")

	ctx := newFakeContext("POST", "/users")
	assert.NoError(t, result.ExecuteAsync(ctx))
	assert.Equal(t, 201, ctx.resp.status)
	assert.Equal(t, "/users/1", ctx.resp.headers["Location"])
	assert.Equal(t, map[string]string{"id": "1"}, ctx.resp.body)
}

func TestResponse_ExecuteAsyncWithoutBody(t *testing.T) {
	ctx := newFakeContext("DELETE", "/users/1")
	assert.NoError(t, NoContent().ExecuteAsync(ctx))
	assert.Equal(t, 204, ctx.resp.status)
	assert.True(t, ctx.resp.written)
	assert.Nil(t, ctx.resp.body)
}
