package server

import (
	"reflect"

	"github.com/toyz/axonroute/pkg/axon"
	"github.com/toyz/axonroute/pkg/metadata"
)

// Renderer renders a template with data onto the response
type Renderer interface {
	Render(ctx axon.RequestContext, template string, data interface{}) error
}

// splitResults separates the trailing error from a method's results
func splitResults(out []reflect.Value) (interface{}, error) {
	var value interface{}
	var err error

	if n := len(out); n > 0 && out[n-1].Type().Implements(errorType) {
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	if len(out) > 0 && !isNil(out[0]) {
		value = out[0].Interface()
	}
	return value, err
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// writeResult adapts a controller method's result to the response. Nothing
// is written once the response has been committed.
func writeResult(ctx axon.RequestContext, value interface{}, render *metadata.RenderMetadata, renderer Renderer) error {
	if ar, ok := value.(axon.ActionResult); ok {
		return ar.ExecuteAsync(ctx)
	}

	res := ctx.Response()
	if res.Written() {
		return nil
	}
	status := res.Status()

	if render != nil && renderer != nil {
		return renderer.Render(ctx, render.Template, renderData(render.DefaultData, value))
	}

	switch v := value.(type) {
	case nil:
		return res.NoContent(status)
	case string:
		return res.String(status, v)
	case []byte:
		return res.Blob(status, "application/octet-stream", v)
	default:
		return res.JSON(status, v)
	}
}

// renderData merges a map result over the template's default data
func renderData(defaults map[string]interface{}, value interface{}) interface{} {
	if len(defaults) == 0 {
		return value
	}
	data := make(map[string]interface{}, len(defaults))
	for k, v := range defaults {
		data[k] = v
	}
	switch v := value.(type) {
	case nil:
	case map[string]interface{}:
		for k, val := range v {
			data[k] = val
		}
	default:
		data["data"] = v
	}
	return data
}
