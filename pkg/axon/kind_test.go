package axon

import (
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected Kind
	}{
		{0, KindNumber},
		{uint16(0), KindNumber},
		{0.5, KindNumber},
		{true, KindBoolean},
		{"s", KindString},
		{uuid.UUID{}, KindUUID},
		{struct{}{}, KindAny},
		{[]string{}, KindAny},
	}

	for _, tt := range tests {
		t.Run(reflect.TypeOf(tt.value).String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(reflect.TypeOf(tt.value)))
		})
	}
}

func TestKindsOf_SkipsLeadingInputs(t *testing.T) {
	fn := func(ctx RequestContext, id int, active bool, name string) {}

	assert.Equal(t, []Kind{KindNumber, KindBoolean, KindString}, KindsOf(reflect.TypeOf(fn), 1))
	assert.Nil(t, KindsOf(reflect.TypeOf(42), 0))
}

func TestKind_Coerce(t *testing.T) {
	assert.Equal(t, float64(42), KindNumber.Coerce("42"))
	assert.Equal(t, float64(0), KindNumber.Coerce(""))
	assert.True(t, math.IsNaN(KindNumber.Coerce("abc").(float64)))

	assert.Equal(t, true, KindBoolean.Coerce("true"))
	assert.Equal(t, true, KindBoolean.Coerce("1"))
	assert.Equal(t, false, KindBoolean.Coerce("false"))
	assert.Equal(t, false, KindBoolean.Coerce("yes"))

	assert.Equal(t, "raw", KindString.Coerce("raw"))
	assert.Equal(t, "raw", KindAny.Coerce("raw"))

	id := uuid.New()
	assert.Equal(t, id, KindUUID.Coerce(id.String()))
	assert.Equal(t, "nope", KindUUID.Coerce("nope"))
}

func TestCoerceParams_Positional(t *testing.T) {
	ctx := newFakeContext("GET", "/x/42/true").withParams("a", "42", "b", "true")

	var seen CoercedParams
	handler := CoerceParams([]Kind{KindNumber, KindBoolean})(func(ctx RequestContext) error {
		seen = Coerced(ctx)
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.Equal(t, CoercedParams{"a": float64(42), "b": true}, seen)
}

func TestCoerceParams_OutermostWins(t *testing.T) {
	ctx := newFakeContext("GET", "/x/1").withParams("a", "1")

	inner := CoerceParams([]Kind{KindNumber})
	outer := CoerceParams([]Kind{KindBoolean})

	handler := Chain(func(ctx RequestContext) error { return nil }, outer, inner)
	require.NoError(t, handler(ctx))

	assert.Equal(t, true, Coerced(ctx)["a"])
}

func TestCoerceParams_MissingKindsPassThrough(t *testing.T) {
	ctx := newFakeContext("GET", "/x/1/two").withParams("a", "1", "b", "two")

	handler := CoerceParams([]Kind{KindNumber})(func(ctx RequestContext) error { return nil })
	require.NoError(t, handler(ctx))

	assert.Equal(t, float64(1), Coerced(ctx)["a"])
	assert.Equal(t, "two", Coerced(ctx)["b"])
}

func TestQueryMap(t *testing.T) {
	q := QueryMapOf(map[string][]string{
		"page":   {"3"},
		"size":   {"ten"},
		"active": {"Yes"},
		"debug":  {"1"},
		"tag":    {"a", "b"},
	})

	assert.Equal(t, 3, q.GetInt("page"))
	assert.Equal(t, 20, q.GetIntDefault("size", 20))
	assert.Equal(t, 0, q.GetInt("missing"))
	assert.True(t, q.GetBool("active"))
	assert.True(t, q.GetBool("debug"))
	assert.False(t, q.GetBool("tag"))
	assert.Equal(t, "a", q.Get("tag"))
	assert.Equal(t, []string{"a", "b"}, q.GetAll("tag"))
	assert.Equal(t, "asc", q.GetDefault("order", "asc"))
	assert.Equal(t, float64(3), q.Coerce("page", KindNumber))
	assert.True(t, q.Has("size"))
	assert.False(t, q.Has("order"))
	assert.Equal(t, []string{"active", "debug", "page", "size", "tag"}, q.Keys())

	assert.Empty(t, QueryMapOf(nil).ToMap())
}
