package axon

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// QueryMap is the whole query string handed to a handler argument declared
// as the query root
type QueryMap struct {
	values url.Values
}

// NewQueryMap reads the query string of the current request
func NewQueryMap(c RequestContext) QueryMap {
	return QueryMapOf(c.QueryParams())
}

func QueryMapOf(values map[string][]string) QueryMap {
	if values == nil {
		values = map[string][]string{}
	}
	return QueryMap{values: url.Values(values)}
}

// Get returns the first value of key
func (q QueryMap) Get(key string) string {
	return q.values.Get(key)
}

// GetDefault returns the first value of key, or def when it is empty
func (q QueryMap) GetDefault(key, def string) string {
	if v := q.values.Get(key); v != "" {
		return v
	}
	return def
}

// Coerce converts the first value of key the way route parameters of kind k
// are converted
func (q QueryMap) Coerce(key string, k Kind) interface{} {
	return k.Coerce(q.values.Get(key))
}

func (q QueryMap) GetInt(key string) int {
	return q.GetIntDefault(key, 0)
}

// GetIntDefault returns def when key is missing or not an integer
func (q QueryMap) GetIntDefault(key string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(q.values.Get(key)))
	if err != nil {
		return def
	}
	return i
}

// GetBool also accepts "yes" and "on"
func (q QueryMap) GetBool(key string) bool {
	switch strings.ToLower(q.values.Get(key)) {
	case "yes", "on":
		return true
	}
	return KindBoolean.Coerce(strings.ToLower(q.values.Get(key))).(bool)
}

func (q QueryMap) GetAll(key string) []string {
	return q.values[key]
}

func (q QueryMap) Has(key string) bool {
	_, ok := q.values[key]
	return ok
}

// Keys returns the parameter names sorted
func (q QueryMap) Keys() []string {
	keys := make([]string, 0, len(q.values))
	for key := range q.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (q QueryMap) ToMap() map[string][]string {
	return map[string][]string(q.values)
}
