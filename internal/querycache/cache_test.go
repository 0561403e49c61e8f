// internal/querycache/cache_test.go
package querycache

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIgnoresParamOrder(t *testing.T) {
	a := url.Values{}
	a.Set("page", "2")
	a.Set("status", "confirmed")
	a.Add("tag", "sale")
	a.Add("tag", "new")

	b := url.Values{}
	b.Add("tag", "new")
	b.Add("tag", "sale")
	b.Set("status", "confirmed")
	b.Set("page", "2")

	assert.Equal(t, Key("orders", a), Key("orders", b))
}

func TestKeySeparatesEntitiesAndParams(t *testing.T) {
	params := url.Values{"page": {"1"}}

	assert.NotEqual(t, Key("orders", params), Key("products", params))
	assert.NotEqual(t, Key("orders", params), Key("orders", url.Values{"page": {"2"}}))
	assert.True(t, strings.HasPrefix(Key("orders", params), "admin_gateway:query:orders:"))
}

func TestKeyEmptyParams(t *testing.T) {
	assert.Equal(t, Key("settings", nil), Key("settings", url.Values{}))
}
