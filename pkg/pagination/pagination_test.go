package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit}, parseQuery(""))
	assert.Equal(t, Params{Page: 3, Limit: 10}, parseQuery("page=3&limit=10"))
	assert.Equal(t, MaxLimit, parseQuery("limit=1000").Limit)
	assert.Equal(t, 1, parseQuery("page=-4").Page)
	assert.Equal(t, DefaultLimit, parseQuery("limit=abc").Limit)
	assert.Equal(t, DefaultLimit, parseQuery("limit=0").Limit)
}

func TestParsePageSizeAlias(t *testing.T) {
	assert.Equal(t, 15, parseQuery("page_size=15").Limit)
	assert.Equal(t, 5, parseQuery("limit=5&page_size=15").Limit)
}

func TestParseAll(t *testing.T) {
	p := parseQuery("page=4&limit=ALL")
	assert.True(t, p.Unbounded())
	assert.Equal(t, DefaultPage, p.Page)
	assert.False(t, parseQuery("limit=3").Unbounded())
}
