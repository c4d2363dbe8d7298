package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// All is the limit value that asks repositories for every row.
const All = 0

// Params is a validated page request. Limit == All disables paging.
type Params struct {
	Page  int
	Limit int
}

// Unbounded reports whether the caller asked for the full list.
func (p Params) Unbounded() bool {
	return p.Limit == All
}

// Parse reads page and limit (or its alias page_size) from the query string.
// limit=all returns every row; the dropdowns in the back office rely on it.
func Parse(c *gin.Context) Params {
	page := atoiDefault(c.Query("page"), DefaultPage)
	if page < 1 {
		page = DefaultPage
	}

	raw := c.Query("limit")
	if raw == "" {
		raw = c.Query("page_size")
	}
	if strings.EqualFold(strings.TrimSpace(raw), "all") {
		return Params{Page: DefaultPage, Limit: All}
	}

	limit := atoiDefault(raw, DefaultLimit)
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
