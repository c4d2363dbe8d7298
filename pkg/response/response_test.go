package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessWithPagination(t *testing.T) {
	res := SuccessWithPagination(200, []int{1, 2}, 2, 20, 41)
	require.NotNil(t, res.Meta)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 3, res.Meta.TotalPages)
	assert.Equal(t, int64(41), res.Meta.Total)

	empty := SuccessWithPagination(200, nil, 1, 20, 0)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}

func TestError(t *testing.T) {
	res := Error(404, "client not found")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, 404, res.StatusCode)
	assert.Nil(t, res.Data)
}

func TestSuccessWithPaginationUnbounded(t *testing.T) {
	res := SuccessWithPagination(200, []int{1, 2, 3}, 1, 0, 3)
	assert.Equal(t, 1, res.Meta.TotalPages)
}
