package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextFor(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestGetPaginationParams(t *testing.T) {
	params := GetPaginationParams(contextFor("/v1/drafts?page=3&limit=10&sort=raw_name&order=ASC&search=+bol+"))
	assert.Equal(t, PaginationParams{Page: 3, Limit: 10, Sort: "raw_name", Order: "asc", Search: "bol"}, params)
	assert.Equal(t, 20, params.Offset())

	params = GetPaginationParams(contextFor("/v1/drafts?page=0&limit=500&order=sideways"))
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, DefaultPageSize, params.Limit)
	assert.Equal(t, "created_at", params.Sort)
	assert.Equal(t, "desc", params.Order)
	assert.Zero(t, params.Offset())
}

func TestCreatePaginationResult(t *testing.T) {
	result := CreatePaginationResult([]int{1, 2}, 41, PaginationParams{Page: 2, Limit: 20})
	assert.Equal(t, 3, result.TotalPages)

	result = CreatePaginationResult([]int{}, 0, PaginationParams{Page: 1, Limit: 20})
	assert.Zero(t, result.TotalPages)
}

func TestValidatorTags(t *testing.T) {
	type input struct {
		Category string   `validate:"omitempty,product_category"`
		URLs     []string `validate:"dive,http_url"`
	}

	require.NoError(t, ValidateStruct(&input{Category: " Chicha ", URLs: []string{"https://shop.test/a"}}))

	errs := GetValidationErrors(ValidateStruct(&input{Category: "pipe", URLs: []string{"ftp://shop.test/a", "/relative"}}))
	require.Len(t, errs, 3)
	assert.Equal(t, "category", errs[0].Field)
	assert.Equal(t, "product_category", errs[0].Tag)
	assert.Contains(t, errs[0].Message, "chicha")
	assert.Equal(t, "http_url", errs[1].Tag)
	assert.Equal(t, "http_url", errs[2].Tag)
}
