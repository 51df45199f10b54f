// internal/utils/pagination.go
package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	defaultSort     = "created_at"
)

// PaginationParams are the list query parameters shared by the admin lists.
type PaginationParams struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
	Search string `json:"search"`
}

// Offset is the number of rows skipped before the current page.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// GetPaginationParams reads page, limit, sort, order and search. Out of
// range values fall back to the defaults rather than failing the request.
func GetPaginationParams(c *gin.Context) PaginationParams {
	params := PaginationParams{
		Page:   1,
		Limit:  DefaultPageSize,
		Sort:   defaultSort,
		Order:  "desc",
		Search: strings.TrimSpace(c.Query("search")),
	}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		params.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= MaxPageSize {
		params.Limit = limit
	}
	if sort := strings.TrimSpace(c.Query("sort")); sort != "" {
		params.Sort = sort
	}
	if order := strings.ToLower(c.Query("order")); order == "asc" {
		params.Order = order
	}
	return params
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	return db.Offset(params.Offset()).Limit(params.Limit)
}

// ApplySort orders by params.Sort when it is one of allowed, created_at
// otherwise. The column name never comes from the request unchecked.
func ApplySort(db *gorm.DB, params PaginationParams, allowed []string) *gorm.DB {
	column := defaultSort
	for _, field := range allowed {
		if field == params.Sort {
			column = field
			break
		}
	}
	order := "DESC"
	if params.Order == "asc" {
		order = "ASC"
	}
	return db.Order(column + " " + order)
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return PaginationResult{
		Page:       params.Page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
