package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Pagination is the metadata block returned alongside list results
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// PageParams holds the parsed query parameters of a list endpoint
type PageParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// ParsePageParams reads page/limit/sortBy/sortOrder from the query string.
// sortBy is checked against the caller's allow-list to keep it out of raw SQL.
func ParsePageParams(c *gin.Context, allowedSort ...string) PageParams {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	sortBy := c.Query("sortBy")
	allowed := false
	for _, s := range allowedSort {
		if s == sortBy {
			allowed = true
			break
		}
	}
	if !allowed {
		sortBy = "created_at"
	}

	sortOrder := strings.ToLower(c.DefaultQuery("sortOrder", "desc"))
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return PageParams{Page: page, Limit: limit, SortBy: sortBy, SortOrder: sortOrder}
}

// Offset returns the SQL offset for the current page
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderClause returns the ORDER BY clause for the current sort
func (p PageParams) OrderClause() string {
	return p.SortBy + " " + p.SortOrder
}

// BuildPagination computes the metadata block from a total row count
func BuildPagination(p PageParams, total int64) Pagination {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
