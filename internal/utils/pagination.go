package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination holds page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

// GetPagination reads page and limit from the query string with defaults of
// 1 and 10; limit is capped at 100.
func GetPagination(c *gin.Context) Pagination {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return Pagination{Page: page, Limit: limit}
}

// Offset returns the row offset of the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
