package handler

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// pageParams reads page/per_page query parameters with sane floors.
func pageParams(c echo.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.QueryParam("per_page"))
	if perPage < 1 {
		perPage = 10
	}
	return page, perPage
}

// paginated is the listing envelope shared by every collection endpoint.
type paginated struct {
	Items      any     `json:"items"`
	PrevPage   *string `json:"prev_page"`
	NextPage   *string `json:"next_page"`
	TotalPages int     `json:"total_pages"`
	TotalItems int     `json:"total_items"`
}

// paginate wraps a page of items with navigation links relative to path.
func paginate(items any, path string, page, perPage, totalItems int) paginated {
	totalPages := (totalItems + perPage - 1) / perPage
	env := paginated{
		Items:      items,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}
	if page > 1 {
		prev := fmt.Sprintf("%s?page=%d&per_page=%d", path, page-1, perPage)
		env.PrevPage = &prev
	}
	if page < totalPages {
		next := fmt.Sprintf("%s?page=%d&per_page=%d", path, page+1, perPage)
		env.NextPage = &next
	}
	return env
}
