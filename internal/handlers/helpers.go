package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/hexagon/backend/internal/middleware"
)

// listLimit caps list endpoints that are not paginated.
const listLimit = 200

func getUserIDFromContext(c echo.Context) string {
	id, _ := c.Get(middleware.UserIDKey).(string)
	return id
}

func requireUser(c echo.Context) (string, error) {
	id := getUserIDFromContext(c)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

func queryInt64(c echo.Context, name string, def int64) int64 {
	v, err := strconv.ParseInt(c.QueryParam(name), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// pageMeta describes one page of a paginated listing.
func pageMeta(page, limit, total int64) echo.Map {
	pages := (total + limit - 1) / limit
	return echo.Map{
		"currentPage":     page,
		"totalPages":      pages,
		"totalItems":      total,
		"itemsPerPage":    limit,
		"hasNextPage":     page < pages,
		"hasPreviousPage": page > 1,
	}
}
