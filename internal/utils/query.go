package utils

import (
	"regexp"
	"strconv"

	"github.com/labstack/echo/v4"
)

// MatchNothing is a pattern no string can match: nothing may follow the
// end of input.
const MatchNothing = "^$."

// DefaultLimit is the page size used when a caller does not pick one.
const DefaultLimit = 25

// ValidateRegex returns pattern unchanged when it compiles and MatchNothing
// otherwise, so a bad search term yields an empty result instead of a
// query error.
func ValidateRegex(pattern string) string {
	if _, err := regexp.Compile(pattern); err != nil {
		return MatchNothing
	}
	return pattern
}

// Pagination is a zero-based page window.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset is the number of rows to skip.
func (p Pagination) Offset() int { return p.Page * p.Limit }

// ReadPagination reads ?page and ?limit.  Missing, non-numeric, zero or
// negative values fall back to page 0 and defaultLimit (DefaultLimit when
// defaultLimit is not positive).
func ReadPagination(c echo.Context, defaultLimit int) Pagination {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return Pagination{
		Page:  positiveOr(c.QueryParam("page"), 0),
		Limit: positiveOr(c.QueryParam("limit"), defaultLimit),
	}
}

func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
