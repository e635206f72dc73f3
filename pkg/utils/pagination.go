package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// HistoryParams selects a window of conversation history. BeforeSeq of zero
// means "the most recent messages".
type HistoryParams struct {
	Limit     int
	BeforeSeq int64
}

// GetHistoryParams extracts ?limit= and ?before= from the request.
func GetHistoryParams(c echo.Context) HistoryParams {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	before, _ := strconv.ParseInt(c.QueryParam("before"), 10, 64)

	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if before < 0 {
		before = 0
	}

	return HistoryParams{
		Limit:     limit,
		BeforeSeq: before,
	}
}
