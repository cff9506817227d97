package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// Logs serves the recent operation history, most recent first.
func Logs(reader LogReader) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := defaultLogLimit
		if raw := c.QueryParam("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				return errorResponse(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid limit", "limit must be a positive integer")
			}
			limit = parsed
		}
		if limit > maxLogLimit {
			limit = maxLogLimit
		}

		entries, err := reader.Recent(limit)
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "fetching logs failed", err.Error())
		}

		return successResponse(c, "logs fetched", map[string]interface{}{
			"logs":  entries,
			"total": len(entries),
		})
	}
}
