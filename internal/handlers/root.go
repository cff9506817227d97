package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const Version = "1.0.0"

// Root answers with basic service identification.
func Root() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"service":   "twigate",
			"version":   Version,
			"status":    "running",
			"timestamp": time.Now().UTC(),
		})
	}
}
