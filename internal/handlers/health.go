package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	TwitterStatus string    `json:"twitter_status"`
}

// Health reports process liveness plus whether the session manager holds
// an authenticated session. It never calls the remote service, so it
// stays responsive while a publish is queued or retrying.
func Health(session SessionStatus) echo.HandlerFunc {
	return func(c echo.Context) error {
		twitterStatus := "disconnected"
		if session.Authenticated() {
			twitterStatus = "connected"
		}
		return c.JSON(http.StatusOK, healthResponse{
			Status:        "healthy",
			Timestamp:     time.Now().UTC(),
			TwitterStatus: twitterStatus,
		})
	}
}
