package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/twigate/twigate/internal/model"
)

// PublishService is the coordinator the tweet handler invokes.
type PublishService interface {
	Publish(ctx context.Context, req model.PublishRequest) model.PublishResult
}

// LogReader serves the operation history.
type LogReader interface {
	Recent(limit int) ([]model.LogEntry, error)
}

// SessionStatus reports the session manager's current state without
// touching the remote service.
type SessionStatus interface {
	Authenticated() bool
}

type successEnvelope struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type errorEnvelope struct {
	Success   bool      `json:"success"`
	ErrorCode string    `json:"error_code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func successResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(200, successEnvelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func errorResponse(c echo.Context, status int, errorCode, message, details string) error {
	return c.JSON(status, errorEnvelope{
		Success:   false,
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}
