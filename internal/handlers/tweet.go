package handlers

import (
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/twigate/twigate/internal/model"
)

const (
	maxTextLength = 280
	maxMediaCount = 4
)

type tweetResponse struct {
	Success   bool      `json:"success"`
	TweetID   string    `json:"tweet_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTweet validates the request shape and hands it to the publish
// coordinator. The coordinator always resolves to a result; the handler
// only maps the failure kind to a status code.
func CreateTweet(service PublishService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := model.PublishRequest{}
		if err := c.Bind(&req); err != nil {
			return errorResponse(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", err.Error())
		}
		if err := validate(&req); err != nil {
			return errorResponse(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid tweet request", err.Error())
		}

		result := service.Publish(c.Request().Context(), req)
		if !result.Success {
			return errorResponse(c, statusFor(result.Kind), codeFor(result.Kind), "tweet publish failed", result.Message)
		}

		return c.JSON(http.StatusOK, tweetResponse{
			Success:   true,
			TweetID:   result.TweetID,
			Message:   result.Message,
			CreatedAt: result.CreatedAt,
		})
	}
}

func validate(req *model.PublishRequest) error {
	length := utf8.RuneCountInString(req.Text)
	if length == 0 {
		return fmt.Errorf("text must not be empty")
	}
	if length > maxTextLength {
		return fmt.Errorf("text exceeds %d characters", maxTextLength)
	}
	if len(req.Media) > maxMediaCount {
		return fmt.Errorf("at most %d media payloads allowed", maxMediaCount)
	}
	if req.ReplyTo != "" && !digitsOnly(req.ReplyTo) {
		return fmt.Errorf("reply_to must be a numeric tweet id")
	}
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func statusFor(kind model.FailureKind) int {
	switch kind {
	case model.FailureAuth:
		return http.StatusBadGateway
	case model.FailureFatal:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func codeFor(kind model.FailureKind) string {
	switch kind {
	case model.FailureAuth:
		return "AUTHENTICATION_ERROR"
	default:
		return "TWITTER_ERROR"
	}
}
