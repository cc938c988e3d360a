package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/askbox/ai/chat"
	"github.com/hrygo/askbox/ai/core/llm"
)

// sendErrorResponse is returned when a send fails after the user message
// was stored.
type sendErrorResponse struct {
	UserMessage *Message `json:"userMessage"`
	Error       string   `json:"error"`
	State       string   `json:"state"`
}

// toHTTPError maps orchestrator errors to HTTP statuses.
func toHTTPError(c echo.Context, err error) error {
	var sendErr *chat.SendError
	switch {
	case errors.As(err, &sendErr):
		code := http.StatusInternalServerError
		if isUpstream(err) {
			code = http.StatusBadGateway
		}
		slog.Warn("chat: send failed",
			"path", c.Path(),
			"state", sendErr.State,
			"error", err,
		)
		return c.JSON(code, sendErrorResponse{
			UserMessage: convertMessage(sendErr.UserMessage),
			Error:       sendErr.Err.Error(),
			State:       string(sendErr.State),
		})
	case errors.Is(err, chat.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case isUpstream(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		slog.Error("api: request failed", "path", c.Path(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func isUpstream(err error) bool {
	return errors.Is(err, llm.ErrRetriesExhausted) ||
		errors.Is(err, llm.ErrUpstreamUnavailable) ||
		errors.Is(err, llm.ErrInvalidResponseShape) ||
		errors.Is(err, llm.ErrRateLimited)
}
