package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"shannon/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_PAIR", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

var statusCodes = map[int]errorEnvelope{
	fiber.StatusBadRequest:       {Code: "BAD_REQUEST", Message: "bad request"},
	fiber.StatusNotFound:         {Code: "NOT_FOUND", Message: "resource not found"},
	fiber.StatusMethodNotAllowed: {Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"},
	fiber.StatusRequestTimeout:   {Code: "TIMEOUT", Message: "request timed out"},
	fiber.StatusTooManyRequests:  {Code: "RATE_LIMITED", Message: "too many requests"},
}

// ErrorHandler returns a Fiber global error handler that standardizes error
// responses. Unexpected errors are logged with the request ID and reported as
// INTERNAL_ERROR.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		if env, ok := statusCodes[status]; ok {
			return writeError(c, status, env.Code, env.Message)
		}
		if status >= fiber.StatusInternalServerError {
			slog.Default().ErrorContext(c.UserContext(), "unhandled error",
				"request_id", requestIDFromCtx(c),
				"path", c.Path(),
				"error", err,
			)
		}
		return writeError(c, status, "INTERNAL_ERROR", "internal server error")
	}
}
