package transport

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"go.uber.org/zap"
)

// ErrorHandler renders errors as {"error": msg}. Client errors are logged at
// warn level, everything else at error level.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		requestLogger := observability.WithContextLogger(logger, c.UserContext())
		if code < fiber.StatusInternalServerError {
			requestLogger.Warn("request rejected", fields...)
		} else {
			requestLogger.Error("request error", fields...)
		}

		message := err.Error()
		if fiberErr == nil {
			message = "internal server error"
		}
		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}

// CorrelationID takes the correlation id from the request header, or
// generates one, stores it in the user context and echoes it back.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if incoming := strings.TrimSpace(c.Get(observability.CorrelationIDHeader)); incoming != "" {
			ctx = observability.WithCorrelationID(ctx, incoming)
		}
		ctx, correlationID := observability.EnsureCorrelationID(ctx)

		c.SetUserContext(ctx)
		c.Set(observability.CorrelationIDHeader, correlationID)
		return c.Next()
	}
}
