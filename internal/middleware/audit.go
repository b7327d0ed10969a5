package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request. Mutations on an owner's account are
// tagged with the owner so they can be traced end to end.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID, _ := c.Locals(RequestIDHeader).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if owner := c.Params("owner"); owner != "" {
			attrs = append(attrs, slog.String("owner", owner))
		}

		level := slog.LevelInfo
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			level = slog.LevelError
		} else if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.UserContext(), level, "request completed", attrs...)
		return err
	}
}
