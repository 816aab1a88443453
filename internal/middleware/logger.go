package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/vet-portal/pkg/logger"
)

// Logger logs one line per request. Bodies are never logged.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		var event *zerolog.Event
		msg := "Request processed"
		switch {
		case statusCode >= 500:
			event = log.ZL.Error()
			msg = "Server error"
		case statusCode >= 400:
			event = log.ZL.Warn()
			msg = "Client error"
		default:
			event = log.ZL.Info()
		}

		event = event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Int("status", statusCode).
			Dur("duration", latency).
			Str("user_agent", c.Request.UserAgent())

		who := Identity(c)
		if who.PersonID != "" {
			event = event.Str("person_id", who.PersonID).Str("role", string(who.Role))
		}
		if err := c.Errors.Last(); err != nil {
			event = event.Err(err.Err)
		}
		event.Msg(msg)
	}
}
