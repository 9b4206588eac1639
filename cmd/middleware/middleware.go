package middleware

import (
	"strconv"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

func LoggingMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()
		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// Identity trusts the headers set by the auth gateway in front of this
// service and exposes them to handlers via context keys.
func Identity() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		if raw := c.GetHeader("X-Participant-Id"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				c.Set("participant_id", id)
			}
		}
		if raw := c.GetHeader("X-Organizer-Id"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				c.Set("organizer_id", id)
			}
		}
		c.Next()
	}
}
