package middleware

import (
	"time"

	"github.com/dimitrije/atlas-api/internal/logger"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

// RequestLogger writes one structured line per request. Status codes are
// recorded by the metrics wrapper around the app, not here.
func RequestLogger() drift.HandlerFunc {
	return func(c *drift.Context) {
		start := time.Now()

		c.Next()

		event := logger.Get().Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("duration", time.Since(start))
		if id := GetUserID(c); id != uuid.Nil {
			event = event.Str("user_id", id.String())
		}
		event.Msg("request")
	}
}
