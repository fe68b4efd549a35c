package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/housing-engine/internal/observability"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderActor         = "X-Actor"
)

// RequestContext carries the caller's correlation id (generated when absent)
// and actor into the request's user context, and echoes the correlation id
// on the response.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := strings.TrimSpace(c.Get(HeaderCorrelationID))
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		ctx := observability.WithCorrelationID(c.UserContext(), correlationID)
		if actor := strings.TrimSpace(c.Get(HeaderActor)); actor != "" {
			ctx = observability.WithActor(ctx, actor)
		}
		c.SetUserContext(ctx)
		c.Set(HeaderCorrelationID, correlationID)

		return c.Next()
	}
}
