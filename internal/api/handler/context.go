package handler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/foodiemap/foodiemap/internal/api/middleware"
)

// auditLogger is the request logger tagged with the authenticated subject.
func auditLogger(ctx context.Context) zerolog.Logger {
	return zerolog.Ctx(ctx).With().
		Str("subject", middleware.GetSubject(ctx)).
		Str("component", "admin").
		Logger()
}
