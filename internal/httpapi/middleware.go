package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/auth"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
)

// HeaderRequestID echoes the correlation id back to the caller.
const HeaderRequestID = "X-Request-Id"

// RequestIDMiddleware assigns a correlation id to every request and threads a
// request-scoped logger through the context.
func RequestIDMiddleware(baseLogger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := tenant.WithRequestID(c.Request().Context(), requestID)
			reqLogger := baseLogger.With(zap.String("request_id", requestID))
			ctx = logger.WithLogger(ctx, reqLogger)

			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(HeaderRequestID, requestID)
			return next(c)
		}
	}
}

// AuthMiddleware validates the credential headers and binds the workspace to
// the request context. Nothing downstream runs without a workspace.
func AuthMiddleware(resolver *auth.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			token := auth.FirstHeaderValue(req.Header.Values(auth.HeaderAPIToken))
			workspaceID := auth.FirstHeaderValue(req.Header.Values(auth.HeaderWorkspaceID))

			identity, err := resolver.Resolve(req.Context(), token, workspaceID)
			if err != nil {
				return respondError(c, err)
			}

			ctx := tenant.WithWorkspaceID(req.Context(), identity.WorkspaceID)
			reqLogger := logger.FromContext(ctx).With(zap.String("workspace_id", identity.WorkspaceID))
			ctx = logger.WithLogger(ctx, reqLogger)

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// AccessLogMiddleware emits one structured line per request.
func AccessLogMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.FromContext(c.Request().Context()).Info("Request handled",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}
