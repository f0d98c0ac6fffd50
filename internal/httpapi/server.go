// Package httpapi is the gateway-facing HTTP transport. Routes mirror the
// automation gateway contract; every tenant route sits behind the credential
// middleware.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/auth"
)

// NewServer assembles the echo instance with middleware and routes. The
// caller owns startup and shutdown.
func NewServer(handler *Handler, resolver *auth.Resolver, baseLogger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = errorHandler(baseLogger)

	e.Use(middleware.Recover())
	e.Use(RequestIDMiddleware(baseLogger))
	e.Use(AccessLogMiddleware())

	api := e.Group("/api", AuthMiddleware(resolver))
	api.POST("/inbound", handler.PostInbound)
	api.GET("/inbound", handler.GetInbound)
	api.PATCH("/messages/status", handler.PatchMessageStatus)
	api.GET("/leads/stale", handler.GetStaleLeads)
	api.PATCH("/leads/:id/followup", handler.PatchLeadFollowup)
	api.POST("/system/errors", handler.PostSystemError)
	api.GET("/system/errors", handler.GetSystemErrors)
	api.PATCH("/system/errors/:id/resolve", handler.PatchSystemErrorResolve)
	api.GET("/whoami", handler.GetWhoami)

	return e
}

// errorHandler keeps echo's own errors (404, 405, oversized bodies) inside
// the envelope contract.
func errorHandler(baseLogger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code := apperrors.CodeInternal
			switch httpErr.Code {
			case http.StatusNotFound:
				code = apperrors.CodeRouteNotFound
			case http.StatusMethodNotAllowed:
				code = apperrors.CodeMethodNotAllowed
			case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
				code = apperrors.CodeInvalidJSON
			}
			_ = respondError(c, apperrors.NewAPI(code, httpErr.Code, err))
			return
		}

		baseLogger.Error("Unhandled transport error", zap.Error(err))
		_ = respondError(c, err)
	}
}
