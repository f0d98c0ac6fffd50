package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
)

// successEnvelope wraps every 2xx body.
type successEnvelope struct {
	Ok   bool        `json:"ok"`
	Data interface{} `json:"data"`
}

// failureEnvelope is the stable failure contract: a machine-readable code the
// gateway branches on and a debug id to grep the logs with. Internal error
// text never leaks into details.
type failureEnvelope struct {
	Ok      bool        `json:"ok"`
	Error   string      `json:"error"`
	DebugID string      `json:"debug_id"`
	Details interface{} `json:"details,omitempty"`
}

// respondOK writes the success envelope.
func respondOK(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, successEnvelope{Ok: true, Data: data})
}

// respondError maps an application error to the failure envelope. Errors that
// carry no APIError in their chain become opaque 500s.
func respondError(c echo.Context, err error) error {
	debugID := uuid.NewString()

	code := apperrors.CodeInternal
	status := http.StatusInternalServerError
	if apiErr, ok := apperrors.AsAPIError(err); ok {
		code = apiErr.Code
		status = apiErr.Status
	}

	log := logger.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("error_code", code),
			zap.String("debug_id", debugID),
			zap.Bool("retryable", apperrors.IsRetryable(err)),
			zap.Error(err),
		)
	} else {
		log.Warn("Request rejected",
			zap.String("error_code", code),
			zap.String("debug_id", debugID),
			zap.Error(err),
		)
	}

	return c.JSON(status, failureEnvelope{Ok: false, Error: code, DebugID: debugID})
}
