package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/storage"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/utils"
)

// ReportError accepts a workflow failure report, sanitizes it and queues it
// for persistence. It degrades rather than fails: a full queue or a broken
// store turns into a log line, and the caller still gets an acknowledgment.
// The returned report is the sanitized record as queued.
func (s *Service) ReportError(ctx context.Context, payload *model.ErrorReportPayload) (*model.PipelineError, error) {
	workspaceID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err)
	}

	report := sanitizeReport(workspaceID, payload)

	if s.sink == nil {
		// Synchronous fallback, used by tests and degraded startup.
		if saveErr := s.reports.Save(ctx, &report); saveErr != nil {
			logger.FromContext(ctx).Error("Failed to persist error report synchronously",
				zap.String("workflow", report.Workflow),
				zap.Error(saveErr),
			)
		}
		return &report, nil
	}

	task := ErrorSinkTask{WorkspaceID: workspaceID, Report: report}
	if requestID, ridErr := tenant.FromRequestIDContext(ctx); ridErr == nil {
		task.RequestID = requestID
	}
	// Submit errors are already logged and counted inside the sink.
	_ = s.sink.SubmitTask(task)

	return &report, nil
}

// sanitizeReport applies the severity coercion and length caps before a report
// touches the store. Empty messages still produce a row; a workflow that
// reports "something failed" with no detail is itself a signal.
func sanitizeReport(workspaceID string, payload *model.ErrorReportPayload) model.PipelineError {
	workflow := utils.TruncateString(strings.TrimSpace(payload.Workflow), model.PipelineErrorWorkflowMax)
	if workflow == "" {
		workflow = "unknown"
	}

	createdAt := time.Now().UTC()
	if payload.Timestamp != nil {
		createdAt = payload.Timestamp.UTC()
	}

	return model.PipelineError{
		ID:           uuid.NewString(),
		WorkspaceID:  workspaceID,
		Severity:     model.ParseSeverity(payload.Severity),
		Workflow:     workflow,
		ExecID:       utils.TruncateString(strings.TrimSpace(payload.ExecID), model.PipelineErrorExecIDMax),
		ErrorMessage: utils.TruncateString(payload.ErrorMessage, model.PipelineErrorMessageMax),
		LeadID:       payload.LeadID,
		Retryable:    payload.IsRetryable,
		Details:      datatypes.JSON(utils.MustMarshalJSON(payload)),
		CreatedAt:    createdAt,
	}
}

// ListErrors returns recent error reports for the caller's workspace.
func (s *Service) ListErrors(ctx context.Context, severity string, resolved *bool, limit int) ([]model.PipelineError, error) {
	if _, err := tenant.FromContext(ctx); err != nil {
		return nil, apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err)
	}

	filter := storage.PipelineErrorFilter{Resolved: resolved, Limit: limit}
	if severity != "" {
		filter.Severity = model.ParseSeverity(severity)
	}

	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, storeFailure(apperrors.CodePipelineErrorsFetch, err)
	}
	return reports, nil
}

// ResolveError marks a report as handled.
func (s *Service) ResolveError(ctx context.Context, id string) error {
	if _, err := tenant.FromContext(ctx); err != nil {
		return apperrors.NewAPI(apperrors.CodeInternal, http.StatusInternalServerError, err)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.NewAPI(apperrors.CodeErrorNotFound, http.StatusBadRequest,
			apperrors.ErrValidation)
	}

	if err := s.reports.Resolve(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewAPI(apperrors.CodeErrorNotFound, http.StatusNotFound, err)
		}
		return storeFailure(apperrors.CodeErrorResolveFailed, err)
	}
	return nil
}
