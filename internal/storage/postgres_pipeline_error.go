package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
)

// SavePipelineError inserts an error report row.
func (r *PostgresRepo) SavePipelineError(ctx context.Context, report *model.PipelineError) error {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("save", "pipeline_error", workspaceID, time.Since(start), err)
	}()

	_, workspaceID, err = r.scopedDB(ctx)
	if err != nil {
		return err
	}
	if report.WorkspaceID != workspaceID {
		err = fmt.Errorf("%w: report workspace %s does not match context %s", apperrors.ErrBadRequest, report.WorkspaceID, workspaceID)
		return err
	}

	operation := func() error {
		return r.db.WithContext(ctx).Create(report).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "SavePipelineError", operation)
	if err != nil {
		err = checkConstraintViolation(err)
		return err
	}
	return nil
}

// PipelineErrorFilter narrows the error listing. Zero values mean "no filter".
type PipelineErrorFilter struct {
	Severity string
	Resolved *bool
	Limit    int
}

// ListPipelineErrors returns the newest error reports in the caller's
// workspace, optionally filtered by severity and resolution state.
func (r *PostgresRepo) ListPipelineErrors(ctx context.Context, filter PipelineErrorFilter) ([]model.PipelineError, error) {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("list", "pipeline_error", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var reports []model.PipelineError
	operation := func() error {
		q := query.Model(&model.PipelineError{})
		if filter.Severity != "" {
			q = q.Where("severity = ?", filter.Severity)
		}
		if filter.Resolved != nil {
			q = q.Where("resolved = ?", *filter.Resolved)
		}
		return q.Order("created_at DESC").Limit(limit).Find(&reports).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "ListPipelineErrors", operation)
	if err != nil {
		err = checkConstraintViolation(err)
		return nil, err
	}
	return reports, nil
}

// ResolvePipelineError marks a report as handled. Returns
// apperrors.ErrNotFound when the id does not exist in the caller's workspace.
func (r *PostgresRepo) ResolvePipelineError(ctx context.Context, id string, resolvedAt time.Time) error {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("resolve", "pipeline_error", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"resolved":    true,
		"resolved_at": resolvedAt,
	}

	operation := func() error {
		result := query.Model(&model.PipelineError{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: pipeline error %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "ResolvePipelineError", operation)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		err = checkConstraintViolation(err)
		return err
	}
	return nil
}
