package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
)

// FindMessageByExternalID looks up a message by its provider-assigned id
// within the caller's workspace. Returns apperrors.ErrNotFound when absent.
func (r *PostgresRepo) FindMessageByExternalID(ctx context.Context, externalID string) (*model.Message, error) {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("find_by_external_id", "message", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return nil, err
	}

	var msg model.Message
	operation := func() error {
		return query.Where("external_id = ?", externalID).First(&msg).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindMessageByExternalID", operation)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: message external id %s", apperrors.ErrNotFound, externalID)
			return nil, err
		}
		err = checkConstraintViolation(err)
		return nil, err
	}
	return &msg, nil
}

// InsertMessage persists a message row. When the full insert is rejected
// because a column is missing from the live schema, it retries once with only
// the mandatory columns so ingestion survives partial migrations. The
// returned bool reports whether the reduced fallback was used.
func (r *PostgresRepo) InsertMessage(ctx context.Context, msg *model.Message) (bool, error) {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("insert", "message", workspaceID, time.Since(start), err)
	}()

	_, workspaceID, err = r.scopedDB(ctx)
	if err != nil {
		return false, err
	}
	if msg.WorkspaceID != workspaceID {
		err = fmt.Errorf("%w: message workspace %s does not match context %s", apperrors.ErrBadRequest, msg.WorkspaceID, workspaceID)
		return false, err
	}

	drifted := false
	operation := func() error {
		insertErr := r.db.WithContext(ctx).Create(msg).Error
		if insertErr == nil {
			return nil
		}
		if !isSchemaDriftError(insertErr) {
			return insertErr
		}

		logger.FromContext(ctx).Warn("Message insert hit missing column, retrying with mandatory columns only",
			zap.String("message_id", msg.ID),
			zap.Error(insertErr),
		)
		drifted = true
		observer.IncSchemaDriftFallback(workspaceID)

		return r.db.WithContext(ctx).
			Select(model.MessageMandatoryColumns()).
			Create(msg).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "InsertMessage", operation)
	if err != nil {
		err = checkConstraintViolation(err)
		return drifted, err
	}

	logger.FromContext(ctx).Debug("Message inserted",
		zap.String("message_id", msg.ID),
		zap.String("lead_id", msg.LeadID),
		zap.Bool("reduced", drifted),
	)
	return drifted, nil
}

// UpdateMessageStatus overwrites the delivery status columns of a message.
// Ordering decisions happen in the reconciler; this method only applies
// whatever it is handed.
func (r *PostgresRepo) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus, readAt *time.Time, lastEvent datatypes.JSON) error {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("update_status", "message", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":     status,
		"read_at":    readAt,
		"last_event": lastEvent,
		"updated_at": time.Now().UTC(),
	}

	operation := func() error {
		result := query.Model(&model.Message{}).Where("id = ?", messageID).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: message %s", apperrors.ErrNotFound, messageID)
		}
		return nil
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "UpdateMessageStatus", operation)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		err = checkConstraintViolation(err)
		return err
	}
	return nil
}
