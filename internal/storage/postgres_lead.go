package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
)

// FindLeadByPhone looks up a lead by its normalized phone digits within the
// caller's workspace. Returns apperrors.ErrNotFound when no lead exists.
func (r *PostgresRepo) FindLeadByPhone(ctx context.Context, phone string) (*model.Lead, error) {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("find_by_phone", "lead", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return nil, err
	}

	var lead model.Lead
	operation := func() error {
		return query.Where("phone = ?", phone).First(&lead).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindLeadByPhone", operation)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: lead phone %s", apperrors.ErrNotFound, phone)
			return nil, err
		}
		err = checkConstraintViolation(err)
		return nil, err
	}
	return &lead, nil
}

// FindLeadByID fetches a single lead by primary key within the caller's
// workspace.
func (r *PostgresRepo) FindLeadByID(ctx context.Context, id string) (*model.Lead, error) {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("find_by_id", "lead", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return nil, err
	}

	var lead model.Lead
	operation := func() error {
		return query.Where("id = ?", id).First(&lead).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindLeadByID", operation)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: lead %s", apperrors.ErrNotFound, id)
			return nil, err
		}
		err = checkConstraintViolation(err)
		return nil, err
	}
	return &lead, nil
}

// CreateLead inserts a new lead row. A unique constraint on
// (workspace_id, phone) backs the find-or-create race: on concurrent creation
// the loser receives apperrors.ErrDuplicate and must re-read the winner's row.
func (r *PostgresRepo) CreateLead(ctx context.Context, lead *model.Lead) error {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("create", "lead", workspaceID, time.Since(start), err)
	}()

	_, workspaceID, err = r.scopedDB(ctx)
	if err != nil {
		return err
	}
	if lead.WorkspaceID != workspaceID {
		err = fmt.Errorf("%w: lead workspace %s does not match context %s", apperrors.ErrBadRequest, lead.WorkspaceID, workspaceID)
		return err
	}

	operation := func() error {
		return r.db.WithContext(ctx).Create(lead).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "CreateLead", operation)
	if err != nil {
		err = checkConstraintViolation(err)
		return err
	}

	logger.FromContext(ctx).Debug("Lead created",
		zap.String("lead_id", lead.ID),
		zap.String("phone", lead.Phone),
	)
	return nil
}

// UpdateLeadActivity bumps a lead's last activity marker and backfills the
// display name and instance when the stored values are empty. The activity
// timestamp never moves backwards: GREATEST keeps the later of the stored and
// the incoming value.
func (r *PostgresRepo) UpdateLeadActivity(ctx context.Context, leadID string, activityAt time.Time, name, instance string) error {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("update_activity", "lead", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"last_message_at": gorm.Expr("GREATEST(COALESCE(last_message_at, to_timestamp(0)), ?)", activityAt),
		"updated_at":      time.Now().UTC(),
	}
	if name != "" {
		updates["name"] = gorm.Expr("COALESCE(NULLIF(name, ''), ?)", name)
	}
	if instance != "" {
		updates["instance"] = instance
	}

	operation := func() error {
		result := query.Model(&model.Lead{}).Where("id = ?", leadID).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: lead %s", apperrors.ErrNotFound, leadID)
		}
		return nil
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "UpdateLeadActivity", operation)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		err = checkConstraintViolation(err)
		return err
	}
	return nil
}

// FindStaleLeads returns leads in the given statuses whose last inbound
// activity and last follow-up are both older than the threshold (or never
// recorded). Never-contacted leads sort first so they surface before merely
// quiet ones. Leads without a phone cannot be re-engaged and are skipped.
func (r *PostgresRepo) FindStaleLeads(ctx context.Context, statuses []model.LeadStatus, threshold time.Time, limit int) ([]model.Lead, error) {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("find_stale", "lead", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return nil, err
	}

	var leads []model.Lead
	operation := func() error {
		return query.
			Where("status IN ?", statuses).
			Where("(last_message_at IS NULL OR last_message_at <= ?)", threshold).
			Where("(followup_sent_at IS NULL OR followup_sent_at <= ?)", threshold).
			Where("phone <> ''").
			Order("last_message_at ASC NULLS FIRST").
			Limit(limit).
			Find(&leads).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindStaleLeads", operation)
	if err != nil {
		err = checkConstraintViolation(err)
		return nil, err
	}
	return leads, nil
}

// MarkFollowupSent records that a follow-up went out to the lead. Returns
// apperrors.ErrNotFound when the lead does not exist in the caller's
// workspace; a cross-workspace id is indistinguishable from a missing one.
func (r *PostgresRepo) MarkFollowupSent(ctx context.Context, leadID string, sentAt time.Time, text string) error {
	start := time.Now()
	var err error
	var workspaceID string
	defer func() {
		observer.ObserveDbOperationDuration("mark_followup", "lead", workspaceID, time.Since(start), err)
	}()

	query, workspaceID, err := r.scopedDB(ctx)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"followup_sent_at": sentAt,
		"followup_text":    text,
		"updated_at":       time.Now().UTC(),
	}

	operation := func() error {
		result := query.Model(&model.Lead{}).Where("id = ?", leadID).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: lead %s", apperrors.ErrNotFound, leadID)
		}
		return nil
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, commitRetryMaxElapsedTime), "MarkFollowupSent", operation)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		err = checkConstraintViolation(err)
		return err
	}
	return nil
}
