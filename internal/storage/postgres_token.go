package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/observer"
)

// FindActiveToken fetches the credential row matching the token, workspace and
// active flag together. Authentication runs before a workspace is bound to the
// context, so this method takes both values explicitly instead of reading
// them from ctx.
func (r *PostgresRepo) FindActiveToken(ctx context.Context, token, workspaceID string) (*model.ApiToken, error) {
	start := time.Now()
	var err error
	defer func() {
		observer.ObserveDbOperationDuration("find_active", "api_token", workspaceID, time.Since(start), err)
	}()

	var cred model.ApiToken
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("token = ?", token).
			Where("workspace_id = ?", workspaceID).
			Where("is_active = ?", true).
			First(&cred).Error
	}

	err = retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), "FindActiveToken", operation)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: no active token for workspace", apperrors.ErrNotFound)
			return nil, err
		}
		err = checkConstraintViolation(err)
		return nil, err
	}
	return &cred, nil
}
