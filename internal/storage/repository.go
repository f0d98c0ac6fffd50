package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
)

// LeadRepo defines persistence for leads. All methods except the obvious are
// scoped by the workspace carried in ctx.
type LeadRepo interface {
	FindByPhone(ctx context.Context, phone string) (*model.Lead, error)
	FindByID(ctx context.Context, id string) (*model.Lead, error)
	Create(ctx context.Context, lead *model.Lead) error
	UpdateActivity(ctx context.Context, leadID string, activityAt time.Time, name, instance string) error
	FindStale(ctx context.Context, statuses []model.LeadStatus, threshold time.Time, limit int) ([]model.Lead, error)
	MarkFollowupSent(ctx context.Context, leadID string, sentAt time.Time, text string) error
}

// MessageRepo defines persistence for messages.
type MessageRepo interface {
	FindByExternalID(ctx context.Context, externalID string) (*model.Message, error)
	// Insert reports whether the reduced-payload fallback was used.
	Insert(ctx context.Context, msg *model.Message) (bool, error)
	UpdateStatus(ctx context.Context, messageID string, status model.MessageStatus, readAt *time.Time, lastEvent datatypes.JSON) error
}

// TokenRepo defines read-only access to API credentials.
type TokenRepo interface {
	FindActive(ctx context.Context, token, workspaceID string) (*model.ApiToken, error)
}

// PipelineErrorRepo defines persistence for workflow error reports.
type PipelineErrorRepo interface {
	Save(ctx context.Context, report *model.PipelineError) error
	List(ctx context.Context, filter PipelineErrorFilter) ([]model.PipelineError, error)
	Resolve(ctx context.Context, id string, resolvedAt time.Time) error
}
