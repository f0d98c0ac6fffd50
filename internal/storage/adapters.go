package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
)

// RepoAdapter bundles the per-entity interfaces behind the single
// PostgresRepo so callers depend on the narrow contracts, not on GORM.
type RepoAdapter struct {
	repo *PostgresRepo
}

// NewRepoAdapter wraps a PostgresRepo.
func NewRepoAdapter(repo *PostgresRepo) *RepoAdapter {
	return &RepoAdapter{repo: repo}
}

// LeadRepoAdapter implements LeadRepo.
type LeadRepoAdapter struct{ *RepoAdapter }

func (a *LeadRepoAdapter) FindByPhone(ctx context.Context, phone string) (*model.Lead, error) {
	return a.repo.FindLeadByPhone(ctx, phone)
}

func (a *LeadRepoAdapter) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	return a.repo.FindLeadByID(ctx, id)
}

func (a *LeadRepoAdapter) Create(ctx context.Context, lead *model.Lead) error {
	return a.repo.CreateLead(ctx, lead)
}

func (a *LeadRepoAdapter) UpdateActivity(ctx context.Context, leadID string, activityAt time.Time, name, instance string) error {
	return a.repo.UpdateLeadActivity(ctx, leadID, activityAt, name, instance)
}

func (a *LeadRepoAdapter) FindStale(ctx context.Context, statuses []model.LeadStatus, threshold time.Time, limit int) ([]model.Lead, error) {
	return a.repo.FindStaleLeads(ctx, statuses, threshold, limit)
}

func (a *LeadRepoAdapter) MarkFollowupSent(ctx context.Context, leadID string, sentAt time.Time, text string) error {
	return a.repo.MarkFollowupSent(ctx, leadID, sentAt, text)
}

// MessageRepoAdapter implements MessageRepo.
type MessageRepoAdapter struct{ *RepoAdapter }

func (a *MessageRepoAdapter) FindByExternalID(ctx context.Context, externalID string) (*model.Message, error) {
	return a.repo.FindMessageByExternalID(ctx, externalID)
}

func (a *MessageRepoAdapter) Insert(ctx context.Context, msg *model.Message) (bool, error) {
	return a.repo.InsertMessage(ctx, msg)
}

func (a *MessageRepoAdapter) UpdateStatus(ctx context.Context, messageID string, status model.MessageStatus, readAt *time.Time, lastEvent datatypes.JSON) error {
	return a.repo.UpdateMessageStatus(ctx, messageID, status, readAt, lastEvent)
}

// TokenRepoAdapter implements TokenRepo.
type TokenRepoAdapter struct{ *RepoAdapter }

func (a *TokenRepoAdapter) FindActive(ctx context.Context, token, workspaceID string) (*model.ApiToken, error) {
	return a.repo.FindActiveToken(ctx, token, workspaceID)
}

// PipelineErrorRepoAdapter implements PipelineErrorRepo.
type PipelineErrorRepoAdapter struct{ *RepoAdapter }

func (a *PipelineErrorRepoAdapter) Save(ctx context.Context, report *model.PipelineError) error {
	return a.repo.SavePipelineError(ctx, report)
}

func (a *PipelineErrorRepoAdapter) List(ctx context.Context, filter PipelineErrorFilter) ([]model.PipelineError, error) {
	return a.repo.ListPipelineErrors(ctx, filter)
}

func (a *PipelineErrorRepoAdapter) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	return a.repo.ResolvePipelineError(ctx, id, resolvedAt)
}

// NewLeadRepoAdapter returns the LeadRepo view of repo.
func NewLeadRepoAdapter(repo *PostgresRepo) *LeadRepoAdapter {
	return &LeadRepoAdapter{&RepoAdapter{repo: repo}}
}

// NewMessageRepoAdapter returns the MessageRepo view of repo.
func NewMessageRepoAdapter(repo *PostgresRepo) *MessageRepoAdapter {
	return &MessageRepoAdapter{&RepoAdapter{repo: repo}}
}

// NewTokenRepoAdapter returns the TokenRepo view of repo.
func NewTokenRepoAdapter(repo *PostgresRepo) *TokenRepoAdapter {
	return &TokenRepoAdapter{&RepoAdapter{repo: repo}}
}

// NewPipelineErrorRepoAdapter returns the PipelineErrorRepo view of repo.
func NewPipelineErrorRepoAdapter(repo *PostgresRepo) *PipelineErrorRepoAdapter {
	return &PipelineErrorRepoAdapter{&RepoAdapter{repo: repo}}
}
