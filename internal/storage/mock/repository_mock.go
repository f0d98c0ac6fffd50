// Package mock provides testify mocks for the storage repositories.
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/storage"
)

// LeadRepoMock mocks storage.LeadRepo.
type LeadRepoMock struct {
	mock.Mock
}

func (m *LeadRepoMock) FindByPhone(ctx context.Context, phone string) (*model.Lead, error) {
	args := m.Called(ctx, phone)
	if lead, ok := args.Get(0).(*model.Lead); ok {
		return lead, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadRepoMock) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if lead, ok := args.Get(0).(*model.Lead); ok {
		return lead, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadRepoMock) Create(ctx context.Context, lead *model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *LeadRepoMock) UpdateActivity(ctx context.Context, leadID string, activityAt time.Time, name, instance string) error {
	args := m.Called(ctx, leadID, activityAt, name, instance)
	return args.Error(0)
}

func (m *LeadRepoMock) FindStale(ctx context.Context, statuses []model.LeadStatus, threshold time.Time, limit int) ([]model.Lead, error) {
	args := m.Called(ctx, statuses, threshold, limit)
	if leads, ok := args.Get(0).([]model.Lead); ok {
		return leads, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LeadRepoMock) MarkFollowupSent(ctx context.Context, leadID string, sentAt time.Time, text string) error {
	args := m.Called(ctx, leadID, sentAt, text)
	return args.Error(0)
}

// MessageRepoMock mocks storage.MessageRepo.
type MessageRepoMock struct {
	mock.Mock
}

func (m *MessageRepoMock) FindByExternalID(ctx context.Context, externalID string) (*model.Message, error) {
	args := m.Called(ctx, externalID)
	if msg, ok := args.Get(0).(*model.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MessageRepoMock) Insert(ctx context.Context, msg *model.Message) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepoMock) UpdateStatus(ctx context.Context, messageID string, status model.MessageStatus, readAt *time.Time, lastEvent datatypes.JSON) error {
	args := m.Called(ctx, messageID, status, readAt, lastEvent)
	return args.Error(0)
}

// TokenRepoMock mocks storage.TokenRepo.
type TokenRepoMock struct {
	mock.Mock
}

func (m *TokenRepoMock) FindActive(ctx context.Context, token, workspaceID string) (*model.ApiToken, error) {
	args := m.Called(ctx, token, workspaceID)
	if cred, ok := args.Get(0).(*model.ApiToken); ok {
		return cred, args.Error(1)
	}
	return nil, args.Error(1)
}

// PipelineErrorRepoMock mocks storage.PipelineErrorRepo.
type PipelineErrorRepoMock struct {
	mock.Mock
}

func (m *PipelineErrorRepoMock) Save(ctx context.Context, report *model.PipelineError) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *PipelineErrorRepoMock) List(ctx context.Context, filter storage.PipelineErrorFilter) ([]model.PipelineError, error) {
	args := m.Called(ctx, filter)
	if reports, ok := args.Get(0).([]model.PipelineError); ok {
		return reports, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PipelineErrorRepoMock) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	args := m.Called(ctx, id, resolvedAt)
	return args.Error(0)
}
