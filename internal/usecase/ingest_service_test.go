package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/config"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
	storagemock "gitlab.com/zapfunil/api/crm-inbound-engine/internal/storage/mock"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/tenant"
	"gitlab.com/zapfunil/api/crm-inbound-engine/pkg/logger"
)

const testWorkspace = "ws-usecase-test"

type serviceMocks struct {
	leads    *storagemock.LeadRepoMock
	messages *storagemock.MessageRepoMock
	reports  *storagemock.PipelineErrorRepoMock
}

func newTestService(t *testing.T) (*Service, serviceMocks) {
	t.Helper()
	logger.Log = zaptest.NewLogger(t).Named("test")

	mocks := serviceMocks{
		leads:    new(storagemock.LeadRepoMock),
		messages: new(storagemock.MessageRepoMock),
		reports:  new(storagemock.PipelineErrorRepoMock),
	}
	svc := NewService(mocks.leads, mocks.messages, mocks.reports, nil, &config.Config{})
	return svc, mocks
}

func testCtx() context.Context {
	return tenant.WithWorkspaceID(context.Background(), testWorkspace)
}

func inboundPayload(phone, externalID string) *model.InboundEventPayload {
	return &model.InboundEventPayload{
		Lead: model.LeadDescriptor{
			Phone: phone,
			Name:  gofakeit.Name(),
		},
		Message: model.MessageDescriptor{
			Body:       "oi, quero saber mais",
			Direction:  "in",
			ExternalID: externalID,
			Instance:   "wa-01",
		},
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	apiErr, ok := apperrors.AsAPIError(err)
	require.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, code, apiErr.Code)
}

func TestIngestEvent_NewLeadNewMessage(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("+55 (11) 99988-7766", "wamid-1")

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.leads.On("Create", testifymock.Anything, testifymock.MatchedBy(func(l *model.Lead) bool {
		return l.WorkspaceID == testWorkspace && l.Phone == "5511999887766" && l.Status == model.LeadStatusNew
	})).Return(nil).Once()
	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-1").
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.messages.On("Insert", testifymock.Anything, testifymock.MatchedBy(func(m *model.Message) bool {
		return m.WorkspaceID == testWorkspace && m.Direction == model.DirectionIn && *m.ExternalID == "wamid-1"
	})).Return(false, nil).Once()
	mocks.leads.On("UpdateActivity", testifymock.Anything, testifymock.Anything, testifymock.Anything, payload.Lead.Name, "wa-01").
		Return(nil).Once()

	result, err := svc.IngestEvent(testCtx(), payload)
	require.NoError(t, err)
	assert.True(t, result.LeadCreated)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "5511999887766", result.Lead.Phone)
	mocks.leads.AssertExpectations(t)
	mocks.messages.AssertExpectations(t)
}

func TestIngestEvent_ExistingLead(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "wamid-2")
	existing := &model.Lead{ID: "lead-1", WorkspaceID: testWorkspace, Phone: "5511999887766"}

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(existing, nil).Once()
	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-2").
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.messages.On("Insert", testifymock.Anything, testifymock.Anything).
		Return(false, nil).Once()
	mocks.leads.On("UpdateActivity", testifymock.Anything, "lead-1", testifymock.Anything, testifymock.Anything, testifymock.Anything).
		Return(nil).Once()

	result, err := svc.IngestEvent(testCtx(), payload)
	require.NoError(t, err)
	assert.False(t, result.LeadCreated)
	assert.Equal(t, "lead-1", result.Lead.ID)
	mocks.leads.AssertExpectations(t)
}

func TestIngestEvent_DuplicateExternalID(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "wamid-dup")
	existingLead := &model.Lead{ID: "lead-1", WorkspaceID: testWorkspace, Phone: "5511999887766"}
	existingMsg := &model.Message{ID: "msg-1", WorkspaceID: testWorkspace, LeadID: "lead-1"}

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(existingLead, nil).Once()
	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-dup").
		Return(existingMsg, nil).Once()

	result, err := svc.IngestEvent(testCtx(), payload)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, "msg-1", result.Message.ID)
	// No insert, no activity bump on a replay.
	mocks.messages.AssertNotCalled(t, "Insert", testifymock.Anything, testifymock.Anything)
	mocks.leads.AssertNotCalled(t, "UpdateActivity", testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestIngestEvent_LeadCreateRace(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "")
	winner := &model.Lead{ID: "lead-winner", WorkspaceID: testWorkspace, Phone: "5511999887766"}

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.leads.On("Create", testifymock.Anything, testifymock.Anything).
		Return(apperrors.ErrDuplicate).Once()
	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(winner, nil).Once()
	mocks.messages.On("Insert", testifymock.Anything, testifymock.MatchedBy(func(m *model.Message) bool {
		return m.LeadID == "lead-winner" && m.ExternalID == nil
	})).Return(false, nil).Once()
	mocks.leads.On("UpdateActivity", testifymock.Anything, "lead-winner", testifymock.Anything, testifymock.Anything, testifymock.Anything).
		Return(nil).Once()

	result, err := svc.IngestEvent(testCtx(), payload)
	require.NoError(t, err)
	assert.False(t, result.LeadCreated)
	assert.Equal(t, "lead-winner", result.Lead.ID)
	mocks.leads.AssertExpectations(t)
}

func TestIngestEvent_MessageInsertRace(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "wamid-race")
	lead := &model.Lead{ID: "lead-1", WorkspaceID: testWorkspace, Phone: "5511999887766"}
	winnerMsg := &model.Message{ID: "msg-winner", WorkspaceID: testWorkspace, LeadID: "lead-1"}

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(lead, nil).Once()
	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-race").
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.messages.On("Insert", testifymock.Anything, testifymock.Anything).
		Return(false, apperrors.ErrDuplicate).Once()
	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-race").
		Return(winnerMsg, nil).Once()

	result, err := svc.IngestEvent(testCtx(), payload)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, "msg-winner", result.Message.ID)
}

func TestIngestEvent_SchemaDriftReduced(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "wamid-drift")
	lead := &model.Lead{ID: "lead-1", WorkspaceID: testWorkspace, Phone: "5511999887766"}

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(lead, nil).Once()
	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-drift").
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.messages.On("Insert", testifymock.Anything, testifymock.Anything).
		Return(true, nil).Once()
	mocks.leads.On("UpdateActivity", testifymock.Anything, "lead-1", testifymock.Anything, testifymock.Anything, testifymock.Anything).
		Return(nil).Once()

	result, err := svc.IngestEvent(testCtx(), payload)
	require.NoError(t, err)
	assert.True(t, result.Reduced)
}

func TestIngestEvent_MissingPhone(t *testing.T) {
	svc, _ := newTestService(t)
	payload := inboundPayload("no digits here", "")

	_, err := svc.IngestEvent(testCtx(), payload)
	assertCode(t, err, apperrors.CodeMissingLeadPhone)
}

func TestIngestEvent_MissingBody(t *testing.T) {
	svc, _ := newTestService(t)
	payload := &model.InboundEventPayload{
		Lead: model.LeadDescriptor{Phone: "5511999887766"},
	}

	_, err := svc.IngestEvent(testCtx(), payload)
	assertCode(t, err, apperrors.CodeMissingMessageBody)
}

func TestIngestEvent_LeadInsertFailed(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "")

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(nil, apperrors.ErrNotFound).Once()
	mocks.leads.On("Create", testifymock.Anything, testifymock.Anything).
		Return(errors.New("insert blew up")).Once()

	_, err := svc.IngestEvent(testCtx(), payload)
	assertCode(t, err, apperrors.CodeLeadInsertFailed)
}

func TestIngestEvent_StoreOutageAnswersRetryable(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "")

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(nil, fmt.Errorf("%w: connection refused", apperrors.ErrDatabase)).Once()

	_, err := svc.IngestEvent(testCtx(), payload)
	assertCode(t, err, apperrors.CodeLeadLookupFailed)
	apiErr, _ := apperrors.AsAPIError(err)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestIngestEvent_StoreRejectionAnswersFatal(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "")

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(nil, errors.New("lookup blew up")).Once()

	_, err := svc.IngestEvent(testCtx(), payload)
	assertCode(t, err, apperrors.CodeLeadLookupFailed)
	apiErr, _ := apperrors.AsAPIError(err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.False(t, apperrors.IsRetryable(err))
}

func TestIngestEvent_ActivityBumpFailureIsNonFatal(t *testing.T) {
	svc, mocks := newTestService(t)
	payload := inboundPayload("5511999887766", "")
	lead := &model.Lead{ID: "lead-1", WorkspaceID: testWorkspace, Phone: "5511999887766"}

	mocks.leads.On("FindByPhone", testifymock.Anything, "5511999887766").
		Return(lead, nil).Once()
	mocks.messages.On("Insert", testifymock.Anything, testifymock.Anything).
		Return(false, nil).Once()
	mocks.leads.On("UpdateActivity", testifymock.Anything, "lead-1", testifymock.Anything, testifymock.Anything, testifymock.Anything).
		Return(errors.New("update failed")).Once()

	result, err := svc.IngestEvent(testCtx(), payload)
	require.NoError(t, err)
	assert.NotNil(t, result.Message)
}
