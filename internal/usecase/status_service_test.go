package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
)

func TestApplyStatusReceipt_Applied(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := &model.Message{ID: "msg-1", WorkspaceID: testWorkspace, Status: model.MessageStatusSent}

	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-1").
		Return(msg, nil).Once()
	mocks.messages.On("UpdateStatus", testifymock.Anything, "msg-1", model.MessageStatusDelivered,
		testifymock.Anything, testifymock.Anything).Return(nil).Once()

	result, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{
		ExternalID: "wamid-1",
		Status:     "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, ReceiptApplied, result.Outcome)
	assert.Equal(t, model.MessageStatusDelivered, result.Message.Status)
	mocks.messages.AssertExpectations(t)
}

func TestApplyStatusReceipt_ReadSetsReadAt(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := &model.Message{ID: "msg-1", WorkspaceID: testWorkspace, Status: model.MessageStatusDelivered}

	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-1").
		Return(msg, nil).Once()
	mocks.messages.On("UpdateStatus", testifymock.Anything, "msg-1", model.MessageStatusRead,
		testifymock.MatchedBy(func(readAt *time.Time) bool { return readAt != nil }),
		testifymock.Anything).Return(nil).Once()

	result, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{
		ExternalID: "wamid-1",
		Status:     "read",
	})
	require.NoError(t, err)
	assert.Equal(t, ReceiptApplied, result.Outcome)
	require.NotNil(t, result.Message.ReadAt)
}

func TestApplyStatusReceipt_OutOfOrderIsNoOp(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := &model.Message{ID: "msg-1", WorkspaceID: testWorkspace, Status: model.MessageStatusRead}

	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-1").
		Return(msg, nil).Once()

	result, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{
		ExternalID: "wamid-1",
		Status:     "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, ReceiptAlreadyApplied, result.Outcome)
	mocks.messages.AssertNotCalled(t, "UpdateStatus",
		testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestApplyStatusReceipt_FailedIsTerminal(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := &model.Message{ID: "msg-1", WorkspaceID: testWorkspace, Status: model.MessageStatusFailed}

	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-1").
		Return(msg, nil).Once()

	result, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{
		ExternalID: "wamid-1",
		Status:     "read",
	})
	require.NoError(t, err)
	assert.Equal(t, ReceiptAlreadyApplied, result.Outcome)
}

func TestApplyStatusReceipt_UnknownMessage(t *testing.T) {
	svc, mocks := newTestService(t)

	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-ghost").
		Return(nil, apperrors.ErrNotFound).Once()

	result, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{
		ExternalID: "wamid-ghost",
		Status:     "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, ReceiptMessageNotFound, result.Outcome)
}

func TestApplyStatusReceipt_MissingExternalID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{Status: "read"})
	assertCode(t, err, apperrors.CodeMissingExternalID)
}

func TestApplyStatusReceipt_ReadIsTerminal(t *testing.T) {
	svc, mocks := newTestService(t)
	now := time.Now().UTC()
	msg := &model.Message{ID: "msg-1", WorkspaceID: testWorkspace, Status: model.MessageStatusRead, ReadAt: &now}

	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-1").
		Return(msg, nil).Once()

	result, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{
		ExternalID: "wamid-1",
		Status:     "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, ReceiptAlreadyApplied, result.Outcome)
	mocks.messages.AssertNotCalled(t, "UpdateStatus",
		testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything)
}

func TestApplyStatusReceipt_UnknownStatusCoercesToRead(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := &model.Message{ID: "msg-1", WorkspaceID: testWorkspace, Status: model.MessageStatusDelivered}

	mocks.messages.On("FindByExternalID", testifymock.Anything, "wamid-1").
		Return(msg, nil).Once()
	mocks.messages.On("UpdateStatus", testifymock.Anything, "msg-1", model.MessageStatusRead,
		testifymock.MatchedBy(func(readAt *time.Time) bool { return readAt != nil }),
		testifymock.Anything).Return(nil).Once()

	result, err := svc.ApplyStatusReceipt(testCtx(), &model.StatusUpdatePayload{
		ExternalID: "wamid-1",
		Status:     "seen",
	})
	require.NoError(t, err)
	assert.Equal(t, ReceiptApplied, result.Outcome)
	assert.Equal(t, model.MessageStatusRead, result.Message.Status)
	mocks.messages.AssertExpectations(t)
}
