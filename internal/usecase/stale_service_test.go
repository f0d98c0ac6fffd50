package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
)

func TestFindStaleLeads_Defaults(t *testing.T) {
	svc, mocks := newTestService(t)

	mocks.leads.On("FindStale", testifymock.Anything, model.OpenLeadStatuses,
		testifymock.MatchedBy(func(threshold time.Time) bool {
			// Default 60 minute window.
			expected := time.Now().UTC().Add(-60 * time.Minute)
			return threshold.Sub(expected).Abs() < 5*time.Second
		}), 30).
		Return([]model.Lead{
			{ID: "lead-a", WorkspaceID: testWorkspace, Phone: "5511999887766"},
		}, nil).Once()

	result, err := svc.FindStaleLeads(testCtx(), StaleQuery{})
	require.NoError(t, err)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "lead-a", result.Leads[0].ID)
	assert.NotEmpty(t, result.Leads[0].PhoneDisplay)
	assert.Equal(t, 60, result.StaleMinutes)
	expected := time.Now().UTC().Add(-60 * time.Minute)
	assert.Less(t, result.Threshold.Sub(expected).Abs(), 5*time.Second)
	mocks.leads.AssertExpectations(t)
}

func TestFindStaleLeads_ExplicitFilter(t *testing.T) {
	svc, mocks := newTestService(t)

	mocks.leads.On("FindStale", testifymock.Anything,
		[]model.LeadStatus{model.LeadStatusNew, model.LeadStatusQualified},
		testifymock.Anything, 10).
		Return([]model.Lead{}, nil).Once()

	result, err := svc.FindStaleLeads(testCtx(), StaleQuery{
		StatusCSV: "new, QUALIFIED",
		Minutes:   120,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Leads)
	assert.Equal(t, 120, result.StaleMinutes)
	mocks.leads.AssertExpectations(t)
}

func TestFindStaleLeads_UnknownStatusesDropped(t *testing.T) {
	svc, mocks := newTestService(t)

	mocks.leads.On("FindStale", testifymock.Anything,
		[]model.LeadStatus{model.LeadStatusNew},
		testifymock.Anything, 30).
		Return([]model.Lead{}, nil).Once()

	// One typo must not reject the stages that did parse.
	_, err := svc.FindStaleLeads(testCtx(), StaleQuery{StatusCSV: "new,banana"})
	require.NoError(t, err)
	mocks.leads.AssertExpectations(t)
}

func TestFindStaleLeads_AllStatusesInvalid(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.FindStaleLeads(testCtx(), StaleQuery{StatusCSV: "banana,bogus"})
	assertCode(t, err, apperrors.CodeInvalidStatusFilter)
}

func TestFindStaleLeads_LimitClamped(t *testing.T) {
	svc, mocks := newTestService(t)

	mocks.leads.On("FindStale", testifymock.Anything, model.OpenLeadStatuses,
		testifymock.Anything, 100).
		Return([]model.Lead{}, nil).Once()

	_, err := svc.FindStaleLeads(testCtx(), StaleQuery{Limit: 5000})
	require.NoError(t, err)
	mocks.leads.AssertExpectations(t)
}

func TestMarkFollowupSent_Success(t *testing.T) {
	svc, mocks := newTestService(t)
	now := time.Now().UTC()
	updated := &model.Lead{ID: "lead-1", WorkspaceID: testWorkspace, FollowupSentAt: &now}

	mocks.leads.On("MarkFollowupSent", testifymock.Anything, "lead-1",
		testifymock.Anything, "oi, ainda tem interesse?").Return(nil).Once()
	mocks.leads.On("FindByID", testifymock.Anything, "lead-1").
		Return(updated, nil).Once()

	lead, err := svc.MarkFollowupSent(testCtx(), "lead-1", &model.FollowupPayload{
		FollowupText: "oi, ainda tem interesse?",
	})
	require.NoError(t, err)
	assert.NotNil(t, lead.FollowupSentAt)
	mocks.leads.AssertExpectations(t)
}

func TestMarkFollowupSent_TextCapped(t *testing.T) {
	svc, mocks := newTestService(t)
	long := strings.Repeat("x", model.LeadFollowupTextMax+100)

	mocks.leads.On("MarkFollowupSent", testifymock.Anything, "lead-1",
		testifymock.Anything, testifymock.MatchedBy(func(text string) bool {
			return len(text) == model.LeadFollowupTextMax
		})).Return(nil).Once()
	mocks.leads.On("FindByID", testifymock.Anything, "lead-1").
		Return(&model.Lead{ID: "lead-1", WorkspaceID: testWorkspace}, nil).Once()

	_, err := svc.MarkFollowupSent(testCtx(), "lead-1", &model.FollowupPayload{FollowupText: long})
	require.NoError(t, err)
	mocks.leads.AssertExpectations(t)
}

func TestMarkFollowupSent_MissingID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.MarkFollowupSent(testCtx(), "  ", &model.FollowupPayload{})
	assertCode(t, err, apperrors.CodeMissingLeadID)
}

func TestMarkFollowupSent_NotFound(t *testing.T) {
	svc, mocks := newTestService(t)

	mocks.leads.On("MarkFollowupSent", testifymock.Anything, "lead-ghost",
		testifymock.Anything, testifymock.Anything).Return(apperrors.ErrNotFound).Once()

	_, err := svc.MarkFollowupSent(testCtx(), "lead-ghost", &model.FollowupPayload{})
	assertCode(t, err, apperrors.CodeLeadNotFound)
}
