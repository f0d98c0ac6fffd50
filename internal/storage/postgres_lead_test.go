package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/apperrors"
	"gitlab.com/zapfunil/api/crm-inbound-engine/internal/model"
)

func leadRows(leads ...model.Lead) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "workspace_id", "phone", "name", "status", "instance",
		"last_message_at", "followup_sent_at", "followup_text", "created_at", "updated_at",
	})
	for _, l := range leads {
		rows.AddRow(l.ID, l.WorkspaceID, l.Phone, l.Name, l.Status, l.Instance,
			l.LastMessageAt, l.FollowupSentAt, l.FollowupText, l.CreatedAt, l.UpdatedAt)
	}
	return rows
}

func TestFindLeadByPhone_Found(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	lead := model.Lead{
		ID:          "lead-1",
		WorkspaceID: testWorkspaceID,
		Phone:       "5511999887766",
		Name:        "Maria",
		Status:      model.LeadStatusNew,
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "leads" WHERE workspace_id = $1 AND phone = $2`)).
		WithArgs(testWorkspaceID, lead.Phone, 1).
		WillReturnRows(leadRows(lead))

	found, err := repo.FindLeadByPhone(workspaceContext(), lead.Phone)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, found.ID)
	assert.Equal(t, lead.Phone, found.Phone)
}

func TestFindLeadByPhone_NotFound(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "leads"`)).
		WithArgs(testWorkspaceID, "5511000000000", 1).
		WillReturnRows(leadRows())

	_, err := repo.FindLeadByPhone(workspaceContext(), "5511000000000")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateLead_Success(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	lead := &model.Lead{
		ID:          "lead-new-1",
		WorkspaceID: testWorkspaceID,
		Phone:       "5511999887766",
		Name:        "Maria",
		Status:      model.LeadStatusNew,
		Instance:    "wa-01",
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "leads"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateLead(workspaceContext(), lead)
	assert.NoError(t, err)
}

func TestCreateLead_DuplicatePhone(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	lead := &model.Lead{
		ID:          "lead-new-2",
		WorkspaceID: testWorkspaceID,
		Phone:       "5511999887766",
		Status:      model.LeadStatusNew,
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "leads"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_leads_workspace_phone"})

	err := repo.CreateLead(workspaceContext(), lead)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestCreateLead_WorkspaceMismatch(t *testing.T) {
	repo, _, teardown := newMockRepo(t)
	defer teardown()

	lead := &model.Lead{
		ID:          "lead-new-3",
		WorkspaceID: "ws-other",
		Phone:       "5511999887766",
		Status:      model.LeadStatusNew,
	}
	err := repo.CreateLead(workspaceContext(), lead)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestUpdateLeadActivity_Success(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "leads" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateLeadActivity(workspaceContext(), "lead-1", time.Now(), "Maria", "wa-01")
	assert.NoError(t, err)
}

func TestUpdateLeadActivity_NotFound(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "leads" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateLeadActivity(workspaceContext(), "lead-missing", time.Now(), "", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFindStaleLeads(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	old := time.Now().Add(-3 * time.Hour)
	leads := []model.Lead{
		{ID: "lead-a", WorkspaceID: testWorkspaceID, Phone: "5511999000001", Status: model.LeadStatusNew},
		{ID: "lead-b", WorkspaceID: testWorkspaceID, Phone: "5511999000002", Status: model.LeadStatusInProgress, LastMessageAt: &old},
	}
	mock.ExpectQuery(`SELECT \* FROM "leads" WHERE workspace_id = .+ AND status IN .+last_message_at IS NULL OR last_message_at <= .+followup_sent_at IS NULL OR followup_sent_at <= .+phone <> ''`).
		WillReturnRows(leadRows(leads...))

	threshold := time.Now().Add(-time.Hour)
	found, err := repo.FindStaleLeads(workspaceContext(), model.OpenLeadStatuses, threshold, 30)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "lead-a", found[0].ID)
}

func TestMarkFollowupSent_Success(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "leads" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFollowupSent(workspaceContext(), "lead-1", time.Now(), "oi, tudo bem?")
	assert.NoError(t, err)
}

func TestMarkFollowupSent_NotFound(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	defer teardown()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "leads" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkFollowupSent(workspaceContext(), "lead-other-ws", time.Now(), "oi")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
