package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/itops-hq/asset-custody-api/internal/models"
)

func editRows(id string, status models.RequestStatus, editData string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "asset_id", "user_id", "edit_data", "status", "approver_id", "approval_comment", "approved_at",
		"created_at", "updated_at",
	}).AddRow(id, "asset-1", "user-1", []byte(editData), string(status), nil, nil, nil, time.Now(), time.Now())
}

func editHistoryEntry() *models.HistoryEntry {
	operator := "user-1"
	return &models.HistoryEntry{
		AssetID:     "asset-1",
		ActionType:  models.HistoryActionEdit,
		Description: "edit requested (remark)",
		OperatorID:  &operator,
	}
}

func TestEditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEditRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO edit_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO asset_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := &models.EditRequest{
		AssetID:  "asset-1",
		UserID:   "user-1",
		EditData: []byte(`{"remark":"moved to lab"}`),
	}
	entry := editHistoryEntry()
	require.NoError(t, repo.Create(context.Background(), req, entry))
	require.Equal(t, models.StatusPending, req.Status)
	require.NotNil(t, entry.RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditRepositoryDecideApproveAppliesFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEditRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, user_id, edit_data")).
		WithArgs("edit-1").
		WillReturnRows(editRows("edit-1", models.StatusPending, `{"remark":"moved to lab"}`))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE edit_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_number, category")).
		WithArgs("asset-1").
		WillReturnRows(assetRows("asset-1", "user-1", "IT"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET remark")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO asset_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.Decide(context.Background(), DecideEditParams{
		ID:         "edit-1",
		Approved:   true,
		ApproverID: "admin-1",
		DecidedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditRepositoryDecideReject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEditRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, user_id, edit_data")).
		WithArgs("edit-1").
		WillReturnRows(editRows("edit-1", models.StatusPending, `{"remark":"moved to lab"}`))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE edit_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO asset_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.Decide(context.Background(), DecideEditParams{
		ID:         "edit-1",
		Approved:   false,
		ApproverID: "admin-1",
		DecidedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEditRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, user_id, edit_data")).
		WithArgs("edit-1").
		WillReturnRows(editRows("edit-1", models.StatusPending, `{}`))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM edit_requests")).
		WithArgs("edit-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO asset_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Cancel(context.Background(), "edit-1", editHistoryEntry()))
	require.NoError(t, mock.ExpectationsWereMet())
}
