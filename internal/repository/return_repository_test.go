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

func returnRows(id string, status models.RequestStatus, newCustodianID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "asset_id", "user_id", "reason", "status", "mac_address", "ip_address", "office_location",
		"floor", "seat_number", "remark", "new_custodian_id", "approver_id", "approval_comment", "approved_at",
		"created_at", "updated_at",
	}).AddRow(id, "asset-1", "user-1", "device returned", string(status), nil, nil, nil,
		nil, nil, nil, newCustodianID, nil, nil, nil, time.Now(), time.Now())
}

func returnHistoryEntry() *models.HistoryEntry {
	operator := "user-1"
	return &models.HistoryEntry{
		AssetID:     "asset-1",
		ActionType:  models.HistoryActionReturn,
		Description: "return requested",
		OperatorID:  &operator,
	}
}

func TestReturnRepositoryDecideApproveToWarehouse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReturnRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, user_id")).
		WithArgs("ret-1").
		WillReturnRows(returnRows("ret-1", models.StatusPending, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE return_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_number, category")).
		WithArgs("asset-1").
		WillReturnRows(assetRows("asset-1", "user-1", "IT"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET custodian_id = NULL, user_group = NULL")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO asset_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.Decide(context.Background(), DecideReturnParams{
		ID:         "ret-1",
		Approved:   true,
		ApproverID: "admin-1",
		DecidedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnRepositoryDecideApproveToNewCustodian(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReturnRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, user_id")).
		WithArgs("ret-1").
		WillReturnRows(returnRows("ret-1", models.StatusPending, "user-3"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE return_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_number, category")).
		WithArgs("asset-1").
		WillReturnRows(assetRows("asset-1", "user-1", "IT"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_group FROM users")).
		WithArgs("user-3").
		WillReturnRows(sqlmock.NewRows([]string{"user_group"}).AddRow("Finance"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET custodian_id")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO asset_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.Decide(context.Background(), DecideReturnParams{
		ID:         "ret-1",
		Approved:   true,
		ApproverID: "admin-1",
		DecidedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnRepositoryDecideReject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReturnRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, user_id")).
		WithArgs("ret-1").
		WillReturnRows(returnRows("ret-1", models.StatusPending, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE return_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO asset_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.Decide(context.Background(), DecideReturnParams{
		ID:         "ret-1",
		Approved:   false,
		ApproverID: "admin-1",
		DecidedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, updated.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnRepositoryCancelSettled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReturnRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, asset_id, user_id")).
		WithArgs("ret-1").
		WillReturnRows(returnRows("ret-1", models.StatusApproved, nil))
	mock.ExpectRollback()

	err := repo.Cancel(context.Background(), "ret-1", returnHistoryEntry())
	require.ErrorIs(t, err, ErrStateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
