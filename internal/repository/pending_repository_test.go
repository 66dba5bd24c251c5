package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestPendingRepositoryCountPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPendingRepository(db)
	rows := sqlmock.NewRows([]string{"transfers", "returns", "edits"}).AddRow(2, 1, 3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transfer_requests")).
		WithArgs("pending").
		WillReturnRows(rows)

	counts, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, counts.Transfers)
	require.Equal(t, 1, counts.Returns)
	require.Equal(t, 3, counts.Edits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepositoryCountAwaitingConfirmation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPendingRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transfer_requests WHERE to_user_id = $1")).
		WithArgs("user-2", "waiting_confirmation").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountAwaitingConfirmation(context.Background(), "user-2")
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
