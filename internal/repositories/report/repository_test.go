package report

import (
	"context"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicpulse/civicpulse/pkg/database"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := getTestLogger()
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)
	return NewRepository(db, logger), mock
}

func TestAddSupport(t *testing.T) {
	t.Run("records support and bumps the counter", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO report_supports`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`UPDATE reports SET support_count = support_count \+ 1.+RETURNING support_count`).
			WillReturnRows(sqlmock.NewRows([]string{"support_count"}).AddRow(3))
		mock.ExpectCommit()

		count, err := repo.AddSupport(context.Background(), 1, 42)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 3, count)
	})

	t.Run("duplicate support is a conflict", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO report_supports`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err := repo.AddSupport(context.Background(), 1, 42)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	})

	t.Run("unknown report is not found", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO report_supports`).
			WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		_, err := repo.AddSupport(context.Background(), 999, 42)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}
