package pgdb

import (
	"testing"
	"tender-marketplace-api/pkg/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*postgres.Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return postgres.Wrap(sqlx.NewDb(db, "sqlmock")), mock
}
