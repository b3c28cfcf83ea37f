package main

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keydash/dashboard/internal/db"
)

func TestCountRows(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	for i, table := range db.Tables {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM " + table)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(i)))
	}

	counts, err := countRows(context.Background(), db.Wrap(sqlDB))
	require.NoError(t, err)
	assert.Len(t, counts, len(db.Tables))
	assert.Equal(t, int64(1), counts[db.Tables[1]])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRows_Error(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("relation does not exist"))

	_, err = countRows(context.Background(), db.Wrap(sqlDB))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count "+db.Tables[0])
}
