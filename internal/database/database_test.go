package database

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestTransactionRetriesSerializationFailure(t *testing.T) {
	db := openTestDB(t)

	calls := 0
	err := Transaction(db, func(tx *gorm.DB) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransactionRetriesDeadlock(t *testing.T) {
	db := openTestDB(t)

	calls := 0
	err := Transaction(db, func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	// The retry happens exactly once; a second conflict surfaces.
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransactionDoesNotRetryOtherErrors(t *testing.T) {
	db := openTestDB(t)

	boom := errors.New("boom")
	calls := 0
	err := Transaction(db, func(tx *gorm.DB) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
