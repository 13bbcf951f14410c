// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"validationlake/internal/infrastructure/database"
	"validationlake/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated SQLite database in a per-test temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "lake.db")), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Day returns midnight UTC of the given date plus the optional offsets.
func Day(year int, month time.Month, day int, offsets ...time.Duration) time.Time {
	ts := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	for _, d := range offsets {
		ts = ts.Add(d)
	}
	return ts
}

// Record builds a record with the fields most tests care about.
func Record(ticket string, op model.OperationType, success bool, createdAt time.Time) *model.ValidationRecord {
	return &model.ValidationRecord{
		TicketCode:    ticket,
		OperationType: op,
		Success:       success,
		VlTotal:       10,
		CreatedAt:     createdAt,
	}
}

// Insert stores the records in order, so ids follow slice order.
func Insert(t testing.TB, db *gorm.DB, recs ...*model.ValidationRecord) {
	t.Helper()
	for _, rec := range recs {
		require.NoError(t, db.Create(rec).Error)
	}
}

func IntPtr(v int) *int { return &v }

func StrPtr(v string) *string { return &v }
