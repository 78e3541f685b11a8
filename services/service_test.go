package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reflectly/models"
)

// fakeClock pins "now" so day boundaries are controlled by the test.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) SetDay(t *testing.T, day string) {
	t.Helper()
	parsed, err := time.ParseInLocation(DayFormat, day, time.UTC)
	require.NoError(t, err)
	f.now = parsed.Add(12 * time.Hour)
}

func (f *fakeClock) AdvanceDays(n int) {
	f.now = f.now.AddDate(0, 0, n)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	// Each sqlite :memory: connection is its own database; keep the pool at
	// one so every session and transaction sees the migrated schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.DiaryEntry{},
		&models.Goal{},
		&models.PointsLog{},
		&models.DailyStats{},
	))
	return db
}

func newTestPoints(t *testing.T, day string) (*Points, *fakeClock, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	clock := &fakeClock{}
	clock.SetDay(t, day)
	return NewPoints(db, clock), clock, db
}

func snapshotFor(t *testing.T, db *gorm.DB, userID uint, day string) models.DailyStats {
	t.Helper()
	var stats models.DailyStats
	require.NoError(t, db.Where("user_id = ? AND date = ?", userID, day).First(&stats).Error)
	return stats
}

// seedDay writes a snapshot row directly, bypassing the ledger. Used to
// build streak history without replaying every award.
func seedDay(t *testing.T, db *gorm.DB, userID uint, day string, points int) {
	t.Helper()
	require.NoError(t, db.Create(&models.DailyStats{
		UserID: userID,
		Date:   day,
		Points: points,
	}).Error)
}
