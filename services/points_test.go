package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reflectly/models"
)

func TestAwardWritesLedgerAndSnapshotTogether(t *testing.T) {
	p, _, db := newTestPoints(t, "2026-03-10")

	entry, err := p.AwardDiaryEntry(1, 42, models.RatingEncouraged)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Points)
	assert.Equal(t, models.SourceDiaryEntry, entry.SourceType)
	assert.Equal(t, "2026-03-10", entry.Date)
	require.NotNil(t, entry.SourceID)
	assert.Equal(t, uint(42), *entry.SourceID)

	var count int64
	require.NoError(t, db.Model(&models.PointsLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stats := snapshotFor(t, db, 1, "2026-03-10")
	assert.Equal(t, 5, stats.Points)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.LongestStreak)
}

func TestAwardAccumulatesOnOneDay(t *testing.T) {
	p, _, db := newTestPoints(t, "2026-03-10")

	_, err := p.AwardDiaryEntry(1, 1, models.RatingEncouraged)
	require.NoError(t, err)
	_, err = p.AwardDiaryEntry(1, 2, models.RatingGrowthOpportunity)
	require.NoError(t, err)
	_, err = p.AwardLoginBonus(1)
	require.NoError(t, err)

	stats := snapshotFor(t, db, 1, "2026-03-10")
	assert.Equal(t, 5+2+1, stats.Points)

	total, err := p.DailyTotal(1, "")
	require.NoError(t, err)
	assert.Equal(t, stats.Points, total)
}

func TestAwardRejectsInvalidInput(t *testing.T) {
	p, _, _ := newTestPoints(t, "2026-03-10")

	_, err := p.Award(AwardInput{UserID: 1, Points: 5, Source: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownSourceType)

	_, err = p.Award(AwardInput{UserID: 1, Points: 0, Source: models.SourceDailyLogin})
	assert.ErrorIs(t, err, ErrNonPositivePoints)

	_, err = p.Award(AwardInput{UserID: 1, Points: -3, Source: models.SourceDailyLogin})
	assert.ErrorIs(t, err, ErrNonPositivePoints)

	_, err = p.Award(AwardInput{UserID: 1, Points: 5, Source: models.SourceDailyLogin, Date: "03/10/2026"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestBackdatedAwardSkipsStreakRecompute(t *testing.T) {
	p, _, db := newTestPoints(t, "2026-03-10")

	_, err := p.Award(AwardInput{
		UserID:      1,
		Points:      5,
		Source:      models.SourceDiaryEntry,
		Description: "Encouraged Behavior Diary",
		Date:        "2026-03-08",
	})
	require.NoError(t, err)

	stats := snapshotFor(t, db, 1, "2026-03-08")
	assert.Equal(t, 5, stats.Points)
	// Streak fields stay zero: only awards credited to today recompute them.
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 0, stats.LongestStreak)

	var today models.DailyStats
	err = db.Where("user_id = ? AND date = ?", 1, "2026-03-10").First(&today).Error
	assert.Error(t, err, "backdated award must not create today's snapshot")
}

func TestSnapshotCreateRaceFallsBackToUpdate(t *testing.T) {
	p, _, db := newTestPoints(t, "2026-03-10")

	// Sneak a conflicting snapshot row in after the existence check but
	// before gorm's INSERT, mimicking a concurrent writer winning the race
	// on the unique (user_id, date) index.
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("conflicting_snapshot", func(tx *gorm.DB) {
		if injected || tx.Statement.Table != "daily_stats" {
			return
		}
		injected = true
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO daily_stats (user_id, date, points, current_streak, longest_streak) VALUES (?, ?, 0, 0, 0)",
			1, "2026-03-10").Error)
	})
	require.NoError(t, err)

	entry, err := p.AwardDiaryEntry(1, 42, models.RatingEncouraged)
	require.NoError(t, err, "constraint violation must be recovered, not surfaced")
	assert.Equal(t, 5, entry.Points)
	assert.True(t, injected)

	// The award folded into the row the rival writer created.
	var rows []models.DailyStats
	require.NoError(t, db.Where("user_id = ? AND date = ?", 1, "2026-03-10").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Points)
	assert.Equal(t, 1, rows[0].CurrentStreak)
}

func TestLoginBonusOncePerDay(t *testing.T) {
	p, clock, db := newTestPoints(t, "2026-03-10")

	first, err := p.AwardLoginBonus(1)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Points)
	assert.Equal(t, "Daily Login Bonus", first.Description)

	second, err := p.AwardLoginBonus(1)
	require.NoError(t, err)
	assert.Nil(t, second, "second login on the same day earns nothing")

	stats := snapshotFor(t, db, 1, "2026-03-10")
	assert.Equal(t, 1, stats.Points)

	// Next day the bonus is available again.
	clock.AdvanceDays(1)
	third, err := p.AwardLoginBonus(1)
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, "2026-03-11", third.Date)
}

func TestDailyBreakdownNewestFirst(t *testing.T) {
	p, clock, _ := newTestPoints(t, "2026-03-10")

	_, err := p.AwardLoginBonus(1)
	require.NoError(t, err)
	clock.now = clock.now.Add(time.Minute)
	_, err = p.AwardDiaryEntry(1, 7, models.RatingGrowthOpportunity)
	require.NoError(t, err)

	breakdown, err := p.DailyBreakdown(1, "")
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Growth Opportunity Diary", breakdown[0].Source)
	assert.Equal(t, 2, breakdown[0].Points)
	assert.Equal(t, "Daily Login Bonus", breakdown[1].Source)

	empty, err := p.DailyBreakdown(1, "2026-01-01")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTotalsAcrossDays(t *testing.T) {
	p, clock, _ := newTestPoints(t, "2026-03-10")

	_, err := p.AwardLoginBonus(1)
	require.NoError(t, err)
	clock.AdvanceDays(1)
	_, err = p.AwardDiaryEntry(1, 9, models.RatingEncouraged)
	require.NoError(t, err)

	total, err := p.TotalPoints(1)
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	// A fresh user reads as zero everywhere.
	total, err = p.TotalPoints(99)
	require.NoError(t, err)
	assert.Zero(t, total)
	current, err := p.CurrentStreak(99)
	require.NoError(t, err)
	assert.Zero(t, current)
	longest, err := p.LongestStreak(99)
	require.NoError(t, err)
	assert.Zero(t, longest)
}

func TestGoalAwardDescriptions(t *testing.T) {
	p, _, _ := newTestPoints(t, "2026-03-10")

	done, err := p.AwardGoalCompleted(1, 3, "Run 5k")
	require.NoError(t, err)
	assert.Equal(t, 10, done.Points)
	assert.Equal(t, "Goal Completed: 'Run 5k'", done.Description)

	failed, err := p.AwardGoalFailed(1, 4, "Read daily")
	require.NoError(t, err)
	assert.Equal(t, 1, failed.Points)
	assert.Equal(t, "Goal Failed: 'Read daily'", failed.Description)
}
