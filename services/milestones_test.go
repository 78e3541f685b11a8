package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflectly/models"
)

func milestoneCount(t *testing.T, p *Points, userID uint, day string, source models.SourceType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, p.db.Model(&models.PointsLog{}).
		Where("user_id = ? AND date = ? AND source_type = ?", userID, day, source).
		Count(&count).Error)
	return count
}

func TestSevenDayMilestone(t *testing.T) {
	p, clock, db := newTestPoints(t, "2026-03-01")

	for i := 0; i < 7; i++ {
		_, err := p.AwardLoginBonus(1)
		require.NoError(t, err)
		if i < 6 {
			clock.AdvanceDays(1)
		}
	}

	assert.EqualValues(t, 1, milestoneCount(t, p, 1, "2026-03-07", models.SourceStreak7Day))

	var bonus models.PointsLog
	require.NoError(t, db.Where("user_id = ? AND source_type = ?", 1, models.SourceStreak7Day).First(&bonus).Error)
	assert.Equal(t, 10, bonus.Points)
	assert.Equal(t, "7-Day Streak Milestone (Day 7)", bonus.Description)
	assert.Nil(t, bonus.SourceID)

	// Login bonus + milestone land on the same snapshot.
	stats := snapshotFor(t, db, 1, "2026-03-07")
	assert.Equal(t, 11, stats.Points)
	assert.Equal(t, 7, stats.CurrentStreak)
}

func TestMilestoneNotDuplicatedBySecondAward(t *testing.T) {
	p, clock, _ := newTestPoints(t, "2026-03-01")

	for i := 0; i < 6; i++ {
		_, err := p.AwardLoginBonus(1)
		require.NoError(t, err)
		clock.AdvanceDays(1)
	}
	_, err := p.AwardLoginBonus(1)
	require.NoError(t, err)

	// A later award on the same day recomputes the streak (still 7) but the
	// milestone check dedups on (user, type, date).
	_, err = p.AwardDiaryEntry(1, 5, models.RatingEncouraged)
	require.NoError(t, err)

	assert.EqualValues(t, 1, milestoneCount(t, p, 1, "2026-03-07", models.SourceStreak7Day))
}

func TestThirtyDayMilestone(t *testing.T) {
	p, _, db := newTestPoints(t, "2026-03-30")

	for i := 1; i <= 29; i++ {
		seedDay(t, db, 1, fmt.Sprintf("2026-03-%02d", i), 1)
	}
	_, err := p.AwardLoginBonus(1)
	require.NoError(t, err)

	assert.EqualValues(t, 1, milestoneCount(t, p, 1, "2026-03-30", models.SourceStreak30Day))
	// Day 30 is not a multiple of 7; no week bonus.
	assert.EqualValues(t, 0, milestoneCount(t, p, 1, "2026-03-30", models.SourceStreak7Day))

	var bonus models.PointsLog
	require.NoError(t, db.Where("user_id = ? AND source_type = ?", 1, models.SourceStreak30Day).First(&bonus).Error)
	assert.Equal(t, 50, bonus.Points)
	assert.Equal(t, "30-Day Streak Milestone (Day 30)", bonus.Description)
}

func TestDay210EarnsBothMilestones(t *testing.T) {
	p, clock, db := newTestPoints(t, "2026-01-01")

	day := "2026-01-01"
	for i := 1; i <= 209; i++ {
		seedDay(t, db, 1, day, 1)
		day = AddDays(day, 1)
	}
	clock.SetDay(t, day)
	_, err := p.AwardLoginBonus(1)
	require.NoError(t, err)

	assert.EqualValues(t, 1, milestoneCount(t, p, 1, day, models.SourceStreak7Day))
	assert.EqualValues(t, 1, milestoneCount(t, p, 1, day, models.SourceStreak30Day))

	stats := snapshotFor(t, db, 1, day)
	assert.Equal(t, 1+10+50, stats.Points)
	assert.Equal(t, 210, stats.CurrentStreak)
}

func TestMilestoneReawardedAfterReset(t *testing.T) {
	p, _, db := newTestPoints(t, "2026-03-20")

	// First streak of 7 ending on 2026-03-07.
	for i := 1; i <= 7; i++ {
		seedDay(t, db, 1, fmt.Sprintf("2026-03-%02d", i), 1)
	}
	// Gap, then six days leading into today.
	for i := 14; i <= 19; i++ {
		seedDay(t, db, 1, fmt.Sprintf("2026-03-%02d", i), 1)
	}

	_, err := p.AwardLoginBonus(1)
	require.NoError(t, err)

	// The dedup key is the date, so hitting 7 again on a new date awards again.
	assert.EqualValues(t, 1, milestoneCount(t, p, 1, "2026-03-20", models.SourceStreak7Day))
}

func TestDiaryAwardOnSeventhDayEarnsMilestone(t *testing.T) {
	p, _, db := newTestPoints(t, "2024-01-07")

	for i := 1; i <= 6; i++ {
		seedDay(t, db, 5, fmt.Sprintf("2024-01-%02d", i), 3)
	}

	_, err := p.AwardDiaryEntry(5, 11, models.RatingEncouraged)
	require.NoError(t, err)

	stats := snapshotFor(t, db, 5, "2024-01-07")
	assert.Equal(t, 15, stats.Points, "diary points plus week bonus")
	assert.Equal(t, 7, stats.CurrentStreak)

	var entries int64
	require.NoError(t, db.Model(&models.PointsLog{}).
		Where("user_id = ? AND date = ?", 5, "2024-01-07").
		Count(&entries).Error)
	assert.EqualValues(t, 2, entries)
}

func TestGapBeforeSeventhDayBlocksMilestone(t *testing.T) {
	p, _, db := newTestPoints(t, "2024-01-07")

	for i := 1; i <= 6; i++ {
		if i == 4 {
			continue
		}
		seedDay(t, db, 5, fmt.Sprintf("2024-01-%02d", i), 3)
	}

	_, err := p.AwardDiaryEntry(5, 11, models.RatingEncouraged)
	require.NoError(t, err)

	stats := snapshotFor(t, db, 5, "2024-01-07")
	assert.Equal(t, 3, stats.CurrentStreak, "05, 06, 07")
	assert.Equal(t, 5, stats.Points, "no milestone off the boundary")
	assert.EqualValues(t, 0, milestoneCount(t, p, 5, "2024-01-07", models.SourceStreak7Day))
}

func TestNoMilestoneOffBoundary(t *testing.T) {
	p, clock, _ := newTestPoints(t, "2026-03-01")

	for i := 0; i < 5; i++ {
		_, err := p.AwardLoginBonus(1)
		require.NoError(t, err)
		clock.AdvanceDays(1)
	}

	var count int64
	require.NoError(t, p.db.Model(&models.PointsLog{}).
		Where("user_id = ? AND source_type IN ?", 1,
			[]models.SourceType{models.SourceStreak7Day, models.SourceStreak30Day}).
		Count(&count).Error)
	assert.Zero(t, count)
}
