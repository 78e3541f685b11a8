package services

import (
	"fmt"

	"gorm.io/gorm"

	"reflectly/models"
)

// Streak milestone boundaries.
const (
	milestoneWeek  = 7
	milestoneMonth = 30
)

// awardStreakMilestones grants the fixed bonuses when the freshly computed
// streak lands on a 7-day or 30-day multiple. The checks are independent: a
// streak of 210 earns both bonuses on the same day.
func (p *Points) awardStreakMilestones(tx *gorm.DB, userID uint, streak int, today string) error {
	if streak <= 0 {
		return nil
	}
	if streak%milestoneWeek == 0 {
		desc := fmt.Sprintf("7-Day Streak Milestone (Day %d)", streak)
		if err := awardMilestone(tx, userID, today, models.SourceStreak7Day, PointsStreak7Day, desc, p.clock); err != nil {
			return err
		}
	}
	if streak%milestoneMonth == 0 {
		desc := fmt.Sprintf("30-Day Streak Milestone (Day %d)", streak)
		if err := awardMilestone(tx, userID, today, models.SourceStreak30Day, PointsStreak30Day, desc, p.clock); err != nil {
			return err
		}
	}
	return nil
}

// awardMilestone writes the bonus entry unless one of the same source type
// already exists for the user and day. The dedup key is (user, type, date),
// not the streak length: re-reaching a boundary after a reset on a later
// date awards again.
func awardMilestone(tx *gorm.DB, userID uint, day string, source models.SourceType, points int, description string, clock Clock) error {
	var count int64
	if err := tx.Model(&models.PointsLog{}).
		Where("user_id = ? AND date = ? AND source_type = ?", userID, day, source).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	entry := models.PointsLog{
		UserID:      userID,
		Date:        day,
		Points:      points,
		SourceType:  source,
		Description: description,
		CreatedAt:   clock.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	// The bonus changes the day's total but not its streak membership, so
	// streaks are not recomputed here.
	return addToDailyStats(tx, userID, day, points)
}
