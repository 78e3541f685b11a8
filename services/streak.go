package services

import (
	"errors"

	"gorm.io/gorm"

	"reflectly/models"
)

// updateStreaks recomputes the user's current and longest streak and stores
// both on today's snapshot. It returns the current streak length.
//
// The walk-back loop costs one lookup per streak day. A maintained
// "last broken day" pointer would make this O(1) but is not worth it at
// single-user request volume.
func updateStreaks(tx *gorm.DB, userID uint, today string) (int, error) {
	current := 0
	day := today
	for {
		var stats models.DailyStats
		err := tx.Where("user_id = ? AND date = ?", userID, day).First(&stats).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return 0, err
		}
		// A row with zero points is a broken link even though it exists.
		if stats.Points <= 0 {
			break
		}
		current++
		day = PrevDay(day)
	}

	longest, err := longestStreakScan(tx, userID)
	if err != nil {
		return 0, err
	}

	err = tx.Model(&models.DailyStats{}).
		Where("user_id = ? AND date = ?", userID, today).
		Updates(map[string]interface{}{
			"current_streak": current,
			"longest_streak": longest,
		}).Error
	if err != nil {
		return 0, err
	}
	return current, nil
}

// longestStreakScan finds the longest run of consecutive days with points
// across the user's whole snapshot history. The running counter resets on a
// zero-point day or a gap of more than one day between rows.
func longestStreakScan(tx *gorm.DB, userID uint) (int, error) {
	var rows []models.DailyStats
	if err := tx.Where("user_id = ?", userID).Order("date").Find(&rows).Error; err != nil {
		return 0, err
	}

	longest, run := 0, 0
	prev := ""
	for _, r := range rows {
		if r.Points <= 0 {
			run = 0
			prev = r.Date
			continue
		}
		if prev == "" || DayDiff(prev, r.Date) > 1 {
			run = 1
		} else {
			run++
		}
		if run > longest {
			longest = run
		}
		prev = r.Date
	}
	return longest, nil
}
