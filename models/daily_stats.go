package models

// DailyStats is the denormalized per (user, date) cache of the points ledger.
// Points must equal the sum of points_log rows for the same user and date;
// the auditpoints tool detects and repairs divergence.
type DailyStats struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UserID        uint   `gorm:"uniqueIndex:idx_daily_stats_user_date;not null" json:"user_id"`
	Date          string `gorm:"uniqueIndex:idx_daily_stats_user_date;size:10;not null" json:"date"`
	Points        int    `gorm:"default:0" json:"points"`
	CurrentStreak int    `gorm:"default:0" json:"current_streak"`
	LongestStreak int    `gorm:"default:0" json:"longest_streak"`
}

func (DailyStats) TableName() string {
	return "daily_stats"
}
