package models

import "time"

// SourceType identifies the activity that produced a points transaction.
type SourceType string

const (
	SourceDiaryEntry    SourceType = "diary_entry"
	SourceGoalCompleted SourceType = "goal_completed"
	SourceGoalFailed    SourceType = "goal_failed"
	SourceDailyLogin    SourceType = "daily_login"
	SourceStreak7Day    SourceType = "streak_7_day"
	SourceStreak30Day   SourceType = "streak_30_day"
)

// Valid reports whether s is one of the known activity types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceDiaryEntry, SourceGoalCompleted, SourceGoalFailed,
		SourceDailyLogin, SourceStreak7Day, SourceStreak30Day:
		return true
	}
	return false
}

// PointsLog is one immutable point-earning transaction. The table is
// append-only: corrections are written as new rows, existing rows are never
// mutated or deleted outside explicit repair tooling.
type PointsLog struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index:idx_points_log_user_date;not null" json:"user_id"`
	Date        string     `gorm:"index:idx_points_log_user_date;size:10;not null" json:"date"`
	Points      int        `gorm:"not null" json:"points"`
	SourceType  SourceType `gorm:"size:20;not null" json:"source_type"`
	SourceID    *uint      `json:"source_id"` // diary entry or goal id, nil for login/milestone
	Description string     `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (PointsLog) TableName() string {
	return "points_log"
}
