package models

import "time"

// Rating values for diary entries.
const (
	RatingEncouraged        = 1
	RatingGrowthOpportunity = -1
)

// DiaryEntry is one reflection written by a user, rated as encouraged
// behavior (+1) or a growth opportunity (-1).
type DiaryEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	EntryDate string    `gorm:"size:10;index;not null" json:"entry_date"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Rating    int       `gorm:"not null" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}
