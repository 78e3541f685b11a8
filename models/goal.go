package models

import "time"

// GoalCategory groups weekly goals for display and filtering.
type GoalCategory string

const (
	CategoryExercise     GoalCategory = "Exercise & Fitness"
	CategoryLearning     GoalCategory = "Learning & Reading"
	CategoryMindfulness  GoalCategory = "Mindfulness & Mental Health"
	CategorySocial       GoalCategory = "Social Connections"
	CategoryProductivity GoalCategory = "Productivity & Work"
	CategoryPersonalDev  GoalCategory = "Personal Development"
	CategoryHome         GoalCategory = "Home & Organization"
	CategoryCreative     GoalCategory = "Creative Pursuits"
	CategoryCustom       GoalCategory = "Custom Goal"
)

// Valid reports whether c is one of the known categories.
func (c GoalCategory) Valid() bool {
	switch c {
	case CategoryExercise, CategoryLearning, CategoryMindfulness, CategorySocial,
		CategoryProductivity, CategoryPersonalDev, CategoryHome, CategoryCreative, CategoryCustom:
		return true
	}
	return false
}

// GoalStatus is the lifecycle state of a weekly goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalFailed    GoalStatus = "failed"
)

// Goal is a weekly goal: created with a 7-day window starting on the
// creation date, then marked completed or failed by the user.
type Goal struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"index;not null" json:"user_id"`
	Category      GoalCategory `gorm:"size:40;not null" json:"category"`
	Title         string       `gorm:"size:200;not null" json:"title"`
	Description   string       `gorm:"type:text" json:"description"`
	WeekStart     string       `gorm:"size:10;not null" json:"week_start"`
	WeekEnd       string       `gorm:"size:10;not null" json:"week_end"`
	Status        GoalStatus   `gorm:"size:16;default:active" json:"status"`
	ProgressNotes string       `gorm:"type:text" json:"progress_notes"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
