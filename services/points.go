package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reflectly/models"
)

// Point values are fixed policy, not derived.
const (
	PointsDiaryEncouraged = 5
	PointsDiaryGrowth     = 2
	PointsGoalCompleted   = 10
	PointsGoalFailed      = 1
	PointsDailyLogin      = 1
	PointsStreak7Day      = 10
	PointsStreak30Day     = 50
)

var (
	// ErrUnknownSourceType rejects awards with a source type outside the
	// closed enum before anything is written.
	ErrUnknownSourceType = errors.New("unknown points source type")
	// ErrNonPositivePoints rejects zero or negative amounts.
	ErrNonPositivePoints = errors.New("points must be a positive integer")
	// ErrInvalidDate rejects malformed target days.
	ErrInvalidDate = errors.New("invalid target date")
)

// Points manages the append-only points ledger and the daily_stats cache.
// Every award commits the ledger entry and the snapshot delta in one
// transaction so readers never observe a partial write.
type Points struct {
	db    *gorm.DB
	clock Clock
}

// NewPoints creates a points service on top of db using the given clock.
func NewPoints(db *gorm.DB, clock Clock) *Points {
	return &Points{db: db, clock: clock}
}

// AwardInput describes one point-earning activity.
type AwardInput struct {
	UserID      uint
	Points      int
	Source      models.SourceType
	Description string
	SourceID    *uint  // diary entry or goal id, nil for login/milestone
	Date        string // credited day, defaults to today (UTC)
}

// Award appends a ledger entry and adds the amount to the snapshot for the
// credited day. When that day is today it also recomputes the user's streaks
// and runs the milestone checks, all inside the same transaction.
func (p *Points) Award(in AwardInput) (*models.PointsLog, error) {
	if !in.Source.Valid() {
		return nil, ErrUnknownSourceType
	}
	if in.Points <= 0 {
		return nil, ErrNonPositivePoints
	}

	today := Today(p.clock)
	day := in.Date
	if day == "" {
		day = today
	} else if !ValidDay(day) {
		return nil, ErrInvalidDate
	}

	entry := &models.PointsLog{
		UserID:      in.UserID,
		Date:        day,
		Points:      in.Points,
		SourceType:  in.Source,
		SourceID:    in.SourceID,
		Description: in.Description,
		CreatedAt:   p.clock.Now(),
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if err := addToDailyStats(tx, in.UserID, day, in.Points); err != nil {
			return err
		}
		if day != today {
			return nil
		}
		streak, err := updateStreaks(tx, in.UserID, today)
		if err != nil {
			return err
		}
		return p.awardStreakMilestones(tx, in.UserID, streak, today)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// addToDailyStats adds points to the (user, day) snapshot, creating it when
// absent. Two concurrent writers can both miss the read and race on the
// unique (user_id, date) index; the loser falls back to an in-place update
// instead of surfacing the constraint violation.
func addToDailyStats(tx *gorm.DB, userID uint, day string, points int) error {
	q := tx.Where("user_id = ? AND date = ?", userID, day)
	// Row locks exist only on MySQL; sqlite serializes writers itself and
	// rejects FOR UPDATE outright.
	if tx.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var stats models.DailyStats
	err := q.First(&stats).Error
	switch {
	case err == nil:
		return tx.Model(&models.DailyStats{}).
			Where("id = ?", stats.ID).
			Update("points", gorm.Expr("points + ?", points)).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		stats = models.DailyStats{UserID: userID, Date: day, Points: points}
		if createErr := tx.Create(&stats).Error; createErr != nil {
			if isDuplicateKey(createErr) {
				return tx.Model(&models.DailyStats{}).
					Where("user_id = ? AND date = ?", userID, day).
					Update("points", gorm.Expr("points + ?", points)).Error
			}
			return createErr
		}
		return nil
	default:
		return err
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

// AwardDiaryEntry credits a saved diary entry: 5 points for encouraged
// behavior, 2 for a growth opportunity.
func (p *Points) AwardDiaryEntry(userID, entryID uint, rating int) (*models.PointsLog, error) {
	points := PointsDiaryGrowth
	description := "Growth Opportunity Diary"
	if rating == models.RatingEncouraged {
		points = PointsDiaryEncouraged
		description = "Encouraged Behavior Diary"
	}
	return p.Award(AwardInput{
		UserID:      userID,
		Points:      points,
		Source:      models.SourceDiaryEntry,
		Description: description,
		SourceID:    &entryID,
	})
}

// AwardGoalCompleted credits a completed weekly goal with 10 points.
func (p *Points) AwardGoalCompleted(userID, goalID uint, title string) (*models.PointsLog, error) {
	return p.Award(AwardInput{
		UserID:      userID,
		Points:      PointsGoalCompleted,
		Source:      models.SourceGoalCompleted,
		Description: fmt.Sprintf("Goal Completed: '%s'", title),
		SourceID:    &goalID,
	})
}

// AwardGoalFailed credits a failed weekly goal with 1 point as effort
// recognition.
func (p *Points) AwardGoalFailed(userID, goalID uint, title string) (*models.PointsLog, error) {
	return p.Award(AwardInput{
		UserID:      userID,
		Points:      PointsGoalFailed,
		Source:      models.SourceGoalFailed,
		Description: fmt.Sprintf("Goal Failed: '%s'", title),
		SourceID:    &goalID,
	})
}

// AwardLoginBonus credits the daily login bonus at most once per user per
// day. Returns (nil, nil) when today's bonus was already granted.
func (p *Points) AwardLoginBonus(userID uint) (*models.PointsLog, error) {
	today := Today(p.clock)
	var count int64
	if err := p.db.Model(&models.PointsLog{}).
		Where("user_id = ? AND date = ? AND source_type = ?", userID, today, models.SourceDailyLogin).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	return p.Award(AwardInput{
		UserID:      userID,
		Points:      PointsDailyLogin,
		Source:      models.SourceDailyLogin,
		Description: "Daily Login Bonus",
	})
}

// BreakdownItem is one row of a day's point activity.
type BreakdownItem struct {
	Source     string            `json:"source"`
	Points     int               `json:"points"`
	SourceType models.SourceType `json:"source_type"`
	SourceID   *uint             `json:"source_id"`
	CreatedAt  time.Time         `json:"created_at"`
}

// DailyBreakdown lists the day's ledger entries, newest first. An empty day
// defaults to today.
func (p *Points) DailyBreakdown(userID uint, day string) ([]BreakdownItem, error) {
	if day == "" {
		day = Today(p.clock)
	}
	var entries []models.PointsLog
	if err := p.db.Where("user_id = ? AND date = ?", userID, day).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	breakdown := make([]BreakdownItem, 0, len(entries))
	for _, e := range entries {
		breakdown = append(breakdown, BreakdownItem{
			Source:     e.Description,
			Points:     e.Points,
			SourceType: e.SourceType,
			SourceID:   e.SourceID,
			CreatedAt:  e.CreatedAt,
		})
	}
	return breakdown, nil
}

// DailyTotal sums the day's ledger entries. An empty day defaults to today.
func (p *Points) DailyTotal(userID uint, day string) (int, error) {
	if day == "" {
		day = Today(p.clock)
	}
	var total int
	err := p.db.Model(&models.PointsLog{}).
		Where("user_id = ? AND date = ?", userID, day).
		Select("COALESCE(SUM(points),0)").
		Scan(&total).Error
	return total, err
}

// TotalPoints sums points across all of the user's snapshots.
func (p *Points) TotalPoints(userID uint) (int, error) {
	var total int
	err := p.db.Model(&models.DailyStats{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points),0)").
		Scan(&total).Error
	return total, err
}

// CurrentStreak returns the streak stored on the user's latest snapshot.
func (p *Points) CurrentStreak(userID uint) (int, error) {
	var stats models.DailyStats
	err := p.db.Where("user_id = ?", userID).
		Order("date DESC").
		First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return stats.CurrentStreak, nil
}

// LongestStreak returns the highest longest_streak ever recorded for the user.
func (p *Points) LongestStreak(userID uint) (int, error) {
	var longest int
	err := p.db.Model(&models.DailyStats{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(longest_streak),0)").
		Scan(&longest).Error
	return longest, err
}
