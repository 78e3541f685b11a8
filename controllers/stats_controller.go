package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reflectly/models"
	"reflectly/services"
	"reflectly/utils"
)

// StatsController builds the progress dashboard from daily snapshots and
// diary entries. Responses are cached per user and invalidated whenever an
// award lands.
type StatsController struct {
	db     *gorm.DB
	points *services.Points
	clock  services.Clock
}

// NewStatsController creates a new controller instance.
func NewStatsController(db *gorm.DB, points *services.Points, clock services.Clock) *StatsController {
	return &StatsController{db: db, points: points, clock: clock}
}

type pointsDatum struct {
	Date   string `json:"date"`
	Points int    `json:"points"` // cumulative up to and including Date
}

type weekdayAverage struct {
	Weekday string  `json:"weekday"`
	Average float64 `json:"average"`
	Days    int     `json:"days"`
}

type topDay struct {
	Date    string `json:"date"`
	Points  int    `json:"points"`
	Entries int    `json:"entries"`
}

type progressResponse struct {
	TodayPoints       int                 `json:"today_points"`
	TotalPoints       int                 `json:"total_points"`
	CurrentStreak     int                 `json:"current_streak"`
	LongestStreak     int                 `json:"longest_streak"`
	TotalEntries      int64               `json:"total_entries"`
	PointsData        []pointsDatum       `json:"points_data"`
	WeekdayData       []weekdayAverage    `json:"weekday_data"`
	WeekdaySufficient bool                `json:"weekday_sufficient"`
	TrendMessage      string              `json:"trend_message"`
	TopDays           []topDay            `json:"top_days"`
	RecentEntries     []models.DiaryEntry `json:"recent_entries"`
}

// GetProgress returns the full progress dashboard for the current user.
func (s *StatsController) GetProgress(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cacheKey := utils.UserCachePrefix(userID) + "progress"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	resp, err := s.buildProgress(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to build progress stats")
		return
	}

	envelope := utils.JSONResponse{Code: 0, Message: "success", Data: resp}
	utils.CacheSetJSON(cacheKey, envelope, 0)
	ctx.JSON(http.StatusOK, envelope)
}

func (s *StatsController) buildProgress(userID uint) (*progressResponse, error) {
	resp := &progressResponse{
		PointsData:    []pointsDatum{},
		WeekdayData:   []weekdayAverage{},
		TopDays:       []topDay{},
		RecentEntries: []models.DiaryEntry{},
	}

	var err error
	if resp.TodayPoints, err = s.points.DailyTotal(userID, ""); err != nil {
		return nil, err
	}
	if resp.TotalPoints, err = s.points.TotalPoints(userID); err != nil {
		return nil, err
	}
	if resp.CurrentStreak, err = s.points.CurrentStreak(userID); err != nil {
		return nil, err
	}
	if resp.LongestStreak, err = s.points.LongestStreak(userID); err != nil {
		return nil, err
	}
	if err = s.db.Model(&models.DiaryEntry{}).
		Where("user_id = ?", userID).
		Count(&resp.TotalEntries).Error; err != nil {
		return nil, err
	}

	var days []models.DailyStats
	if err = s.db.Where("user_id = ?", userID).
		Order("date ASC").
		Find(&days).Error; err != nil {
		return nil, err
	}

	running := 0
	for _, d := range days {
		running += d.Points
		resp.PointsData = append(resp.PointsData, pointsDatum{Date: d.Date, Points: running})
	}

	resp.WeekdayData, resp.WeekdaySufficient = weekdayAverages(days)
	resp.TrendMessage = trendMessage(days, services.Today(s.clock))
	resp.TopDays, err = s.topDays(userID, days)
	if err != nil {
		return nil, err
	}

	if err = s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(5).
		Find(&resp.RecentEntries).Error; err != nil {
		return nil, err
	}
	return resp, nil
}

// weekdayAverages groups active days by weekday. The pattern is only shown
// once activity spans at least two distinct weekdays.
func weekdayAverages(days []models.DailyStats) ([]weekdayAverage, bool) {
	sums := make([]int, 7)
	counts := make([]int, 7)
	for _, d := range days {
		t, err := time.ParseInLocation(services.DayFormat, d.Date, time.UTC)
		if err != nil || d.Points <= 0 {
			continue
		}
		wd := int(t.Weekday())
		sums[wd] += d.Points
		counts[wd]++
	}

	distinct := 0
	out := make([]weekdayAverage, 0, 7)
	for wd := 0; wd < 7; wd++ {
		avg := 0.0
		if counts[wd] > 0 {
			distinct++
			avg = float64(sums[wd]) / float64(counts[wd])
		}
		out = append(out, weekdayAverage{
			Weekday: time.Weekday(wd).String(),
			Average: avg,
			Days:    counts[wd],
		})
	}
	return out, distinct >= 2
}

// trendMessage compares the last 7 days against the 7 days before them.
func trendMessage(days []models.DailyStats, today string) string {
	recent, previous := 0, 0
	for _, d := range days {
		age := services.DayDiff(d.Date, today)
		switch {
		case age >= 0 && age < 7:
			recent += d.Points
		case age >= 7 && age < 14:
			previous += d.Points
		}
	}

	switch {
	case recent == 0 && previous == 0:
		return "Start journaling to see your trend."
	case previous == 0:
		return "Great start! Keep your momentum going."
	case recent > previous:
		return "You're trending up compared to last week. Keep it up!"
	case recent < previous:
		return "A quieter week than the last one. A small entry today gets you moving again."
	default:
		return "You're holding steady week over week."
	}
}

func (s *StatsController) topDays(userID uint, days []models.DailyStats) ([]topDay, error) {
	best := make([]models.DailyStats, 0, 3)
	for _, d := range days {
		if d.Points <= 0 {
			continue
		}
		best = append(best, d)
	}
	// Selection over at most three slots keeps this linear.
	top := []models.DailyStats{}
	for len(top) < 3 && len(best) > 0 {
		maxIdx := 0
		for i, d := range best {
			if d.Points > best[maxIdx].Points {
				maxIdx = i
			}
		}
		top = append(top, best[maxIdx])
		best = append(best[:maxIdx], best[maxIdx+1:]...)
	}

	out := make([]topDay, 0, len(top))
	for _, d := range top {
		var entries int64
		if err := s.db.Model(&models.DiaryEntry{}).
			Where("user_id = ? AND entry_date = ?", userID, d.Date).
			Count(&entries).Error; err != nil {
			return nil, err
		}
		out = append(out, topDay{Date: d.Date, Points: d.Points, Entries: int(entries)})
	}
	return out, nil
}
