package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reflectly/services"
	"reflectly/utils"
)

// PointsController exposes the points ledger and streak read APIs.
type PointsController struct {
	points *services.Points
}

// NewPointsController creates a new controller instance.
func NewPointsController(points *services.Points) *PointsController {
	return &PointsController{points: points}
}

func (p *PointsController) parseDay(ctx *gin.Context) (string, bool) {
	day := ctx.Query("date")
	if day != "" && !services.ValidDay(day) {
		utils.Error(ctx, http.StatusBadRequest, 40040, "date must be YYYY-MM-DD")
		return "", false
	}
	return day, true
}

// DailyBreakdown lists one day's ledger entries, newest first. Defaults to
// today when ?date= is absent.
func (p *PointsController) DailyBreakdown(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	day, ok := p.parseDay(ctx)
	if !ok {
		return
	}

	breakdown, err := p.points.DailyBreakdown(userID, day)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load breakdown")
		return
	}
	total, err := p.points.DailyTotal(userID, day)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load breakdown")
		return
	}
	utils.Success(ctx, gin.H{"breakdown": breakdown, "total": total})
}

// Summary returns the user's total points and streaks in one response.
func (p *PointsController) Summary(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	total, err := p.points.TotalPoints(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load summary")
		return
	}
	todayTotal, err := p.points.DailyTotal(userID, "")
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load summary")
		return
	}
	current, err := p.points.CurrentStreak(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load summary")
		return
	}
	longest, err := p.points.LongestStreak(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load summary")
		return
	}

	utils.Success(ctx, gin.H{
		"total_points":   total,
		"today_points":   todayTotal,
		"current_streak": current,
		"longest_streak": longest,
	})
}
