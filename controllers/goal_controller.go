package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reflectly/models"
	"reflectly/services"
	"reflectly/utils"
)

// GoalController manages weekly goals. Deciding a goal (complete or fail)
// is final and triggers exactly one points award.
type GoalController struct {
	db     *gorm.DB
	points *services.Points
	clock  services.Clock
}

// NewGoalController creates a new controller instance.
func NewGoalController(db *gorm.DB, points *services.Points, clock services.Clock) *GoalController {
	return &GoalController{db: db, points: points, clock: clock}
}

type createGoalRequest struct {
	Category    models.GoalCategory `json:"category" binding:"required"`
	Title       string              `json:"title" binding:"required,max=200"`
	Description string              `json:"description"`
}

// CreateGoal opens a goal with a 7-day window starting today.
func (g *GoalController) CreateGoal(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req createGoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid goal payload")
		return
	}
	if !req.Category.Valid() {
		utils.Error(ctx, http.StatusBadRequest, 40031, "unknown goal category")
		return
	}
	title := strings.TrimSpace(utils.Sanitize(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "title must not be empty")
		return
	}

	today := services.Today(g.clock)
	goal := models.Goal{
		UserID:      userID,
		Category:    req.Category,
		Title:       title,
		Description: utils.Sanitize(req.Description),
		WeekStart:   today,
		WeekEnd:     services.AddDays(today, 6),
		Status:      models.GoalActive,
	}
	if err := g.db.Create(&goal).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create goal")
		return
	}
	utils.Success(ctx, goal)
}

// ListGoals returns the user's goals, newest first. ?status= filters by
// lifecycle state.
func (g *GoalController) ListGoals(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	q := g.db.Where("user_id = ?", userID)
	if status := ctx.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var goals []models.Goal
	if err := q.Order("created_at DESC").Find(&goals).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to list goals")
		return
	}
	utils.Success(ctx, goals)
}

// CompleteGoal marks an active goal completed and awards 10 points.
func (g *GoalController) CompleteGoal(ctx *gin.Context) {
	g.decideGoal(ctx, models.GoalCompleted)
}

// FailGoal marks an active goal failed and awards the 1 effort point.
func (g *GoalController) FailGoal(ctx *gin.Context) {
	g.decideGoal(ctx, models.GoalFailed)
}

type decideGoalRequest struct {
	ProgressNotes string `json:"progress_notes"`
}

func (g *GoalController) decideGoal(ctx *gin.Context, status models.GoalStatus) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req decideGoalRequest
	_ = ctx.ShouldBindJSON(&req)

	var goal models.Goal
	err := g.db.Where("id = ? AND user_id = ?", ctx.Param("id"), userID).First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40430, "goal not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load goal")
		return
	}
	if goal.Status != models.GoalActive {
		utils.Error(ctx, http.StatusConflict, 40930, "goal already decided")
		return
	}

	goal.Status = status
	if notes := strings.TrimSpace(utils.Sanitize(req.ProgressNotes)); notes != "" {
		goal.ProgressNotes = notes
	}
	if err := g.db.Save(&goal).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to update goal")
		return
	}

	var awarded int
	var awardErr error
	var entry *models.PointsLog
	if status == models.GoalCompleted {
		entry, awardErr = g.points.AwardGoalCompleted(userID, goal.ID, goal.Title)
	} else {
		entry, awardErr = g.points.AwardGoalFailed(userID, goal.ID, goal.Title)
	}
	if awardErr != nil {
		// The decision already committed; the auditor can backfill the ledger.
		utils.Sugar.Errorf("goal %d decided but points award failed: %v", goal.ID, awardErr)
	} else if entry != nil {
		awarded = entry.Points
	}
	utils.InvalidateByPrefix(utils.UserCachePrefix(userID))

	utils.Success(ctx, gin.H{"goal": goal, "points_awarded": awarded})
}
