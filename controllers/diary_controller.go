package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reflectly/models"
	"reflectly/services"
	"reflectly/utils"
)

// DiaryController handles self-reflection diary entries. An entry is the
// user's record and is never rolled back if the follow-up points award
// fails; the award runs in its own transaction after the entry commits.
type DiaryController struct {
	db     *gorm.DB
	points *services.Points
	clock  services.Clock
}

// NewDiaryController creates a new controller instance.
func NewDiaryController(db *gorm.DB, points *services.Points, clock services.Clock) *DiaryController {
	return &DiaryController{db: db, points: points, clock: clock}
}

type createEntryRequest struct {
	Content string `json:"content" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
}

// CreateEntry saves a diary entry for today and awards its points.
func (d *DiaryController) CreateEntry(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req createEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid diary payload")
		return
	}
	if req.Rating != models.RatingEncouraged && req.Rating != models.RatingGrowthOpportunity {
		utils.Error(ctx, http.StatusBadRequest, 40021, "rating must be 1 or -1")
		return
	}

	content := strings.TrimSpace(utils.Sanitize(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, "content must not be empty")
		return
	}

	entry := models.DiaryEntry{
		UserID:    userID,
		EntryDate: services.Today(d.clock),
		Content:   content,
		Rating:    req.Rating,
	}
	if err := d.db.Create(&entry).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to save diary entry")
		return
	}

	var awarded int
	if log, err := d.points.AwardDiaryEntry(userID, entry.ID, entry.Rating); err != nil {
		// The entry already committed; the auditor can backfill the ledger.
		utils.Sugar.Errorf("diary entry %d saved but points award failed: %v", entry.ID, err)
	} else {
		awarded = log.Points
	}
	utils.InvalidateByPrefix(utils.UserCachePrefix(userID))

	utils.Success(ctx, gin.H{"entry": entry, "points_awarded": awarded})
}

// ListEntries returns the user's diary entries, newest first. Accepts
// optional ?date=YYYY-MM-DD and ?limit= query filters.
func (d *DiaryController) ListEntries(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	q := d.db.Where("user_id = ?", userID)
	if day := ctx.Query("date"); day != "" {
		if !services.ValidDay(day) {
			utils.Error(ctx, http.StatusBadRequest, 40023, "date must be YYYY-MM-DD")
			return
		}
		q = q.Where("entry_date = ?", day)
	}

	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	var entries []models.DiaryEntry
	if err := q.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list diary entries")
		return
	}
	utils.Success(ctx, entries)
}
