package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"reflectly/config"
	"reflectly/middleware"
	"reflectly/models"
	"reflectly/services"
	"reflectly/utils"
)

const tokenDuration = 72 * time.Hour

// AuthController handles registration, login, and OAuth. Every successful
// authentication grants the daily login bonus through the points service,
// at most once per UTC day.
type AuthController struct {
	db     *gorm.DB
	points *services.Points
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB, points *services.Points) *AuthController {
	return &AuthController{db: db, points: points}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates a password-based account.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid registration payload")
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check existing users")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "username or email already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates with username/email + password and awards the daily
// login bonus.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid login payload")
		return
	}

	var user models.User
	err := a.db.Where("username = ? OR email = ?", req.Username, req.Username).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid credentials")
		return
	}

	a.finishLogin(ctx, &user)
}

// finishLogin stamps the login, grants the once-per-day bonus, and returns a
// token. A points failure is logged but never fails the login itself.
func (a *AuthController) finishLogin(ctx *gin.Context, user *models.User) {
	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := a.db.Save(user).Error; err != nil {
		utils.Sugar.Warnf("failed to stamp last login for user %d: %v", user.ID, err)
	}

	if entry, err := a.points.AwardLoginBonus(user.ID); err != nil {
		utils.Sugar.Errorf("login bonus award failed for user %d: %v", user.ID, err)
	} else if entry != nil {
		utils.InvalidateByPrefix(utils.UserCachePrefix(user.ID))
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	utils.Success(ctx, user)
}

func githubOAuthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		Endpoint:     github.Endpoint,
		RedirectURL:  cfg.OAuthRedirectBase + "/api/v1/auth/oauth/github/callback",
		Scopes:       []string{"read:user", "user:email"},
	}
}

// OAuthRedirect sends the browser to GitHub's consent page.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	oc := githubOAuthConfig()
	if oc.ClientID == "" {
		utils.Error(ctx, http.StatusNotImplemented, 50101, "github oauth not configured")
		return
	}

	state := uuid.NewString()
	utils.CacheSetBytes("reflectly:oauth:state:"+state, []byte("1"), 10*time.Minute)
	ctx.Redirect(http.StatusFound, oc.AuthCodeURL(state))
}

// OAuthCallback exchanges the code, finds or creates the user, and logs in.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	if _, ok := utils.CacheGetBytes("reflectly:oauth:state:" + state); !ok {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid oauth state")
		return
	}

	oc := githubOAuthConfig()
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	token, err := oc.Exchange(reqCtx, ctx.Query("code"))
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50201, "oauth exchange failed")
		return
	}

	profile, err := fetchGitHubProfile(reqCtx, oc, token)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50202, "failed to fetch github profile")
		return
	}

	var user models.User
	err = a.db.Where("provider = ? AND provider_id = ?", "github", profile.ID).First(&user).Error
	if err != nil {
		user = models.User{
			Username:   profile.Login,
			Email:      profile.Email,
			Provider:   "github",
			ProviderID: profile.ID,
			AvatarURL:  profile.AvatarURL,
		}
		if createErr := a.db.Create(&user).Error; createErr != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
			return
		}
	}

	a.finishLogin(ctx, &user)
}

type githubProfile struct {
	ID        string
	Login     string
	Email     string
	AvatarURL string
}

func fetchGitHubProfile(ctx context.Context, oc *oauth2.Config, token *oauth2.Token) (*githubProfile, error) {
	client := oc.Client(ctx, token)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw struct {
		ID        json.Number `json:"id"`
		Login     string      `json:"login"`
		Email     string      `json:"email"`
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return &githubProfile{
		ID:        raw.ID.String(),
		Login:     raw.Login,
		Email:     raw.Email,
		AvatarURL: raw.AvatarURL,
	}, nil
}
