package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"
	"edu_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ProfilePhotos is the slice of the bot API the avatar lookup needs.
// *tgbotapi.BotAPI satisfies it.
type ProfilePhotos interface {
	GetUserProfilePhotos(config tgbotapi.UserProfilePhotosConfig) (tgbotapi.UserProfilePhotos, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

type userRoutes struct {
	us     service.UserServiceI
	photos ProfilePhotos
}

// NewUserRoutes registers the profile routes. photos may be nil, in which case
// avatar lookups answer 503.
func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.TelegramAuth, photos ProfilePhotos) {
	r := &userRoutes{us: us, photos: photos}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("", r.RegisterUser)
		h.GET("/me", r.GetMe)
		h.GET("/me/avatar", r.GetMyAvatar)
		h.GET("/leaderboard", r.GetLeaderboard)
	}
}

type RegisterUserRequest struct {
	Handle string `json:"handle"`
	Email  string `json:"email"`
}

type RegisterUserResponse struct {
	TelegramID int64      `json:"telegram_id"`
	Handle     string     `json:"handle"`
	Role       model.Role `json:"role"`
}

type ProfileResponse struct {
	TelegramID       int64      `json:"telegram_id"`
	Handle           string     `json:"handle"`
	Username         string     `json:"username"`
	Email            string     `json:"email,omitempty"`
	Role             model.Role `json:"role"`
	Points           int64      `json:"points"`
	Gems             int64      `json:"gems"`
	RegistrationDate time.Time  `json:"registration_date"`
	AuthDate         time.Time  `json:"auth_date"`
}

// RegisterUser creates the caller's account. Self registration always yields
// a student; other roles are assigned out of band.
func (r *userRoutes) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request", err)
		return
	}

	user := auth.UserFromContext(c)
	if user == nil {
		respondError(c, service.ErrUnauthenticated, "register user")
		return
	}

	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		handle = user.Username
	}

	u := &model.User{
		TelegramID:       user.ID,
		Handle:           handle,
		Username:         user.Username,
		Email:            strings.TrimSpace(req.Email),
		Role:             model.RoleStudent,
		RegistrationDate: time.Now().UTC(),
		AuthDate:         user.AuthDate.UTC(),
	}

	if err := r.us.RegisterUser(c.Request.Context(), u); err != nil {
		respondError(c, err, "register user")
		return
	}

	c.JSON(http.StatusCreated, RegisterUserResponse{
		TelegramID: u.TelegramID,
		Handle:     u.Handle,
		Role:       u.Role,
	})
}

func (r *userRoutes) GetMe(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	profile, err := r.us.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get profile")
		return
	}

	u := profile.User
	c.JSON(http.StatusOK, ProfileResponse{
		TelegramID:       u.TelegramID,
		Handle:           u.Handle,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		Points:           u.Points,
		Gems:             profile.Gems,
		RegistrationDate: u.RegistrationDate,
		AuthDate:         u.AuthDate,
	})
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	users, err := r.us.GetLeaderboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "get leaderboard")
		return
	}

	response := make([]gin.H, 0, len(users))
	for i, user := range users {
		response = append(response, gin.H{
			"rank":     i + 1,
			"handle":   user.Handle,
			"username": user.Username,
			"points":   user.Points,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (r *userRoutes) GetMyAvatar(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	if r.photos == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatars are unavailable"})
		return
	}

	if _, err := r.us.GetUserByTelegramID(c.Request.Context(), id); err != nil {
		respondError(c, err, "get user")
		return
	}

	path, err := r.avatarPath(id)
	if err != nil {
		logger.Logger().Error("failed to look up avatar",
			zap.Error(err),
			zap.Int64("telegram_id", id))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch avatar"})
		return
	}
	if path == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no avatar found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar_file_path": path})
}

// avatarPath resolves the file path of the largest size of the caller's
// current profile photo. An empty path means the user has no photo.
func (r *userRoutes) avatarPath(telegramID int64) (string, error) {
	res, err := r.photos.GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig{UserID: telegramID, Limit: 1})
	if err != nil {
		return "", fmt.Errorf("profile photos: %w", err)
	}
	if len(res.Photos) == 0 || len(res.Photos[0]) == 0 {
		return "", nil
	}

	sizes := res.Photos[0]
	file, err := r.photos.GetFile(tgbotapi.FileConfig{FileID: sizes[len(sizes)-1].FileID})
	if err != nil {
		return "", fmt.Errorf("file %s: %w", sizes[len(sizes)-1].FileID, err)
	}
	return file.FilePath, nil
}
