package middleware

import (
	"errors"
	"net/http"

	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"
	"edu_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// UserKey is where RequireRoles stores the caller's *model.User.
const UserKey = "user"

type Authorization struct {
	userService service.UserServiceI
}

func NewAuthorization(userService service.UserServiceI) *Authorization {
	return &Authorization{
		userService: userService,
	}
}

// RequireRoles lets the request through only when the authenticated caller is
// registered with one of the given roles.
func (a *Authorization) RequireRoles(roles ...model.Role) gin.HandlerFunc {
	allowed := model.RoleSet(roles...)

	return func(c *gin.Context) {
		log := logger.Logger()

		telegramUser := auth.UserFromContext(c)
		if telegramUser == nil {
			log.Error("telegram user data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		user, err := a.userService.GetUserByTelegramID(c.Request.Context(), telegramUser.ID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user is not registered"})
				return
			}
			log.Error("failed to get user data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		if !model.HasRole(user, allowed) {
			log.Info("unauthorized access attempt",
				zap.Int64("telegram_id", telegramUser.ID),
				zap.String("role", string(user.Role)),
				zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireRoles, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
