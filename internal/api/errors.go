package api

import (
	"errors"
	"net/http"
	"strconv"

	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"
	"edu_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrNoRewardConfigured):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrBelowMinimum):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrTransactionFinal):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotCompleted),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrInsufficientGems):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError writes the status for a service error. Unexpected errors are
// logged and answered with a generic body.
func respondError(c *gin.Context, err error, action string) {
	log := logger.Logger()

	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("failed to "+action, zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}

	log.Debug("request rejected", zap.String("action", action), zap.Int("status", status), zap.Error(err))
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string, err error) {
	logger.Logger().Debug("failed to bind request", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// callerID returns the authenticated Telegram user ID, answering 401 when the
// request carries no identity.
func callerID(c *gin.Context) (int64, bool) {
	user := auth.UserFromContext(c)
	if user == nil || user.ID <= 0 {
		respondError(c, service.ErrUnauthenticated, "identify caller")
		return 0, false
	}
	return user.ID, true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+key, err)
		return 0, false
	}
	return v, true
}
