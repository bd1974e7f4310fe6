package api

import (
	"edu_rewards/internal/notify"
	"edu_rewards/pkg/auth"
	"edu_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type socketServer interface {
	Serve(userID int64, conn *websocket.Conn)
}

type notificationRoutes struct {
	hub socketServer
	a   *auth.TelegramAuth
}

func NewNotificationRoutes(handler *gin.RouterGroup, hub socketServer, a *auth.TelegramAuth) {
	r := &notificationRoutes{hub: hub, a: a}
	h := handler.Group("/notifications")
	h.Use(a.TelegramAuthMiddleware())

	h.GET("/ws", r.handleWebSocket)
}

func (r *notificationRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	id, ok := callerID(c)
	if !ok {
		return
	}

	conn, err := notify.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Int64("user_id", id), zap.Error(err))
		return
	}

	go r.hub.Serve(id, conn)
}
