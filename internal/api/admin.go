package api

import (
	"net/http"
	"strconv"
	"strings"

	"edu_rewards/internal/middleware"
	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"
	"edu_rewards/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminServices struct {
	Calendar service.CalendarServiceI
	Quests   service.QuestServiceI
	Chests   service.ChestServiceI
	Gems     service.GemServiceI
}

type adminRoutes struct {
	s AdminServices
	a *auth.TelegramAuth
}

func NewAdminRoutes(handler *gin.RouterGroup, s AdminServices, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &adminRoutes{s: s, a: a}

	adminOnly := authz.RequireRoles(model.RoleAdmin)
	staff := authz.RequireRoles(model.RoleTeacher, model.RoleModerator, model.RoleAdmin)

	h := handler.Group("/admin")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/calendar/init", adminOnly, r.InitializeCalendar)

		h.GET("/quests", adminOnly, r.ListQuests)
		h.POST("/quests", adminOnly, r.CreateQuest)
		h.PATCH("/quests/:quest_id", adminOnly, r.SetQuestActive)
		h.POST("/quests/track/:user_id", staff, r.TrackActionForUser)

		h.PUT("/chests/:type", adminOnly, r.UpsertChest)

		h.POST("/gems/:user_id", adminOnly, r.AdjustGems)
		h.PATCH("/gems/transactions/:id", adminOnly, r.UpdateTransactionStatus)
	}
}

type InitializeCalendarRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

type CreateQuestRequest struct {
	Title        string           `json:"title" binding:"required"`
	Description  string           `json:"description"`
	Period       model.Period     `json:"period" binding:"required"`
	Action       string           `json:"action" binding:"required"`
	Target       int              `json:"target" binding:"required,min=1"`
	RewardType   model.RewardType `json:"reward_type" binding:"required"`
	RewardAmount int64            `json:"reward_amount"`
	BadgeID      string           `json:"badge_id"`
	IsActive     *bool            `json:"is_active"`
}

type QuestResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Period       model.Period     `json:"period"`
	Action       string           `json:"action"`
	Target       int              `json:"target"`
	RewardType   model.RewardType `json:"reward_type"`
	RewardAmount int64            `json:"reward_amount,omitempty"`
	BadgeID      string           `json:"badge_id,omitempty"`
	IsActive     bool             `json:"is_active"`
}

type SetQuestActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type TrackActionRequest struct {
	Action string `json:"action" binding:"required"`
	Amount int    `json:"amount"`
}

type UpsertChestRequest struct {
	Name            string              `json:"name"`
	PossibleRewards []model.ChestReward `json:"possible_rewards" binding:"required"`
}

type AdjustGemsRequest struct {
	Gems        int64  `json:"gems" binding:"required"`
	Description string `json:"description"`
}

type UpdateTransactionStatusRequest struct {
	Status model.TransactionStatus `json:"status" binding:"required"`
}

func toQuestResponse(q *model.Quest) QuestResponse {
	return QuestResponse{
		ID:           q.ID.String(),
		Title:        q.Title,
		Description:  q.Description,
		Period:       q.Period,
		Action:       q.Action,
		Target:       q.Target,
		RewardType:   q.RewardType,
		RewardAmount: q.RewardAmount,
		BadgeID:      q.BadgeID,
		IsActive:     q.IsActive,
	}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid user_id", err)
		return 0, false
	}
	return id, true
}

func (r *adminRoutes) InitializeCalendar(c *gin.Context) {
	var req InitializeCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "start and end are required", err)
		return
	}

	start, err := parseDate(req.Start)
	if err != nil {
		respondError(c, err, "parse start")
		return
	}
	end, err := parseDate(req.End)
	if err != nil {
		respondError(c, err, "parse end")
		return
	}

	created, err := r.s.Calendar.InitializeCalendarPeriod(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err, "initialize calendar")
		return
	}

	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (r *adminRoutes) ListQuests(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"

	quests, err := r.s.Quests.ListQuests(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err, "list quests")
		return
	}

	out := make([]QuestResponse, len(quests))
	for i, q := range quests {
		out[i] = toQuestResponse(q)
	}
	c.JSON(http.StatusOK, out)
}

func (r *adminRoutes) CreateQuest(c *gin.Context) {
	var req CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	quest, err := r.s.Quests.CreateQuest(c.Request.Context(), &model.Quest{
		Title:        req.Title,
		Description:  req.Description,
		Period:       req.Period,
		Action:       req.Action,
		Target:       req.Target,
		RewardType:   req.RewardType,
		RewardAmount: req.RewardAmount,
		BadgeID:      req.BadgeID,
		IsActive:     active,
	})
	if err != nil {
		respondError(c, err, "create quest")
		return
	}

	c.JSON(http.StatusCreated, toQuestResponse(quest))
}

func (r *adminRoutes) SetQuestActive(c *gin.Context) {
	questID, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		badRequest(c, "invalid quest_id", err)
		return
	}

	var req SetQuestActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "is_active is required", err)
		return
	}

	if err := r.s.Quests.SetQuestActive(c.Request.Context(), questID, *req.IsActive); err != nil {
		respondError(c, err, "update quest")
		return
	}

	c.JSON(http.StatusOK, gin.H{"quest_id": questID.String(), "is_active": *req.IsActive})
}

// TrackActionForUser lets staff record an action (a graded assignment, an
// attended lesson) on a student's behalf. Quest progress has no self-service
// route.
func (r *adminRoutes) TrackActionForUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req TrackActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action is required", err)
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	if actor := middleware.CurrentUser(c); actor != nil {
		logger.Logger().Info("tracking action on behalf of user",
			zap.Int64("actor_id", actor.TelegramID),
			zap.Int64("user_id", userID),
			zap.String("action", req.Action),
			zap.Int("amount", req.Amount))
	}

	updated, err := r.s.Quests.TrackAction(c.Request.Context(), userID, req.Action, req.Amount)
	if err != nil {
		respondError(c, err, "track action")
		return
	}

	c.JSON(http.StatusOK, toQuestProgressList(updated))
}

func (r *adminRoutes) UpsertChest(c *gin.Context) {
	var req UpsertChestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err)
		return
	}

	chestType := model.ChestType(strings.ToLower(c.Param("type")))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = string(chestType)
	}

	chest := &model.Chest{
		Type:            chestType,
		Name:            name,
		PossibleRewards: req.PossibleRewards,
	}
	if err := r.s.Chests.UpsertChest(c.Request.Context(), chest); err != nil {
		respondError(c, err, "save chest")
		return
	}

	c.JSON(http.StatusOK, toChestResponse(chest))
}

func (r *adminRoutes) AdjustGems(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req AdjustGemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "gems is required", err)
		return
	}

	var actorID int64
	if actor := middleware.CurrentUser(c); actor != nil {
		actorID = actor.TelegramID
	}

	tx, balance, err := r.s.Gems.AdjustGems(c.Request.Context(), actorID, userID, req.Gems, req.Description)
	if err != nil {
		respondError(c, err, "adjust gems")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": toGemTransactionResponse(tx),
		"new_balance": balance,
	})
}

func (r *adminRoutes) UpdateTransactionStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid transaction id", err)
		return
	}

	var req UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required", err)
		return
	}

	if err := r.s.Gems.UpdateTransactionStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err, "update transaction status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id.String(), "status": req.Status})
}
