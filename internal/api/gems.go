package api

import (
	"net/http"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"

	"github.com/gin-gonic/gin"
)

type gemRoutes struct {
	gs service.GemServiceI
	a  *auth.TelegramAuth
}

func NewGemRoutes(handler *gin.RouterGroup, gs service.GemServiceI, a *auth.TelegramAuth) {
	r := &gemRoutes{gs: gs, a: a}
	h := handler.Group("/gems")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("", r.GetBalance)
		h.POST("/convert", r.Convert)
		h.GET("/transactions", r.ListTransactions)
		h.GET("/points/transactions", r.ListPointTransactions)
	}
}

type BalanceResponse struct {
	Points         int64 `json:"points"`
	Gems           int64 `json:"gems"`
	ConversionRate int64 `json:"conversion_rate"`
}

type ConvertRequest struct {
	Points int64 `json:"points" binding:"required"`
}

type ConvertResponse struct {
	GemsEarned      int64 `json:"gems_earned"`
	PointsUsed      int64 `json:"points_used"`
	NewGemBalance   int64 `json:"new_gem_balance"`
	NewPointBalance int64 `json:"new_point_balance"`
}

type GemTransactionResponse struct {
	ID          string                   `json:"id"`
	Type        model.GemTransactionType `json:"type"`
	Points      *int64                   `json:"points,omitempty"`
	Gems        int64                    `json:"gems"`
	Description string                   `json:"description"`
	Status      model.TransactionStatus  `json:"status"`
	Metadata    map[string]any           `json:"metadata,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

type PointTransactionResponse struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func toGemTransactionResponse(t *model.GemTransaction) GemTransactionResponse {
	return GemTransactionResponse{
		ID:          t.ID.String(),
		Type:        t.Type,
		Points:      t.Points,
		Gems:        t.Gems,
		Description: t.Description,
		Status:      t.Status,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
	}
}

func (r *gemRoutes) GetBalance(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	balance, err := r.gs.GetBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get balance")
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Points:         balance.Points,
		Gems:           balance.Gems,
		ConversionRate: r.gs.Rate(),
	})
}

func (r *gemRoutes) Convert(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "points is required", err)
		return
	}

	res, err := r.gs.Convert(c.Request.Context(), id, req.Points)
	if err != nil {
		respondError(c, err, "convert points")
		return
	}

	c.JSON(http.StatusOK, ConvertResponse{
		GemsEarned:      res.GemsEarned,
		PointsUsed:      res.PointsUsed,
		NewGemBalance:   res.NewGemBalance,
		NewPointBalance: res.NewPointBalance,
	})
}

func (r *gemRoutes) ListTransactions(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	txs, err := r.gs.ListTransactions(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, err, "list gem transactions")
		return
	}

	out := make([]GemTransactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toGemTransactionResponse(t)
	}
	c.JSON(http.StatusOK, out)
}

func (r *gemRoutes) ListPointTransactions(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	txs, err := r.gs.ListPointTransactions(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, err, "list point transactions")
		return
	}

	out := make([]PointTransactionResponse, len(txs))
	for i, t := range txs {
		out[i] = PointTransactionResponse{
			ID:        t.ID.String(),
			Amount:    t.Amount,
			Reason:    t.Reason,
			CreatedAt: t.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, out)
}
