package api

import (
	"net/http"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"

	"github.com/gin-gonic/gin"
)

type chestRoutes struct {
	chs service.ChestServiceI
	a   *auth.TelegramAuth
}

func NewChestRoutes(handler *gin.RouterGroup, chs service.ChestServiceI, a *auth.TelegramAuth) {
	r := &chestRoutes{chs: chs, a: a}
	h := handler.Group("/chests")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("", r.ListChests)
	}
}

type ChestRewardResponse struct {
	model.ChestReward
	Probability int `json:"probability"`
}

type ChestResponse struct {
	Type            model.ChestType       `json:"type"`
	Name            string                `json:"name"`
	PossibleRewards []ChestRewardResponse `json:"possible_rewards"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func toChestResponse(ch *model.Chest) ChestResponse {
	probs := service.Probabilities(ch.PossibleRewards)
	rewards := make([]ChestRewardResponse, len(ch.PossibleRewards))
	for i, r := range ch.PossibleRewards {
		rewards[i] = ChestRewardResponse{ChestReward: r, Probability: probs[i]}
	}
	return ChestResponse{
		Type:            ch.Type,
		Name:            ch.Name,
		PossibleRewards: rewards,
		UpdatedAt:       ch.UpdatedAt,
	}
}

func (r *chestRoutes) ListChests(c *gin.Context) {
	chests, err := r.chs.ListChests(c.Request.Context())
	if err != nil {
		respondError(c, err, "list chests")
		return
	}

	out := make([]ChestResponse, len(chests))
	for i, ch := range chests {
		out[i] = toChestResponse(ch)
	}
	c.JSON(http.StatusOK, out)
}
