package api

import (
	"net/http"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type questRoutes struct {
	qs service.QuestServiceI
	a  *auth.TelegramAuth
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, a *auth.TelegramAuth) {
	r := &questRoutes{qs: qs, a: a}
	h := handler.Group("/quests")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("", r.GetUserQuests)
		h.POST("/:quest_id/claim", r.ClaimQuest)
	}
}

type QuestRewardResponse struct {
	Type    model.RewardType `json:"type"`
	Amount  int64            `json:"amount,omitempty"`
	BadgeID string           `json:"badge_id,omitempty"`
}

type QuestProgressResponse struct {
	QuestID     string              `json:"quest_id"`
	Title       string              `json:"title"`
	Period      model.Period        `json:"period"`
	PeriodStart string              `json:"period_start"`
	Action      string              `json:"action"`
	Progress    int                 `json:"progress"`
	Target      int                 `json:"target"`
	Completed   bool                `json:"completed"`
	Claimed     bool                `json:"claimed"`
	ClaimedAt   *time.Time          `json:"claimed_at,omitempty"`
	Reward      QuestRewardResponse `json:"reward"`
}

func toQuestProgressResponse(p *model.UserQuestProgress) QuestProgressResponse {
	return QuestProgressResponse{
		QuestID:     p.QuestID.String(),
		Title:       p.Title,
		Period:      p.Period,
		PeriodStart: p.PeriodStart.Format(model.DateLayout),
		Action:      p.Action,
		Progress:    p.Progress,
		Target:      p.Target,
		Completed:   p.Completed(),
		Claimed:     p.Claimed,
		ClaimedAt:   p.ClaimedAt,
		Reward: QuestRewardResponse{
			Type:    p.RewardType,
			Amount:  p.RewardAmount,
			BadgeID: p.BadgeID,
		},
	}
}

func toQuestProgressList(list []*model.UserQuestProgress) []QuestProgressResponse {
	out := make([]QuestProgressResponse, len(list))
	for i, p := range list {
		out[i] = toQuestProgressResponse(p)
	}
	return out
}

func (r *questRoutes) GetUserQuests(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var period *model.Period
	if raw := c.Query("period"); raw != "" {
		p := model.Period(raw)
		period = &p
	}

	quests, err := r.qs.GetUserQuests(c.Request.Context(), id, period)
	if err != nil {
		respondError(c, err, "get user quests")
		return
	}

	c.JSON(http.StatusOK, toQuestProgressList(quests))
}

func (r *questRoutes) ClaimQuest(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	questID, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		badRequest(c, "invalid quest_id", err)
		return
	}

	progress, err := r.qs.ClaimQuestRewards(c.Request.Context(), id, questID)
	if err != nil {
		respondError(c, err, "claim quest rewards")
		return
	}

	c.JSON(http.StatusOK, toQuestProgressResponse(progress))
}
