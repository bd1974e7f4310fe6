package api

import (
	"net/http"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/pkg/auth"

	"github.com/gin-gonic/gin"
)

type calendarRoutes struct {
	cs  service.CalendarServiceI
	a   *auth.TelegramAuth
	now func() time.Time
}

func NewCalendarRoutes(handler *gin.RouterGroup, cs service.CalendarServiceI, a *auth.TelegramAuth) {
	r := &calendarRoutes{cs: cs, a: a, now: time.Now}
	h := handler.Group("/calendar")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("", r.GetCalendar)
		h.POST("/claim", r.ClaimDailyReward)
		h.GET("/history", r.GetClaimHistory)
	}
}

type CalendarDayResponse struct {
	Date      string               `json:"date"`
	Reward    model.CalendarReward `json:"reward"`
	Theme     model.CalendarTheme  `json:"theme"`
	Claimed   bool                 `json:"claimed"`
	Claimable bool                 `json:"claimable"`
}

type ClaimDailyRewardRequest struct {
	Date string `json:"date" binding:"required"`
}

type ClaimResultResponse struct {
	Date        string             `json:"date"`
	RewardType  model.RewardType   `json:"reward_type"`
	Amount      int64              `json:"amount"`
	ChestType   model.ChestType    `json:"chest_type,omitempty"`
	ChestReward *model.ChestReward `json:"chest_reward,omitempty"`
}

type ClaimHistoryResponse struct {
	Date        string             `json:"date"`
	RewardType  model.RewardType   `json:"reward_type"`
	Amount      int64              `json:"amount"`
	ChestType   model.ChestType    `json:"chest_type,omitempty"`
	ChestReward *model.ChestReward `json:"chest_reward,omitempty"`
	ClaimedAt   time.Time          `json:"claimed_at"`
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, service.ErrInvalidDate
	}
	return t, nil
}

// monthBounds returns the first and last day of t's month.
func monthBounds(t time.Time) (time.Time, time.Time) {
	first := model.PeriodMonthly.Start(t)
	return first, first.AddDate(0, 1, -1)
}

// GetCalendar serves ?start=&end=, defaulting to the current month.
func (r *calendarRoutes) GetCalendar(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	start, end := monthBounds(r.now())
	if raw := c.Query("start"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondError(c, err, "parse start")
			return
		}
		start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondError(c, err, "parse end")
			return
		}
		end = t
	}

	entries, err := r.cs.GetCalendarData(c.Request.Context(), id, start, end)
	if err != nil {
		respondError(c, err, "get calendar")
		return
	}

	out := make([]CalendarDayResponse, len(entries))
	for i, e := range entries {
		out[i] = CalendarDayResponse{
			Date:      e.Date.Format(model.DateLayout),
			Reward:    e.Reward,
			Theme:     e.Theme,
			Claimed:   e.Claimed,
			Claimable: e.Claimable,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *calendarRoutes) ClaimDailyReward(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}

	var req ClaimDailyRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "date is required", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(c, err, "parse date")
		return
	}

	res, err := r.cs.ClaimDailyReward(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, err, "claim daily reward")
		return
	}

	c.JSON(http.StatusOK, ClaimResultResponse{
		Date:        date.Format(model.DateLayout),
		RewardType:  res.RewardType,
		Amount:      res.Amount,
		ChestType:   res.ChestType,
		ChestReward: res.ChestReward,
	})
}

func (r *calendarRoutes) GetClaimHistory(c *gin.Context) {
	id, ok := callerID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	claims, err := r.cs.GetClaimHistory(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err, "get claim history")
		return
	}

	out := make([]ClaimHistoryResponse, len(claims))
	for i, cl := range claims {
		out[i] = ClaimHistoryResponse{
			Date:        cl.Date.Format(model.DateLayout),
			RewardType:  cl.RewardType,
			Amount:      cl.Amount,
			ChestType:   cl.ChestType,
			ChestReward: cl.ChestReward,
			ClaimedAt:   cl.ClaimedAt,
		}
	}

	c.JSON(http.StatusOK, out)
}
