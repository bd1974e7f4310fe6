package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"edu_rewards/internal/middleware"
	"edu_rewards/internal/model"
	"edu_rewards/internal/service"
	"edu_rewards/internal/service/mocks"
	"edu_rewards/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	users    *mocks.MockUserService
	calendar *mocks.MockCalendarService
	quests   *mocks.MockQuestService
	gems     *mocks.MockGemService
	chests   *mocks.MockChestService
	photos   *fakePhotos
}

type fakePhotos struct {
	sizes      []tgbotapi.PhotoSize
	photoCalls int
	fileCalls  int
	err        error
}

func (f *fakePhotos) GetUserProfilePhotos(cfg tgbotapi.UserProfilePhotosConfig) (tgbotapi.UserProfilePhotos, error) {
	f.photoCalls++
	if f.err != nil {
		return tgbotapi.UserProfilePhotos{}, f.err
	}
	if len(f.sizes) == 0 {
		return tgbotapi.UserProfilePhotos{}, nil
	}
	return tgbotapi.UserProfilePhotos{TotalCount: 1, Photos: [][]tgbotapi.PhotoSize{f.sizes}}, nil
}

func (f *fakePhotos) GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error) {
	f.fileCalls++
	return tgbotapi.File{FileID: cfg.FileID, FilePath: "photos/" + cfg.FileID + ".jpg"}, nil
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)

	s := &testServer{
		router:   gin.New(),
		users:    &mocks.MockUserService{},
		calendar: &mocks.MockCalendarService{},
		quests:   &mocks.MockQuestService{},
		gems:     &mocks.MockGemService{},
		chests:   &mocks.MockChestService{},
		photos:   &fakePhotos{},
	}

	a := auth.NewTelegramAuth("token", true)
	v1 := s.router.Group("/api/v1")
	NewUserRoutes(v1, s.users, a, s.photos)
	NewCalendarRoutes(v1, s.calendar, a)
	NewQuestRoutes(v1, s.quests, a)
	NewGemRoutes(v1, s.gems, a)
	NewChestRoutes(v1, s.chests, a)
	NewAdminRoutes(v1, AdminServices{
		Calendar: s.calendar,
		Quests:   s.quests,
		Chests:   s.chests,
		Gems:     s.gems,
	}, a, middleware.NewAuthorization(s.users))

	return s
}

func authHeader(userID int64) string {
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	v.Set("user", fmt.Sprintf(`{"id":%d,"username":"user%d"}`, userID, userID))
	v.Set("hash", "debug")
	return "Telegram " + v.Encode()
}

func (s *testServer) do(method, path string, userID int64, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("Authorization", authHeader(userID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrUnauthorized, http.StatusForbidden},
		{service.ErrQuestNotFound, http.StatusNotFound},
		{service.ErrNoRewardConfigured, http.StatusNotFound},
		{service.ErrInvalidDate, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrBelowMinimum, http.StatusBadRequest},
		{service.ErrAlreadyClaimed, http.StatusConflict},
		{service.ErrAlreadyExists, http.StatusConflict},
		{service.ErrTransactionFinal, http.StatusConflict},
		{service.ErrNotCompleted, http.StatusUnprocessableEntity},
		{service.ErrInsufficientPoints, http.StatusUnprocessableEntity},
		{service.ErrInsufficientGems, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestRequiresTelegramAuth(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodGet, "/api/v1/gems", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	s.gems.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
}

func TestClaimDailyReward(t *testing.T) {
	date := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       any
		mockSetup  func(cs *mocks.MockCalendarService)
		wantStatus int
		check      func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:       "missing date",
			body:       gin.H{},
			mockSetup:  func(*mocks.MockCalendarService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed date",
			body:       gin.H{"date": "03/03/2024"},
			mockSetup:  func(*mocks.MockCalendarService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "already claimed",
			body: gin.H{"date": "2024-03-03"},
			mockSetup: func(cs *mocks.MockCalendarService) {
				cs.On("ClaimDailyReward", mock.Anything, int64(42), date).Return(nil, service.ErrAlreadyClaimed)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "nothing configured",
			body: gin.H{"date": "2024-03-03"},
			mockSetup: func(cs *mocks.MockCalendarService) {
				cs.On("ClaimDailyReward", mock.Anything, int64(42), date).Return(nil, service.ErrNoRewardConfigured)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "unexpected failure hides details",
			body: gin.H{"date": "2024-03-03"},
			mockSetup: func(cs *mocks.MockCalendarService) {
				cs.On("ClaimDailyReward", mock.Anything, int64(42), date).Return(nil, errors.New("pq: connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "internal server error", decode[map[string]string](t, w)["error"])
			},
		},
		{
			name: "chest",
			body: gin.H{"date": "2024-03-03"},
			mockSetup: func(cs *mocks.MockCalendarService) {
				cs.On("ClaimDailyReward", mock.Anything, int64(42), date).Return(&model.ClaimResult{
					RewardType:  model.RewardChest,
					Amount:      3,
					ChestType:   model.ChestRare,
					ChestReward: &model.ChestReward{ID: "gems-3", Type: model.RewardGems, Amount: 3, Weight: 30},
				}, nil)
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				res := decode[ClaimResultResponse](t, w)
				assert.Equal(t, "2024-03-03", res.Date)
				assert.Equal(t, model.RewardChest, res.RewardType)
				assert.Equal(t, model.ChestRare, res.ChestType)
				require.NotNil(t, res.ChestReward)
				assert.Equal(t, "gems-3", res.ChestReward.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			tt.mockSetup(s.calendar)

			w := s.do(http.MethodPost, "/api/v1/calendar/claim", 42, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, w)
			}
			s.calendar.AssertExpectations(t)
		})
	}
}

func TestGetCalendar_DefaultsToCurrentMonth(t *testing.T) {
	s := newTestServer()
	start, end := monthBounds(time.Now())

	s.calendar.On("GetCalendarData", mock.Anything, int64(42), start, end).Return([]*model.CalendarEntry{{
		Date:      start,
		Reward:    model.CalendarReward{Type: model.RewardPoints, Amount: 15},
		Claimable: true,
	}}, nil)

	w := s.do(http.MethodGet, "/api/v1/calendar", 42, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	days := decode[[]CalendarDayResponse](t, w)
	require.Len(t, days, 1)
	assert.Equal(t, start.Format(model.DateLayout), days[0].Date)
	assert.True(t, days[0].Claimable)

	w = s.do(http.MethodGet, "/api/v1/calendar?start=yesterday", 42, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConvertGems(t *testing.T) {
	tests := []struct {
		name       string
		points     int64
		serviceErr error
		wantStatus int
	}{
		{"below minimum", 99, service.ErrBelowMinimum, http.StatusBadRequest},
		{"insufficient", 500, service.ErrInsufficientPoints, http.StatusUnprocessableEntity},
		{"ok", 250, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			var res *model.ConversionResult
			if tt.serviceErr == nil {
				res = &model.ConversionResult{GemsEarned: 2, PointsUsed: 200, NewGemBalance: 2, NewPointBalance: 50}
			}
			s.gems.On("Convert", mock.Anything, int64(42), tt.points).Return(res, tt.serviceErr)

			w := s.do(http.MethodPost, "/api/v1/gems/convert", 42, gin.H{"points": tt.points})
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.serviceErr == nil {
				out := decode[ConvertResponse](t, w)
				assert.Equal(t, int64(2), out.GemsEarned)
				assert.Equal(t, int64(200), out.PointsUsed)
				assert.Equal(t, int64(50), out.NewPointBalance)
			}
		})
	}
}

func TestGetBalance(t *testing.T) {
	s := newTestServer()
	s.gems.On("GetBalance", mock.Anything, int64(42)).Return(&model.Balance{UserID: 42, Points: 120, Gems: 7}, nil)
	s.gems.On("Rate").Return(int64(100))

	w := s.do(http.MethodGet, "/api/v1/gems", 42, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, BalanceResponse{Points: 120, Gems: 7, ConversionRate: 100}, decode[BalanceResponse](t, w))
}

func TestClaimQuest(t *testing.T) {
	questID := uuid.New()

	t.Run("invalid id", func(t *testing.T) {
		s := newTestServer()
		w := s.do(http.MethodPost, "/api/v1/quests/not-a-uuid/claim", 42, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not completed", func(t *testing.T) {
		s := newTestServer()
		s.quests.On("ClaimQuestRewards", mock.Anything, int64(42), questID).Return(nil, service.ErrNotCompleted)

		w := s.do(http.MethodPost, "/api/v1/quests/"+questID.String()+"/claim", 42, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("claimed", func(t *testing.T) {
		s := newTestServer()
		now := time.Now().UTC()
		s.quests.On("ClaimQuestRewards", mock.Anything, int64(42), questID).Return(&model.UserQuestProgress{
			QuestID:      questID,
			Title:        "Weekly reader",
			Period:       model.PeriodWeekly,
			Progress:     5,
			Target:       5,
			RewardType:   model.RewardGems,
			RewardAmount: 3,
			Claimed:      true,
			ClaimedAt:    &now,
		}, nil)

		w := s.do(http.MethodPost, "/api/v1/quests/"+questID.String()+"/claim", 42, nil)
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[QuestProgressResponse](t, w)
		assert.True(t, res.Completed)
		assert.True(t, res.Claimed)
		assert.Equal(t, int64(3), res.Reward.Amount)
	})
}

func TestTrackAction_NoSelfReporting(t *testing.T) {
	s := newTestServer()

	w := s.do(http.MethodPost, "/api/v1/quests/track", 42, gin.H{"action": "answer_posted", "amount": 1000000})
	assert.Equal(t, http.StatusNotFound, w.Code)
	s.quests.AssertNotCalled(t, "TrackAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackActionForUser(t *testing.T) {
	tests := []struct {
		name       string
		body       gin.H
		mockSetup  func(qs *mocks.MockQuestService)
		wantStatus int
	}{
		{
			name: "amount defaults to one",
			body: gin.H{"action": "lesson_completed"},
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("TrackAction", mock.Anything, int64(42), "lesson_completed", 1).
					Return([]*model.UserQuestProgress{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "oversized amount",
			body: gin.H{"action": "lesson_completed", "amount": 1000000},
			mockSetup: func(qs *mocks.MockQuestService) {
				qs.On("TrackAction", mock.Anything, int64(42), "lesson_completed", 1000000).
					Return(nil, fmt.Errorf("%w: amount out of range", service.ErrInvalidInput))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing action",
			body:       gin.H{"amount": 2},
			mockSetup:  func(*mocks.MockQuestService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.users.On("GetUserByTelegramID", mock.Anything, int64(5)).
				Return(&model.User{TelegramID: 5, Role: model.RoleTeacher}, nil)
			tt.mockSetup(s.quests)

			w := s.do(http.MethodPost, "/api/v1/admin/quests/track/42", 5, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			s.quests.AssertExpectations(t)
		})
	}
}

func TestListChests_Probabilities(t *testing.T) {
	s := newTestServer()
	s.chests.On("ListChests", mock.Anything).Return([]*model.Chest{{
		Type: model.ChestCommon,
		Name: "Common chest",
		PossibleRewards: []model.ChestReward{
			{ID: "a", Type: model.RewardPoints, Amount: 10, Weight: 7},
			{ID: "b", Type: model.RewardGems, Amount: 1, Weight: 3},
		},
	}}, nil)

	w := s.do(http.MethodGet, "/api/v1/chests", 42, nil)
	require.Equal(t, http.StatusOK, w.Code)

	chests := decode[[]ChestResponse](t, w)
	require.Len(t, chests, 1)
	require.Len(t, chests[0].PossibleRewards, 2)
	assert.Equal(t, 70, chests[0].PossibleRewards[0].Probability)
	assert.Equal(t, 30, chests[0].PossibleRewards[1].Probability)
	assert.Equal(t, "a", chests[0].PossibleRewards[0].ID)
}

func TestAdminRoutes_RoleChecks(t *testing.T) {
	createBody := gin.H{
		"title":         "Attend three lessons",
		"period":        "weekly",
		"action":        "lesson_attended",
		"target":        3,
		"reward_type":   "points",
		"reward_amount": 50,
	}

	t.Run("student cannot create quests", func(t *testing.T) {
		s := newTestServer()
		s.users.On("GetUserByTelegramID", mock.Anything, int64(42)).
			Return(&model.User{TelegramID: 42, Role: model.RoleStudent}, nil)

		w := s.do(http.MethodPost, "/api/v1/admin/quests", 42, createBody)
		assert.Equal(t, http.StatusForbidden, w.Code)
		s.quests.AssertNotCalled(t, "CreateQuest", mock.Anything, mock.Anything)
	})

	t.Run("admin creates quests", func(t *testing.T) {
		s := newTestServer()
		s.users.On("GetUserByTelegramID", mock.Anything, int64(1)).
			Return(&model.User{TelegramID: 1, Role: model.RoleAdmin}, nil)
		s.quests.On("CreateQuest", mock.Anything, mock.MatchedBy(func(q *model.Quest) bool {
			return q.Period == model.PeriodWeekly && q.Target == 3 && q.IsActive
		})).Return(&model.Quest{
			ID:           uuid.New(),
			Title:        "Attend three lessons",
			Period:       model.PeriodWeekly,
			Action:       "lesson_attended",
			Target:       3,
			RewardType:   model.RewardPoints,
			RewardAmount: 50,
			IsActive:     true,
		}, nil)

		w := s.do(http.MethodPost, "/api/v1/admin/quests", 1, createBody)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("teacher tracks for a student but cannot grant gems", func(t *testing.T) {
		s := newTestServer()
		s.users.On("GetUserByTelegramID", mock.Anything, int64(5)).
			Return(&model.User{TelegramID: 5, Role: model.RoleTeacher}, nil)
		s.quests.On("TrackAction", mock.Anything, int64(42), "assignment_graded", 2).
			Return([]*model.UserQuestProgress{}, nil)

		w := s.do(http.MethodPost, "/api/v1/admin/quests/track/42", 5, gin.H{"action": "assignment_graded", "amount": 2})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = s.do(http.MethodPost, "/api/v1/admin/gems/42", 5, gin.H{"gems": 10})
		assert.Equal(t, http.StatusForbidden, w.Code)
		s.gems.AssertNotCalled(t, "AdjustGems", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin deducts gems", func(t *testing.T) {
		s := newTestServer()
		s.users.On("GetUserByTelegramID", mock.Anything, int64(1)).
			Return(&model.User{TelegramID: 1, Role: model.RoleAdmin}, nil)
		s.gems.On("AdjustGems", mock.Anything, int64(1), int64(42), int64(-10), "refund").
			Return(nil, int64(0), service.ErrInsufficientGems)

		w := s.do(http.MethodPost, "/api/v1/admin/gems/42", 1, gin.H{"gems": -10, "description": "refund"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestRegisterUser(t *testing.T) {
	s := newTestServer()
	s.users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.TelegramID == 42 && u.Handle == "user42" && u.Role == model.RoleStudent
	})).Return(nil).Once()
	s.users.On("RegisterUser", mock.Anything, mock.Anything).Return(service.ErrAlreadyExists)

	w := s.do(http.MethodPost, "/api/v1/users", 42, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(42), decode[RegisterUserResponse](t, w).TelegramID)

	w = s.do(http.MethodPost, "/api/v1/users", 42, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetMyAvatar(t *testing.T) {
	s := newTestServer()
	s.users.On("GetUserByTelegramID", mock.Anything, int64(42)).Return(&model.User{TelegramID: 42}, nil)

	w := s.do(http.MethodGet, "/api/v1/users/me/avatar", 42, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.photos.sizes = []tgbotapi.PhotoSize{{FileID: "small", Width: 160}, {FileID: "big", Width: 640}}
	for range 3 {
		w = s.do(http.MethodGet, "/api/v1/users/me/avatar", 42, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "photos/big.jpg", decode[map[string]string](t, w)["avatar_file_path"])
	}
	assert.Equal(t, 4, s.photos.photoCalls)
	assert.Equal(t, 3, s.photos.fileCalls)

	s.photos.err = errors.New("telegram down")
	w = s.do(http.MethodGet, "/api/v1/users/me/avatar", 42, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetMyAvatar_NoBot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	users := &mocks.MockUserService{}
	NewUserRoutes(router.Group("/api/v1"), users, auth.NewTelegramAuth("", true), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me/avatar", nil)
	req.Header.Set("Authorization", authHeader(42))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	users.AssertNotCalled(t, "GetUserByTelegramID", mock.Anything, mock.Anything)
}
