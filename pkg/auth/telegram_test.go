package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initData(id string) string {
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	v.Set("user", `{"id":`+id+`,"username":"ada"}`)
	v.Set("hash", "ignored")
	return v.Encode()
}

func TestExtractTelegramData(t *testing.T) {
	data, err := ExtractTelegramData(initData("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.ID)
	assert.Equal(t, "ada", data.Username)
	assert.Equal(t, int64(1700000000), data.AuthDate.Unix())

	_, err = ExtractTelegramData("auth_date=notanumber")
	assert.Error(t, err)
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		header     string
		debug      bool
		wantStatus int
	}{
		{name: "missing header", header: "", debug: true, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Bearer abc", debug: true, wantStatus: http.StatusUnauthorized},
		{name: "bad signature", header: "Telegram " + initData("42"), debug: false, wantStatus: http.StatusUnauthorized},
		{name: "debug mode skips signature", header: "Telegram " + initData("42"), debug: true, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewTelegramAuth("token", tt.debug)
			router := gin.New()
			router.GET("/", a.TelegramAuthMiddleware(), func(c *gin.Context) {
				user := UserFromContext(c)
				require.NotNil(t, user)
				c.JSON(http.StatusOK, gin.H{"id": user.ID})
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
