package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/store177/shop-backend/internal/auth"
	"github.com/store177/shop-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBotToken = "123456:TEST-TOKEN"
	testSecret   = "test-secret"
	adminID      = int64(1001)
)

func isAdmin(id int64) bool { return id == adminID }

func setupAuthTest() (*AuthMiddleware, *auth.SessionGate) {
	gin.SetMode(gin.TestMode)
	session := auth.NewSessionGate(testSecret, time.Hour, isAdmin)
	telegram := auth.NewTelegramGate(testBotToken, time.Hour, isAdmin)
	return NewAuthMiddleware(telegram, session), session
}

func initData(userID int64) string {
	return auth.SignInitData(testBotToken, url.Values{
		"auth_date": {strconv.FormatInt(time.Now().Unix(), 10)},
		"user":      {`{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"Анна"}`},
	})
}

func adminEngine(m *AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/admin", m.RequireAdmin(), func(c *gin.Context) {
		id, _ := GetCallerID(c)
		role, _ := GetCallerRole(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	return r
}

func TestRequireAdmin(t *testing.T) {
	m, session := setupAuthTest()
	r := adminEngine(m)

	token, _, err := session.Issue(adminID)
	require.NoError(t, err)
	outsider, _, err := session.Issue(42)
	require.NoError(t, err)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{"telegram admin", map[string]string{InitDataHeader: initData(adminID)}, http.StatusOK, ""},
		{"session admin", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK, ""},
		{"no credentials", nil, http.StatusUnauthorized, errors.AuthzTokenMissing},
		{"bad scheme", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, errors.AuthzTokenInvalid},
		{"garbage session", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, errors.AuthzTokenInvalid},
		{"telegram non-admin", map[string]string{InitDataHeader: initData(42)}, http.StatusForbidden, errors.AuthzForbidden},
		{"session non-admin", map[string]string{"Authorization": "Bearer " + outsider}, http.StatusForbidden, errors.AuthzForbidden},
		{"initData wins", map[string]string{InitDataHeader: initData(42), "Authorization": "Bearer " + token}, http.StatusForbidden, errors.AuthzForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode == "" {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, float64(adminID), body["id"])
				assert.Equal(t, auth.RoleAdmin, body["role"])
				return
			}
			var resp errors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestRequireAdmin_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(auth.NewTelegramGate("", time.Hour, isAdmin), auth.NewSessionGate(testSecret, time.Hour, isAdmin))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(InitDataHeader, "user=x&hash=00")
	w := httptest.NewRecorder()
	adminEngine(m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireTelegram_RejectsSessionToken(t *testing.T) {
	m, session := setupAuthTest()
	token, _, err := session.Issue(adminID)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/session", m.RequireTelegram(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/session", nil)
	req.Header.Set(InitDataHeader, initData(adminID))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOptionalCustomer(t *testing.T) {
	m, _ := setupAuthTest()

	r := gin.New()
	r.GET("/me", m.OptionalCustomer(), func(c *gin.Context) {
		user, ok := GetTelegramUser(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"guest": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID})
	})

	tests := []struct {
		name     string
		initData string
		want     string
	}{
		{"guest", "", `{"guest":true}`},
		{"customer", initData(77), `{"id":77}`},
		{"tampered falls back to guest", initData(77) + "x", `{"guest":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.initData != "" {
				req.Header.Set(InitDataHeader, tt.initData)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoggingMiddleware(), Timeout(time.Second))
	r.GET("/ping", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": hasDeadline})
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}
