package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/store177/shop-backend/internal/auth"
	"github.com/store177/shop-backend/internal/errors"
)

const (
	// InitDataHeader carries the raw Telegram WebApp initData string.
	InitDataHeader = "X-TG-Init-Data"

	CallerIDKey     = "caller_id"
	CallerRoleKey   = "caller_role"
	TelegramUserKey = "telegram_user"
)

type AuthMiddleware struct {
	telegram *auth.TelegramGate
	session  *auth.SessionGate
}

func NewAuthMiddleware(telegram *auth.TelegramGate, session *auth.SessionGate) *AuthMiddleware {
	return &AuthMiddleware{
		telegram: telegram,
		session:  session,
	}
}

// RequireAdmin accepts signed initData, a Bearer session token, or a session
// token in the "token" query parameter, in that order.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var gate auth.Gate
		var token string
		if initData := c.GetHeader(InitDataHeader); initData != "" {
			gate, token = m.telegram, initData
		} else if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthzTokenInvalid, "Неверный формат авторизации")
				c.Abort()
				return
			}
			gate, token = m.session, parts[1]
		} else if q := c.Query("token"); q != "" {
			// browsers cannot set headers on a websocket handshake
			gate, token = m.session, q
		} else {
			log.Warn("Missing admin credentials", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "")
			c.Abort()
			return
		}

		decision, err := gate.Authorize(c.Request.Context(), token)
		if err != nil || !decision.Authorized {
			log.Warn("Admin authorization failed", map[string]interface{}{
				"path":      c.Request.URL.Path,
				"caller_id": decision.CallerID,
				"error":     errString(err),
			})
			respondAuthError(c, err)
			c.Abort()
			return
		}

		c.Set(CallerIDKey, decision.CallerID)
		c.Set(CallerRoleKey, decision.Role)

		log.Debug("Admin authorized", map[string]interface{}{
			"caller_id": decision.CallerID,
		})
		c.Next()
	}
}

// RequireTelegram accepts only signed initData; used where a session is
// minted so a session cannot renew itself.
func (m *AuthMiddleware) RequireTelegram() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := m.telegram.Authorize(c.Request.Context(), c.GetHeader(InitDataHeader))
		if err != nil || !decision.Authorized {
			GetLoggerFromContext(c).Warn("Telegram authorization failed", map[string]interface{}{
				"caller_id": decision.CallerID,
				"error":     errString(err),
			})
			respondAuthError(c, err)
			c.Abort()
			return
		}
		c.Set(CallerIDKey, decision.CallerID)
		c.Set(CallerRoleKey, decision.Role)
		c.Next()
	}
}

// OptionalCustomer attaches the Telegram user when valid initData is present.
// Anything else continues as an anonymous customer.
func (m *AuthMiddleware) OptionalCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		initData := c.GetHeader(InitDataHeader)
		if initData == "" {
			c.Next()
			return
		}

		data, err := m.telegram.Verify(initData)
		if err != nil || data.User == nil {
			GetLoggerFromContext(c).Debug("Ignoring invalid initData - continuing as guest", map[string]interface{}{
				"error": errString(err),
			})
			c.Next()
			return
		}

		c.Set(TelegramUserKey, data.User)
		c.Next()
	}
}

// respondAuthError answers 401 for credential problems and 403 for a valid
// caller who is not an admin.
func respondAuthError(c *gin.Context, err error) {
	e, ok := errors.AsError(err)
	if !ok {
		errors.Forbidden(c, "")
		return
	}
	switch e.Code {
	case errors.AuthzTokenMissing, errors.AuthzTokenInvalid, errors.AuthzTokenExpired:
		errors.RespondWithError(c, http.StatusUnauthorized, e.Code, e.Message)
	case errors.AuthzNotConfigured:
		errors.RespondWithError(c, http.StatusServiceUnavailable, e.Code, e.Message)
	default:
		errors.Respond(c, err, "authorize")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// GetCallerID extracts the authorized admin's Telegram id
func GetCallerID(c *gin.Context) (int64, bool) {
	id, exists := c.Get(CallerIDKey)
	if !exists {
		return 0, false
	}
	return id.(int64), true
}

// GetCallerRole extracts the authorized caller's role
func GetCallerRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(CallerRoleKey)
	if !exists {
		return "", false
	}
	return role.(string), true
}

// GetTelegramUser returns the verified customer, if any
func GetTelegramUser(c *gin.Context) (*auth.TelegramUser, bool) {
	u, exists := c.Get(TelegramUserKey)
	if !exists {
		return nil, false
	}
	user, ok := u.(*auth.TelegramUser)
	return user, ok
}
