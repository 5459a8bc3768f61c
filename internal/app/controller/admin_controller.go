package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/store177/shop-backend/internal/auth"
	"github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/internal/middleware"
	ws "github.com/store177/shop-backend/internal/websocket"
)

// SessionIssuer mints admin session tokens. *auth.SessionGate implements it.
type SessionIssuer interface {
	Issue(telegramID int64) (string, time.Time, error)
}

type AdminController struct {
	sessions SessionIssuer
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewAdminController(sessions SessionIssuer, hub *ws.Hub, allowedOrigins []string) *AdminController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &AdminController{
		sessions: sessions,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// Me returns the caller's identity
// GET /api/v1/admin/me
func (ctrl *AdminController) Me(c *gin.Context) {
	callerID, _ := middleware.GetCallerID(c)
	role, _ := middleware.GetCallerRole(c)

	c.JSON(http.StatusOK, gin.H{
		"telegram_id": callerID,
		"role":        role,
		"is_admin":    role == auth.RoleAdmin,
	})
}

// CreateSession exchanges verified initData for a session token
// POST /api/v1/admin/session
func (ctrl *AdminController) CreateSession(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return
	}

	token, expiresAt, err := ctrl.sessions.Issue(callerID)
	if err != nil {
		log.Error("Failed to issue admin session", err, map[string]interface{}{
			"caller_id": callerID,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Admin session issued", map[string]interface{}{
		"caller_id":  callerID,
		"expires_at": expiresAt,
	})

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// Feed upgrades to a websocket that streams order events to the admin
// GET /api/v1/admin/feed
func (ctrl *AdminController) Feed(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	callerID, _ := middleware.GetCallerID(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err, map[string]interface{}{
			"caller_id": callerID,
		})
		return
	}

	client := ws.NewClient(ctrl.hub, conn, callerID)
	ctrl.hub.Register(client)

	log.Info("Admin feed connected", map[string]interface{}{
		"caller_id": callerID,
	})

	go client.WritePump()
	go client.ReadPump()
}
