package auth

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/pkg/util"
)

// SessionGate accepts session tokens issued by Issue. The allowlist is checked
// again on every request so removing an admin id revokes live sessions.
type SessionGate struct {
	secret  string
	expiry  time.Duration
	isAdmin func(int64) bool
}

func NewSessionGate(secret string, expiry time.Duration, isAdmin func(int64) bool) *SessionGate {
	return &SessionGate{secret: secret, expiry: expiry, isAdmin: isAdmin}
}

// Issue mints a session token for an already verified admin.
func (g *SessionGate) Issue(telegramID int64) (string, time.Time, error) {
	return util.GenerateToken(telegramID, RoleAdmin, g.secret, g.expiry)
}

func (g *SessionGate) Authorize(ctx context.Context, token string) (Decision, error) {
	if token == "" {
		return Decision{}, errors.ForbiddenErr(errors.AuthzTokenMissing, "Требуется авторизация")
	}

	claims, err := util.ValidateToken(token, g.secret)
	if err != nil {
		if stderrors.Is(err, util.ErrExpiredToken) {
			return Decision{}, errors.ForbiddenErr(errors.AuthzTokenExpired, "Сессия истекла, войдите заново")
		}
		return Decision{}, errors.ForbiddenErr(errors.AuthzTokenInvalid, "Недействительная сессия")
	}

	if claims.Role != RoleAdmin || !g.isAdmin(claims.TelegramID) {
		return Decision{CallerID: claims.TelegramID}, errors.ForbiddenErr(errors.AuthzForbidden, "Доступ только для администраторов")
	}
	return Decision{Authorized: true, CallerID: claims.TelegramID, Role: claims.Role}, nil
}
