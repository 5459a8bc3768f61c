package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/pkg/logger"
)

// TelegramUser is the "user" field of WebApp initData.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// DisplayName is "First Last", falling back to @username.
func (u *TelegramUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	return name
}

type InitData struct {
	User     *TelegramUser
	AuthDate time.Time
	QueryID  string
}

type TelegramGate struct {
	botToken string
	maxAge   time.Duration
	isAdmin  func(int64) bool
	now      func() time.Time
}

func NewTelegramGate(botToken string, maxAge time.Duration, isAdmin func(int64) bool) *TelegramGate {
	return &TelegramGate{
		botToken: botToken,
		maxAge:   maxAge,
		isAdmin:  isAdmin,
		now:      time.Now,
	}
}

// Verify checks the initData signature and age and returns the parsed payload.
func (g *TelegramGate) Verify(initData string) (*InitData, error) {
	if g.botToken == "" {
		return nil, errors.ForbiddenErr(errors.AuthzNotConfigured, "Авторизация через Telegram не настроена")
	}
	if initData == "" {
		return nil, errors.ForbiddenErr(errors.AuthzTokenMissing, "Нет данных Telegram")
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, errors.ForbiddenErr(errors.AuthzTokenInvalid, "Некорректные данные Telegram")
	}
	hash := values.Get("hash")
	if hash == "" {
		return nil, errors.ForbiddenErr(errors.AuthzTokenInvalid, "Нет подписи Telegram")
	}

	expected, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(expected, signature(g.botToken, values)) {
		logger.Warn("Telegram initData signature mismatch", nil)
		return nil, errors.ForbiddenErr(errors.AuthzTokenInvalid, "Неверная подпись Telegram")
	}

	data := &InitData{QueryID: values.Get("query_id")}
	if raw := values.Get("auth_date"); raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.ForbiddenErr(errors.AuthzTokenInvalid, "Некорректные данные Telegram")
		}
		data.AuthDate = time.Unix(sec, 0)
		if g.maxAge > 0 && g.now().Sub(data.AuthDate) > g.maxAge {
			return nil, errors.ForbiddenErr(errors.AuthzTokenExpired, "Данные Telegram устарели, откройте приложение заново")
		}
	}

	if raw := values.Get("user"); raw != "" {
		var user TelegramUser
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, errors.ForbiddenErr(errors.AuthzTokenInvalid, "Некорректные данные Telegram")
		}
		data.User = &user
	}
	return data, nil
}

// Authorize accepts initData of an allowlisted Telegram user.
func (g *TelegramGate) Authorize(ctx context.Context, token string) (Decision, error) {
	data, err := g.Verify(token)
	if err != nil {
		return Decision{}, err
	}
	if data.User == nil || data.User.ID == 0 {
		return Decision{}, errors.ForbiddenErr(errors.AuthzTokenInvalid, "Нет пользователя Telegram")
	}

	if !g.isAdmin(data.User.ID) {
		logger.From(ctx).Warn("Telegram user is not an admin", map[string]interface{}{
			"tg_id": data.User.ID,
		})
		return Decision{CallerID: data.User.ID}, errors.ForbiddenErr(errors.AuthzForbidden, "Доступ только для администраторов")
	}
	return Decision{Authorized: true, CallerID: data.User.ID, Role: RoleAdmin}, nil
}

// SignInitData returns values encoded as initData with a valid hash for botToken.
func SignInitData(botToken string, values url.Values) string {
	signed := url.Values{}
	for k, v := range values {
		if k != "hash" {
			signed[k] = v
		}
	}
	signed.Set("hash", hex.EncodeToString(signature(botToken, signed)))
	return signed.Encode()
}

// signature is HMAC-SHA256 over the sorted "key=value" lines, keyed with
// HMAC-SHA256("WebAppData", botToken).
func signature(botToken string, values url.Values) []byte {
	pairs := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		pairs = append(pairs, k+"="+values.Get(k))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return mac.Sum(nil)
}
