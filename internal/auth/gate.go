// Package auth verifies who is calling the admin API.
//
// Two gates exist: TelegramGate checks a signed Telegram WebApp initData
// string, SessionGate checks a session token minted after such a check.
// Both require the caller to be on the configured admin allowlist.
package auth

import "context"

const RoleAdmin = "admin"

// Decision is the outcome of an authorization check.
type Decision struct {
	Authorized bool
	CallerID   int64
	Role       string
}

// Gate authorizes a caller from an opaque credential.
// A negative decision is always accompanied by a forbidden error.
type Gate interface {
	Authorize(ctx context.Context, token string) (Decision, error)
}
