package auth

import (
	"errors"
	"time"
)

var (
	ErrMissingInitData  = errors.New("init data is missing")
	ErrMissingHash      = errors.New("init data hash is missing")
	ErrInvalidSignature = errors.New("init data signature is invalid")
	ErrExpiredAuth      = errors.New("init data auth date is stale")
	ErrBotTokenMissing  = errors.New("bot token is not configured")
	ErrUnauthorized     = errors.New("unauthorized")
)

// TelegramUser is the user record embedded in Mini App init data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
}

// Claims is the verified content of an init data payload. User is nil when the
// embedded user object is absent or failed to decode; RawUser keeps the
// undecoded value so callers can distinguish the two cases.
type Claims struct {
	Fields     map[string]string
	User       *TelegramUser
	RawUser    string
	AuthDate   time.Time
	StartParam string
}

// Result is the outcome of a per-request user validation. Valid is the only
// part callers may branch on; Reason is a diagnostic for logs.
type Result struct {
	Valid  bool
	Reason string
}

type SessionClaims struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

type VerifiedUser struct {
	User           TelegramUser
	AuthDate       time.Time
	SessionToken   string
	SessionExpires time.Time
}
