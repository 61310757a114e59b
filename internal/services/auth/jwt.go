package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// SessionManager issues short-lived HS256 tokens after a successful init data
// check so clients do not have to resend the signed payload on every request.
type SessionManager struct {
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

type sessionTokenClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

func NewSessionManager(secret string, sessionTTL time.Duration) *SessionManager {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	return &SessionManager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (m *SessionManager) Generate(userID int64, username string) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("session secret is empty")
	}
	if userID <= 0 {
		return "", time.Time{}, fmt.Errorf("invalid session token payload")
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.sessionTTL)
	claims := sessionTokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

func (m *SessionManager) Parse(raw string) (SessionClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return SessionClaims{}, ErrUnauthorized
	}

	claims := &sessionTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || token == nil || !token.Valid {
		return SessionClaims{}, ErrUnauthorized
	}

	userID, parseErr := strconv.ParseInt(claims.Subject, 10, 64)
	if parseErr != nil || userID <= 0 {
		return SessionClaims{}, ErrUnauthorized
	}
	if claims.ExpiresAt == nil {
		return SessionClaims{}, ErrUnauthorized
	}

	return SessionClaims{
		UserID:    userID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
