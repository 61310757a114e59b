package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	webAppDataConstant = "WebAppData"
	defaultMaxAuthAge  = 24 * time.Hour
)

// Verifier checks Mini App init data signatures using Telegram's two-step
// HMAC-SHA256 scheme: a secret key derived from the bot token keyed with the
// "WebAppData" constant, then an HMAC of the sorted data-check string.
type Verifier struct {
	botToken        string
	developmentMode bool
	maxAuthAge      time.Duration
	now             func() time.Time
}

// NewVerifier fails fast on a missing bot token outside development mode: a
// verifier that cannot check signatures would silently reject every request.
func NewVerifier(botToken string, developmentMode bool, maxAuthAge time.Duration) (*Verifier, error) {
	if strings.TrimSpace(botToken) == "" && !developmentMode {
		return nil, ErrBotTokenMissing
	}
	if maxAuthAge <= 0 {
		maxAuthAge = defaultMaxAuthAge
	}

	return &Verifier{
		botToken:        strings.TrimSpace(botToken),
		developmentMode: developmentMode,
		maxAuthAge:      maxAuthAge,
		now:             time.Now,
	}, nil
}

// Verify validates the signature and freshness of initData and returns the
// parsed claims. A bad embedded user object is not an error here: User stays
// nil and RawUser keeps the offending value for the caller to report.
func (v *Verifier) Verify(initData string) (Claims, error) {
	if v == nil {
		return Claims{}, ErrBotTokenMissing
	}

	trimmed := strings.TrimSpace(initData)
	if trimmed == "" {
		return Claims{}, ErrMissingInitData
	}

	pairs, err := url.ParseQuery(trimmed)
	if err != nil || len(pairs) == 0 {
		return Claims{}, fmt.Errorf("parse init data: %w", ErrInvalidSignature)
	}

	fields := make(map[string]string, len(pairs))
	for key := range pairs {
		fields[key] = pairs.Get(key)
	}

	receivedHash, ok := fields["hash"]
	if !ok || receivedHash == "" {
		return Claims{}, ErrMissingHash
	}
	delete(fields, "hash")

	if v.botToken == "" {
		// Development mode without a token: accept the payload as-is.
		if !v.developmentMode {
			return Claims{}, ErrBotTokenMissing
		}
	} else if !v.checkSignature(fields, receivedHash) && !v.developmentMode {
		return Claims{}, ErrInvalidSignature
	}

	claims := Claims{
		Fields:     fields,
		RawUser:    fields["user"],
		StartParam: fields["start_param"],
	}

	if rawDate := fields["auth_date"]; rawDate != "" {
		ts, parseErr := strconv.ParseInt(rawDate, 10, 64)
		if parseErr != nil {
			return Claims{}, fmt.Errorf("parse auth_date: %w", ErrExpiredAuth)
		}
		claims.AuthDate = time.Unix(ts, 0)

		age := v.now().Sub(claims.AuthDate)
		if age < 0 {
			age = -age
		}
		if age > v.maxAuthAge && !v.developmentMode {
			return Claims{}, ErrExpiredAuth
		}
	}

	claims.User = decodeUser(claims.RawUser)
	return claims, nil
}

func (v *Verifier) checkSignature(fields map[string]string, receivedHash string) bool {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, key := range keys {
		items = append(items, key+"="+fields[key])
	}
	checkString := strings.Join(items, "\n")

	secret := hmac.New(sha256.New, []byte(webAppDataConstant))
	secret.Write([]byte(v.botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(receivedHash))
}

// decodeUser attempts a structured decode of the embedded user object, then a
// secondary pass for payloads where the object arrives as a serialized string.
func decodeUser(raw string) *TelegramUser {
	if raw == "" {
		return nil
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err == nil {
		return &user
	}

	var nested string
	if err := json.Unmarshal([]byte(raw), &nested); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(nested), &user); err != nil {
		return nil
	}
	return &user
}
