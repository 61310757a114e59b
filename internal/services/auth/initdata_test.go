package auth_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	authsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/auth"
)

const testBotToken = "1234567890:TEST-bot-token-for-unit-tests"

func TestVerifyAcceptsSignedInitData(t *testing.T) {
	verifier := newTestVerifier(t)

	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `{"id":42,"first_name":"Alice","username":"alice42"}`,
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"query_id":  "AAH9mUEVAAAAAP2ZQRU_test",
	})

	claims, err := verifier.Verify(initData)
	if err != nil {
		t.Fatalf("verify signed init data: %v", err)
	}
	if claims.User == nil {
		t.Fatalf("expected decoded user, got nil")
	}
	if claims.User.ID != 42 || claims.User.Username != "alice42" {
		t.Fatalf("unexpected user: %+v", claims.User)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	verifier := newTestVerifier(t)

	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `{"id":42,"first_name":"Alice"}`,
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
	})

	tampered := strings.Replace(initData, "%22id%22%3A42", "%22id%22%3A99", 1)
	if tampered == initData {
		t.Fatalf("test payload was not tampered")
	}

	if _, err := verifier.Verify(tampered); !errors.Is(err, authsvc.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestVerifyRejectsWrongBotToken(t *testing.T) {
	verifier := newTestVerifier(t)

	initData := signInitData(t, "999:other-bot-token", map[string]string{
		"user":      `{"id":42}`,
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
	})

	if _, err := verifier.Verify(initData); !errors.Is(err, authsvc.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestVerifyRejectsMissingHash(t *testing.T) {
	verifier := newTestVerifier(t)

	if _, err := verifier.Verify("user=%7B%22id%22%3A42%7D&auth_date=1"); !errors.Is(err, authsvc.ErrMissingHash) {
		t.Fatalf("expected missing hash, got %v", err)
	}
}

func TestVerifyRejectsStaleAuthDate(t *testing.T) {
	verifier := newTestVerifier(t)

	stale := time.Now().Add(-48 * time.Hour).Unix()
	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `{"id":42}`,
		"auth_date": strconv.FormatInt(stale, 10),
	})

	if _, err := verifier.Verify(initData); !errors.Is(err, authsvc.ErrExpiredAuth) {
		t.Fatalf("expected expired auth, got %v", err)
	}
}

func TestVerifyDecodesStringEncodedUser(t *testing.T) {
	verifier := newTestVerifier(t)

	// user arrives as a JSON string wrapping the serialized object
	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `"{\"id\":77,\"username\":\"nested\"}"`,
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
	})

	claims, err := verifier.Verify(initData)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.User == nil || claims.User.ID != 77 {
		t.Fatalf("expected nested user 77, got %+v", claims.User)
	}
}

func TestVerifyKeepsRawUserOnMalformedJSON(t *testing.T) {
	verifier := newTestVerifier(t)

	initData := signInitData(t, testBotToken, map[string]string{
		"user":      `{broken`,
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
	})

	claims, err := verifier.Verify(initData)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.User != nil {
		t.Fatalf("expected nil user for malformed JSON")
	}
	if claims.RawUser != `{broken` {
		t.Fatalf("raw user should be preserved, got %q", claims.RawUser)
	}
}

func TestNewVerifierRequiresBotToken(t *testing.T) {
	if _, err := authsvc.NewVerifier("", false, 0); !errors.Is(err, authsvc.ErrBotTokenMissing) {
		t.Fatalf("expected bot token error, got %v", err)
	}

	if _, err := authsvc.NewVerifier("", true, 0); err != nil {
		t.Fatalf("development mode should allow empty token, got %v", err)
	}
}

func newTestVerifier(t *testing.T) *authsvc.Verifier {
	t.Helper()

	verifier, err := authsvc.NewVerifier(testBotToken, false, 24*time.Hour)
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}
	return verifier
}

// signInitData builds a query-string payload signed the way the Telegram
// client runtime signs Mini App init data.
func signInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, key := range keys {
		items = append(items, fmt.Sprintf("%s=%s", key, fields[key]))
	}
	checkString := strings.Join(items, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set("hash", hash)

	return values.Encode()
}
