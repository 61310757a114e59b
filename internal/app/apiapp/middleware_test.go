package apiapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
	authsvc "github.com/FnipsDanil/crashTest-sub001/internal/services/auth"
	ratesvc "github.com/FnipsDanil/crashTest-sub001/internal/services/rate"
)

func TestAdminAuthMiddlewareDisabledWithoutToken(t *testing.T) {
	mw := AdminAuthMiddleware("", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/admin/verified-senders", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called when admin token is unset")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestAdminAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	mw := AdminAuthMiddleware("secret-token", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/admin/verified-senders", nil)
	req.Header.Set("X-Admin-Token", "bad-token")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called on invalid token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuthMiddlewareAcceptsValidToken(t *testing.T) {
	mw := AdminAuthMiddleware("secret-token", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/admin/verified-senders", nil)
	req.Header.Set("X-Admin-Token", "secret-token")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddlewareResolvesInitDataFromQuery(t *testing.T) {
	verifier, err := authsvc.NewVerifier("", true, time.Hour)
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}
	service := authsvc.NewService(verifier, nil, zap.NewNop())
	mw := AuthMiddleware(service, zap.NewNop())

	initData := url.Values{
		"user": {`{"id":42,"username":"player"}`},
		"hash": {"devhash"},
	}.Encode()

	req := httptest.NewRequest(http.MethodGet, "/balance/42?init_data="+url.QueryEscape(initData), nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing in context")
		}
		if identity.UserID != 42 || identity.Username != "player" {
			t.Fatalf("unexpected identity: %+v", identity)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddlewareRejectsAnonymousRequest(t *testing.T) {
	verifier, err := authsvc.NewVerifier("", true, time.Hour)
	if err != nil {
		t.Fatalf("create verifier: %v", err)
	}
	service := authsvc.NewService(verifier, nil, zap.NewNop())
	mw := AuthMiddleware(service, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/balance/42", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without credentials")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Fatalf("unexpected WWW-Authenticate header: %q", got)
	}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != "UNAUTHORIZED" {
		t.Fatalf("unexpected code: %q", body.Code)
	}
	if body.Message != "Missing Telegram authentication. Please restart the app." {
		t.Fatalf("unexpected message: %q", body.Message)
	}
}

func TestRateLimitMiddlewareReturns429OnBurstOverflow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := ratesvc.NewLimiter(redrepo.NewRateRepo(client), 100, 2)
	mw := RateLimitMiddleware(limiter, zap.NewNop())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	identityCtx := authsvc.WithIdentity(httptest.NewRequest(http.MethodGet, "/balance/7", nil).Context(), authsvc.Identity{UserID: 7})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/balance/7", nil).WithContext(identityCtx)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: unexpected status %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/balance/7", nil).WithContext(identityCtx)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusTooManyRequests)
	}
}

func TestRateLimitMiddlewareSkipsAnonymousRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := ratesvc.NewLimiter(redrepo.NewRateRepo(client), 1, 1)
	mw := RateLimitMiddleware(limiter, zap.NewNop())

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: unexpected status %d", i+1, rr.Code)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name  string
		value string
		token string
		ok    bool
	}{
		{name: "valid", value: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{name: "lowercase scheme", value: "bearer abc", token: "abc", ok: true},
		{name: "missing token", value: "Bearer ", ok: false},
		{name: "wrong scheme", value: "Basic abc", ok: false},
		{name: "empty", value: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := extractBearerToken(tc.value)
			if ok != tc.ok || token != tc.token {
				t.Fatalf("extractBearerToken(%q) = (%q, %v), want (%q, %v)", tc.value, token, ok, tc.token, tc.ok)
			}
		})
	}
}
