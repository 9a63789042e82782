package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/AlibekovAA/jwt-auth-api/internal/auth/service"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/jwt-auth-api/internal/common/crypto"
	commonhttp "github.com/AlibekovAA/jwt-auth-api/internal/common/http"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/jwtverify"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	userhttp "github.com/AlibekovAA/jwt-auth-api/internal/user/http"
	userservice "github.com/AlibekovAA/jwt-auth-api/internal/user/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiEnv struct {
	handler http.Handler
	clock   *clock.MockClock
}

func newAPIEnv(t *testing.T) apiEnv {
	t.Helper()
	log := logger.NewDiscard()
	mockClock := clock.NewMockClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	ids := commoncrypto.NewUUIDGenerator()

	users := userservice.NewUserService(userservice.UserServiceDeps{
		Repo:        newMemUserRepo(),
		Hasher:      &commoncrypto.BcryptHasher{Cost: bcrypt.MinCost},
		IDGenerator: ids,
		Clock:       mockClock,
		Log:         log,
	})
	tokens := service.NewTokenService(
		service.TokenServiceDeps{
			RefreshTokenRepo: newMemRefreshTokenRepo(),
			Users:            users,
			IDGenerator:      ids,
			Clock:            mockClock,
			Log:              log,
		},
		service.TokenServiceConfig{
			JWTSecret:        testSecret,
			AccessTokenTTL:   15 * time.Minute,
			RefreshTokenTTL:  7 * 24 * time.Hour,
			MaxRefreshTokens: 5,
		},
	)

	mux := http.NewServeMux()
	NewHandler(HandlerDeps{
		Users:          users,
		Tokens:         tokens,
		RequestTimeout: 5 * time.Second,
		Log:            log,
	}).Register(mux)
	userhttp.NewHandler(userhttp.HandlerDeps{
		Users:          users,
		Verifier:       tokens,
		RequestTimeout: 5 * time.Second,
		Log:            log,
	}).Register(mux)

	return apiEnv{
		handler: commonhttp.BuildBaseHandler("auth-test", log, mux),
		clock:   mockClock,
	}
}

func (e apiEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func (e apiEnv) registerAndLogin(t *testing.T, email, password string) (string, string) {
	t.Helper()
	rec, _ := e.do(t, http.MethodPost, "/api/register/", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec, body := e.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	access, _ := body["access"].(string)
	refresh, _ := body["refresh"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("login: missing tokens in %v", body)
	}
	return access, refresh
}

func TestAPI_RegisterLoginMe(t *testing.T) {
	env := newAPIEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/register/", "", map[string]string{
		"email":    "user@example.com",
		"password": "password123",
		"username": "alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if body["email"] != "user@example.com" || body["id"] == "" || len(body) != 2 {
		t.Errorf("unexpected register body: %v", body)
	}

	rec, body = env.do(t, http.MethodPost, "/api/login/", "", map[string]string{
		"email":    "user@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	access := body["access"].(string)

	rec, first := env.do(t, http.MethodGet, "/api/me/", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	_, second := env.do(t, http.MethodGet, "/api/me/", access, nil)
	if first["id"] != second["id"] || first["email"] != second["email"] || first["username"] != second["username"] {
		t.Errorf("repeated reads differ: %v vs %v", first, second)
	}
	if first["username"] != "alice" {
		t.Errorf("unexpected profile: %v", first)
	}
}

func TestAPI_Register_Duplicate(t *testing.T) {
	env := newAPIEnv(t)
	env.registerAndLogin(t, "dup@example.com", "password123")

	rec, body := env.do(t, http.MethodPost, "/api/register/", "", map[string]string{"email": "dup@example.com", "password": "password456"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body["code"] != "EMAIL_TAKEN" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestAPI_Login_Failures(t *testing.T) {
	env := newAPIEnv(t)
	env.registerAndLogin(t, "user@example.com", "password123")

	rec, body := env.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": "user@example.com", "password": "wrongpass1"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", rec.Code)
	}
	if _, ok := body["access"]; ok {
		t.Error("no tokens on failed login")
	}

	rec, _ = env.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": "ghost@example.com", "password": "password123"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email: expected 401, got %d", rec.Code)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/login/", "", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid json: expected 400, got %d", rec.Code)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/login/", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET login: expected 405, got %d", rec.Code)
	}
}

func TestAPI_Refresh(t *testing.T) {
	env := newAPIEnv(t)
	_, refresh := env.registerAndLogin(t, "user@example.com", "password123")

	rec, body := env.do(t, http.MethodPost, "/api/refresh/", "", map[string]string{"refresh": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	access, _ := body["access"].(string)
	if access == "" || len(body) != 1 {
		t.Fatalf("unexpected refresh body: %v", body)
	}

	if rec, _ := env.do(t, http.MethodGet, "/api/me/", access, nil); rec.Code != http.StatusOK {
		t.Errorf("refreshed access token rejected: %d", rec.Code)
	}

	if rec, _ := env.do(t, http.MethodPost, "/api/refresh/", "", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing token: expected 400, got %d", rec.Code)
	}
	if rec, _ := env.do(t, http.MethodPost, "/api/refresh/", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty body: expected 400, got %d", rec.Code)
	}
	if rec, _ := env.do(t, http.MethodPost, "/api/refresh/", "", map[string]string{"refresh": "garbage"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", rec.Code)
	}
}

func TestAPI_LogoutThenRefresh(t *testing.T) {
	env := newAPIEnv(t)
	_, refresh := env.registerAndLogin(t, "user@example.com", "password123")

	rec, body := env.do(t, http.MethodPost, "/api/logout/", "", map[string]string{"refresh": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if body["success"] != "User logged out." {
		t.Errorf("unexpected logout body: %v", body)
	}

	if rec, _ := env.do(t, http.MethodPost, "/api/refresh/", "", map[string]string{"refresh": refresh}); rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: expected 401, got %d", rec.Code)
	}
	if rec, _ := env.do(t, http.MethodPost, "/api/logout/", "", map[string]string{"refresh": refresh}); rec.Code != http.StatusUnauthorized {
		t.Errorf("second logout: expected 401, got %d", rec.Code)
	}
	if rec, _ := env.do(t, http.MethodPost, "/api/logout/", "", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("logout without token: expected 400, got %d", rec.Code)
	}
}

func TestAPI_TokensExpire(t *testing.T) {
	env := newAPIEnv(t)
	access, refresh := env.registerAndLogin(t, "user@example.com", "password123")

	env.clock.Advance(16 * time.Minute)
	if rec, _ := env.do(t, http.MethodGet, "/api/me/", access, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired access token: expected 401, got %d", rec.Code)
	}

	env.clock.Advance(7 * 24 * time.Hour)
	if rec, _ := env.do(t, http.MethodPost, "/api/refresh/", "", map[string]string{"refresh": refresh}); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired refresh token: expected 401, got %d", rec.Code)
	}
}

func TestAPI_UpdateProfile(t *testing.T) {
	env := newAPIEnv(t)
	access, refresh := env.registerAndLogin(t, "user@example.com", "password123")

	rec, body := env.do(t, http.MethodPut, "/api/me/", access, map[string]string{"username": "new-username"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["username"] != "new-username" || body["email"] != "user@example.com" {
		t.Errorf("only username should change: %v", body)
	}

	env.registerAndLogin(t, "other@example.com", "password123")
	rec, _ = env.do(t, http.MethodPatch, "/api/me/", access, map[string]string{"email": "other@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("taken email: expected 400, got %d", rec.Code)
	}

	rec, body = env.do(t, http.MethodPatch, "/api/me/", access, map[string]string{"email": "new@Example.org"})
	if rec.Code != http.StatusOK || body["email"] != "new@example.org" {
		t.Errorf("email update failed: %d %v", rec.Code, body)
	}

	rec, body = env.do(t, http.MethodPost, "/api/refresh/", "", map[string]string{"refresh": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	newAccess, _ := body["access"].(string)
	claims, err := jwtverify.ParseToken(newAccess, []byte(testSecret), env.clock.Now)
	if err != nil {
		t.Fatalf("parse refreshed access token: %v", err)
	}
	if claims.Email != "new@example.org" {
		t.Errorf("refreshed access token should carry the updated email, got %q", claims.Email)
	}
}

func TestAPI_SecurityHeadersAndTrace(t *testing.T) {
	env := newAPIEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/me/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	traceID := rec.Header().Get("X-Trace-ID")
	if traceID == "" || body["trace_id"] != traceID {
		t.Errorf("trace id not propagated: header %q body %v", traceID, body["trace_id"])
	}
}
