package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/jwtverify"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
	"github.com/AlibekovAA/jwt-auth-api/internal/user/service"
)

type mockUserService struct {
	registerFunc func(ctx context.Context, input service.RegisterInput) (domain.User, error)
	getFunc      func(ctx context.Context, id domain.ID) (domain.User, error)
	updateFunc   func(ctx context.Context, id domain.ID, input service.UpdateInput) (domain.User, error)
}

func (m *mockUserService) Register(ctx context.Context, input service.RegisterInput) (domain.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, input)
	}
	return domain.User{}, nil
}

func (m *mockUserService) Get(ctx context.Context, id domain.ID) (domain.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return domain.User{}, service.ErrUserNotFound
}

func (m *mockUserService) Update(ctx context.Context, id domain.ID, input service.UpdateInput) (domain.User, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, input)
	}
	return domain.User{}, service.ErrUserNotFound
}

type staticVerifier struct{}

func (staticVerifier) VerifyAccess(_ context.Context, token string) (jwtverify.Claims, error) {
	if token == "valid" {
		return jwtverify.Claims{UserID: "u-1", Type: jwtverify.TypeAccess}, nil
	}
	return jwtverify.Claims{}, commonerrors.ErrInvalidToken
}

func newTestMux(users UserService) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(HandlerDeps{
		Users:          users,
		Verifier:       staticVerifier{},
		RequestTimeout: time.Second,
		Log:            logger.NewDiscard(),
	}).Register(mux)
	return mux
}

func doJSON(t *testing.T, mux http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegister_Created(t *testing.T) {
	mux := newTestMux(&mockUserService{
		registerFunc: func(ctx context.Context, input service.RegisterInput) (domain.User, error) {
			return domain.User{ID: "u-1", Email: input.Email}, nil
		},
	})

	rec := doJSON(t, mux, http.MethodPost, "/api/register/", "", map[string]string{
		"email":    "user@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["id"] != "u-1" || body["email"] != "user@example.com" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, leaked := body["password"]; leaked {
		t.Error("password must never be returned")
	}
}

func TestRegister_Errors(t *testing.T) {
	mux := newTestMux(&mockUserService{
		registerFunc: func(ctx context.Context, input service.RegisterInput) (domain.User, error) {
			return domain.User{}, service.ErrEmailTaken
		},
	})

	if rec := doJSON(t, mux, http.MethodPost, "/api/register/", "", "{"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid json: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodPost, "/api/register/", "", map[string]string{"email": "a@b.com"}); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate email: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodGet, "/api/register/", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: expected 405, got %d", rec.Code)
	}
}

func TestMe_Get(t *testing.T) {
	mux := newTestMux(&mockUserService{
		getFunc: func(ctx context.Context, id domain.ID) (domain.User, error) {
			return domain.User{ID: id, Email: "user@example.com", Username: "alice", PasswordHash: "secret"}, nil
		},
	})

	first := doJSON(t, mux, http.MethodGet, "/api/me/", "valid", nil)
	second := doJSON(t, mux, http.MethodGet, "/api/me/", "valid", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("repeated reads differ: %s vs %s", first.Body.String(), second.Body.String())
	}

	var body map[string]any
	_ = json.Unmarshal(first.Body.Bytes(), &body)
	if len(body) != 3 || body["id"] != "u-1" || body["username"] != "alice" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestMe_Unauthorized(t *testing.T) {
	mux := newTestMux(&mockUserService{})

	if rec := doJSON(t, mux, http.MethodGet, "/api/me/", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodGet, "/api/me/", "forged", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", rec.Code)
	}
}

func TestMe_UserGone(t *testing.T) {
	mux := newTestMux(&mockUserService{})

	if rec := doJSON(t, mux, http.MethodGet, "/api/me/", "valid", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestMe_Update(t *testing.T) {
	var got service.UpdateInput
	mux := newTestMux(&mockUserService{
		updateFunc: func(ctx context.Context, id domain.ID, input service.UpdateInput) (domain.User, error) {
			got = input
			return domain.User{ID: id, Email: "user@example.com", Username: *input.Username}, nil
		},
	})

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rec := doJSON(t, mux, method, "/api/me/", "valid", map[string]string{"username": "new-username"})
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", method, rec.Code)
		}
		if got.Email != nil || got.Username == nil || *got.Username != "new-username" {
			t.Errorf("%s: only username should be passed, got %+v", method, got)
		}
	}

	if rec := doJSON(t, mux, http.MethodDelete, "/api/me/", "valid", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
