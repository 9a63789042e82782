package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AlibekovAA/jwt-auth-api/internal/auth/service"
	commonhttp "github.com/AlibekovAA/jwt-auth-api/internal/common/http"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	userdomain "github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (userdomain.User, error)
}

type TokenService interface {
	IssuePair(ctx context.Context, user userdomain.User) (service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (service.AccessToken, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type accessResponse struct {
	Access string `json:"access"`
}

type logoutResponse struct {
	Success string `json:"success"`
}

type Handler struct {
	users          Authenticator
	tokens         TokenService
	limiter        *commonhttp.StrictRateLimiter
	requestTimeout time.Duration
	errors         *commonhttp.ErrorHandler
	log            *logger.Logger
}

type HandlerDeps struct {
	Users          Authenticator
	Tokens         TokenService
	Limiter        *commonhttp.StrictRateLimiter
	RequestTimeout time.Duration
	Log            *logger.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		users:          deps.Users,
		tokens:         deps.Tokens,
		limiter:        deps.Limiter,
		requestTimeout: deps.RequestTimeout,
		errors:         commonhttp.NewErrorHandler(deps.Log),
		log:            deps.Log,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	post := commonhttp.RequireMethod(http.MethodPost)
	timeout := commonhttp.WithTimeout(h.requestTimeout)

	mux.HandleFunc(commonhttp.PathLogin, h.limiter.Wrap(commonhttp.PathLogin, post(timeout(h.login))))
	mux.HandleFunc(commonhttp.PathRefresh, h.limiter.Wrap(commonhttp.PathRefresh, post(timeout(h.refresh))))
	mux.HandleFunc(commonhttp.PathLogout, h.limiter.Wrap(commonhttp.PathLogout, post(timeout(h.logout))))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "login_invalid_json"}).Warnf("login failed: invalid json: %v", err)
		commonhttp.WriteRequestError(w, r, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	pair, err := h.tokens.IssuePair(r.Context(), user)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.log.WithFields(r.Context(), logger.Fields{
		"user_id": string(user.ID),
		"action":  "login_success",
	}).Info("login success")

	commonhttp.WriteJSON(w, http.StatusOK, tokenPairResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := h.readRefreshToken(w, r)
	if !ok {
		return
	}

	access, err := h.tokens.Refresh(r.Context(), token)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, accessResponse{Access: access.Token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.readRefreshToken(w, r)
	if !ok {
		return
	}

	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, logoutResponse{Success: "User logged out."})
}

// readRefreshToken decodes {"refresh": "..."} and answers 400 itself when the
// body is malformed or the token is absent.
func (h *Handler) readRefreshToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req refreshRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		commonhttp.WriteRequestError(w, r, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json")
		return "", false
	}

	token := strings.TrimSpace(req.Refresh)
	if token == "" {
		commonhttp.WriteRequestError(w, r, http.StatusBadRequest, commonhttp.CodeMissingRefreshToken, "refresh token is required")
		return "", false
	}
	return token, true
}
