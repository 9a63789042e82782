package http

import (
	"context"
	"net/http"
	"time"

	commonhttp "github.com/AlibekovAA/jwt-auth-api/internal/common/http"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/jwtverify"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/mapper"
	"github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
	"github.com/AlibekovAA/jwt-auth-api/internal/user/service"
)

type UserService interface {
	Register(ctx context.Context, input service.RegisterInput) (domain.User, error)
	Get(ctx context.Context, id domain.ID) (domain.User, error)
	Update(ctx context.Context, id domain.ID, input service.UpdateInput) (domain.User, error)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type updateRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
}

type Handler struct {
	users          UserService
	verifier       jwtverify.Verifier
	limiter        *commonhttp.StrictRateLimiter
	requestTimeout time.Duration
	errors         *commonhttp.ErrorHandler
	log            *logger.Logger
}

type HandlerDeps struct {
	Users          UserService
	Verifier       jwtverify.Verifier
	Limiter        *commonhttp.StrictRateLimiter
	RequestTimeout time.Duration
	Log            *logger.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		users:          deps.Users,
		verifier:       deps.Verifier,
		limiter:        deps.Limiter,
		requestTimeout: deps.RequestTimeout,
		errors:         commonhttp.NewErrorHandler(deps.Log),
		log:            deps.Log,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	timeout := commonhttp.WithTimeout(h.requestTimeout)

	mux.HandleFunc(commonhttp.PathRegister, h.limiter.Wrap(commonhttp.PathRegister,
		commonhttp.RequireMethod(http.MethodPost)(timeout(h.register))))

	authenticated := jwtverify.Middleware(h.verifier, h.log)
	mux.Handle(commonhttp.PathMe, h.limiter.MiddlewareForPath(commonhttp.PathMe)(
		authenticated(http.HandlerFunc(timeout(h.me)))))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "register_invalid_json"}).Warnf("register failed: invalid json: %v", err)
		commonhttp.WriteRequestError(w, r, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json")
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, mapper.UserToRegistered(user))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.WriteRequestError(w, r, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization")
		return
	}
	id := domain.ID(claims.UserID)

	switch r.Method {
	case http.MethodGet:
		h.getProfile(w, r, id)
	case http.MethodPut, http.MethodPatch:
		h.updateProfile(w, r, id)
	default:
		w.Header().Set("Allow", "GET, PUT, PATCH")
		commonhttp.WriteRequestError(w, r, http.StatusMethodNotAllowed, commonhttp.CodeMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request, id domain.ID) {
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, mapper.UserToProfile(user))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, id domain.ID) {
	var req updateRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteRequestError(w, r, http.StatusBadRequest, commonhttp.CodeInvalidJSON, "invalid json")
		return
	}

	user, err := h.users.Update(r.Context(), id, service.UpdateInput{
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, mapper.UserToProfile(user))
}
