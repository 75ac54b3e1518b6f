package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/fasm-labs/fasm/internal/captcha"
	"github.com/fasm-labs/fasm/internal/platform/httpx"
	"github.com/fasm-labs/fasm/internal/shared"
)

// Handler wires HTTP endpoints for the authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	captchas  *captcha.Store
	guard     *Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, captchas *captcha.Store, guard *Guard) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		captchas:  captchas,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/tokens", h.createToken)
	r.With(h.guard.RequireRefresh()).Put("/tokens", h.refreshToken)
	r.With(httprate.Limit(100, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.RespondCode(w, r, shared.CodeRateLimited)
		}),
	)).Post("/captchas", h.createCaptcha)
}

type createTokenRequest struct {
	Account  string `json:"account" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=1"`
	// When a captcha challenge was issued, the client echoes the issuing
	// trace id with the solved code.
	TraceID string `json:"trace_id" validate:"required_with=Captcha"`
	Captcha string `json:"captcha"`
}

type captchaResponse struct {
	Captcha string `json:"captcha"`
}

func (h *Handler) createToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, httpx.ValidationError(err))
		return
	}

	if req.Captcha != "" {
		if err := h.captchas.Verify(r.Context(), req.TraceID, req.Captcha); err != nil {
			httpx.RespondError(w, r, err)
			return
		}
	}

	user, err := h.service.Authenticate(r.Context(), req.Account, req.Password)
	if err != nil {
		h.logger.Warn("authentication failed", slog.String("account", req.Account))
		httpx.RespondError(w, r, err)
		return
	}

	pair, err := h.service.IssuePair(user)
	if err != nil {
		h.logger.Error("issue token pair", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, pair)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeNotAuthenticated))
		return
	}
	pair, err := h.service.IssueAccess(identity.UserID)
	if err != nil {
		h.logger.Error("refresh token", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, pair)
}

func (h *Handler) createCaptcha(w http.ResponseWriter, r *http.Request) {
	traceID := shared.TraceIDFromContext(r.Context())
	code, err := h.captchas.Issue(r.Context(), traceID)
	if err != nil {
		h.logger.Error("issue captcha", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, captchaResponse{Captcha: code})
}
