package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/platform/httpx"
	"github.com/fasm-labs/fasm/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     shared.GuardMiddleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard shared.GuardMiddleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers user routes. /me only requires authentication;
// everything else requires the System permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard()).Get("/me", h.getSelf)
	r.Group(func(r chi.Router) {
		r.Use(h.guard(permission.System))
		r.Post("/", h.createUser)
		r.Get("/", h.listUsers)
		r.Patch("/{userID}", h.updateUser)
		r.Put("/{userID}/roles", h.setUserRoles)
		r.Delete("/{userID}", h.deleteUser)
	})
}

type createUserRequest struct {
	Name string `json:"name" validate:"required,min=1"`
	Pwd  string `json:"pwd" validate:"required,min=1"`
}

type updateUserRequest struct {
	Name     *string        `json:"name" validate:"omitempty,min=1"`
	Profile  map[string]any `json:"profile"`
	IsActive *bool          `json:"is_active"`
}

type setUserRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" validate:"required"`
}

type selfResponse struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	IsActive    bool           `json:"is_active"`
	IsAdmin     bool           `json:"is_admin"`
	Profile     map[string]any `json:"profile"`
	Permissions permission.Set `json:"permissions"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, httpx.ValidationError(err))
		return
	}

	user, err := h.service.Create(r.Context(), req.Name, req.Pwd)
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, httpx.ValidationError(err))
		return
	}

	user, err := h.service.Update(r.Context(), userID, UserUpdate{
		Name:     req.Name,
		Profile:  req.Profile,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.logger.Error("update user", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, user)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), pageRequest(r))
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, page)
}

// getSelf reports the caller's own record with the aggregated permission
// value, re-reading the store so role changes are visible immediately.
func (h *Handler) getSelf(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeNotAuthenticated))
		return
	}
	user, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get self", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, selfResponse{
		ID:          user.ID,
		Name:        user.Name,
		IsActive:    user.IsActive,
		IsAdmin:     user.IsAdmin,
		Profile:     user.Profile,
		Permissions: user.EffectivePermissions(),
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	})
}

func (h *Handler) setUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	var req setUserRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.service.SetRoles(r.Context(), userID, req.RoleIDs); err != nil {
		h.logger.Error("set user roles", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, nil)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.service.Delete(r.Context(), userID); err != nil {
		h.logger.Error("delete user", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, nil)
}

func pageRequest(r *http.Request) shared.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	return shared.NewPageRequest(page, size, q.Get("query"))
}
