package roles

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

// Handler manages role management endpoints. All routes require the
// System permission.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard(permission.System))
	r.Post("/", h.createRole)
	r.Get("/", h.listRoles)
	r.Patch("/{roleID}", h.updateRole)
	r.Delete("/{roleID}", h.deleteRole)
}

type createRoleRequest struct {
	Name        string         `json:"name" validate:"required,min=1"`
	Desc        string         `json:"desc"`
	Permissions permission.Set `json:"permissions"`
}

type updateRoleRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=1"`
	Desc        *string         `json:"desc"`
	Permissions *permission.Set `json:"permissions"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, httpx.ValidationError(err))
		return
	}

	role, err := h.service.Create(r.Context(), req.Name, req.Desc, req.Permissions)
	if err != nil {
		h.logger.Error("create role", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, httpx.ValidationError(err))
		return
	}

	role, err := h.service.Update(r.Context(), roleID, RoleUpdate{
		Name:        req.Name,
		Desc:        req.Desc,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.logger.Error("update role", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, role)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), pageRequest(r))
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, r, page)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.RespondError(w, r, shared.NewError(shared.CodeValidation))
		return
	}
	if err := h.service.Delete(r.Context(), roleID); err != nil {
		h.logger.Error("delete role", slog.Any("error", err))
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
