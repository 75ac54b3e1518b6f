package roles

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/shared"
)

type stubRepo struct {
	byID map[uuid.UUID]Role
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: map[uuid.UUID]Role{}}
}

func (s *stubRepo) Create(_ context.Context, name, desc string, perms permission.Set) (Role, error) {
	for _, r := range s.byID {
		if r.Name == name {
			return Role{}, shared.NewError(shared.CodeRoleConflict)
		}
	}
	now := time.Now().Unix()
	role := Role{ID: uuid.New(), Name: name, Desc: desc, Permissions: perms, CreatedAt: now, UpdatedAt: now}
	s.byID[role.ID] = role
	return role, nil
}

func (s *stubRepo) Update(_ context.Context, id uuid.UUID, patch RoleUpdate) (Role, error) {
	role, ok := s.byID[id]
	if !ok {
		return Role{}, shared.NewError(shared.CodeRoleNotFound)
	}
	if patch.Name != nil {
		role.Name = *patch.Name
	}
	if patch.Desc != nil {
		role.Desc = *patch.Desc
	}
	if patch.Permissions != nil {
		role.Permissions = *patch.Permissions
	}
	role.UpdatedAt = time.Now().Unix()
	s.byID[id] = role
	return role, nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (Role, error) {
	role, ok := s.byID[id]
	if !ok {
		return Role{}, shared.NewError(shared.CodeRoleNotFound)
	}
	return role, nil
}

func (s *stubRepo) List(_ context.Context, req shared.PageRequest) ([]Role, int, error) {
	var all []Role
	for _, r := range s.byID {
		all = append(all, r)
	}
	total := len(all)
	start := req.Offset()
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *stubRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.byID[id]; !ok {
		return shared.NewError(shared.CodeRoleNotFound)
	}
	delete(s.byID, id)
	return nil
}

func passGuard(_ ...permission.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func newRolesRouter(repo *stubRepo) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo), passGuard)
	r := chi.NewRouter()
	r.Route("/roles", handler.MountRoutes)
	return r
}

type roleEnvelope struct {
	Code shared.Code `json:"code"`
	Data *Role       `json:"data"`
}

func postRole(t *testing.T, r chi.Router, payload map[string]any) (*httptest.ResponseRecorder, roleEnvelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/roles/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env roleEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func TestCreateRole(t *testing.T) {
	r := newRolesRouter(newStubRepo())

	rec, env := postRole(t, r, map[string]any{"name": "Auditors", "desc": "Read only", "permissions": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, shared.CodeSuccess, env.Code)
	require.NotNil(t, env.Data)
	require.Equal(t, "Auditors", env.Data.Name)
	require.Equal(t, permission.None, env.Data.Permissions)
	require.NotZero(t, env.Data.CreatedAt)
}

func TestCreateRoleRejectsDuplicateName(t *testing.T) {
	r := newRolesRouter(newStubRepo())

	_, first := postRole(t, r, map[string]any{"name": "Auditors"})
	require.Equal(t, shared.CodeSuccess, first.Code)

	rec, env := postRole(t, r, map[string]any{"name": "Auditors"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, shared.CodeRoleConflict, env.Code)
}

func TestCreateRoleValidatesName(t *testing.T) {
	r := newRolesRouter(newStubRepo())

	rec, env := postRole(t, r, map[string]any{"desc": "missing name"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, shared.CodeValidation, env.Code)
}

func TestUpdateRolePatchesOnlyProvidedFields(t *testing.T) {
	repo := newStubRepo()
	r := newRolesRouter(repo)

	_, created := postRole(t, r, map[string]any{"name": "Auditors", "desc": "Read only", "permissions": 3})
	require.NotNil(t, created.Data)

	body, err := json.Marshal(map[string]any{"permissions": 7})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, "/roles/"+created.Data.ID.String(), bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env roleEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Auditors", env.Data.Name)
	require.Equal(t, "Read only", env.Data.Desc)
	require.Equal(t, permission.Set(7), env.Data.Permissions)
}

func TestUpdateRoleUnknownID(t *testing.T) {
	r := newRolesRouter(newStubRepo())

	body := bytes.NewReader([]byte(`{"name":"Anything"}`))
	req := httptest.NewRequest(http.MethodPatch, "/roles/"+uuid.NewString(), body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env roleEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, shared.CodeRoleNotFound, env.Code)
}

func TestListRolesPaginates(t *testing.T) {
	repo := newStubRepo()
	r := newRolesRouter(repo)

	for _, name := range []string{"One", "Two", "Three"} {
		_, env := postRole(t, r, map[string]any{"name": name})
		require.Equal(t, shared.CodeSuccess, env.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/roles/?page=1&size=2", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env struct {
		Code shared.Code       `json:"code"`
		Data shared.Page[Role] `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, env.Data.Total)
	require.Equal(t, 2, env.Data.Pages)
	require.Len(t, env.Data.Items, 2)
}

func TestDeleteRole(t *testing.T) {
	repo := newStubRepo()
	r := newRolesRouter(repo)

	_, created := postRole(t, r, map[string]any{"name": "Ephemeral"})
	require.NotNil(t, created.Data)

	req := httptest.NewRequest(http.MethodDelete, "/roles/"+created.Data.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/roles/"+created.Data.ID.String(), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env roleEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, shared.CodeRoleNotFound, env.Code)
}
