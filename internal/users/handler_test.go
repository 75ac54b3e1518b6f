package users

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
	"golang.org/x/crypto/bcrypt"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/roles"
	"github.com/fasm-labs/fasm/internal/shared"
)

type stubRepo struct {
	byID      map[uuid.UUID]*User
	roleTable map[uuid.UUID]roles.Role
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: map[uuid.UUID]*User{}, roleTable: map[uuid.UUID]roles.Role{}}
}

func (s *stubRepo) Create(_ context.Context, name, passwordHash string) (*User, error) {
	for _, u := range s.byID {
		if u.Name == name {
			return nil, shared.NewError(shared.CodeUserConflict)
		}
	}
	now := time.Now().Unix()
	user := &User{
		ID:           uuid.New(),
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
		Profile:      map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubRepo) Update(_ context.Context, id uuid.UUID, patch UserUpdate) (*User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, shared.NewError(shared.CodeUserNotFound)
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Profile != nil {
		user.Profile = patch.Profile
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	user.UpdatedAt = time.Now().Unix()
	return user, nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, shared.NewError(shared.CodeUserNotFound)
	}
	return user, nil
}

func (s *stubRepo) FindByName(_ context.Context, name string) (*User, error) {
	for _, u := range s.byID {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, shared.NewError(shared.CodeUserNotFound)
}

func (s *stubRepo) List(_ context.Context, req shared.PageRequest) ([]User, int, error) {
	var all []User
	for _, u := range s.byID {
		all = append(all, *u)
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

func (s *stubRepo) SetRoles(_ context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	user, ok := s.byID[userID]
	if !ok {
		return shared.NewError(shared.CodeUserNotFound)
	}
	assigned := make([]roles.Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		role, ok := s.roleTable[id]
		if !ok {
			return shared.NewError(shared.CodeRoleNotFound)
		}
		assigned = append(assigned, role)
	}
	user.Roles = assigned
	return nil
}

func (s *stubRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.byID[id]; !ok {
		return shared.NewError(shared.CodeUserNotFound)
	}
	delete(s.byID, id)
	return nil
}

// identityGuard skips token verification and injects a fixed identity,
// so handler behavior is testable in isolation.
func identityGuard(identity *shared.Identity) shared.GuardMiddleware {
	return func(_ ...permission.Set) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := shared.ContextWithIdentity(r.Context(), identity)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}
}

func newUsersRouter(repo *stubRepo, identity *shared.Identity) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo), identityGuard(identity))
	r := chi.NewRouter()
	r.Route("/users", handler.MountRoutes)
	return r
}

type userEnvelope struct {
	Code shared.Code `json:"code"`
	Data *User       `json:"data"`
}

func postUser(t *testing.T, r chi.Router, payload map[string]any) (*httptest.ResponseRecorder, userEnvelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/users/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env userEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newStubRepo()
	r := newUsersRouter(repo, nil)

	rec, env := postUser(t, r, map[string]any{"name": "alice", "pwd": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, shared.CodeSuccess, env.Code)
	require.NotNil(t, env.Data)
	require.True(t, env.Data.IsActive)
	require.False(t, env.Data.IsAdmin)

	stored := repo.byID[env.Data.ID]
	require.NotEqual(t, "s3cret", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
}

func TestCreateUserNeverExposesPasswordHash(t *testing.T) {
	r := newUsersRouter(newStubRepo(), nil)

	body, err := json.Marshal(map[string]any{"name": "alice", "pwd": "s3cret"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/users/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.NotContains(t, rec.Body.String(), "pwd_hash")
	require.NotContains(t, rec.Body.String(), "s3cret")
}

func TestCreateUserRejectsDuplicateName(t *testing.T) {
	r := newUsersRouter(newStubRepo(), nil)

	_, first := postUser(t, r, map[string]any{"name": "alice", "pwd": "one"})
	require.Equal(t, shared.CodeSuccess, first.Code)

	rec, env := postUser(t, r, map[string]any{"name": "alice", "pwd": "two"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, shared.CodeUserConflict, env.Code)
}

func TestUpdateUserTogglesActivity(t *testing.T) {
	repo := newStubRepo()
	r := newUsersRouter(repo, nil)

	_, created := postUser(t, r, map[string]any{"name": "alice", "pwd": "s3cret"})
	require.NotNil(t, created.Data)

	body, err := json.Marshal(map[string]any{"is_active": false})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, "/users/"+created.Data.ID.String(), bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env userEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, env.Data.IsActive)
	require.Equal(t, "alice", env.Data.Name)
}

func TestSetUserRoles(t *testing.T) {
	repo := newStubRepo()
	r := newUsersRouter(repo, nil)

	_, created := postUser(t, r, map[string]any{"name": "alice", "pwd": "s3cret"})
	require.NotNil(t, created.Data)

	role := roles.Role{ID: uuid.New(), Name: "Ops", Permissions: permission.System}
	repo.roleTable[role.ID] = role

	body, err := json.Marshal(map[string]any{"role_ids": []string{role.ID.String()}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/users/"+created.Data.ID.String()+"/roles", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []roles.Role{role}, repo.byID[created.Data.ID].Roles)

	// Unknown role ids reject the whole replacement.
	body, err = json.Marshal(map[string]any{"role_ids": []string{uuid.NewString()}})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut, "/users/"+created.Data.ID.String()+"/roles", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env userEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, shared.CodeRoleNotFound, env.Code)
}

func TestGetSelfAggregatesPermissions(t *testing.T) {
	repo := newStubRepo()
	user, err := repo.Create(context.Background(), "bob", "irrelevant")
	require.NoError(t, err)
	user.Roles = []roles.Role{
		{Name: "readers", Permissions: permission.Set(0b01)},
		{Name: "writers", Permissions: permission.Set(0b10)},
	}

	identity := &shared.Identity{UserID: user.ID, Name: user.Name}
	r := newUsersRouter(repo, identity)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env struct {
		Code shared.Code `json:"code"`
		Data struct {
			ID          uuid.UUID      `json:"id"`
			Name        string         `json:"name"`
			Permissions permission.Set `json:"permissions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, shared.CodeSuccess, env.Code)
	require.Equal(t, user.ID, env.Data.ID)
	require.Equal(t, "bob", env.Data.Name)
	require.Equal(t, permission.Set(0b11), env.Data.Permissions)
}

func TestDeleteUser(t *testing.T) {
	repo := newStubRepo()
	r := newUsersRouter(repo, nil)

	_, created := postUser(t, r, map[string]any{"name": "alice", "pwd": "s3cret"})
	require.NotNil(t, created.Data)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+created.Data.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, repo.byID, created.Data.ID)
}

func TestEffectivePermissionsAdminOverride(t *testing.T) {
	admin := &User{IsAdmin: true}
	require.Equal(t, permission.All, admin.EffectivePermissions())

	member := &User{Roles: []roles.Role{{Permissions: permission.Set(0b01)}, {Permissions: permission.Set(0b10)}}}
	require.Equal(t, permission.Set(0b11), member.EffectivePermissions())

	bare := &User{}
	require.Equal(t, permission.None, bare.EffectivePermissions())
}
