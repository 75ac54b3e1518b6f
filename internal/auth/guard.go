package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/platform/httpx"
	"github.com/fasm-labs/fasm/internal/shared"
	"github.com/fasm-labs/fasm/internal/token"
)

// Guard is the per-route authorization gate. For each request it runs a
// linear pipeline with early exit on first failure: extract bearer token,
// verify it, resolve the subject with its roles, check liveness, check
// permissions. On success the resolved identity is attached to the
// request context.
type Guard struct {
	logger *slog.Logger
	users  UserSource
	tokens *token.Service
}

// NewGuard constructs a Guard.
func NewGuard(logger *slog.Logger, users UserSource, tokens *token.Service) *Guard {
	return &Guard{logger: logger, users: users, tokens: tokens}
}

// Middleware exposes the guard in the form handlers mount.
func (g *Guard) Middleware() shared.GuardMiddleware {
	return g.Require
}

// Require guards a route. With no arguments any authenticated, active
// user passes; otherwise the user's effective permission set must satisfy
// at least one of the required sets.
func (g *Guard) Require(required ...permission.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := g.authenticate(r, token.KindAccess)
			if err != nil {
				httpx.RespondError(w, r, err)
				return
			}
			if !permission.AnySatisfies(identity.Permissions, required...) {
				g.logger.Warn("request not authorized",
					slog.String("user", identity.Name),
					slog.String("path", r.URL.Path))
				httpx.RespondError(w, r, shared.NewError(shared.CodeNotAuthorized))
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRefresh guards the token refresh endpoint: same pipeline, but
// only refresh tokens are accepted and no permissions are checked.
func (g *Guard) RequireRefresh() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := g.authenticate(r, token.KindRefresh)
			if err != nil {
				httpx.RespondError(w, r, err)
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) authenticate(r *http.Request, kind token.Kind) (*shared.Identity, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, shared.NewError(shared.CodeNotAuthenticated)
	}

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, shared.NewError(shared.CodeAuthenticationExpired)
		}
		return nil, shared.NewError(shared.CodeNotAuthenticated)
	}
	if claims.Kind != kind {
		return nil, shared.NewError(shared.CodeNotAuthenticated)
	}

	user, err := g.users.FindByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, err
	}
	// A valid token never outranks the live activity flag.
	if !user.IsActive {
		return nil, shared.NewError(shared.CodeUserBlocked)
	}

	return &shared.Identity{
		UserID:      user.ID,
		Name:        user.Name,
		IsAdmin:     user.IsAdmin,
		Permissions: user.EffectivePermissions(),
	}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, credentials, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	credentials = strings.TrimSpace(credentials)
	return credentials, credentials != ""
}
