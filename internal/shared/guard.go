package shared

import (
	"net/http"

	"github.com/fasm-labs/fasm/internal/permission"
)

// GuardMiddleware wraps a route with the authorization pipeline. Called
// with no arguments it only requires an authenticated, active user; each
// argument is an alternative permission requirement (any one satisfying
// set grants access).
type GuardMiddleware func(required ...permission.Set) func(http.Handler) http.Handler
