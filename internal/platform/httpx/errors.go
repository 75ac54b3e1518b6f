package httpx

import (
	"errors"
	"net/http"

	"github.com/fasm-labs/fasm/internal/shared"
)

// RespondError maps a pipeline failure to its envelope and HTTP status.
// Unrecognized errors become CodeUnknown without leaking internals.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *shared.Error
	if !errors.As(err, &apiErr) {
		apiErr = shared.NewError(shared.CodeUnknown)
	}
	write(w, r, apiErr.Code.HTTPStatus(), apiErr.Code, apiErr.Message, apiErr.Data)
}

// RespondCode sends a failure envelope for the given code, used where no
// error value is in hand (rate limiter rejections and similar).
func RespondCode(w http.ResponseWriter, r *http.Request, code shared.Code) {
	write(w, r, code.HTTPStatus(), code, code.Message(), nil)
}

// NotFoundHandler responds with an envelope for unmatched routes.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		write(w, r, http.StatusNotFound, shared.CodeUnknown, "route not found", nil)
	}
}
