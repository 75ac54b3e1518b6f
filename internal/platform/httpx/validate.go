package httpx

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/fasm-labs/fasm/internal/shared"
)

// ValidationError converts validator failures into a CodeValidation error
// carrying per-field detail.
func ValidationError(err error) *shared.Error {
	details := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return shared.NewErrorWithData(shared.CodeValidation, details)
}
