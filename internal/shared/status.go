package shared

import "net/http"

// Code is a machine-readable API status code. Codes are grouped by domain:
// 1xxx general, 2xxx authentication, 3xxx users and roles.
type Code int

const (
	CodeSuccess Code = 0

	CodeUnknown     Code = 1000
	CodeValidation  Code = 1001
	CodeRateLimited Code = 1002

	CodeNotAuthenticated      Code = 2000
	CodeAuthenticationExpired Code = 2001
	CodeNotAuthorized         Code = 2002
	CodeInvalidCaptcha        Code = 2003

	CodeUserNotFound Code = 3000
	CodeUserConflict Code = 3001
	CodeRoleNotFound Code = 3002
	CodeRoleConflict Code = 3003
	CodeUserBlocked  Code = 3004
)

// Message returns the default message for the code.
func (c Code) Message() string {
	switch c {
	case CodeSuccess:
		return "Success"
	case CodeValidation:
		return "Validation error"
	case CodeRateLimited:
		return "Request limit exceeded"
	case CodeNotAuthenticated:
		return "Invalid authentication state"
	case CodeAuthenticationExpired:
		return "Authentication state has expired"
	case CodeNotAuthorized:
		return "Insufficient permissions"
	case CodeInvalidCaptcha:
		return "Invalid captcha"
	case CodeUserNotFound:
		return "User not found"
	case CodeUserConflict:
		return "User with same name exists"
	case CodeRoleNotFound:
		return "Role not found"
	case CodeRoleConflict:
		return "Role with same name exists"
	case CodeUserBlocked:
		return "User has been blocked"
	default:
		return "Unknown error"
	}
}

// HTTPStatus maps the code to its HTTP equivalent.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeSuccess:
		return http.StatusOK
	case CodeValidation, CodeInvalidCaptcha:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotAuthenticated, CodeAuthenticationExpired:
		return http.StatusUnauthorized
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeUserNotFound, CodeRoleNotFound:
		return http.StatusNotFound
	case CodeUserConflict, CodeRoleConflict:
		return http.StatusConflict
	case CodeUserBlocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// Error is the terminal outcome of a failed request pipeline. Failures are
// never retried internally; the first one surfaces to the caller as-is.
type Error struct {
	Code    Code
	Message string
	Data    any
}

// NewError builds an Error carrying the code's default message.
func NewError(code Code) *Error {
	return &Error{Code: code, Message: code.Message()}
}

// NewErrorWithData builds an Error with an attached payload, used for
// validation detail reporting.
func NewErrorWithData(code Code, data any) *Error {
	return &Error{Code: code, Message: code.Message(), Data: data}
}

func (e *Error) Error() string {
	return e.Message
}
