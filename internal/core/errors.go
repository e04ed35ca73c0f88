package core

import (
	"errors"
	"strings"
)

var (
	ErrResumeNotFound    = errors.New("resume not found")
	ErrTrainingNotFound  = errors.New("training entry not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrForbiddenAccess   = errors.New("access to this resource is forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrImageTooLarge     = errors.New("embedded image exceeds the size limit")
	ErrAccountDisabled   = errors.New("Account is disabled. Contact admin.")
	ErrCannotModifySelf  = errors.New("administrators cannot change their own status")
	ErrCannotDeleteAdmin = errors.New("administrator accounts cannot be deleted")
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every invalid field of a rejected record. It matches ErrValidation.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// AuthError carries a message key the client translates, e.g. AUTH.EMAIL_EXISTS.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Message keys returned by registration.
const (
	AuthEmailExists  = "AUTH.EMAIL_EXISTS"
	AuthInvalidEmail = "AUTH.INVALID_EMAIL"
	AuthWeakPassword = "AUTH.WEAK_PASSWORD"
	AuthUserNotFound = "AUTH.USER_NOT_FOUND"
	AuthUnknown      = "AUTH.UNKNOWN"
)
