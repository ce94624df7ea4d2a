package entity

import "errors"

var (
	ErrConflict           = errors.New("username, email or custom url already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
	ErrUpload             = errors.New("file upload failed")
)

// ValidationError reports the first registration rule an input broke.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
