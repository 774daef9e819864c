package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrUsernameTaken      = fmt.Errorf("Username is already taken.")
	ErrEmailInUse         = fmt.Errorf("Email is already in use.")
	ErrRoomNameTaken      = fmt.Errorf("chat room with this name already exists.")
	ErrInvalidCredentials = fmt.Errorf("Invalid email or password.")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrTokenRevoked       = fmt.Errorf("token has been revoked")
	ErrWrongTokenType     = fmt.Errorf("wrong token type")
)

// ValidationError reports a malformed or incomplete inbound payload.
// Its message is sent verbatim to the client.
type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) ValidationError {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e ValidationError) Error() string { return e.Message }

// AuthError reports a bearer token that could not be resolved to a user.
type AuthError struct {
	Message string
	Cause   error
}

func NewAuthError(cause error) AuthError {
	return AuthError{Message: "Invalid or expired token.", Cause: cause}
}

func (e AuthError) Error() string { return e.Message }

func (e AuthError) Unwrap() error { return e.Cause }

// StoreError wraps a persistence failure with the operation that produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error { return e.Err }
