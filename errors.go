package phoneauth

import "errors"

// Sentinel errors surfaced by the core.
var (
	// ErrNoAuthMethods is raised when AuthenticationMethods is configured
	// empty. This is a configuration error and is reported eagerly at
	// construction time, never masked as "no user found".
	ErrNoAuthMethods = errors.New("phoneauth: AuthenticationMethods can't be empty")

	// ErrInvalidCredentials is returned for every authentication failure:
	// unknown login, wrong password, or unusable account. Callers must not
	// be able to tell which one occurred.
	ErrInvalidCredentials = errors.New("phoneauth: invalid credentials")

	// ErrDuplicateValue is returned by stores when a phone number, email
	// address or username already exists in its namespace.
	ErrDuplicateValue = errors.New("phoneauth: value already exists")

	// ErrInvalidReference is returned when an opaque record reference does
	// not decode to a known (kind, id) pair.
	ErrInvalidReference = errors.New("phoneauth: invalid reference")

	// ErrRecordNotFound is returned by stores for missing rows.
	ErrRecordNotFound = errors.New("phoneauth: record not found")
)

// Error codes used in AuthError and JSON responses.
const (
	ErrCodeMissingField    = "missing_field"
	ErrCodeInvalidCreds    = "invalid_credentials"
	ErrCodeInvalidEmail    = "invalid_email"
	ErrCodeInvalidPhone    = "invalid_phone"
	ErrCodeInvalidUsername = "invalid_username"
	ErrCodeWeakPassword    = "weak_password"
	ErrCodePasswordMatch   = "password_mismatch"
	ErrCodeEmailExists     = "email_exists"
	ErrCodePhoneExists     = "phone_exists"
	ErrCodeUsernameTaken   = "username_taken"
)

// AuthError is a user-facing error attached to a specific form field.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// FieldErrors maps form field names to user-facing messages. It is the
// result type for registration and other multi-field operations; validation
// problems are collected here rather than raised one at a time.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	for field, msg := range f {
		return field + ": " + msg
	}
	return "invalid input"
}

// Add records a message for a field, keeping the first one reported.
func (f FieldErrors) Add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}
