package phoneauth

import "time"

// Method is one identifier namespace a login string can be resolved in.
type Method string

const (
	MethodPhone    Method = "phone"
	MethodEmail    Method = "email"
	MethodUsername Method = "username"
)

// Config is the library configuration. It is built once at startup, validated
// eagerly, and passed by reference into the resolver, authenticator and token
// engine. There is no process-wide settings object.
type Config struct {
	// AuthenticationMethods is the ordered allow-list of namespaces the
	// resolver tries. Order matters: the first method whose validator
	// accepts a login string wins. Must be non-empty.
	AuthenticationMethods []Method

	// Per-field requiredness for registration.
	RegisterUsernameRequired        bool
	RegisterEmailRequired           bool
	RegisterFirstNameRequired       bool
	RegisterLastNameRequired        bool
	RegisterConfirmPasswordRequired bool

	// Redirect targets after login/logout for browser flows.
	LoginRedirectURL  string
	LogoutRedirectURL string

	// SecretKey keys the verification/reset token HMAC and signs session
	// JWTs. Must be set in production.
	SecretKey string

	// TokenMaxAge bounds how long a verification or reset link stays
	// valid. Follows the host's password-reset timeout by convention.
	TokenMaxAge time.Duration

	MinPasswordLength int
}

// DefaultConfig mirrors the defaults of the original settings surface:
// all three methods enabled, every registration field required.
func DefaultConfig() *Config {
	return &Config{
		AuthenticationMethods:           []Method{MethodPhone, MethodEmail, MethodUsername},
		RegisterUsernameRequired:        true,
		RegisterEmailRequired:           true,
		RegisterFirstNameRequired:       true,
		RegisterLastNameRequired:        true,
		RegisterConfirmPasswordRequired: true,
		LoginRedirectURL:                "/accounts/profile/",
		LogoutRedirectURL:               "/",
		TokenMaxAge:                     72 * time.Hour,
		MinPasswordLength:               8,
	}
}

// Validate reports configuration errors. It must be called before the first
// request is served; an empty method set is fatal, not a per-request error.
func (c *Config) Validate() error {
	if len(c.AuthenticationMethods) == 0 {
		return ErrNoAuthMethods
	}
	for _, m := range c.AuthenticationMethods {
		switch m {
		case MethodPhone, MethodEmail, MethodUsername:
		default:
			return &AuthError{Code: "bad_method", Message: "unknown authentication method: " + string(m)}
		}
	}
	return nil
}

// EnsureDefaults fills zero values so a partially built Config behaves.
func (c *Config) EnsureDefaults() *Config {
	if c.LoginRedirectURL == "" {
		c.LoginRedirectURL = "/accounts/profile/"
	}
	if c.LogoutRedirectURL == "" {
		c.LogoutRedirectURL = "/"
	}
	if c.TokenMaxAge <= 0 {
		c.TokenMaxAge = 72 * time.Hour
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = 8
	}
	return c
}
