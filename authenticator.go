package phoneauth

import "golang.org/x/crypto/bcrypt"

// UsableFunc lets hosts veto logins for accounts that exist but should not
// authenticate (suspended, pending deletion, ...). The default accepts any
// active user.
type UsableFunc func(User) bool

// Authenticator combines the resolver with password verification.
type Authenticator struct {
	Resolver *Resolver

	// Usable overrides the account-usable predicate. Optional.
	Usable UsableFunc
}

// Authenticate resolves a login string and verifies the password against the
// stored hash. Every failure - unknown login, wrong password, unusable
// account - returns the same ErrInvalidCredentials so callers cannot probe
// which identifiers exist.
func (a *Authenticator) Authenticate(login, password string) (User, error) {
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.Resolver.Resolve(login)
	if err != nil {
		if err == ErrNoAuthMethods {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !a.userUsable(user) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (a *Authenticator) userUsable(user User) bool {
	if a.Usable != nil {
		return a.Usable(user)
	}
	return user.IsActive()
}

// HashPassword hashes a plaintext password with bcrypt at default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
