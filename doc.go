// Package phoneauth provides multi-modal user authentication for Go
// applications: users log in with a phone number, an email address, or a
// username, all against a single password.
//
// PhoneAuth separates authentication concerns into two layers: users and
// contact records. This keeps one account per person no matter how many
// ways they can log in.
//
// # Architecture
//
// User: A unique account in your system. Users are identified by a user ID
// and carry the username, the password hash, the active flag, and profile
// information.
//
// ContactRecord: A phone number or email address that belongs to a user.
// Records have a verification status and a globally unique value, so any
// value resolves to at most one account.
//
// Which login shapes are accepted is configuration, not code. The login
// string is classified against the configured methods in order (phone,
// then email, then username by default) and the first match decides which
// lookup runs. An empty method list is a configuration error reported at
// construction time.
//
// # Basic Usage
//
// Set up a store and mount the handlers:
//
//	import (
//	    "github.com/phoneauth/phoneauth"
//	    "github.com/phoneauth/phoneauth/stores"
//	)
//
//	cfg := phoneauth.DefaultConfig()
//	cfg.SecretKey = os.Getenv("SECRET_KEY")
//
//	store := stores.NewFSStore("/path/to/storage")
//	auth, err := phoneauth.New(cfg, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	mux := http.NewServeMux()
//	mux.Handle("/accounts/", auth.Handler())
//
// This mounts registration, login, logout, contact verification, and
// password reset under /accounts/.
//
// # Store Implementations
//
// The stores package provides a file-based implementation suitable for
// development and small applications. The stores/gorm package backs the
// same contracts with any GORM-supported database and is the recommended
// production backend; stores/gae does the same on Google Cloud Datastore.
//
// # Security
//
// Passwords are hashed using bcrypt with default cost. Login failures are
// reported with a single uniform message whether the account was missing,
// inactive, or the password wrong, so the endpoint cannot be used to probe
// which identifiers exist. Verification and password reset links use the
// same always-succeed surface.
//
// Verification and reset tokens are not stored anywhere. Each token is an
// HMAC over the state it is meant to change (the record's value and
// verified flag, or the user's password hash and active flag), so using a
// link once, or changing the underlying state, invalidates it without any
// bookkeeping. Tokens expire after 72 hours by default.
package phoneauth
