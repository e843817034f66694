package phoneauth

import "time"

// ContactKind distinguishes the two contact-record namespaces.
type ContactKind string

const (
	KindPhone ContactKind = "phone"
	KindEmail ContactKind = "email"
)

// User represents a host account as seen by this library. Exactly one
// password hash per account; contact records hang off the user id.
type User interface {
	Id() string
	Username() string
	PasswordHash() string
	// IsActive is the "account usable" predicate consulted on login.
	IsActive() bool
	Profile() map[string]any
}

// ContactRecord is one claimed phone number or email address owned by a
// user. Value is stored normalized (phones separator-stripped, emails
// lowercased) and is unique across all records of the same kind.
type ContactRecord struct {
	ID        int64       `json:"id"`
	Kind      ContactKind `json:"kind"`
	Value     string      `json:"value"`
	UserID    string      `json:"user_id"`
	Verified  bool        `json:"verified"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// UserStore manages user accounts.
type UserStore interface {
	// CreateUser creates a user. Returns ErrDuplicateValue if the
	// username is taken.
	CreateUser(username, passwordHash string, profile map[string]any) (User, error)

	// GetUserById retrieves a user by id. Returns ErrRecordNotFound if
	// no such user exists.
	GetUserById(userId string) (User, error)

	// GetUserByUsername retrieves a user by exact username.
	GetUserByUsername(username string) (User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(userId, passwordHash string) error
}

// ContactStore manages the lifecycle of contact records.
//
// AddPhone and AddEmail must be atomic: uniqueness is enforced by the
// storage layer itself (unique index, exclusive file create, key insert),
// not by a check-then-insert, so two concurrent adds of the same value
// yield exactly one success and one ErrDuplicateValue.
type ContactStore interface {
	AddPhone(userId, phone string) (*ContactRecord, error)
	AddEmail(userId, email string) (*ContactRecord, error)

	// GetRecord retrieves a record by (kind, id).
	GetRecord(kind ContactKind, id int64) (*ContactRecord, error)

	// GetByValue retrieves the record for a normalized value. At most one
	// record can match because values are unique per kind.
	GetByValue(kind ContactKind, value string) (*ContactRecord, error)

	// UserRecords lists all records owned by a user, lowest id first.
	UserRecords(userId string) ([]*ContactRecord, error)

	// MarkVerified flips the verified flag. Idempotent: verifying an
	// already-verified record is a no-op.
	MarkVerified(kind ContactKind, id int64) error
}

// AccountStore combines the stores and adds the one operation that must
// span them transactionally: registration. A user row must never exist
// without its contact records, and any duplicate aborts the whole create.
type AccountStore interface {
	UserStore
	ContactStore

	// CreateAccount creates the user plus its phone/email records
	// all-or-nothing. Duplicate values surface as FieldErrors keyed by
	// the offending field, indistinguishable from a pre-check failure.
	CreateAccount(reg *Registration) (User, error)
}
