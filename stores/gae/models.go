//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	pa "github.com/phoneauth/phoneauth"
)

// UserEntity is the Datastore entity for user accounts.
// Key format: user id.
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	Username     string         `datastore:"username"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	IsActive     bool           `datastore:"is_active"`
	Profile      []byte         `datastore:"profile,noindex"` // JSON encoded
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
}

// UsernameEntity reserves a username.
// Key format: lowercased username.
type UsernameEntity struct {
	Key    *datastore.Key `datastore:"__key__"`
	UserID string         `datastore:"user_id"`
}

// ContactEntity is the Datastore entity for phone and email records. The
// same shape is stored under the PhoneNumber and EmailAddress kinds.
// Key format: normalized value.
type ContactEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	ID        int64          `datastore:"id"`
	Value     string         `datastore:"value"`
	UserID    string         `datastore:"user_id"`
	Verified  bool           `datastore:"verified"`
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

func (e *ContactEntity) ToRecord(kind pa.ContactKind) *pa.ContactRecord {
	return &pa.ContactRecord{
		ID:        e.ID,
		Kind:      kind,
		Value:     e.Value,
		UserID:    e.UserID,
		Verified:  e.Verified,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// ContactRefEntity maps an allocated numeric record id back to the
// value-keyed contact entity.
// Key format: numeric record id.
type ContactRefEntity struct {
	Key   *datastore.Key `datastore:"__key__"`
	Kind  string         `datastore:"kind"`
	Value string         `datastore:"value"`
}
