//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	pa "github.com/phoneauth/phoneauth"
)

// Kind constants for Datastore entities
const (
	KindUser         = "User"
	KindUsername     = "Username"
	KindPhoneNumber  = "PhoneNumber"
	KindEmailAddress = "EmailAddress"
	KindContactRef   = "ContactRef"
)

// GAEUser implements the pa.User interface
type GAEUser struct {
	UserID      string         `json:"user_id"`
	Uname       string         `json:"username"`
	Hash        string         `json:"password_hash"`
	Active      bool           `json:"is_active"`
	UserProfile map[string]any `json:"profile"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (u *GAEUser) Id() string              { return u.UserID }
func (u *GAEUser) Username() string        { return u.Uname }
func (u *GAEUser) PasswordHash() string    { return u.Hash }
func (u *GAEUser) IsActive() bool          { return u.Active }
func (u *GAEUser) Profile() map[string]any { return u.UserProfile }

// Store implements pa.AccountStore using Google Cloud Datastore
type Store struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

// NewStore creates a new Datastore-backed account store
func NewStore(client *datastore.Client, namespace string) *Store {
	return &Store{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the store with the given context
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{
		client:    s.client,
		namespace: s.namespace,
		ctx:       ctx,
	}
}

func (s *Store) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) namespacedIDKey(kind string, id int64) *datastore.Key {
	key := datastore.IDKey(kind, id, nil)
	key.Namespace = s.namespace
	return key
}

func contactKindName(kind pa.ContactKind) string {
	if kind == pa.KindPhone {
		return KindPhoneNumber
	}
	return KindEmailAddress
}

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(username, passwordHash string, profile map[string]any) (pa.User, error) {
	userId := newUserId()
	now := time.Now()

	var profileBytes []byte
	if profile != nil {
		profileBytes, _ = json.Marshal(profile)
	}

	userKey := s.namespacedKey(KindUser, userId)
	unameKey := s.namespacedKey(KindUsername, strings.ToLower(username))

	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		if err := s.insertUsername(tx, unameKey, userId); err != nil {
			return err
		}
		_, err := tx.Put(userKey, &UserEntity{
			Key:          userKey,
			Username:     username,
			PasswordHash: passwordHash,
			IsActive:     true,
			Profile:      profileBytes,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return &GAEUser{
		UserID:      userId,
		Uname:       username,
		Hash:        passwordHash,
		Active:      true,
		UserProfile: profile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Store) GetUserById(userId string) (pa.User, error) {
	key := s.namespacedKey(KindUser, userId)
	var entity UserEntity
	if err := s.client.Get(s.ctx, key, &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	return entityToUser(userId, &entity), nil
}

func (s *Store) GetUserByUsername(username string) (pa.User, error) {
	key := s.namespacedKey(KindUsername, strings.ToLower(username))
	var ref UsernameEntity
	if err := s.client.Get(s.ctx, key, &ref); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	return s.GetUserById(ref.UserID)
}

func (s *Store) UpdatePassword(userId, passwordHash string) error {
	key := s.namespacedKey(KindUser, userId)
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(key, &entity); err != nil {
			return err
		}
		entity.PasswordHash = passwordHash
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(key, &entity)
		return err
	})
	if err == datastore.ErrNoSuchEntity {
		return pa.ErrRecordNotFound
	}
	return err
}

// ============================================================================
// ContactStore
// ============================================================================

func (s *Store) AddPhone(userId, phone string) (*pa.ContactRecord, error) {
	return s.addContact(pa.KindPhone, userId, pa.NormalizePhone(phone))
}

func (s *Store) AddEmail(userId, email string) (*pa.ContactRecord, error) {
	return s.addContact(pa.KindEmail, userId, pa.NormalizeEmail(email))
}

func (s *Store) addContact(kind pa.ContactKind, userId, value string) (*pa.ContactRecord, error) {
	id, err := s.allocateRecordId()
	if err != nil {
		return nil, err
	}

	var rec *pa.ContactRecord
	_, err = s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		entity, err := s.insertContact(tx, kind, id, userId, value)
		if err != nil {
			return err
		}
		rec = entity.ToRecord(kind)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// insertContact writes the value-keyed record plus its numeric-id index
// inside tx. The Get before Put is what makes the value key a uniqueness
// constraint; a concurrent duplicate loses the transaction.
func (s *Store) insertContact(tx *datastore.Transaction, kind pa.ContactKind, id int64, userId, value string) (*ContactEntity, error) {
	key := s.namespacedKey(contactKindName(kind), value)
	var existing ContactEntity
	err := tx.Get(key, &existing)
	if err == nil {
		return nil, pa.ErrDuplicateValue
	}
	if err != datastore.ErrNoSuchEntity {
		return nil, err
	}

	now := time.Now()
	entity := &ContactEntity{
		Key:       key,
		ID:        id,
		Value:     value,
		UserID:    userId,
		Verified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.Put(key, entity); err != nil {
		return nil, err
	}

	refKey := s.namespacedIDKey(KindContactRef, id)
	ref := &ContactRefEntity{Key: refKey, Kind: string(kind), Value: value}
	if _, err := tx.Put(refKey, ref); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Store) GetRecord(kind pa.ContactKind, id int64) (*pa.ContactRecord, error) {
	refKey := s.namespacedIDKey(KindContactRef, id)
	var ref ContactRefEntity
	if err := s.client.Get(s.ctx, refKey, &ref); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	if ref.Kind != string(kind) {
		return nil, pa.ErrRecordNotFound
	}
	return s.GetByValue(kind, ref.Value)
}

func (s *Store) GetByValue(kind pa.ContactKind, value string) (*pa.ContactRecord, error) {
	key := s.namespacedKey(contactKindName(kind), value)
	var entity ContactEntity
	if err := s.client.Get(s.ctx, key, &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	return entity.ToRecord(kind), nil
}

func (s *Store) UserRecords(userId string) ([]*pa.ContactRecord, error) {
	var records []*pa.ContactRecord
	for _, kind := range []pa.ContactKind{pa.KindPhone, pa.KindEmail} {
		query := datastore.NewQuery(contactKindName(kind)).
			FilterField("user_id", "=", userId)
		if s.namespace != "" {
			query = query.Namespace(s.namespace)
		}

		it := s.client.Run(s.ctx, query)
		for {
			var entity ContactEntity
			_, err := it.Next(&entity)
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, err
			}
			records = append(records, entity.ToRecord(kind))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *Store) MarkVerified(kind pa.ContactKind, id int64) error {
	rec, err := s.GetRecord(kind, id)
	if err != nil {
		return err
	}

	key := s.namespacedKey(contactKindName(kind), rec.Value)
	_, err = s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var entity ContactEntity
		if err := tx.Get(key, &entity); err != nil {
			return err
		}
		if entity.Verified {
			// Already verified: a no-op, not an error.
			return nil
		}
		entity.Verified = true
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(key, &entity)
		return err
	})
	if err == datastore.ErrNoSuchEntity {
		return pa.ErrRecordNotFound
	}
	return err
}

// ============================================================================
// AccountStore
// ============================================================================

// CreateAccount creates the user plus its contact records in a single
// Datastore transaction; any duplicate aborts the whole registration.
func (s *Store) CreateAccount(reg *pa.Registration) (pa.User, error) {
	ids, err := s.allocateRecordIds(2)
	if err != nil {
		return nil, err
	}

	userId := newUserId()
	now := time.Now()
	profile := map[string]any{
		"first_name": reg.FirstName,
		"last_name":  reg.LastName,
	}
	profileBytes, _ := json.Marshal(profile)

	userKey := s.namespacedKey(KindUser, userId)
	unameKey := s.namespacedKey(KindUsername, strings.ToLower(reg.Username))

	_, err = s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		if err := s.insertUsername(tx, unameKey, userId); err != nil {
			if errors.Is(err, pa.ErrDuplicateValue) {
				return pa.FieldErrors{"username": "Username already exists"}
			}
			return err
		}
		if _, err := tx.Put(userKey, &UserEntity{
			Key:          userKey,
			Username:     reg.Username,
			PasswordHash: reg.PasswordHash,
			IsActive:     true,
			Profile:      profileBytes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}
		if reg.Phone != "" {
			if _, err := s.insertContact(tx, pa.KindPhone, ids[0], userId, pa.NormalizePhone(reg.Phone)); err != nil {
				if errors.Is(err, pa.ErrDuplicateValue) {
					return pa.FieldErrors{"phone": "Phone already exists"}
				}
				return err
			}
		}
		if reg.Email != "" {
			if _, err := s.insertContact(tx, pa.KindEmail, ids[1], userId, pa.NormalizeEmail(reg.Email)); err != nil {
				if errors.Is(err, pa.ErrDuplicateValue) {
					return pa.FieldErrors{"email": "Email already exists"}
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &GAEUser{
		UserID:      userId,
		Uname:       reg.Username,
		Hash:        reg.PasswordHash,
		Active:      true,
		UserProfile: profile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Store) insertUsername(tx *datastore.Transaction, key *datastore.Key, userId string) error {
	var existing UsernameEntity
	err := tx.Get(key, &existing)
	if err == nil {
		return pa.ErrDuplicateValue
	}
	if err != datastore.ErrNoSuchEntity {
		return err
	}
	_, err = tx.Put(key, &UsernameEntity{Key: key, UserID: userId})
	return err
}

// allocateRecordId reserves a numeric contact-record id. Ids come from
// Datastore's allocator, so they are unique but not dense.
func (s *Store) allocateRecordId() (int64, error) {
	ids, err := s.allocateRecordIds(1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (s *Store) allocateRecordIds(n int) ([]int64, error) {
	incomplete := make([]*datastore.Key, n)
	for i := range incomplete {
		key := datastore.IncompleteKey(KindContactRef, nil)
		key.Namespace = s.namespace
		incomplete[i] = key
	}
	keys, err := s.client.AllocateIDs(s.ctx, incomplete)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, n)
	for i, key := range keys {
		ids[i] = key.ID
	}
	return ids, nil
}

func entityToUser(userId string, entity *UserEntity) *GAEUser {
	var profile map[string]any
	if entity.Profile != nil {
		json.Unmarshal(entity.Profile, &profile)
	}
	return &GAEUser{
		UserID:      userId,
		Uname:       entity.Username,
		Hash:        entity.PasswordHash,
		Active:      entity.IsActive,
		UserProfile: profile,
		CreatedAt:   entity.CreatedAt,
		UpdatedAt:   entity.UpdatedAt,
	}
}

func newUserId() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
