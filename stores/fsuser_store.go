package stores

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	pa "github.com/phoneauth/phoneauth"
)

// FSUser implements the phoneauth.User interface.
type FSUser struct {
	UserId      string         `json:"user_id"`
	Uname       string         `json:"username"`
	Hash        string         `json:"password_hash"`
	Active      bool           `json:"is_active"`
	UserProfile map[string]any `json:"profile"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (u *FSUser) Id() string              { return u.UserId }
func (u *FSUser) Username() string        { return u.Uname }
func (u *FSUser) PasswordHash() string    { return u.Hash }
func (u *FSUser) IsActive() bool          { return u.Active }
func (u *FSUser) Profile() map[string]any { return u.UserProfile }

type usernameRef struct {
	UserID string `json:"user_id"`
}

func (s *FSStore) CreateUser(username, passwordHash string, profile map[string]any) (pa.User, error) {
	user := &FSUser{
		UserId:      newUserId(),
		Uname:       username,
		Hash:        passwordHash,
		Active:      true,
		UserProfile: profile,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.reserveUsername(username, user.UserId); err != nil {
		return nil, err
	}
	if err := s.writeUser(user); err != nil {
		s.releaseUsername(username)
		return nil, err
	}
	return user, nil
}

func (s *FSStore) GetUserById(userId string) (pa.User, error) {
	return s.readUser(userId)
}

func (s *FSStore) GetUserByUsername(username string) (pa.User, error) {
	data, err := os.ReadFile(s.usernamePath(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	var ref usernameRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	return s.readUser(ref.UserID)
}

func (s *FSStore) UpdatePassword(userId, passwordHash string) error {
	user, err := s.readUser(userId)
	if err != nil {
		return err
	}
	user.Hash = passwordHash
	user.UpdatedAt = time.Now()
	return s.writeUser(user)
}

// CreateAccount creates the user plus its contact records. The filesystem
// has no transactions, so this rolls back everything it created when a later
// step fails; the username and value files' exclusive creates still make
// duplicates lose atomically.
func (s *FSStore) CreateAccount(reg *pa.Registration) (pa.User, error) {
	user := &FSUser{
		UserId:    newUserId(),
		Uname:     reg.Username,
		Hash:      reg.PasswordHash,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		UserProfile: map[string]any{
			"first_name": reg.FirstName,
			"last_name":  reg.LastName,
		},
	}

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	if err := s.reserveUsername(reg.Username, user.UserId); err != nil {
		if errors.Is(err, pa.ErrDuplicateValue) {
			return nil, pa.FieldErrors{"username": "Username already exists"}
		}
		return nil, err
	}
	undo = append(undo, func() { s.releaseUsername(reg.Username) })

	if reg.Phone != "" {
		rec, err := s.AddPhone(user.UserId, reg.Phone)
		if err != nil {
			rollback()
			if errors.Is(err, pa.ErrDuplicateValue) {
				return nil, pa.FieldErrors{"phone": "Phone already exists"}
			}
			return nil, err
		}
		undo = append(undo, func() { s.removeRecord(rec) })
	}

	if reg.Email != "" {
		rec, err := s.AddEmail(user.UserId, reg.Email)
		if err != nil {
			rollback()
			if errors.Is(err, pa.ErrDuplicateValue) {
				return nil, pa.FieldErrors{"email": "Email already exists"}
			}
			return nil, err
		}
		undo = append(undo, func() { s.removeRecord(rec) })
	}

	if err := s.writeUser(user); err != nil {
		rollback()
		return nil, err
	}
	return user, nil
}

func (s *FSStore) reserveUsername(username, userId string) error {
	data, err := json.MarshalIndent(&usernameRef{UserID: userId}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeExclusiveFile(s.usernamePath(username), data); err != nil {
		if os.IsExist(err) {
			return pa.ErrDuplicateValue
		}
		return err
	}
	return nil
}

func (s *FSStore) releaseUsername(username string) {
	os.Remove(s.usernamePath(username))
}

func (s *FSStore) readUser(userId string) (*FSUser, error) {
	data, err := os.ReadFile(s.userPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	var user FSUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FSStore) writeUser(user *FSUser) error {
	path := s.userPath(user.UserId)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

// newUserId generates a cryptographically random user id.
func newUserId() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
