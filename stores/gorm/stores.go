//go:build !wasm
// +build !wasm

package gorm

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"gorm.io/gorm"

	pa "github.com/phoneauth/phoneauth"
)

// AutoMigrate runs database migrations for all phoneauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&PhoneNumberModel{},
		&EmailAddressModel{},
	)
}

// GORMUser implements the pa.User interface
type GORMUser struct {
	model *UserModel
}

func (u *GORMUser) Id() string              { return u.model.ID }
func (u *GORMUser) Username() string        { return u.model.Username }
func (u *GORMUser) PasswordHash() string    { return u.model.PasswordHash }
func (u *GORMUser) IsActive() bool          { return u.model.IsActive }
func (u *GORMUser) Profile() map[string]any { return u.model.Profile }

// Store implements pa.AccountStore using GORM.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// =============================================================================
// UserStore
// =============================================================================

func (s *Store) CreateUser(username, passwordHash string, profile map[string]any) (pa.User, error) {
	model := &UserModel{
		ID:           newUserId(),
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		Profile:      profile,
	}
	if err := s.db.Create(model).Error; err != nil {
		return nil, translateErr(err)
	}
	return &GORMUser{model: model}, nil
}

func (s *Store) GetUserById(userId string) (pa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", userId).Error; err != nil {
		return nil, translateErr(err)
	}
	return &GORMUser{model: &model}, nil
}

func (s *Store) GetUserByUsername(username string) (pa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "username = ?", username).Error; err != nil {
		return nil, translateErr(err)
	}
	return &GORMUser{model: &model}, nil
}

func (s *Store) UpdatePassword(userId, passwordHash string) error {
	res := s.db.Model(&UserModel{}).Where("id = ?", userId).Update("password_hash", passwordHash)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return pa.ErrRecordNotFound
	}
	return nil
}

// =============================================================================
// ContactStore
// =============================================================================

func (s *Store) AddPhone(userId, phone string) (*pa.ContactRecord, error) {
	return s.addPhone(s.db, userId, phone)
}

func (s *Store) AddEmail(userId, email string) (*pa.ContactRecord, error) {
	return s.addEmail(s.db, userId, email)
}

func (s *Store) addPhone(db *gorm.DB, userId, phone string) (*pa.ContactRecord, error) {
	model := &PhoneNumberModel{UserID: userId, Value: pa.NormalizePhone(phone)}
	// The unique index on value is the constraint; no pre-check.
	if err := db.Create(model).Error; err != nil {
		return nil, translateErr(err)
	}
	return model.ToRecord(), nil
}

func (s *Store) addEmail(db *gorm.DB, userId, email string) (*pa.ContactRecord, error) {
	model := &EmailAddressModel{UserID: userId, Value: pa.NormalizeEmail(email)}
	if err := db.Create(model).Error; err != nil {
		return nil, translateErr(err)
	}
	return model.ToRecord(), nil
}

func (s *Store) GetRecord(kind pa.ContactKind, id int64) (*pa.ContactRecord, error) {
	if kind == pa.KindPhone {
		var model PhoneNumberModel
		if err := s.db.First(&model, "id = ?", id).Error; err != nil {
			return nil, translateErr(err)
		}
		return model.ToRecord(), nil
	}
	var model EmailAddressModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return model.ToRecord(), nil
}

// GetByValue fetches a record by normalized value. Values carry a unique
// index; ordering by id keeps the result deterministic even against legacy
// tables where the index is missing.
func (s *Store) GetByValue(kind pa.ContactKind, value string) (*pa.ContactRecord, error) {
	if kind == pa.KindPhone {
		var model PhoneNumberModel
		if err := s.db.Order("id").First(&model, "value = ?", value).Error; err != nil {
			return nil, translateErr(err)
		}
		return model.ToRecord(), nil
	}
	var model EmailAddressModel
	if err := s.db.Order("id").First(&model, "value = ?", value).Error; err != nil {
		return nil, translateErr(err)
	}
	return model.ToRecord(), nil
}

func (s *Store) UserRecords(userId string) ([]*pa.ContactRecord, error) {
	var phones []PhoneNumberModel
	if err := s.db.Order("id").Find(&phones, "user_id = ?", userId).Error; err != nil {
		return nil, translateErr(err)
	}
	var emails []EmailAddressModel
	if err := s.db.Order("id").Find(&emails, "user_id = ?", userId).Error; err != nil {
		return nil, translateErr(err)
	}

	records := make([]*pa.ContactRecord, 0, len(phones)+len(emails))
	for i := range phones {
		records = append(records, phones[i].ToRecord())
	}
	for i := range emails {
		records = append(records, emails[i].ToRecord())
	}
	return records, nil
}

// MarkVerified flips the verified flag; the filtered update makes re-verifying
// an already-verified record a no-op.
func (s *Store) MarkVerified(kind pa.ContactKind, id int64) error {
	var res *gorm.DB
	if kind == pa.KindPhone {
		res = s.db.Model(&PhoneNumberModel{}).Where("id = ? AND verified = ?", id, false).Update("verified", true)
	} else {
		res = s.db.Model(&EmailAddressModel{}).Where("id = ? AND verified = ?", id, false).Update("verified", true)
	}
	return translateErr(res.Error)
}

// =============================================================================
// AccountStore
// =============================================================================

// CreateAccount creates the user and its contact records in one transaction;
// any duplicate aborts the whole registration.
func (s *Store) CreateAccount(reg *pa.Registration) (pa.User, error) {
	model := &UserModel{
		ID:           newUserId(),
		Username:     reg.Username,
		PasswordHash: reg.PasswordHash,
		IsActive:     true,
		Profile: JSONMap{
			"first_name": reg.FirstName,
			"last_name":  reg.LastName,
		},
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			if isDuplicate(err) {
				return pa.FieldErrors{"username": "Username already exists"}
			}
			return err
		}
		if reg.Phone != "" {
			if _, err := s.addPhone(tx, model.ID, reg.Phone); err != nil {
				if errors.Is(err, pa.ErrDuplicateValue) {
					return pa.FieldErrors{"phone": "Phone already exists"}
				}
				return err
			}
		}
		if reg.Email != "" {
			if _, err := s.addEmail(tx, model.ID, reg.Email); err != nil {
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
	return &GORMUser{model: model}, nil
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pa.ErrRecordNotFound
	case isDuplicate(err):
		return pa.ErrDuplicateValue
	default:
		return err
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func newUserId() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
