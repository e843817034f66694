//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	pa "github.com/phoneauth/phoneauth"
)

// JSONMap is a helper type for storing JSON maps in GORM
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// UserModel is the GORM model for user accounts
type UserModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Username     string    `gorm:"uniqueIndex;size:150"`
	PasswordHash string    `gorm:"size:128"`
	IsActive     bool      `gorm:"default:true"`
	Profile      JSONMap   `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// PhoneNumberModel is the GORM model for phone contact records
type PhoneNumberModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:64;index"`
	Value     string    `gorm:"uniqueIndex;size:32"`
	Verified  bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (PhoneNumberModel) TableName() string {
	return "phone_numbers"
}

func (m *PhoneNumberModel) ToRecord() *pa.ContactRecord {
	return &pa.ContactRecord{
		ID:        m.ID,
		Kind:      pa.KindPhone,
		Value:     m.Value,
		UserID:    m.UserID,
		Verified:  m.Verified,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// EmailAddressModel is the GORM model for email contact records.
// Value holds the lowercased address, which is what makes email lookup
// case-insensitive.
type EmailAddressModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:64;index"`
	Value     string    `gorm:"uniqueIndex;size:255"`
	Verified  bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (EmailAddressModel) TableName() string {
	return "email_addresses"
}

func (m *EmailAddressModel) ToRecord() *pa.ContactRecord {
	return &pa.ContactRecord{
		ID:        m.ID,
		Kind:      pa.KindEmail,
		Value:     m.Value,
		UserID:    m.UserID,
		Verified:  m.Verified,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
