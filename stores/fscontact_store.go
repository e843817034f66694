package stores

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	pa "github.com/phoneauth/phoneauth"
)

// contactIdRef is the by-id index entry pointing at the value-keyed file.
type contactIdRef struct {
	Kind  pa.ContactKind `json:"kind"`
	Value string         `json:"value"`
}

func (s *FSStore) AddPhone(userId, phone string) (*pa.ContactRecord, error) {
	return s.addContact(pa.KindPhone, userId, pa.NormalizePhone(phone))
}

func (s *FSStore) AddEmail(userId, email string) (*pa.ContactRecord, error) {
	return s.addContact(pa.KindEmail, userId, pa.NormalizeEmail(email))
}

func (s *FSStore) addContact(kind pa.ContactKind, userId, value string) (*pa.ContactRecord, error) {
	id, err := s.nextContactId()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &pa.ContactRecord{
		ID:        id,
		Kind:      kind,
		Value:     value,
		UserID:    userId,
		Verified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}

	// The exclusive create on the value-keyed file is the uniqueness
	// constraint; a concurrent duplicate fails here, not at a pre-check.
	if err := writeExclusiveFile(s.contactPath(string(kind), value), data); err != nil {
		if os.IsExist(err) {
			return nil, pa.ErrDuplicateValue
		}
		return nil, err
	}

	refData, err := json.MarshalIndent(&contactIdRef{Kind: kind, Value: value}, "", "  ")
	if err == nil {
		idPath := s.contactIdPath(id)
		if err := os.MkdirAll(filepath.Dir(idPath), 0755); err == nil {
			err = writeAtomicFile(idPath, refData)
		}
		if err != nil {
			os.Remove(s.contactPath(string(kind), value))
			return nil, err
		}
	}

	return rec, nil
}

func (s *FSStore) GetRecord(kind pa.ContactKind, id int64) (*pa.ContactRecord, error) {
	data, err := os.ReadFile(s.contactIdPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	var ref contactIdRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	if ref.Kind != kind {
		return nil, pa.ErrRecordNotFound
	}
	return s.GetByValue(ref.Kind, ref.Value)
}

func (s *FSStore) GetByValue(kind pa.ContactKind, value string) (*pa.ContactRecord, error) {
	data, err := os.ReadFile(s.contactPath(string(kind), value))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pa.ErrRecordNotFound
		}
		return nil, err
	}
	var rec pa.ContactRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FSStore) UserRecords(userId string) ([]*pa.ContactRecord, error) {
	var records []*pa.ContactRecord
	for _, kind := range []pa.ContactKind{pa.KindPhone, pa.KindEmail} {
		dir := filepath.Join(s.StoragePath, "contacts", string(kind))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			var rec pa.ContactRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				continue
			}
			if rec.UserID == userId {
				records = append(records, &rec)
			}
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *FSStore) MarkVerified(kind pa.ContactKind, id int64) error {
	rec, err := s.GetRecord(kind, id)
	if err != nil {
		return err
	}
	if rec.Verified {
		// Already verified: a no-op, not an error.
		return nil
	}
	rec.Verified = true
	rec.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(s.contactPath(string(kind), rec.Value), data)
}

func (s *FSStore) removeRecord(rec *pa.ContactRecord) {
	os.Remove(s.contactPath(string(rec.Kind), rec.Value))
	os.Remove(s.contactIdPath(rec.ID))
}
