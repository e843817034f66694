// Package stores provides a filesystem-backed implementation of the
// phoneauth store contracts, suitable for development and small
// applications. Production deployments should use the gorm or gae
// subpackages.
package stores

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// FSStore implements phoneauth.AccountStore on top of JSON files.
//
// # File Structure
//
//	{StoragePath}/
//	├── users/{userId}.json
//	├── usernames/{username}.json            username -> user id
//	├── contacts/phone/{value}.json          one file per phone record
//	├── contacts/email/{value}.json          one file per email record
//	├── contacts/ids/{id}.json               record id -> (kind, value)
//	└── counters/contact_id
//
// Value- and username-keyed files are created with O_EXCL, so duplicate
// inserts lose the race at the filesystem level rather than in application
// code. Record id allocation is serialized with an in-process mutex;
// multi-process deployments should use a database-backed store.
type FSStore struct {
	StoragePath string

	mu sync.Mutex // guards the contact id counter
}

// NewFSStore creates a filesystem-backed account store rooted at storagePath.
func NewFSStore(storagePath string) *FSStore {
	return &FSStore{StoragePath: storagePath}
}

func (s *FSStore) userPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", filepath.Base(userId)+".json")
}

func (s *FSStore) usernamePath(username string) string {
	return filepath.Join(s.StoragePath, "usernames", safeName(strings.ToLower(username))+".json")
}

func (s *FSStore) contactPath(kind, value string) string {
	return filepath.Join(s.StoragePath, "contacts", kind, safeName(value)+".json")
}

func (s *FSStore) contactIdPath(id int64) string {
	return filepath.Join(s.StoragePath, "contacts", "ids", strconv.FormatInt(id, 10)+".json")
}

// nextContactId allocates the next record id from the counter file.
func (s *FSStore) nextContactId() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.StoragePath, "counters", "contact_id")
	next := int64(1)
	if data, err := os.ReadFile(path); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil {
			next = n + 1
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, err
	}
	if err := writeAtomicFile(path, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}
