package wsaa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/altafiscal/go-afip/pkg/credential"
)

// FileStore caches tickets on disk, one XML file per fingerprint.
//
// Cache files contain bearer credentials, so the directory and files are
// created with owner-only permissions. Writes go through a temp file and
// an atomic rename: a concurrent reader sees either the old ticket or
// the new one, never a partial write.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileStore creates (if needed) the cache directory and returns a
// store whose Load rejects tickets older than ttl.
func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	return &FileStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Fingerprint derives the cache key for a (service, credential) pair.
// It hashes the service name with the absolute cert and key paths, so
// changing any of the three yields a different cache entry.
func Fingerprint(service string, cred *credential.Credential) string {
	h := sha256.New()
	h.Write([]byte(service))
	h.Write([]byte{0})
	h.Write([]byte(cred.CertPath))
	h.Write([]byte{0})
	h.Write([]byte(cred.KeyPath))
	return hex.EncodeToString(h.Sum(nil))
}

// Path returns the cache file location for a fingerprint.
func (s *FileStore) Path(fingerprint string) string {
	return filepath.Join(s.dir, "TA-"+fingerprint+".xml")
}

// Load returns the cached ticket for fingerprint if the file exists, is
// non-empty, was written within the TTL and the ticket itself has not
// expired. A stale or unreadable entry is reported as not found.
func (s *FileStore) Load(fingerprint string) (*Ticket, bool) {
	path := s.Path(fingerprint)

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return nil, false
	}
	if !s.now().Before(info.ModTime().Add(s.ttl)) {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	ticket, err := ParseTicket(data)
	if err != nil {
		return nil, false
	}
	if ticket.Expired(s.now()) {
		return nil, false
	}
	return ticket, true
}

// Save persists the ticket for fingerprint, replacing any previous entry
// wholesale. Callers treat a Save failure as a warning: the ticket is
// still usable in-memory for the current run.
func (s *FileStore) Save(fingerprint string, ticket *Ticket) error {
	data, err := ticket.XML()
	if err != nil {
		return fmt.Errorf("serializing ticket: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "TA-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting cache file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(fingerprint)); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
