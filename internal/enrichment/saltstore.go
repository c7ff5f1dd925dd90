package enrichment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
)

const (
	saltLength   = 8
	saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// SaltStore persists one random salt per anonymization time bucket, as one
// file per bucket key under dir. A bucket's salt is generated on first use
// and reused for the bucket's lifetime, across runs. Creation writes a temp
// file and links it into place: when two processes race on the same bucket,
// exactly one salt wins, and the loser re-reads a fully written file.
type SaltStore struct {
	dir    string
	cache  map[string]string
	logger *pterm.Logger
}

// NewSaltStore returns a store rooted at dir. The directory is created
// lazily on the first salt generation.
func NewSaltStore(dir string, logger *pterm.Logger) *SaltStore {
	return &SaltStore{
		dir:    dir,
		cache:  make(map[string]string),
		logger: logger,
	}
}

// Salt returns the persisted salt for bucket, generating and persisting one
// if the bucket has none yet.
func (s *SaltStore) Salt(bucket string) (string, error) {
	if salt, ok := s.cache[bucket]; ok {
		return salt, nil
	}

	path := filepath.Join(s.dir, bucket)

	data, err := os.ReadFile(path)
	if err == nil {
		salt := strings.TrimSpace(string(data))
		s.cache[bucket] = salt
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read salt %s: %w", path, err)
	}

	salt, err := randomSalt()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create salts directory %s: %w", s.dir, err)
	}

	// The salt is written to a temp file first and only then linked under
	// the bucket name, so the file is complete the moment it is visible.
	// A plain exclusive create would expose an empty file between create
	// and write, and a racing reader would cache "" as the salt.
	tmp, err := os.CreateTemp(s.dir, bucket+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create salt %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(salt); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write salt %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write salt %s: %w", path, err)
	}

	err = os.Link(tmpPath, path)
	os.Remove(tmpPath)
	if os.IsExist(err) {
		// Lost the creation race, the other writer's salt is authoritative.
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("re-read salt %s: %w", path, err)
		}
		salt := strings.TrimSpace(string(data))
		s.cache[bucket] = salt
		return salt, nil
	}
	if err != nil {
		return "", fmt.Errorf("create salt %s: %w", path, err)
	}

	s.logger.Debug("Generated anonymization salt", s.logger.Args("bucket", bucket))
	s.cache[bucket] = salt
	return salt, nil
}

func randomSalt() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(saltAlphabet)))
	for i := 0; i < saltLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		b.WriteByte(saltAlphabet[n.Int64()])
	}
	return b.String(), nil
}
