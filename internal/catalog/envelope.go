package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skillsync/internal/fsutil"
	"skillsync/internal/skill"
)

// ErrCorrupt means the cache file exists but failed its integrity check.
var ErrCorrupt = errors.New("CAT_INTEGRITY: cache checksum mismatch")

// Envelope is the persisted aggregation result.
type Envelope struct {
	LastUpdate  time.Time     `json:"last_update"`
	ETag        string        `json:"etag,omitempty"`
	ContentHash string        `json:"contentHash,omitempty"`
	Skills      []skill.Skill `json:"skills"`
}

// Checksum is the hex SHA-256 of the JSON encoding of skills.
func Checksum(skills []skill.Skill) (string, error) {
	if skills == nil {
		skills = []skill.Skill{}
	}
	blob, err := json.Marshal(skills)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}

// Expired reports whether the envelope is older than maxAge at now.
func (e Envelope) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.LastUpdate) >= maxAge
}

// LoadEnvelope reads and verifies the cache file. A missing file yields
// os.ErrNotExist; any checksum problem yields ErrCorrupt.
func LoadEnvelope(path string) (Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sum, err := Checksum(env.Skills)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.ContentHash == "" || env.ContentHash != sum {
		return Envelope{}, ErrCorrupt
	}
	return env, nil
}

// SaveEnvelope stamps the checksum and writes the file atomically.
func SaveEnvelope(path string, env Envelope) (Envelope, error) {
	sum, err := Checksum(env.Skills)
	if err != nil {
		return Envelope{}, fmt.Errorf("CAT_ENCODE: %w", err)
	}
	env.ContentHash = sum
	blob, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return Envelope{}, fmt.Errorf("CAT_ENCODE: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Envelope{}, fmt.Errorf("CAT_WRITE: %w", err)
	}
	if err := fsutil.AtomicWrite(path, blob, 0o644); err != nil {
		return Envelope{}, fmt.Errorf("CAT_WRITE: %w", err)
	}
	return env, nil
}
