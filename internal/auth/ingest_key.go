package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// IngestKeyPrefix marks a live ingest API key. The part after the prefix is
// 24 random bytes in unpadded url-safe base64.
const IngestKeyPrefix = "doubtakey_live_"

// ingestKeyVisibleLen is how much of the key is stored in clear for display.
const ingestKeyVisibleLen = 22

// CreateIngestAPIKey mints a new ingest key. Returns the full key (shown to
// the user exactly once), its SHA-256 hash for storage, and the visible
// prefix fragment.
func CreateIngestAPIKey() (key, hash, visiblePrefix string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("generate ingest key: %w", err)
	}

	key = IngestKeyPrefix + base64.RawURLEncoding.EncodeToString(raw)
	hash = HashIngestAPIKey(key)

	visiblePrefix = key
	if len(visiblePrefix) > ingestKeyVisibleLen {
		visiblePrefix = visiblePrefix[:ingestKeyVisibleLen]
	}
	return key, hash, visiblePrefix, nil
}

// HashIngestAPIKey returns the hex SHA-256 of a full key. Keys are stored and
// looked up only in this form.
func HashIngestAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// HashInviteCode returns the hex SHA-256 of a room invite code. Same storage
// rule as ingest keys: only the hash is persisted.
func HashInviteCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CreateInviteCode mints a room invite code and its storage hash.
func CreateInviteCode() (code, hash string, err error) {
	raw := make([]byte, 18)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate invite code: %w", err)
	}
	code = base64.RawURLEncoding.EncodeToString(raw)
	return code, HashInviteCode(code), nil
}
