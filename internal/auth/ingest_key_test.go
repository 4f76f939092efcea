package auth

import (
	"strings"
	"testing"

	"doubtabase/internal/config"
)

func TestCreateIngestAPIKey(t *testing.T) {
	key, hash, prefix, err := CreateIngestAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(key, IngestKeyPrefix) {
		t.Errorf("key %q missing prefix", key)
	}
	if len(prefix) != ingestKeyVisibleLen {
		t.Errorf("visible prefix length = %d, want %d", len(prefix), ingestKeyVisibleLen)
	}
	if !strings.HasPrefix(key, prefix) {
		t.Errorf("visible prefix %q is not a prefix of the key", prefix)
	}
	if hash != HashIngestAPIKey(key) {
		t.Error("returned hash does not match HashIngestAPIKey")
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(hash))
	}
	if strings.Contains(hash, key[len(IngestKeyPrefix):]) {
		t.Error("hash must not embed key material")
	}
}

func TestCreateIngestAPIKeyUnique(t *testing.T) {
	a, _, _, err := CreateIngestAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	b, _, _, err := CreateIngestAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two minted keys must differ")
	}
}

func TestCreateInviteCode(t *testing.T) {
	code, hash, err := CreateInviteCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != config.RoomInviteCodeLength {
		t.Errorf("code length = %d, want %d", len(code), config.RoomInviteCodeLength)
	}
	if hash != HashInviteCode(code) {
		t.Error("returned hash does not match HashInviteCode")
	}
}
