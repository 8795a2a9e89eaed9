package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the fingerprint HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "VIDTUBE_TOKEN_HMAC_KEY"

	// MinHMACKeyBytes is the smallest key accepted when HMAC is required.
	MinHMACKeyBytes = 32
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Fingerprinter turns renewal tokens into the fixed-size value kept in the
// credential store. The zero value uses plain SHA-256.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns an HMAC-SHA256 fingerprinter for key, or a SHA-256
// one when key is empty.
func NewFingerprinter(key []byte) Fingerprinter {
	if len(key) == 0 {
		return Fingerprinter{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return Fingerprinter{key: k}
}

// FingerprinterFromEnv builds a Fingerprinter from VIDTUBE_TOKEN_HMAC_KEY.
// With require set, a missing or short key is an error.
func FingerprinterFromEnv(require bool) (Fingerprinter, error) {
	key, err := HMACKeyFromEnv(MinHMACKeyBytes)
	if err == nil {
		return NewFingerprinter(key), nil
	}
	if require || err == ErrHMACKeyTooShort {
		return Fingerprinter{}, err
	}
	return Fingerprinter{}, nil
}

// Keyed reports whether fingerprints are HMAC based.
func (f Fingerprinter) Keyed() bool { return len(f.key) > 0 }

// Fingerprint returns the 64-char hex digest of tok. Empty input stays empty.
func (f Fingerprinter) Fingerprint(tok string) string {
	if tok == "" {
		return ""
	}
	if f.Keyed() {
		return HashHMACSHA256Hex(tok, f.key)
	}
	return HashSHA256Hex(tok)
}

// Matches reports whether tok fingerprints to stored. An empty stored value
// never matches.
func (f Fingerprinter) Matches(tok, stored string) bool {
	return Equal(f.Fingerprint(tok), stored)
}

// Equal compares two fingerprints in constant time. Empty or mismatched
// lengths compare unequal.
func Equal(a, b string) bool {
	if a == "" || b == "" || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
