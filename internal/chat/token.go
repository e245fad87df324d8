package chat

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// IssueToken generates a 256-bit visitor access token and its SHA-256 hex
// digest. The raw token is handed to the visitor exactly once and never
// persisted or logged; only the digest is stored on the chat row.
func IssueToken() (raw string, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, DigestToken(raw), nil
}

func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyToken recomputes the digest of raw and compares it against the
// stored digest in constant time.
func VerifyToken(raw, storedDigest string) bool {
	if raw == "" || storedDigest == "" {
		return false
	}
	computed := DigestToken(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
