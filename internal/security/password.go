package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPassword is the platform's password digest: hex-encoded SHA-256 with
// no per-user salt. Clients send hash(plaintext) and the server stores
// hash(hash(plaintext)), so the function is applied exactly twice end to end.
// The unsalted scheme is kept for compatibility with existing stored digests.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares the once-hashed value supplied by a client against
// the stored double-applied digest.
func VerifyPassword(clientHash string, storedDigest string) bool {
	computed := HashPassword(clientHash)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
